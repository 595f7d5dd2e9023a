// Package transport defines the proposal request and response shapes.
package transport

import (
	"encoding/json"
	"time"
)

// ProposalResponse is the full proposal representation for admin endpoints.
type ProposalResponse struct {
	ID              string          `json:"id"`
	BookingID       string          `json:"bookingId"`
	Status          string          `json:"status"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	ServicesOffered json.RawMessage `json:"servicesOffered,omitempty"`
	TotalCents      int64           `json:"totalCents"`
	Currency        string          `json:"currency"`
	ValidUntil      *time.Time      `json:"validUntil,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	PublicToken     string          `json:"publicToken"`
	SentAt          *time.Time      `json:"sentAt,omitempty"`
	ViewedAt        *time.Time      `json:"viewedAt,omitempty"`
	AcceptedAt      *time.Time      `json:"acceptedAt,omitempty"`
	RejectedAt      *time.Time      `json:"rejectedAt,omitempty"`
	RejectionReason string          `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// PublicProposalResponse is the client-facing view behind the public token.
// Internal identifiers stay out of it.
type PublicProposalResponse struct {
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	ServicesOffered json.RawMessage `json:"servicesOffered,omitempty"`
	TotalCents      int64           `json:"totalCents"`
	Currency        string          `json:"currency"`
	ValidUntil      *time.Time      `json:"validUntil,omitempty"`
	Status          string          `json:"status"`
	ClientName      string          `json:"clientName"`
}

// CreateProposalRequest creates a DRAFT proposal against a booking.
type CreateProposalRequest struct {
	Title           string                   `json:"title" validate:"omitempty,max=200"`
	Description     string                   `json:"description" validate:"omitempty,max=5000"`
	ServicesOffered []map[string]interface{} `json:"servicesOffered" validate:"omitempty,dive"`
	TotalCents      int64                    `json:"totalCents" validate:"min=0"`
	Currency        string                   `json:"currency" validate:"omitempty,len=3"`
	ValidDays       int                      `json:"validDays" validate:"min=0,max=365"`
	Notes           string                   `json:"notes" validate:"omitempty,max=2000"`
}

// ListProposalsRequest filters the admin proposal listing.
type ListProposalsRequest struct {
	Status string `form:"status" validate:"omitempty,oneof=DRAFT SENT VIEWED ACCEPTED REJECTED"`
}

// RejectProposalRequest carries the mandatory rejection reason.
type RejectProposalRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// FunnelStatsResponse is the read-only conversion funnel aggregate.
type FunnelStatsResponse struct {
	Counts         map[string]int `json:"counts"`
	AcceptanceRate float64        `json:"acceptanceRate"`
	ViewRate       float64        `json:"viewRate"`
}
