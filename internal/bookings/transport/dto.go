// Package transport defines request and response DTOs for the bookings API.
package transport

import (
	"encoding/json"
	"time"
)

// BookingResponse is the API shape of a booking.
type BookingResponse struct {
	ID              string          `json:"id"`
	CalendarEventID string          `json:"calendarEventId,omitempty"`
	UserID          string          `json:"userId"`
	ServiceID       string          `json:"serviceId,omitempty"`
	ClientName      string          `json:"clientName"`
	ClientEmail     string          `json:"clientEmail"`
	ClientPhone     string          `json:"clientPhone,omitempty"`
	Title           string          `json:"title"`
	ScheduledAt     *time.Time      `json:"scheduledAt,omitempty"`
	Timezone        string          `json:"timezone,omitempty"`
	MeetingLink     string          `json:"meetingLink,omitempty"`
	Note            string          `json:"note,omitempty"`
	IntakeForm      json.RawMessage `json:"intakeForm,omitempty"`
	Status          string          `json:"status"`
	CancelledAt     *time.Time      `json:"cancelledAt,omitempty"`
	RescheduledFrom string          `json:"rescheduledFrom,omitempty"`
	ProposalSentAt  *time.Time      `json:"proposalSentAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// ListBookingsRequest filters the admin booking list.
type ListBookingsRequest struct {
	Status string `form:"status" validate:"omitempty,oneof=SCHEDULED RESCHEDULED CANCELLED COMPLETED PROPOSAL"`
	UserID string `form:"userId" validate:"omitempty,uuid"`
	Page   int    `form:"page" validate:"omitempty,min=1"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

// RescheduleBookingRequest moves a booking to a new slot.
type RescheduleBookingRequest struct {
	ScheduledAt time.Time `json:"scheduledAt" validate:"required"`
	Timezone    string    `json:"timezone" validate:"omitempty,max=64"`
}

// CancelBookingRequest cancels a booking.
type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// UpdateBookingStatusRequest moves a booking to a new status (admin).
type UpdateBookingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=SCHEDULED RESCHEDULED CANCELLED COMPLETED PROPOSAL"`
}

// SubmitIntakeFormRequest attaches the pre-visit intake form to a booking.
type SubmitIntakeFormRequest struct {
	Form map[string]interface{} `json:"form" validate:"required"`
}

// BookingStatsResponse is the admin overview of the booking pipeline.
type BookingStatsResponse struct {
	Counts   map[string]int `json:"counts"`
	Upcoming int            `json:"upcoming"`
	Total    int            `json:"total"`
}

// CreateBookingRequest books a consultation directly through the portal,
// outside the calendar webhook flow.
type CreateBookingRequest struct {
	ServiceID   string    `json:"serviceId" validate:"omitempty,uuid"`
	Title       string    `json:"title" validate:"omitempty,max=200"`
	ScheduledAt time.Time `json:"scheduledAt" validate:"required"`
	Timezone    string    `json:"timezone" validate:"omitempty,max=64"`
	Note        string    `json:"note" validate:"max=2000"`
}
