// Package transport defines request and response DTOs for the catalog API.
package transport

import "time"

// CareServiceResponse is the API shape of a catalog entry.
type CareServiceResponse struct {
	ID                 string    `json:"id"`
	Slug               string    `json:"slug"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	BasePriceCents     int64     `json:"basePriceCents"`
	Currency           string    `json:"currency"`
	DurationMinutes    int       `json:"durationMinutes"`
	IsFreeConsultation bool      `json:"isFreeConsultation"`
	Active             bool      `json:"active"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// CreateCareServiceRequest creates a catalog entry.
type CreateCareServiceRequest struct {
	Slug               string `json:"slug" validate:"required,min=2,max=100"`
	Name               string `json:"name" validate:"required,min=2,max=200"`
	Description        string `json:"description" validate:"max=2000"`
	BasePriceCents     int64  `json:"basePriceCents" validate:"min=0"`
	Currency           string `json:"currency" validate:"omitempty,len=3"`
	DurationMinutes    int    `json:"durationMinutes" validate:"required,min=5,max=600"`
	IsFreeConsultation bool   `json:"isFreeConsultation"`
}

// UpdateCareServiceRequest updates a catalog entry.
type UpdateCareServiceRequest struct {
	Name               string `json:"name" validate:"required,min=2,max=200"`
	Description        string `json:"description" validate:"max=2000"`
	BasePriceCents     int64  `json:"basePriceCents" validate:"min=0"`
	Currency           string `json:"currency" validate:"omitempty,len=3"`
	DurationMinutes    int    `json:"durationMinutes" validate:"required,min=5,max=600"`
	IsFreeConsultation bool   `json:"isFreeConsultation"`
	Active             bool   `json:"active"`
}

// ListCareServicesRequest filters the catalog listing.
type ListCareServicesRequest struct {
	IncludeInactive bool `form:"includeInactive"`
}
