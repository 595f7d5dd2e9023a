// Package transport defines request and response DTOs for the invoices API.
package transport

import "time"

// InvoiceResponse is the API shape of an invoice.
type InvoiceResponse struct {
	ID            string     `json:"id"`
	BookingID     string     `json:"bookingId"`
	InvoiceNumber string     `json:"invoiceNumber"`
	AmountCents   int64      `json:"amountCents"`
	TotalCents    int64      `json:"totalCents"`
	Currency      string     `json:"currency"`
	Status        string     `json:"status"`
	IssuedAt      time.Time  `json:"issuedAt"`
	DueAt         *time.Time `json:"dueAt,omitempty"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
	HasDocument   bool       `json:"hasDocument"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// CreateInvoiceRequest issues an invoice for a booking. TotalCents covers
// extras on top of the care service charge; when zero it defaults to the
// payment amount.
type CreateInvoiceRequest struct {
	TotalCents int64 `json:"totalCents" validate:"min=0"`
	DueDays    int   `json:"dueDays" validate:"min=0,max=365"`
}

// ListInvoicesRequest filters the invoice listing.
type ListInvoicesRequest struct {
	Status string `form:"status" validate:"omitempty,oneof=DRAFT SENT PAID OVERDUE CANCELLED"`
}

// InvoiceDocumentResponse carries a presigned download link for the PDF.
type InvoiceDocumentResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
