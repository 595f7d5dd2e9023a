// Package transport defines request and response DTOs for the payments API.
package transport

import "time"

// PaymentResponse is the API shape of a payment record.
type PaymentResponse struct {
	ID          string     `json:"id"`
	BookingID   string     `json:"bookingId"`
	UserID      string     `json:"userId"`
	AmountCents int64      `json:"amountCents"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"`
	Reference   string     `json:"reference,omitempty"`
	PaidAt      *time.Time `json:"paidAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// InitializePaymentResponse carries the hosted checkout session back to the
// client. The QR code encodes the authorization URL for cross-device payment.
type InitializePaymentResponse struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorizationUrl"`
	AmountCents      int64  `json:"amountCents"`
	Currency         string `json:"currency"`
	QRCodePNG        string `json:"qrCodePng,omitempty"`
}

// UpdatePaymentAmountRequest corrects the charge on an unsettled payment.
type UpdatePaymentAmountRequest struct {
	AmountCents int64  `json:"amountCents" validate:"required,min=1"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
}

// VerifyCallbackRequest is the gateway redirect query.
type VerifyCallbackRequest struct {
	Reference string `form:"reference" validate:"required"`
}
