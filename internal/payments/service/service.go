// Package service implements payment business logic. Payment state never
// feeds back into booking status; a settled payment leaves the booking
// exactly where it was.
package service

import (
	"context"
	"encoding/base64"
	"time"

	"livingrite_backend/internal/events"
	"livingrite_backend/internal/payments/domain"
	"livingrite_backend/internal/payments/gateway"
	"livingrite_backend/internal/payments/repository"
	"livingrite_backend/internal/payments/transport"
	"livingrite_backend/platform/apperr"
	"livingrite_backend/platform/logger"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

// Store is the narrow persistence interface the service uses. Implemented by
// *repository.Repository; faked in tests.
type Store interface {
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*repository.Payment, error)
	GetByReference(ctx context.Context, reference string) (*repository.Payment, error)
	GetPayerByBookingID(ctx context.Context, bookingID uuid.UUID) (*repository.PayerDetails, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]repository.Payment, error)
	SetReference(ctx context.Context, id uuid.UUID, reference string) error
	UpdateAmount(ctx context.Context, id uuid.UUID, amountCents int64, currency string) error
	MarkPaid(ctx context.Context, reference string, paidAt time.Time) (*repository.Payment, error)
	MarkFailed(ctx context.Context, reference string) (*repository.Payment, error)
}

// GatewayClient is the checkout provider surface used by the service.
type GatewayClient interface {
	Initialize(ctx context.Context, req gateway.InitializeRequest) (gateway.InitializeResult, error)
	Verify(ctx context.Context, reference string) (gateway.VerifyResult, error)
}

// GatewayConfig is the configuration the checkout flow needs.
type GatewayConfig interface {
	GetGatewayCallbackURL() string
	IsGatewayEnabled() bool
}

// InvoiceSyncer settles the invoice attached to a booking. A settled payment
// and its invoice are one contract, so the sync runs in the callback itself
// rather than behind the event bus.
type InvoiceSyncer interface {
	MarkPaidForBooking(ctx context.Context, bookingID uuid.UUID, paidAt time.Time) (bool, error)
}

// Service implements payment operations.
type Service struct {
	store    Store
	gateway  GatewayClient
	cfg      GatewayConfig
	invoices InvoiceSyncer
	bus      events.Bus
	log      *logger.Logger
}

// New creates a payments service.
func New(store Store, gw GatewayClient, cfg GatewayConfig, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, gateway: gw, cfg: cfg, bus: bus, log: log}
}

// SetInvoiceSyncer wires invoice settlement into the callback path. Without
// it payments settle on their own and invoices stay untouched.
func (s *Service) SetInvoiceSyncer(inv InvoiceSyncer) {
	s.invoices = inv
}

func toResponse(p *repository.Payment) transport.PaymentResponse {
	resp := transport.PaymentResponse{
		ID:          p.ID.String(),
		BookingID:   p.BookingID.String(),
		UserID:      p.UserID.String(),
		AmountCents: p.AmountCents,
		Currency:    p.Currency,
		Status:      string(p.Status),
		PaidAt:      p.PaidAt,
		CreatedAt:   p.CreatedAt,
	}
	if p.Reference != nil {
		resp.Reference = *p.Reference
	}
	return resp
}

// GetByBooking returns the payment attached to a booking. When ownerID is
// set the payment must belong to that user.
func (s *Service) GetByBooking(ctx context.Context, bookingID uuid.UUID, ownerID *uuid.UUID) (transport.PaymentResponse, error) {
	p, err := s.store.GetByBookingID(ctx, bookingID)
	if err != nil {
		return transport.PaymentResponse{}, err
	}
	if ownerID != nil && p.UserID != *ownerID {
		return transport.PaymentResponse{}, apperr.NotFound("payment not found")
	}
	return toResponse(p), nil
}

// ListForUser returns the caller's payments.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]transport.PaymentResponse, error) {
	items, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list payments", err)
	}
	out := make([]transport.PaymentResponse, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i]))
	}
	return out, nil
}

// Initialize opens a gateway checkout session for a booking's pending
// payment and returns the hosted payment page.
func (s *Service) Initialize(ctx context.Context, bookingID uuid.UUID, ownerID *uuid.UUID) (transport.InitializePaymentResponse, error) {
	if !s.cfg.IsGatewayEnabled() {
		return transport.InitializePaymentResponse{}, apperr.Conflict("payment gateway is not configured")
	}

	d, err := s.store.GetPayerByBookingID(ctx, bookingID)
	if err != nil {
		return transport.InitializePaymentResponse{}, err
	}
	if ownerID != nil && d.UserID != *ownerID {
		return transport.InitializePaymentResponse{}, apperr.NotFound("payment not found")
	}
	if d.Status == domain.StatusFree {
		return transport.InitializePaymentResponse{}, apperr.Conflict("free consultation requires no payment")
	}
	if d.Status == domain.StatusPaid {
		return transport.InitializePaymentResponse{}, apperr.Conflict("payment is already settled")
	}
	if d.AmountCents <= 0 {
		return transport.InitializePaymentResponse{}, apperr.Conflict("payment amount has not been set")
	}

	reference := "LR-" + uuid.NewString()
	if err := s.store.SetReference(ctx, d.ID, reference); err != nil {
		return transport.InitializePaymentResponse{}, err
	}

	session, err := s.gateway.Initialize(ctx, gateway.InitializeRequest{
		Email:       d.ClientEmail,
		AmountMinor: d.AmountCents,
		Currency:    d.Currency,
		Reference:   reference,
		CallbackURL: s.cfg.GetGatewayCallbackURL(),
	})
	if err != nil {
		return transport.InitializePaymentResponse{}, apperr.Wrap(apperr.KindInternal, "failed to initialize checkout", err)
	}

	resp := transport.InitializePaymentResponse{
		Reference:        reference,
		AuthorizationURL: session.AuthorizationURL,
		AmountCents:      d.AmountCents,
		Currency:         d.Currency,
	}
	if png, err := qrcode.Encode(session.AuthorizationURL, qrcode.Medium, 256); err == nil {
		resp.QRCodePNG = base64.StdEncoding.EncodeToString(png)
	}

	s.log.PaymentEvent("initialized", reference, d.AmountCents)
	return resp, nil
}

// VerifyCallback settles a payment after the gateway redirects back. The
// call is idempotent: a replayed reference returns the settled payment
// without another gateway round trip or a second event.
func (s *Service) VerifyCallback(ctx context.Context, reference string) (transport.PaymentResponse, error) {
	p, err := s.store.GetByReference(ctx, reference)
	if err != nil {
		return transport.PaymentResponse{}, err
	}
	if p.Status == domain.StatusFree {
		return transport.PaymentResponse{}, apperr.Conflict("free consultation cannot settle through the gateway")
	}
	if p.Status == domain.StatusPaid {
		// A replayed callback still re-runs the invoice sync so a failure
		// between settling the payment and marking the invoice heals on
		// the gateway's retry.
		paidAt := time.Now().UTC()
		if p.PaidAt != nil {
			paidAt = *p.PaidAt
		}
		if err := s.syncInvoice(ctx, p.BookingID, paidAt); err != nil {
			return transport.PaymentResponse{}, err
		}
		return toResponse(p), nil
	}

	verified, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		return transport.PaymentResponse{}, apperr.Wrap(apperr.KindInternal, "gateway verification failed", err)
	}

	if !verified.Success() {
		failed, err := s.store.MarkFailed(ctx, reference)
		if err != nil {
			if apperr.GetKind(err) == apperr.KindNotFound {
				return toResponse(p), nil
			}
			return transport.PaymentResponse{}, err
		}
		s.log.PaymentEvent("failed", reference, p.AmountCents)
		return toResponse(failed), nil
	}

	paidAt := verified.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}

	settled, err := s.store.MarkPaid(ctx, reference, paidAt)
	if err != nil {
		if apperr.GetKind(err) == apperr.KindNotFound {
			// Lost the race against a concurrent callback.
			current, gerr := s.store.GetByReference(ctx, reference)
			if gerr != nil {
				return transport.PaymentResponse{}, gerr
			}
			return toResponse(current), nil
		}
		return transport.PaymentResponse{}, err
	}

	d, err := s.store.GetPayerByBookingID(ctx, settled.BookingID)
	if err != nil {
		return transport.PaymentResponse{}, err
	}

	if err := s.syncInvoice(ctx, settled.BookingID, paidAt); err != nil {
		return transport.PaymentResponse{}, err
	}

	s.bus.Publish(ctx, events.PaymentSucceeded{
		BaseEvent:   events.NewBaseEvent(),
		PaymentID:   settled.ID,
		BookingID:   settled.BookingID,
		UserID:      settled.UserID,
		Reference:   reference,
		AmountCents: settled.AmountCents,
		Currency:    settled.Currency,
		ClientEmail: d.ClientEmail,
		ClientName:  d.ClientName,
	})
	s.log.PaymentEvent("succeeded", reference, settled.AmountCents)
	return toResponse(settled), nil
}

func (s *Service) syncInvoice(ctx context.Context, bookingID uuid.UUID, paidAt time.Time) error {
	if s.invoices == nil {
		return nil
	}
	changed, err := s.invoices.MarkPaidForBooking(ctx, bookingID, paidAt)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to sync invoice", err)
	}
	if changed {
		s.log.Info("invoice settled with payment", "bookingId", bookingID)
	}
	return nil
}

// UpdateAmount corrects the charge on an unsettled payment (admin).
func (s *Service) UpdateAmount(ctx context.Context, bookingID uuid.UUID, req transport.UpdatePaymentAmountRequest) (transport.PaymentResponse, error) {
	p, err := s.store.GetByBookingID(ctx, bookingID)
	if err != nil {
		return transport.PaymentResponse{}, err
	}
	if p.Status.IsSettled() {
		return transport.PaymentResponse{}, apperr.Conflict("payment is already settled")
	}

	currency := req.Currency
	if currency == "" {
		currency = p.Currency
	}
	if err := s.store.UpdateAmount(ctx, p.ID, req.AmountCents, currency); err != nil {
		return transport.PaymentResponse{}, err
	}
	p.AmountCents = req.AmountCents
	p.Currency = currency
	return toResponse(p), nil
}
