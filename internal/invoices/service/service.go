// Package service implements invoice business logic: issuance with gapless
// per-year numbering, payment synchronization, the overdue sweep and PDF
// archival.
package service

import (
	"bytes"
	"context"
	"time"

	"livingrite_backend/internal/adapters/storage"
	"livingrite_backend/internal/events"
	"livingrite_backend/internal/invoices/domain"
	"livingrite_backend/internal/invoices/repository"
	"livingrite_backend/internal/invoices/transport"
	"livingrite_backend/internal/pdf"
	"livingrite_backend/platform/apperr"
	"livingrite_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the narrow persistence interface the service uses. Implemented by
// *repository.Repository; faked in tests.
type Store interface {
	NextInvoiceNumber(ctx context.Context, year int) (string, error)
	Create(ctx context.Context, inv *repository.Invoice) (*repository.Invoice, error)
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Invoice, error)
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*repository.Invoice, error)
	GetBillingContext(ctx context.Context, bookingID uuid.UUID) (*repository.BillingContext, error)
	List(ctx context.Context, status *domain.Status) ([]repository.Invoice, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) error
	MarkPaidByBookingID(ctx context.Context, bookingID uuid.UUID, paidAt time.Time) (*repository.Invoice, bool, error)
	SetDocumentKey(ctx context.Context, id uuid.UUID, key string) error
	SweepOverdue(ctx context.Context, now time.Time) ([]repository.Invoice, error)
}

// Renderer converts invoice HTML to PDF bytes. Nil when Gotenberg is not
// configured.
type Renderer interface {
	ConvertHTML(ctx context.Context, indexHTML []byte, opts pdf.ConvertOpts) ([]byte, error)
}

// BillingConfig supplies invoice issuance defaults.
type BillingConfig interface {
	GetInvoiceDueDays() int
}

// Service implements invoice operations.
type Service struct {
	store    Store
	cfg      BillingConfig
	bus      events.Bus
	log      *logger.Logger
	renderer Renderer
	storage  storage.StorageService
	bucket   string
}

// New creates an invoices service. renderer and storageSvc may be nil when
// the PDF pipeline is not configured; document operations then fail softly.
func New(store Store, cfg BillingConfig, bus events.Bus, log *logger.Logger, renderer Renderer, storageSvc storage.StorageService, bucket string) *Service {
	return &Service{
		store:    store,
		cfg:      cfg,
		bus:      bus,
		log:      log,
		renderer: renderer,
		storage:  storageSvc,
		bucket:   bucket,
	}
}

func toResponse(inv *repository.Invoice) transport.InvoiceResponse {
	return transport.InvoiceResponse{
		ID:            inv.ID.String(),
		BookingID:     inv.BookingID.String(),
		InvoiceNumber: inv.InvoiceNumber,
		AmountCents:   inv.AmountCents,
		TotalCents:    inv.TotalCents,
		Currency:      inv.Currency,
		Status:        string(inv.Status),
		IssuedAt:      inv.IssuedAt,
		DueAt:         inv.DueAt,
		PaidAt:        inv.PaidAt,
		HasDocument:   inv.DocumentKey != nil,
		CreatedAt:     inv.CreatedAt,
	}
}

// Create issues a DRAFT invoice for a booking. The invoice amount comes from
// the booking's payment record; the total may add extras but never undercuts
// the amount.
func (s *Service) Create(ctx context.Context, bookingID uuid.UUID, req transport.CreateInvoiceRequest) (transport.InvoiceResponse, error) {
	if existing, err := s.store.GetByBookingID(ctx, bookingID); err == nil {
		return transport.InvoiceResponse{}, apperr.Conflict("booking already has invoice " + existing.InvoiceNumber)
	} else if apperr.GetKind(err) != apperr.KindNotFound {
		return transport.InvoiceResponse{}, err
	}

	bc, err := s.store.GetBillingContext(ctx, bookingID)
	if err != nil {
		return transport.InvoiceResponse{}, err
	}

	total := req.TotalCents
	if total == 0 {
		total = bc.AmountCents
	}
	if total < bc.AmountCents {
		return transport.InvoiceResponse{}, apperr.Validation("invoice total cannot undercut the care service amount")
	}

	now := time.Now().UTC()
	number, err := s.store.NextInvoiceNumber(ctx, now.Year())
	if err != nil {
		return transport.InvoiceResponse{}, apperr.Wrap(apperr.KindInternal, "failed to allocate invoice number", err)
	}

	dueDays := req.DueDays
	if dueDays == 0 {
		dueDays = s.cfg.GetInvoiceDueDays()
	}
	dueAt := now.AddDate(0, 0, dueDays)

	inv, err := s.store.Create(ctx, &repository.Invoice{
		BookingID:     bookingID,
		InvoiceNumber: number,
		AmountCents:   bc.AmountCents,
		TotalCents:    total,
		Currency:      bc.Currency,
		Status:        domain.StatusDraft,
		IssuedAt:      now,
		DueAt:         &dueAt,
	})
	if err != nil {
		return transport.InvoiceResponse{}, apperr.Wrap(apperr.KindInternal, "failed to create invoice", err)
	}

	s.log.Info("invoice issued", "invoiceNumber", inv.InvoiceNumber, "bookingId", bookingID, "totalCents", inv.TotalCents)
	return toResponse(inv), nil
}

// Send moves a DRAFT invoice to SENT.
func (s *Service) Send(ctx context.Context, id uuid.UUID) (transport.InvoiceResponse, error) {
	inv, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.InvoiceResponse{}, err
	}
	if inv.Status == domain.StatusSent {
		return toResponse(inv), nil
	}
	if !domain.CanTransition(inv.Status, domain.StatusSent) {
		return transport.InvoiceResponse{}, apperr.Conflict("invoice cannot be sent from status " + string(inv.Status))
	}
	if err := s.store.UpdateStatus(ctx, id, domain.StatusSent); err != nil {
		return transport.InvoiceResponse{}, err
	}
	inv.Status = domain.StatusSent
	return toResponse(inv), nil
}

// Cancel withdraws an unpaid invoice.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (transport.InvoiceResponse, error) {
	inv, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.InvoiceResponse{}, err
	}
	if !domain.CanTransition(inv.Status, domain.StatusCancelled) {
		return transport.InvoiceResponse{}, apperr.Conflict("invoice cannot be cancelled from status " + string(inv.Status))
	}
	if err := s.store.UpdateStatus(ctx, id, domain.StatusCancelled); err != nil {
		return transport.InvoiceResponse{}, err
	}
	inv.Status = domain.StatusCancelled
	return toResponse(inv), nil
}

// Get returns an invoice by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.InvoiceResponse, error) {
	inv, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.InvoiceResponse{}, err
	}
	return toResponse(inv), nil
}

// GetByBooking returns the invoice attached to a booking.
func (s *Service) GetByBooking(ctx context.Context, bookingID uuid.UUID) (transport.InvoiceResponse, error) {
	inv, err := s.store.GetByBookingID(ctx, bookingID)
	if err != nil {
		return transport.InvoiceResponse{}, err
	}
	return toResponse(inv), nil
}

// List returns invoices for the admin overview.
func (s *Service) List(ctx context.Context, req transport.ListInvoicesRequest) ([]transport.InvoiceResponse, error) {
	var status *domain.Status
	if req.Status != "" {
		st, err := domain.ParseStatus(req.Status)
		if err != nil {
			return nil, apperr.Validation("unknown invoice status")
		}
		status = &st
	}

	items, err := s.store.List(ctx, status)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list invoices", err)
	}
	out := make([]transport.InvoiceResponse, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i]))
	}
	return out, nil
}

// MarkPaidForBooking synchronizes the booking's invoice with a settled
// payment. Returns false when the booking has no payable invoice; a replayed
// settlement is a no-op.
func (s *Service) MarkPaidForBooking(ctx context.Context, bookingID uuid.UUID, paidAt time.Time) (bool, error) {
	inv, changed, err := s.store.MarkPaidByBookingID(ctx, bookingID, paidAt)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	s.bus.Publish(ctx, events.InvoicePaid{
		BaseEvent:     events.NewBaseEvent(),
		InvoiceID:     inv.ID,
		BookingID:     inv.BookingID,
		InvoiceNumber: inv.InvoiceNumber,
		PaidAt:        paidAt,
	})
	s.log.Info("invoice paid", "invoiceNumber", inv.InvoiceNumber, "bookingId", bookingID)
	return true, nil
}

// SweepOverdue marks every SENT invoice past its due date OVERDUE and
// publishes one event per invoice. Returns the number of invoices flipped.
func (s *Service) SweepOverdue(ctx context.Context, now time.Time) (int, error) {
	flipped, err := s.store.SweepOverdue(ctx, now)
	if err != nil {
		return 0, err
	}

	for i := range flipped {
		inv := &flipped[i]
		evt := events.InvoiceOverdue{
			BaseEvent:     events.NewBaseEvent(),
			InvoiceID:     inv.ID,
			BookingID:     inv.BookingID,
			InvoiceNumber: inv.InvoiceNumber,
		}
		if inv.DueAt != nil {
			evt.DueAt = *inv.DueAt
		}
		s.bus.Publish(ctx, evt)
	}

	if len(flipped) > 0 {
		s.log.Info("overdue sweep flipped invoices", "count", len(flipped))
	}
	return len(flipped), nil
}

// GenerateDocument renders the invoice PDF and archives it in object
// storage.
func (s *Service) GenerateDocument(ctx context.Context, id uuid.UUID) (transport.InvoiceResponse, error) {
	if s.renderer == nil || s.storage == nil {
		return transport.InvoiceResponse{}, apperr.Conflict("document rendering is not configured")
	}

	inv, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.InvoiceResponse{}, err
	}
	bc, err := s.store.GetBillingContext(ctx, inv.BookingID)
	if err != nil {
		return transport.InvoiceResponse{}, err
	}

	html, err := pdf.RenderInvoiceHTML(pdf.InvoiceData{
		InvoiceNumber: inv.InvoiceNumber,
		Status:        string(inv.Status),
		IssuedAt:      inv.IssuedAt,
		DueAt:         inv.DueAt,
		ClientName:    bc.ClientName,
		ClientEmail:   bc.ClientEmail,
		BookingTitle:  bc.BookingTitle,
		ScheduledAt:   bc.ScheduledAt,
		AmountCents:   inv.AmountCents,
		TotalCents:    inv.TotalCents,
		Currency:      inv.Currency,
	})
	if err != nil {
		return transport.InvoiceResponse{}, apperr.Wrap(apperr.KindInternal, "failed to render invoice", err)
	}

	pdfBytes, err := s.renderer.ConvertHTML(ctx, html, pdf.DefaultInvoiceOpts())
	if err != nil {
		return transport.InvoiceResponse{}, apperr.Wrap(apperr.KindInternal, "failed to convert invoice to PDF", err)
	}

	key, err := s.storage.UploadFile(ctx, s.bucket, inv.BookingID.String(), inv.InvoiceNumber+".pdf",
		"application/pdf", bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return transport.InvoiceResponse{}, apperr.Wrap(apperr.KindInternal, "failed to archive invoice document", err)
	}
	if err := s.store.SetDocumentKey(ctx, id, key); err != nil {
		return transport.InvoiceResponse{}, err
	}

	inv.DocumentKey = &key
	return toResponse(inv), nil
}

// DocumentURL returns a presigned download link for the archived PDF.
func (s *Service) DocumentURL(ctx context.Context, id uuid.UUID) (transport.InvoiceDocumentResponse, error) {
	if s.storage == nil {
		return transport.InvoiceDocumentResponse{}, apperr.Conflict("document storage is not configured")
	}

	inv, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.InvoiceDocumentResponse{}, err
	}
	if inv.DocumentKey == nil {
		return transport.InvoiceDocumentResponse{}, apperr.NotFound("invoice has no rendered document")
	}

	presigned, err := s.storage.GenerateDownloadURL(ctx, s.bucket, *inv.DocumentKey)
	if err != nil {
		return transport.InvoiceDocumentResponse{}, apperr.Wrap(apperr.KindInternal, "failed to presign document", err)
	}
	return transport.InvoiceDocumentResponse{URL: presigned.URL, ExpiresAt: presigned.ExpiresAt}, nil
}
