// Package service implements booking lifecycle business logic. All status
// changes go through the transition table in the domain package; nothing in
// this service writes a status the table does not allow.
package service

import (
	"context"
	"encoding/json"
	"time"

	"livingrite_backend/internal/bookings/domain"
	"livingrite_backend/internal/bookings/repository"
	"livingrite_backend/internal/bookings/transport"
	"livingrite_backend/internal/events"
	paymentdomain "livingrite_backend/internal/payments/domain"
	"livingrite_backend/platform/apperr"
	"livingrite_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Store is the narrow persistence interface the service uses. Implemented by
// *repository.Repository; faked in tests.
type Store interface {
	CreateForUser(ctx context.Context, p repository.CreateParams) (*repository.Booking, paymentdomain.Status, error)
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Booking, error)
	List(ctx context.Context, p repository.ListParams) ([]repository.Booking, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]repository.Booking, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status, cancelledAt *time.Time) error
	Reschedule(ctx context.Context, id uuid.UUID, newStart time.Time, timezone string) (*repository.Booking, error)
	SetProposalSent(ctx context.Context, id uuid.UUID, at time.Time) error
	SetIntakeForm(ctx context.Context, id uuid.UUID, form []byte) error
	StatusCounts(ctx context.Context) (map[domain.Status]int, error)
	UpcomingCount(ctx context.Context, now time.Time) (int, error)
}

// PriceResolver prices a catalog service for client-created bookings.
type PriceResolver interface {
	PriceFor(ctx context.Context, id uuid.UUID) (amountCents int64, currency string, err error)
}

// BillingConfig supplies the fallback currency for bookings without a
// selected catalog service.
type BillingConfig interface {
	GetDefaultCurrency() string
}

// Service implements booking operations.
type Service struct {
	repo   Store
	prices PriceResolver
	cfg    BillingConfig
	bus    events.Bus
	log    *logger.Logger
}

// New creates a bookings service.
func New(repo Store, prices PriceResolver, cfg BillingConfig, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, prices: prices, cfg: cfg, bus: bus, log: log}
}

// Create books a consultation for a client directly, outside the calendar
// webhook flow. The free consultation rule is enforced inside the repository
// transaction.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req transport.CreateBookingRequest) (transport.BookingResponse, error) {
	if !req.ScheduledAt.After(time.Now()) {
		return transport.BookingResponse{}, apperr.Validation("scheduledAt must be in the future")
	}

	params := repository.CreateParams{
		UserID:      userID,
		Title:       req.Title,
		ScheduledAt: req.ScheduledAt.UTC(),
		Timezone:    req.Timezone,
		Note:        req.Note,
		Currency:    s.cfg.GetDefaultCurrency(),
	}
	if params.Title == "" {
		params.Title = "Consultation"
	}

	if req.ServiceID != "" {
		serviceID, err := uuid.Parse(req.ServiceID)
		if err != nil {
			return transport.BookingResponse{}, apperr.Validation("invalid service id")
		}
		amount, currency, err := s.prices.PriceFor(ctx, serviceID)
		if err != nil {
			return transport.BookingResponse{}, err
		}
		params.ServiceID = &serviceID
		params.AmountCents = amount
		params.Currency = currency
	}

	b, paymentStatus, err := s.repo.CreateForUser(ctx, params)
	if err != nil {
		return transport.BookingResponse{}, err
	}

	s.bus.Publish(ctx, events.BookingScheduled{
		BaseEvent:     events.NewBaseEvent(),
		BookingID:     b.ID,
		UserID:        b.UserID,
		ClientName:    b.ClientName,
		ClientEmail:   b.ClientEmail,
		ScheduledAt:   params.ScheduledAt,
		Timezone:      b.Timezone,
		PaymentStatus: string(paymentStatus),
	})
	return toResponse(b), nil
}

func toResponse(b *repository.Booking) transport.BookingResponse {
	resp := transport.BookingResponse{
		ID:             b.ID.String(),
		UserID:         b.UserID.String(),
		ClientName:     b.ClientName,
		ClientEmail:    b.ClientEmail,
		ClientPhone:    b.ClientPhone,
		Title:          b.Title,
		ScheduledAt:    b.ScheduledAt,
		Timezone:       b.Timezone,
		MeetingLink:    b.MeetingLink,
		Note:           b.Note,
		Status:         string(b.Status),
		CancelledAt:    b.CancelledAt,
		ProposalSentAt: b.ProposalSentAt,
		CreatedAt:      b.CreatedAt,
	}
	if b.CalendarEventID != nil {
		resp.CalendarEventID = *b.CalendarEventID
	}
	if b.ServiceID != nil {
		resp.ServiceID = b.ServiceID.String()
	}
	if b.RescheduledFrom != nil {
		resp.RescheduledFrom = *b.RescheduledFrom
	}
	if len(b.IntakeForm) > 0 {
		resp.IntakeForm = json.RawMessage(b.IntakeForm)
	}
	return resp
}

// Get returns a booking by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.BookingResponse, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.BookingResponse{}, err
	}
	return toResponse(b), nil
}

// GetOwned returns a booking only when it belongs to the given user.
func (s *Service) GetOwned(ctx context.Context, id, userID uuid.UUID) (transport.BookingResponse, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.BookingResponse{}, err
	}
	if b.UserID != userID {
		return transport.BookingResponse{}, apperr.NotFound("booking not found")
	}
	return toResponse(b), nil
}

// List returns bookings for the admin overview.
func (s *Service) List(ctx context.Context, req transport.ListBookingsRequest) ([]transport.BookingResponse, error) {
	params := repository.ListParams{Limit: req.Limit, Offset: 0}
	if params.Limit == 0 {
		params.Limit = 50
	}
	if req.Page > 1 {
		params.Offset = (req.Page - 1) * params.Limit
	}
	if req.Status != "" {
		st, err := domain.ParseStatus(req.Status)
		if err != nil {
			return nil, apperr.Validation("unknown booking status")
		}
		params.Status = &st
	}
	if req.UserID != "" {
		uid, err := uuid.Parse(req.UserID)
		if err != nil {
			return nil, apperr.Validation("invalid user id")
		}
		params.UserID = &uid
	}

	items, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list bookings", err)
	}
	out := make([]transport.BookingResponse, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i]))
	}
	return out, nil
}

// ListForUser returns the caller's own bookings.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]transport.BookingResponse, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list bookings", err)
	}
	out := make([]transport.BookingResponse, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i]))
	}
	return out, nil
}

// Cancel moves a booking to CANCELLED. Completed bookings cannot be
// cancelled; cancelling an already cancelled booking is a no-op.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, ownerID *uuid.UUID, reason string) (transport.BookingResponse, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.BookingResponse{}, err
	}
	if ownerID != nil && b.UserID != *ownerID {
		return transport.BookingResponse{}, apperr.NotFound("booking not found")
	}

	if b.Status == domain.StatusCancelled {
		return toResponse(b), nil
	}
	if !domain.CanTransition(b.Status, domain.StatusCancelled) {
		return transport.BookingResponse{}, apperr.Conflict("booking cannot be cancelled from status " + string(b.Status))
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, id, domain.StatusCancelled, &now); err != nil {
		return transport.BookingResponse{}, apperr.Wrap(apperr.KindInternal, "failed to cancel booking", err)
	}

	b.Status = domain.StatusCancelled
	b.CancelledAt = &now
	evt := events.BookingCancelled{
		BaseEvent:   events.NewBaseEvent(),
		BookingID:   b.ID,
		UserID:      b.UserID,
		ClientEmail: b.ClientEmail,
		ClientName:  b.ClientName,
		Title:       b.Title,
		Reason:      reason,
		CancelledAt: now,
	}
	if b.CalendarEventID != nil {
		evt.CalendarEventID = *b.CalendarEventID
	}
	s.bus.Publish(ctx, evt)
	s.log.Info("booking cancelled", "bookingId", b.ID, "reason", reason)
	return toResponse(b), nil
}

// Reschedule moves one of the client's bookings to a new future slot.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, ownerID *uuid.UUID, req transport.RescheduleBookingRequest) (transport.BookingResponse, error) {
	if !req.ScheduledAt.After(time.Now()) {
		return transport.BookingResponse{}, apperr.Validation("scheduledAt must be in the future")
	}

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.BookingResponse{}, err
	}
	if ownerID != nil && b.UserID != *ownerID {
		return transport.BookingResponse{}, apperr.NotFound("booking not found")
	}
	if !domain.CanTransition(b.Status, domain.StatusRescheduled) {
		return transport.BookingResponse{}, apperr.Conflict("booking cannot be rescheduled from status " + string(b.Status))
	}

	moved, err := s.repo.Reschedule(ctx, id, req.ScheduledAt.UTC(), req.Timezone)
	if err != nil {
		return transport.BookingResponse{}, apperr.Wrap(apperr.KindInternal, "failed to reschedule booking", err)
	}

	evt := events.BookingRescheduled{
		BaseEvent:      events.NewBaseEvent(),
		BookingID:      moved.ID,
		ClientName:     moved.ClientName,
		ClientEmail:    moved.ClientEmail,
		Title:          moved.Title,
		NewScheduledAt: req.ScheduledAt.UTC(),
		Timezone:       moved.Timezone,
	}
	if moved.CalendarEventID != nil {
		evt.CalendarEventID = *moved.CalendarEventID
	}
	s.bus.Publish(ctx, evt)
	s.log.Info("booking rescheduled", "bookingId", moved.ID)
	return toResponse(moved), nil
}

// Complete marks a booking COMPLETED after the visit took place.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (transport.BookingResponse, error) {
	return s.transition(ctx, id, domain.StatusCompleted)
}

// UpdateStatus moves a booking to an arbitrary status for admin corrections,
// still subject to the transition table.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (transport.BookingResponse, error) {
	st, err := domain.ParseStatus(status)
	if err != nil {
		return transport.BookingResponse{}, apperr.Validation("unknown booking status")
	}
	return s.transition(ctx, id, st)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, target domain.Status) (transport.BookingResponse, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.BookingResponse{}, err
	}
	if b.Status == target {
		return toResponse(b), nil
	}
	if !domain.CanTransition(b.Status, target) {
		return transport.BookingResponse{}, apperr.Conflict(
			"invalid booking transition " + string(b.Status) + " -> " + string(target))
	}

	var cancelledAt *time.Time
	if target == domain.StatusCancelled {
		now := time.Now().UTC()
		cancelledAt = &now
	}
	if err := s.repo.UpdateStatus(ctx, id, target, cancelledAt); err != nil {
		return transport.BookingResponse{}, apperr.Wrap(apperr.KindInternal, "failed to update booking status", err)
	}
	b.Status = target
	b.CancelledAt = cancelledAt

	if target == domain.StatusCancelled {
		evt := events.BookingCancelled{
			BaseEvent:   events.NewBaseEvent(),
			BookingID:   b.ID,
			UserID:      b.UserID,
			ClientEmail: b.ClientEmail,
			ClientName:  b.ClientName,
			Title:       b.Title,
			CancelledAt: *cancelledAt,
		}
		if b.CalendarEventID != nil {
			evt.CalendarEventID = *b.CalendarEventID
		}
		s.bus.Publish(ctx, evt)
	}
	if target == domain.StatusCompleted {
		evt := events.BookingCompleted{
			BaseEvent:   events.NewBaseEvent(),
			BookingID:   b.ID,
			UserID:      b.UserID,
			ClientEmail: b.ClientEmail,
			ClientName:  b.ClientName,
			Title:       b.Title,
		}
		if b.CalendarEventID != nil {
			evt.CalendarEventID = *b.CalendarEventID
		}
		s.bus.Publish(ctx, evt)
	}
	return toResponse(b), nil
}

// SubmitIntakeForm stores the client's pre-visit intake form. Terminal
// bookings no longer accept intake data.
func (s *Service) SubmitIntakeForm(ctx context.Context, id, userID uuid.UUID, req transport.SubmitIntakeFormRequest) (transport.BookingResponse, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.BookingResponse{}, err
	}
	if b.UserID != userID {
		return transport.BookingResponse{}, apperr.NotFound("booking not found")
	}
	if b.Status.IsTerminal() {
		return transport.BookingResponse{}, apperr.Conflict("booking no longer accepts an intake form")
	}

	raw, err := json.Marshal(req.Form)
	if err != nil {
		return transport.BookingResponse{}, apperr.Validation("intake form is not valid JSON")
	}
	if err := s.repo.SetIntakeForm(ctx, id, raw); err != nil {
		return transport.BookingResponse{}, apperr.Wrap(apperr.KindInternal, "failed to store intake form", err)
	}
	b.IntakeForm = raw
	return toResponse(b), nil
}

// MarkProposalSent flips the booking into the proposal funnel. Called by the
// proposals module when a proposal goes out.
func (s *Service) MarkProposalSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if b.Status != domain.StatusProposal {
		if !domain.CanTransition(b.Status, domain.StatusProposal) {
			return apperr.Conflict("booking cannot enter proposal from status " + string(b.Status))
		}
		if err := s.repo.UpdateStatus(ctx, id, domain.StatusProposal, nil); err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to move booking to proposal", err)
		}
	}
	return s.repo.SetProposalSent(ctx, id, at)
}

// Stats aggregates the admin booking overview. The two counts are
// independent queries, so they run concurrently.
func (s *Service) Stats(ctx context.Context) (transport.BookingStatsResponse, error) {
	var (
		counts   map[domain.Status]int
		upcoming int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = s.repo.StatusCounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		upcoming, err = s.repo.UpcomingCount(gctx, time.Now().UTC())
		return err
	})
	if err := g.Wait(); err != nil {
		return transport.BookingStatsResponse{}, err
	}

	resp := transport.BookingStatsResponse{
		Counts:   make(map[string]int, len(counts)),
		Upcoming: upcoming,
	}
	for status, n := range counts {
		resp.Counts[string(status)] = n
		resp.Total += n
	}
	return resp, nil
}
