// Package service implements the proposal funnel: lifecycle transitions with
// their booking and user cascades, the client token surface and the funnel
// statistics.
package service

import (
	"context"
	"encoding/json"
	"time"

	"livingrite_backend/internal/events"
	"livingrite_backend/internal/proposals/domain"
	"livingrite_backend/internal/proposals/repository"
	"livingrite_backend/internal/proposals/transport"
	"livingrite_backend/platform/apperr"
	"livingrite_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the narrow persistence interface the service uses. Implemented by
// *repository.Repository; faked in tests.
type Store interface {
	GetBookingClient(ctx context.Context, bookingID uuid.UUID) (*repository.BookingClient, error)
	Create(ctx context.Context, p *repository.Proposal) (*repository.Proposal, error)
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Proposal, error)
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*repository.Proposal, error)
	GetByPublicToken(ctx context.Context, token string) (*repository.Proposal, error)
	List(ctx context.Context, status *domain.Status) ([]repository.Proposal, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) (*repository.Proposal, error)
	SetViewed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	Accept(ctx context.Context, id uuid.UUID, at time.Time) (*repository.AcceptResult, error)
	Reject(ctx context.Context, id uuid.UUID, at time.Time, reason string) (*repository.Proposal, bool, error)
	StatusCounts(ctx context.Context) (map[domain.Status]int, error)
}

// ProposalConfig supplies proposal issuance defaults.
type ProposalConfig interface {
	GetDefaultCurrency() string
	GetProposalValidDays() int
}

// Service implements proposal operations.
type Service struct {
	store Store
	cfg   ProposalConfig
	bus   events.Bus
	log   *logger.Logger
}

// New creates a proposals service.
func New(store Store, cfg ProposalConfig, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, cfg: cfg, bus: bus, log: log}
}

func toResponse(p *repository.Proposal) transport.ProposalResponse {
	resp := transport.ProposalResponse{
		ID:              p.ID.String(),
		BookingID:       p.BookingID.String(),
		Status:          string(p.Status),
		Title:           p.Title,
		Description:     p.Description,
		ServicesOffered: json.RawMessage(p.ServicesOffered),
		TotalCents:      p.TotalCents,
		Currency:        p.Currency,
		ValidUntil:      p.ValidUntil,
		Notes:           p.Notes,
		PublicToken:     p.PublicToken,
		SentAt:          p.SentAt,
		ViewedAt:        p.ViewedAt,
		AcceptedAt:      p.AcceptedAt,
		RejectedAt:      p.RejectedAt,
		CreatedAt:       p.CreatedAt,
	}
	if p.RejectionReason != nil {
		resp.RejectionReason = *p.RejectionReason
	}
	return resp
}

// Create issues a DRAFT proposal against an existing booking. The title
// defaults to "Proposal for {clientName}" and the currency to the platform
// default.
func (s *Service) Create(ctx context.Context, bookingID uuid.UUID, req transport.CreateProposalRequest) (transport.ProposalResponse, error) {
	bc, err := s.store.GetBookingClient(ctx, bookingID)
	if err != nil {
		return transport.ProposalResponse{}, err
	}
	if existing, err := s.store.GetByBookingID(ctx, bookingID); err == nil {
		return transport.ProposalResponse{}, apperr.Conflict("booking already has proposal in status " + string(existing.Status))
	} else if apperr.GetKind(err) != apperr.KindNotFound {
		return transport.ProposalResponse{}, err
	}

	title := req.Title
	if title == "" {
		title = "Proposal for " + bc.ClientName
	}
	currency := req.Currency
	if currency == "" {
		currency = s.cfg.GetDefaultCurrency()
	}
	validDays := req.ValidDays
	if validDays == 0 {
		validDays = s.cfg.GetProposalValidDays()
	}
	validUntil := time.Now().UTC().AddDate(0, 0, validDays)

	offered := []byte("[]")
	if req.ServicesOffered != nil {
		offered, err = json.Marshal(req.ServicesOffered)
		if err != nil {
			return transport.ProposalResponse{}, apperr.Validation("invalid services offered payload")
		}
	}

	p, err := s.store.Create(ctx, &repository.Proposal{
		BookingID:       bookingID,
		Status:          domain.StatusDraft,
		Title:           title,
		Description:     req.Description,
		ServicesOffered: offered,
		TotalCents:      req.TotalCents,
		Currency:        currency,
		ValidUntil:      &validUntil,
		Notes:           req.Notes,
		PublicToken:     uuid.NewString(),
	})
	if err != nil {
		return transport.ProposalResponse{}, apperr.Wrap(apperr.KindInternal, "failed to create proposal", err)
	}

	s.log.Info("proposal created", "proposalId", p.ID, "bookingId", bookingID)
	return toResponse(p), nil
}

// Send moves a DRAFT proposal to SENT and cascades the owning booking to
// PROPOSAL. Publishes proposals.sent for the notification pipeline.
func (s *Service) Send(ctx context.Context, id uuid.UUID) (transport.ProposalResponse, error) {
	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.ProposalResponse{}, err
	}
	if current.Status != domain.StatusDraft {
		return transport.ProposalResponse{}, apperr.Conflict("proposal cannot be sent from status " + string(current.Status))
	}

	p, err := s.store.MarkSent(ctx, id, time.Now().UTC())
	if err != nil {
		return transport.ProposalResponse{}, err
	}

	bc, err := s.store.GetBookingClient(ctx, p.BookingID)
	if err != nil {
		return transport.ProposalResponse{}, err
	}

	s.bus.Publish(ctx, events.ProposalSent{
		BaseEvent:   events.NewBaseEvent(),
		ProposalID:  p.ID,
		BookingID:   p.BookingID,
		Title:       p.Title,
		ClientName:  bc.ClientName,
		ClientEmail: bc.ClientEmail,
		PublicToken: p.PublicToken,
		TotalCents:  p.TotalCents,
		Currency:    p.Currency,
	})
	s.log.Info("proposal sent", "proposalId", p.ID, "bookingId", p.BookingID)
	return toResponse(p), nil
}

// expired reports whether the proposal's validity window has passed.
func expired(p *repository.Proposal, now time.Time) bool {
	return p.ValidUntil != nil && now.After(*p.ValidUntil)
}

// GetPublic returns the client-facing view behind a public token and stamps
// the first view. Later views never regress a terminal status.
func (s *Service) GetPublic(ctx context.Context, token string) (transport.PublicProposalResponse, error) {
	p, err := s.store.GetByPublicToken(ctx, token)
	if err != nil {
		return transport.PublicProposalResponse{}, err
	}
	if p.Status == domain.StatusDraft {
		// Drafts are not published yet; the token must not leak them.
		return transport.PublicProposalResponse{}, apperr.NotFound("proposal not found")
	}

	now := time.Now().UTC()
	if !p.Status.IsTerminal() && expired(p, now) {
		return transport.PublicProposalResponse{}, apperr.Gone("proposal has expired")
	}

	if p.Status == domain.StatusSent {
		applied, err := s.store.SetViewed(ctx, p.ID, now)
		if err != nil {
			return transport.PublicProposalResponse{}, err
		}
		if applied {
			p.Status = domain.StatusViewed
			p.ViewedAt = &now
			s.bus.Publish(ctx, events.ProposalViewed{
				BaseEvent:  events.NewBaseEvent(),
				ProposalID: p.ID,
				BookingID:  p.BookingID,
			})
		}
	}

	bc, err := s.store.GetBookingClient(ctx, p.BookingID)
	if err != nil {
		return transport.PublicProposalResponse{}, err
	}
	return transport.PublicProposalResponse{
		Title:           p.Title,
		Description:     p.Description,
		ServicesOffered: json.RawMessage(p.ServicesOffered),
		TotalCents:      p.TotalCents,
		Currency:        p.Currency,
		ValidUntil:      p.ValidUntil,
		Status:          string(p.Status),
		ClientName:      bc.ClientName,
	}, nil
}

// Accept accepts a proposal via its public token and promotes the owning user
// to CLIENT. Re-accepting an accepted proposal is a no-op; a rejected or
// unsent proposal refuses.
func (s *Service) Accept(ctx context.Context, token string) (transport.PublicProposalResponse, error) {
	p, err := s.store.GetByPublicToken(ctx, token)
	if err != nil {
		return transport.PublicProposalResponse{}, err
	}
	switch p.Status {
	case domain.StatusAccepted:
		return s.publicView(ctx, p)
	case domain.StatusDraft, domain.StatusRejected:
		return transport.PublicProposalResponse{}, apperr.Conflict("proposal cannot be accepted from status " + string(p.Status))
	}

	now := time.Now().UTC()
	if expired(p, now) {
		return transport.PublicProposalResponse{}, apperr.Gone("proposal has expired")
	}

	result, err := s.store.Accept(ctx, p.ID, now)
	if err != nil {
		return transport.PublicProposalResponse{}, err
	}
	if !result.Applied {
		// Lost a race with a concurrent accept or reject; return the fresh state.
		fresh, err := s.store.GetByID(ctx, p.ID)
		if err != nil {
			return transport.PublicProposalResponse{}, err
		}
		if fresh.Status != domain.StatusAccepted {
			return transport.PublicProposalResponse{}, apperr.Conflict("proposal cannot be accepted from status " + string(fresh.Status))
		}
		return s.publicView(ctx, fresh)
	}

	accepted := result.Proposal
	bc, err := s.store.GetBookingClient(ctx, accepted.BookingID)
	if err != nil {
		return transport.PublicProposalResponse{}, err
	}

	s.bus.Publish(ctx, events.ProposalAccepted{
		BaseEvent:   events.NewBaseEvent(),
		ProposalID:  accepted.ID,
		BookingID:   accepted.BookingID,
		UserID:      result.UserID,
		ClientName:  bc.ClientName,
		ClientEmail: bc.ClientEmail,
		TotalCents:  accepted.TotalCents,
		Currency:    accepted.Currency,
	})
	s.bus.Publish(ctx, events.UserConverted{
		BaseEvent:   events.NewBaseEvent(),
		UserID:      result.UserID,
		Email:       result.UserEmail,
		ConvertedAt: now,
	})
	s.log.Info("proposal accepted", "proposalId", accepted.ID, "userId", result.UserID)
	return s.publicView(ctx, accepted)
}

// Reject rejects a proposal via its public token with a mandatory reason.
// Re-rejecting is a no-op; an accepted proposal refuses.
func (s *Service) Reject(ctx context.Context, token, reason string) (transport.PublicProposalResponse, error) {
	p, err := s.store.GetByPublicToken(ctx, token)
	if err != nil {
		return transport.PublicProposalResponse{}, err
	}
	switch p.Status {
	case domain.StatusRejected:
		return s.publicView(ctx, p)
	case domain.StatusDraft, domain.StatusAccepted:
		return transport.PublicProposalResponse{}, apperr.Conflict("proposal cannot be rejected from status " + string(p.Status))
	}

	rejected, applied, err := s.store.Reject(ctx, p.ID, time.Now().UTC(), reason)
	if err != nil {
		return transport.PublicProposalResponse{}, err
	}
	if !applied {
		fresh, err := s.store.GetByID(ctx, p.ID)
		if err != nil {
			return transport.PublicProposalResponse{}, err
		}
		if fresh.Status != domain.StatusRejected {
			return transport.PublicProposalResponse{}, apperr.Conflict("proposal cannot be rejected from status " + string(fresh.Status))
		}
		return s.publicView(ctx, fresh)
	}

	s.bus.Publish(ctx, events.ProposalRejected{
		BaseEvent:  events.NewBaseEvent(),
		ProposalID: rejected.ID,
		BookingID:  rejected.BookingID,
		Reason:     reason,
	})
	s.log.Info("proposal rejected", "proposalId", rejected.ID, "reason", reason)
	return s.publicView(ctx, rejected)
}

func (s *Service) publicView(ctx context.Context, p *repository.Proposal) (transport.PublicProposalResponse, error) {
	bc, err := s.store.GetBookingClient(ctx, p.BookingID)
	if err != nil {
		return transport.PublicProposalResponse{}, err
	}
	return transport.PublicProposalResponse{
		Title:           p.Title,
		Description:     p.Description,
		ServicesOffered: json.RawMessage(p.ServicesOffered),
		TotalCents:      p.TotalCents,
		Currency:        p.Currency,
		ValidUntil:      p.ValidUntil,
		Status:          string(p.Status),
		ClientName:      bc.ClientName,
	}, nil
}

// Get returns a proposal by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.ProposalResponse, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.ProposalResponse{}, err
	}
	return toResponse(p), nil
}

// GetByBooking returns the proposal attached to a booking.
func (s *Service) GetByBooking(ctx context.Context, bookingID uuid.UUID) (transport.ProposalResponse, error) {
	p, err := s.store.GetByBookingID(ctx, bookingID)
	if err != nil {
		return transport.ProposalResponse{}, err
	}
	return toResponse(p), nil
}

// List returns proposals for the admin overview.
func (s *Service) List(ctx context.Context, req transport.ListProposalsRequest) ([]transport.ProposalResponse, error) {
	var status *domain.Status
	if req.Status != "" {
		st, err := domain.ParseStatus(req.Status)
		if err != nil {
			return nil, apperr.Validation("unknown proposal status")
		}
		status = &st
	}

	items, err := s.store.List(ctx, status)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list proposals", err)
	}
	out := make([]transport.ProposalResponse, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i]))
	}
	return out, nil
}

// Stats computes the conversion funnel aggregate. Acceptance rate is
// accepted over sent plus viewed; view rate is viewed over sent. Both are 0
// when their denominator is.
func (s *Service) Stats(ctx context.Context) (transport.FunnelStatsResponse, error) {
	counts, err := s.store.StatusCounts(ctx)
	if err != nil {
		return transport.FunnelStatsResponse{}, apperr.Wrap(apperr.KindInternal, "failed to compute funnel stats", err)
	}

	out := transport.FunnelStatsResponse{Counts: make(map[string]int, len(counts))}
	for st, n := range counts {
		out.Counts[string(st)] = n
	}

	sent := counts[domain.StatusSent]
	viewed := counts[domain.StatusViewed]
	accepted := counts[domain.StatusAccepted]
	if denom := sent + viewed; denom > 0 {
		out.AcceptanceRate = float64(accepted) / float64(denom)
	}
	if sent > 0 {
		out.ViewRate = float64(viewed) / float64(sent)
	}
	return out, nil
}
