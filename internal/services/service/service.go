// Package service implements catalog business logic.
package service

import (
	"context"
	"strings"

	"livingrite_backend/internal/services/repository"
	"livingrite_backend/internal/services/transport"
	"livingrite_backend/platform/apperr"
	"livingrite_backend/platform/logger"

	"github.com/google/uuid"
)

// CatalogConfig exposes the billing defaults the catalog needs.
type CatalogConfig interface {
	GetDefaultCurrency() string
}

// Service implements catalog operations.
type Service struct {
	repo *repository.Repository
	cfg  CatalogConfig
	log  *logger.Logger
}

// New creates a catalog service.
func New(repo *repository.Repository, cfg CatalogConfig, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, log: log}
}

func toResponse(s *repository.CareService) transport.CareServiceResponse {
	return transport.CareServiceResponse{
		ID:                 s.ID.String(),
		Slug:               s.Slug,
		Name:               s.Name,
		Description:        s.Description,
		BasePriceCents:     s.BasePriceCents,
		Currency:           s.Currency,
		DurationMinutes:    s.DurationMinutes,
		IsFreeConsultation: s.IsFreeConsultation,
		Active:             s.Active,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

// List returns catalog entries.
func (s *Service) List(ctx context.Context, req transport.ListCareServicesRequest) ([]transport.CareServiceResponse, error) {
	items, err := s.repo.List(ctx, req.IncludeInactive)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list services", err)
	}
	out := make([]transport.CareServiceResponse, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i]))
	}
	return out, nil
}

// Get returns a single catalog entry by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.CareServiceResponse, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.CareServiceResponse{}, err
	}
	return toResponse(item), nil
}

// Create adds a catalog entry. A free consultation always carries a zero
// price regardless of what the request says.
func (s *Service) Create(ctx context.Context, req transport.CreateCareServiceRequest) (transport.CareServiceResponse, error) {
	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = s.cfg.GetDefaultCurrency()
	}
	price := req.BasePriceCents
	if req.IsFreeConsultation {
		price = 0
	}

	item, err := s.repo.Create(ctx, &repository.CareService{
		Slug:               strings.ToLower(strings.TrimSpace(req.Slug)),
		Name:               strings.TrimSpace(req.Name),
		Description:        req.Description,
		BasePriceCents:     price,
		Currency:           currency,
		DurationMinutes:    req.DurationMinutes,
		IsFreeConsultation: req.IsFreeConsultation,
		Active:             true,
	})
	if err != nil {
		return transport.CareServiceResponse{}, apperr.Wrap(apperr.KindInternal, "failed to create service", err)
	}
	s.log.Info("care service created", "slug", item.Slug, "priceCents", item.BasePriceCents)
	return toResponse(item), nil
}

// Update overwrites a catalog entry's mutable fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateCareServiceRequest) (transport.CareServiceResponse, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.CareServiceResponse{}, err
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = existing.Currency
	}
	price := req.BasePriceCents
	if req.IsFreeConsultation {
		price = 0
	}

	existing.Name = strings.TrimSpace(req.Name)
	existing.Description = req.Description
	existing.BasePriceCents = price
	existing.Currency = currency
	existing.DurationMinutes = req.DurationMinutes
	existing.IsFreeConsultation = req.IsFreeConsultation
	existing.Active = req.Active

	item, err := s.repo.Update(ctx, existing)
	if err != nil {
		return transport.CareServiceResponse{}, apperr.Wrap(apperr.KindInternal, "failed to update service", err)
	}
	return toResponse(item), nil
}

// PriceFor resolves the charge for a service id. Free consultations price at
// zero; everything else uses the catalog base price.
func (s *Service) PriceFor(ctx context.Context, id uuid.UUID) (amountCents int64, currency string, err error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return 0, "", err
	}
	if item.IsFreeConsultation {
		return 0, item.Currency, nil
	}
	return item.BasePriceCents, item.Currency, nil
}

// ResolveBySlug finds an active catalog entry for an incoming calendar event
// type slug. Unknown slugs return nil without error so the caller can fall
// back to its default pricing.
func (s *Service) ResolveBySlug(ctx context.Context, slug string) (*repository.CareService, error) {
	item, err := s.repo.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		if apperr.GetKind(err) == apperr.KindNotFound {
			return nil, nil
		}
		return nil, err
	}
	if !item.Active {
		return nil, nil
	}
	return item, nil
}
