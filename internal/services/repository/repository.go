// Package repository holds database access for the care service catalog:
// the bookable offerings, their pricing and whether they count as the free
// consultation.
package repository

import (
	"context"
	"errors"
	"time"

	"livingrite_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CareService is the database model for a bookable service.
type CareService struct {
	ID                 uuid.UUID
	Slug               string
	Name               string
	Description        string
	BasePriceCents     int64
	Currency           string
	DurationMinutes    int
	IsFreeConsultation bool
	Active             bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Repository provides database operations for the service catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new catalog repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const careServiceColumns = `id, slug, name, description, base_price_cents, currency, duration_minutes, is_free_consultation, is_active, created_at, updated_at`

func scanCareService(row pgx.Row) (*CareService, error) {
	var s CareService
	err := row.Scan(&s.ID, &s.Slug, &s.Name, &s.Description, &s.BasePriceCents,
		&s.Currency, &s.DurationMinutes, &s.IsFreeConsultation, &s.Active,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("service not found")
		}
		return nil, err
	}
	return &s, nil
}

// GetByID fetches a catalog entry by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*CareService, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+careServiceColumns+` FROM care_services WHERE id = $1`, id)
	return scanCareService(row)
}

// GetBySlug fetches a catalog entry by its URL slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*CareService, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+careServiceColumns+` FROM care_services WHERE slug = $1`, slug)
	return scanCareService(row)
}

// List returns catalog entries, optionally including inactive ones.
func (r *Repository) List(ctx context.Context, includeInactive bool) ([]CareService, error) {
	query := `SELECT ` + careServiceColumns + ` FROM care_services`
	if !includeInactive {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CareService
	for rows.Next() {
		var s CareService
		if err := rows.Scan(&s.ID, &s.Slug, &s.Name, &s.Description, &s.BasePriceCents,
			&s.Currency, &s.DurationMinutes, &s.IsFreeConsultation, &s.Active,
			&s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create inserts a new catalog entry.
func (r *Repository) Create(ctx context.Context, s *CareService) (*CareService, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO care_services (id, slug, name, description, base_price_cents, currency, duration_minutes, is_free_consultation, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+careServiceColumns,
		uuid.New(), s.Slug, s.Name, s.Description, s.BasePriceCents, s.Currency,
		s.DurationMinutes, s.IsFreeConsultation, s.Active)
	return scanCareService(row)
}

// Update overwrites the mutable fields of a catalog entry.
func (r *Repository) Update(ctx context.Context, s *CareService) (*CareService, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE care_services SET
			name = $2, description = $3, base_price_cents = $4, currency = $5,
			duration_minutes = $6, is_free_consultation = $7, is_active = $8,
			updated_at = now()
		WHERE id = $1
		RETURNING `+careServiceColumns,
		s.ID, s.Name, s.Description, s.BasePriceCents, s.Currency,
		s.DurationMinutes, s.IsFreeConsultation, s.Active)
	return scanCareService(row)
}
