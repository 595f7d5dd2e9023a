// Package repository provides database access for proposals, including the
// transactional cascades into bookings and users that sending and acceptance
// require.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	bookingdomain "livingrite_backend/internal/bookings/domain"
	"livingrite_backend/internal/proposals/domain"
	"livingrite_backend/internal/users"
	"livingrite_backend/platform/apperr"
)

// Proposal is the database model of a commercial offer attached to a booking.
type Proposal struct {
	ID              uuid.UUID
	BookingID       uuid.UUID
	Status          domain.Status
	Title           string
	Description     string
	ServicesOffered []byte
	TotalCents      int64
	Currency        string
	ValidUntil      *time.Time
	Notes           string
	PublicToken     string
	SentAt          *time.Time
	ViewedAt        *time.Time
	AcceptedAt      *time.Time
	RejectedAt      *time.Time
	RejectionReason *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BookingClient carries the owning booking's client fields used for proposal
// defaults and events.
type BookingClient struct {
	BookingID   uuid.UUID
	UserID      uuid.UUID
	ClientName  string
	ClientEmail string
	Status      bookingdomain.Status
}

// AcceptResult reports the user the acceptance cascade promoted.
type AcceptResult struct {
	Proposal  *Proposal
	UserID    uuid.UUID
	UserEmail string
	Applied   bool
}

// Repository provides database operations for proposals.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new proposals repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const proposalColumns = `id, booking_id, status, title, description, services_offered, total_cents,
	currency, valid_until, notes, public_token, sent_at, viewed_at, accepted_at, rejected_at,
	rejection_reason, created_at, updated_at`

func scanProposal(row pgx.Row) (*Proposal, error) {
	var p Proposal
	err := row.Scan(&p.ID, &p.BookingID, &p.Status, &p.Title, &p.Description, &p.ServicesOffered,
		&p.TotalCents, &p.Currency, &p.ValidUntil, &p.Notes, &p.PublicToken, &p.SentAt, &p.ViewedAt,
		&p.AcceptedAt, &p.RejectedAt, &p.RejectionReason, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("proposal not found")
		}
		return nil, err
	}
	return &p, nil
}

// GetBookingClient loads the owning booking's client fields.
func (r *Repository) GetBookingClient(ctx context.Context, bookingID uuid.UUID) (*BookingClient, error) {
	var bc BookingClient
	var status string
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, client_name, client_email, status FROM bookings WHERE id = $1`, bookingID).
		Scan(&bc.BookingID, &bc.UserID, &bc.ClientName, &bc.ClientEmail, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("booking not found")
		}
		return nil, err
	}
	parsed, err := bookingdomain.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	bc.Status = parsed
	return &bc, nil
}

// Create inserts a new DRAFT proposal.
func (r *Repository) Create(ctx context.Context, p *Proposal) (*Proposal, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO proposals (id, booking_id, status, title, description, services_offered,
			total_cents, currency, valid_until, notes, public_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+proposalColumns,
		uuid.New(), p.BookingID, string(p.Status), p.Title, p.Description, p.ServicesOffered,
		p.TotalCents, p.Currency, p.ValidUntil, p.Notes, p.PublicToken)
	return scanProposal(row)
}

// GetByID fetches a proposal by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Proposal, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id)
	return scanProposal(row)
}

// GetByBookingID fetches the proposal attached to a booking.
func (r *Repository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*Proposal, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE booking_id = $1`, bookingID)
	return scanProposal(row)
}

// GetByPublicToken fetches a proposal by its client-facing token.
func (r *Repository) GetByPublicToken(ctx context.Context, token string) (*Proposal, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE public_token = $1`, token)
	return scanProposal(row)
}

// List returns proposals, optionally filtered by status, newest first.
func (r *Repository) List(ctx context.Context, status *domain.Status) ([]Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals`
	args := []interface{}{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Proposal
	for rows.Next() {
		var p Proposal
		if err := rows.Scan(&p.ID, &p.BookingID, &p.Status, &p.Title, &p.Description, &p.ServicesOffered,
			&p.TotalCents, &p.Currency, &p.ValidUntil, &p.Notes, &p.PublicToken, &p.SentAt, &p.ViewedAt,
			&p.AcceptedAt, &p.RejectedAt, &p.RejectionReason, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSent flips a DRAFT proposal to SENT and cascades the owning booking to
// PROPOSAL with a proposal_sent_at stamp, in one transaction. The booking
// update only fires while the booking still allows the move; a booking
// already in PROPOSAL keeps its original stamp.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) (*Proposal, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE proposals SET status = $2, sent_at = $3, updated_at = now()
		WHERE id = $1 AND status = $4
		RETURNING `+proposalColumns,
		id, string(domain.StatusSent), at, string(domain.StatusDraft))
	p, err := scanProposal(row)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE bookings SET status = $2, proposal_sent_at = COALESCE(proposal_sent_at, $3), updated_at = now()
		WHERE id = $1 AND status = $4`,
		p.BookingID, string(bookingdomain.StatusProposal), at, string(bookingdomain.StatusScheduled))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// SetViewed stamps the first client view. First view wins; later views and
// terminal states leave the row untouched. Returns whether this call applied.
func (r *Repository) SetViewed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE proposals SET status = $2, viewed_at = $3, updated_at = now()
		WHERE id = $1 AND status = $4`,
		id, string(domain.StatusViewed), at, string(domain.StatusSent))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Accept flips a SENT or VIEWED proposal to ACCEPTED and promotes the owning
// user's conversion stage to CLIENT, in one transaction. Applied is false
// when the proposal was not in an acceptable state.
func (r *Repository) Accept(ctx context.Context, id uuid.UUID, at time.Time) (*AcceptResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE proposals SET status = $2, accepted_at = $3, updated_at = now()
		WHERE id = $1 AND status IN ($4, $5)
		RETURNING `+proposalColumns,
		id, string(domain.StatusAccepted), at,
		string(domain.StatusSent), string(domain.StatusViewed))
	p, err := scanProposal(row)
	if err != nil {
		if apperr.GetKind(err) == apperr.KindNotFound {
			return &AcceptResult{Applied: false}, nil
		}
		return nil, err
	}

	result := &AcceptResult{Proposal: p, Applied: true}
	result.UserID, result.UserEmail, err = users.PromoteToClientByBooking(ctx, tx, p.BookingID, at)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// Reject flips a SENT or VIEWED proposal to REJECTED with the given reason.
// Returns whether this call applied.
func (r *Repository) Reject(ctx context.Context, id uuid.UUID, at time.Time, reason string) (*Proposal, bool, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE proposals SET status = $2, rejected_at = $3, rejection_reason = $4, updated_at = now()
		WHERE id = $1 AND status IN ($5, $6)
		RETURNING `+proposalColumns,
		id, string(domain.StatusRejected), at, reason,
		string(domain.StatusSent), string(domain.StatusViewed))
	p, err := scanProposal(row)
	if err != nil {
		if apperr.GetKind(err) == apperr.KindNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return p, true, nil
}

// StatusCounts returns the number of proposals in each status.
func (r *Repository) StatusCounts(ctx context.Context) (map[domain.Status]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM proposals GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var raw string
		var n int
		if err := rows.Scan(&raw, &n); err != nil {
			return nil, err
		}
		st, err := domain.ParseStatus(raw)
		if err != nil {
			return nil, err
		}
		counts[st] = n
	}
	return counts, rows.Err()
}
