// Package repository holds database access for payments.
package repository

import (
	"context"
	"errors"
	"time"

	"livingrite_backend/internal/payments/domain"
	"livingrite_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Payment is the database model for a payment record. Every booking owns
// exactly one.
type Payment struct {
	ID          uuid.UUID
	BookingID   uuid.UUID
	UserID      uuid.UUID
	AmountCents int64
	Currency    string
	Status      domain.Status
	Reference   *string
	PaidAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PayerDetails joins the contact fields needed to start a checkout session.
type PayerDetails struct {
	Payment
	ClientEmail string
	ClientName  string
}

// Repository provides database operations for payments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new payments repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const paymentColumns = `id, booking_id, user_id, amount_cents, currency, status, reference, paid_at, created_at, updated_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.BookingID, &p.UserID, &p.AmountCents, &p.Currency,
		&p.Status, &p.Reference, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("payment not found")
		}
		return nil, err
	}
	return &p, nil
}

// GetByBookingID fetches the payment attached to a booking.
func (r *Repository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*Payment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id = $1`, bookingID)
	return scanPayment(row)
}

// GetByReference fetches a payment by its gateway reference.
func (r *Repository) GetByReference(ctx context.Context, reference string) (*Payment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE reference = $1`, reference)
	return scanPayment(row)
}

// GetPayerByBookingID fetches the payment plus the contact details the
// gateway checkout needs.
func (r *Repository) GetPayerByBookingID(ctx context.Context, bookingID uuid.UUID) (*PayerDetails, error) {
	var d PayerDetails
	err := r.pool.QueryRow(ctx, `
		SELECT p.id, p.booking_id, p.user_id, p.amount_cents, p.currency, p.status, p.reference, p.paid_at,
			p.created_at, p.updated_at, b.client_email, b.client_name
		FROM payments p
		JOIN bookings b ON b.id = p.booking_id
		WHERE p.booking_id = $1`, bookingID).
		Scan(&d.ID, &d.BookingID, &d.UserID, &d.AmountCents, &d.Currency, &d.Status,
			&d.Reference, &d.PaidAt, &d.CreatedAt, &d.UpdatedAt, &d.ClientEmail, &d.ClientName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("payment not found")
		}
		return nil, err
	}
	return &d, nil
}

// ListByUser returns a user's payments, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.BookingID, &p.UserID, &p.AmountCents, &p.Currency,
			&p.Status, &p.Reference, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetReference stores the gateway reference for an unsettled payment.
func (r *Repository) SetReference(ctx context.Context, id uuid.UUID, reference string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE payments SET reference = $2, updated_at = now()
		WHERE id = $1 AND status IN ($3, $4)`,
		id, reference, string(domain.StatusPending), string(domain.StatusFailed))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("payment is already settled")
	}
	return nil
}

// UpdateAmount corrects the charge on an unsettled payment.
func (r *Repository) UpdateAmount(ctx context.Context, id uuid.UUID, amountCents int64, currency string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE payments SET amount_cents = $2, currency = $3, updated_at = now()
		WHERE id = $1 AND status IN ($4, $5)`,
		id, amountCents, currency, string(domain.StatusPending), string(domain.StatusFailed))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("payment is already settled")
	}
	return nil
}

// MarkPaid settles a payment by reference. The status guard mirrors the
// transition table: FREE and PAID rows are never touched, so a replayed
// callback finds zero rows.
func (r *Repository) MarkPaid(ctx context.Context, reference string, paidAt time.Time) (*Payment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE payments SET status = $2, paid_at = $3, updated_at = now()
		WHERE reference = $1 AND status IN ($4, $5)
		RETURNING `+paymentColumns,
		reference, string(domain.StatusPaid), paidAt,
		string(domain.StatusPending), string(domain.StatusFailed))
	return scanPayment(row)
}

// MarkFailed records a failed gateway attempt on an unsettled payment.
func (r *Repository) MarkFailed(ctx context.Context, reference string) (*Payment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE payments SET status = $2, updated_at = now()
		WHERE reference = $1 AND status = $3
		RETURNING `+paymentColumns,
		reference, string(domain.StatusFailed), string(domain.StatusPending))
	return scanPayment(row)
}
