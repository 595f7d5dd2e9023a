// Package users manages client accounts and their conversion stage.
// Accounts are created implicitly by the first calendar event that references
// an email address; there is no signup flow in this service. The operations
// take a Querier so callers can run them inside their own transactions.
package users

import (
	"context"
	"errors"
	"time"

	"livingrite_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Conversion stages. LEAD is the default for webhook-created accounts;
// CLIENT is set when a proposal is accepted.
const (
	StageLead   = "LEAD"
	StageClient = "CLIENT"
)

// User is the database model for a client account.
type User struct {
	ID                uuid.UUID
	Email             string
	Name              string
	Phone             string
	Timezone          string
	ConversionStage   string
	ClientConvertedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Querier is the row-query surface shared by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `id, email, name, phone, timezone, conversion_stage, client_converted_at, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.Timezone,
		&u.ConversionStage, &u.ClientConvertedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return &u, nil
}

// UpsertByEmail finds or creates a user keyed by email. Name, phone and
// timezone are only overwritten when the incoming values are non-empty, so a
// sparse webhook payload never blanks out known contact details.
func UpsertByEmail(ctx context.Context, q Querier, email, name, phone, timezone string) (*User, error) {
	query := `
		INSERT INTO users (id, email, name, phone, timezone)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name),
			phone = COALESCE(NULLIF(EXCLUDED.phone, ''), users.phone),
			timezone = COALESCE(NULLIF(EXCLUDED.timezone, ''), users.timezone),
			updated_at = now()
		RETURNING ` + userColumns

	row := q.QueryRow(ctx, query, uuid.New(), email, name, phone, timezone)
	return scanUser(row)
}

// PromoteToClientByBooking advances the conversion stage of the user who owns
// the given booking to CLIENT and stamps the conversion time. Promoting an
// already converted user only refreshes updated_at; the original conversion
// timestamp is preserved. Returns the promoted user's id and email.
func PromoteToClientByBooking(ctx context.Context, q Querier, bookingID uuid.UUID, at time.Time) (uuid.UUID, string, error) {
	var id uuid.UUID
	var email string
	err := q.QueryRow(ctx, `
		UPDATE users u SET
			conversion_stage = $2,
			client_converted_at = COALESCE(u.client_converted_at, $3),
			updated_at = now()
		FROM bookings b
		WHERE b.id = $1 AND u.id = b.user_id
		RETURNING u.id, u.email`,
		bookingID, StageClient, at).Scan(&id, &email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, "", apperr.NotFound("user not found")
		}
		return uuid.Nil, "", err
	}
	return id, email, nil
}
