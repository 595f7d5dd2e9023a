// Package webhook provides the calendar webhook bounded context. It ingests
// booking lifecycle events pushed by the external scheduling provider and
// keeps users, bookings and payments in sync with them.
package webhook

import (
	"context"
	"errors"
	"time"

	bookingdomain "livingrite_backend/internal/bookings/domain"
	paymentdomain "livingrite_backend/internal/payments/domain"
	"livingrite_backend/internal/users"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func nilIfEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

// IngestParams carries everything needed to materialize a "created" calendar
// event into local records.
type IngestParams struct {
	CalendarEventID string
	ServiceID       *uuid.UUID
	Title           string
	ClientName      string
	ClientEmail     string
	ClientPhone     string
	ScheduledAt     time.Time
	Timezone        string
	MeetingLink     string
	Note            string
	IntakeForm      []byte
	AmountCents     int64
	Currency        string
}

// IngestResult reports what the ingest transaction did.
type IngestResult struct {
	BookingID     uuid.UUID
	UserID        uuid.UUID
	PaymentStatus paymentdomain.Status
	Created       bool
}

// Repository performs the cross-entity writes for webhook ingest. User,
// booking and payment land in a single transaction per event.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new webhook repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// IngestCreated handles a "created" event: find-or-create the user, upsert
// the booking keyed on calendar_event_id, and attach a payment record if the
// booking does not have one yet. A replayed event updates booking details
// but never touches status or creates a second payment.
func (r *Repository) IngestCreated(ctx context.Context, p IngestParams) (*IngestResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	user, err := users.UpsertByEmail(ctx, tx, p.ClientEmail, p.ClientName, p.ClientPhone, p.Timezone)
	if err != nil {
		return nil, err
	}
	userID := user.ID

	var hasFree bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM payments WHERE user_id = $1 AND status = $2)`,
		userID, string(paymentdomain.StatusFree)).Scan(&hasFree)
	if err != nil {
		return nil, err
	}

	var bookingID uuid.UUID
	var inserted bool
	err = tx.QueryRow(ctx, `
		INSERT INTO bookings (id, calendar_event_id, user_id, service_id, client_name, client_email, client_phone,
			title, scheduled_at, timezone, meeting_link, note, intake_form, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (calendar_event_id) DO UPDATE SET
			client_name = EXCLUDED.client_name,
			client_phone = COALESCE(NULLIF(EXCLUDED.client_phone, ''), bookings.client_phone),
			title = EXCLUDED.title,
			scheduled_at = EXCLUDED.scheduled_at,
			timezone = EXCLUDED.timezone,
			meeting_link = EXCLUDED.meeting_link,
			note = EXCLUDED.note,
			intake_form = COALESCE(EXCLUDED.intake_form, bookings.intake_form),
			updated_at = now()
		RETURNING id, (xmax = 0)`,
		uuid.New(), p.CalendarEventID, userID, p.ServiceID, p.ClientName, p.ClientEmail, p.ClientPhone,
		p.Title, p.ScheduledAt, p.Timezone, p.MeetingLink, p.Note, nilIfEmpty(p.IntakeForm),
		string(bookingdomain.StatusScheduled)).
		Scan(&bookingID, &inserted)
	if err != nil {
		return nil, err
	}

	// FREE vs PENDING is decided inside the transaction so the one free
	// consultation rule holds under concurrent webhooks.
	paymentStatus := paymentdomain.InitialStatus(hasFree)
	amount := p.AmountCents
	if paymentStatus == paymentdomain.StatusFree {
		amount = 0
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO payments (id, booking_id, user_id, amount_cents, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (booking_id) DO NOTHING`,
		uuid.New(), bookingID, userID, amount, p.Currency, string(paymentStatus))
	if err != nil {
		return nil, err
	}

	if !inserted {
		// Replayed event: report the payment status the booking already has.
		err = tx.QueryRow(ctx, `SELECT status FROM payments WHERE booking_id = $1`, bookingID).Scan(&paymentStatus)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &IngestResult{
		BookingID:     bookingID,
		UserID:        userID,
		PaymentStatus: paymentStatus,
		Created:       inserted,
	}, nil
}

// StatusUpdateResult reports a lifecycle update applied by calendar event id.
type StatusUpdateResult struct {
	BookingID   uuid.UUID
	UserID      uuid.UUID
	ClientName  string
	ClientEmail string
	Title       string
	Applied     bool
}

// CancelByCalendarEventID moves a booking to CANCELLED unless it is already
// terminal. Returns Applied=false when the booking is unknown or terminal.
func (r *Repository) CancelByCalendarEventID(ctx context.Context, calendarEventID string, at time.Time) (*StatusUpdateResult, error) {
	return r.applyStatus(ctx, `
		UPDATE bookings SET status = $2, cancelled_at = $3, updated_at = now()
		WHERE calendar_event_id = $1 AND status NOT IN ($4, $5)
		RETURNING id, user_id, client_name, client_email, title`,
		calendarEventID, string(bookingdomain.StatusCancelled), at)
}

// CompleteByCalendarEventID moves a booking to COMPLETED unless terminal.
func (r *Repository) CompleteByCalendarEventID(ctx context.Context, calendarEventID string) (*StatusUpdateResult, error) {
	return r.applyStatus(ctx, `
		UPDATE bookings SET status = $2, updated_at = now()
		WHERE calendar_event_id = $1 AND status NOT IN ($3, $4)
		RETURNING id, user_id, client_name, client_email, title`,
		calendarEventID, string(bookingdomain.StatusCompleted))
}

// RescheduleByCalendarEventID rebinds a booking that was rescheduled. The
// provider issues a fresh event id for the new slot; the previous id is kept
// on rescheduled_from.
func (r *Repository) RescheduleByCalendarEventID(ctx context.Context, previousEventID, newEventID string, newStart time.Time, timezone string) (*StatusUpdateResult, error) {
	var res StatusUpdateResult
	err := r.pool.QueryRow(ctx, `
		UPDATE bookings SET
			calendar_event_id = $2,
			rescheduled_from = $1,
			scheduled_at = $3,
			timezone = COALESCE(NULLIF($4, ''), timezone),
			status = $5,
			updated_at = now()
		WHERE calendar_event_id = $1 AND status NOT IN ($6, $7)
		RETURNING id, user_id, client_name, client_email, title`,
		previousEventID, newEventID, newStart, timezone,
		string(bookingdomain.StatusRescheduled),
		string(bookingdomain.StatusCancelled), string(bookingdomain.StatusCompleted)).
		Scan(&res.BookingID, &res.UserID, &res.ClientName, &res.ClientEmail, &res.Title)
	if err != nil {
		if isNoRows(err) {
			return &StatusUpdateResult{Applied: false}, nil
		}
		return nil, err
	}
	res.Applied = true
	return &res, nil
}

func (r *Repository) applyStatus(ctx context.Context, query, calendarEventID string, extra ...interface{}) (*StatusUpdateResult, error) {
	args := append([]interface{}{calendarEventID}, extra...)
	args = append(args, string(bookingdomain.StatusCancelled), string(bookingdomain.StatusCompleted))

	var res StatusUpdateResult
	err := r.pool.QueryRow(ctx, query, args...).
		Scan(&res.BookingID, &res.UserID, &res.ClientName, &res.ClientEmail, &res.Title)
	if err != nil {
		if isNoRows(err) {
			return &StatusUpdateResult{Applied: false}, nil
		}
		return nil, err
	}
	res.Applied = true
	return &res, nil
}
