// Package repository holds database access for bookings.
package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"livingrite_backend/internal/bookings/domain"
	paymentdomain "livingrite_backend/internal/payments/domain"
	"livingrite_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Booking is the database model for a booked appointment.
type Booking struct {
	ID              uuid.UUID
	CalendarEventID *string
	UserID          uuid.UUID
	ServiceID       *uuid.UUID
	ClientName      string
	ClientEmail     string
	ClientPhone     string
	Title           string
	ScheduledAt     *time.Time
	Timezone        string
	MeetingLink     string
	Note            string
	IntakeForm      []byte
	Status          domain.Status
	CancelledAt     *time.Time
	RescheduledFrom *string
	ProposalSentAt  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ListParams filters and pages the booking list.
type ListParams struct {
	Status *domain.Status
	UserID *uuid.UUID
	Limit  int
	Offset int
}

// Repository provides database operations for bookings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new bookings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const bookingColumns = `id, calendar_event_id, user_id, service_id, client_name, client_email, client_phone,
	title, scheduled_at, timezone, meeting_link, note, intake_form, status,
	cancelled_at, rescheduled_from, proposal_sent_at, created_at, updated_at`

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(&b.ID, &b.CalendarEventID, &b.UserID, &b.ServiceID, &b.ClientName,
		&b.ClientEmail, &b.ClientPhone, &b.Title, &b.ScheduledAt, &b.Timezone,
		&b.MeetingLink, &b.Note, &b.IntakeForm, &b.Status, &b.CancelledAt,
		&b.RescheduledFrom, &b.ProposalSentAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("booking not found")
		}
		return nil, err
	}
	return &b, nil
}

// GetByID fetches a booking by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	return scanBooking(row)
}

// GetByCalendarEventID fetches a booking by its external calendar event id.
func (r *Repository) GetByCalendarEventID(ctx context.Context, calendarEventID string) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE calendar_event_id = $1`, calendarEventID)
	return scanBooking(row)
}

// List returns bookings matching the filters, newest scheduled first.
func (r *Repository) List(ctx context.Context, params ListParams) ([]Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if params.Status != nil {
		query += ` AND status = $` + strconv.Itoa(idx)
		args = append(args, string(*params.Status))
		idx++
	}
	if params.UserID != nil {
		query += ` AND user_id = $` + strconv.Itoa(idx)
		args = append(args, *params.UserID)
		idx++
	}

	query += ` ORDER BY scheduled_at DESC NULLS LAST`
	if params.Limit > 0 {
		query += ` LIMIT $` + strconv.Itoa(idx)
		args = append(args, params.Limit)
		idx++
	}
	if params.Offset > 0 {
		query += ` OFFSET $` + strconv.Itoa(idx)
		args = append(args, params.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.CalendarEventID, &b.UserID, &b.ServiceID, &b.ClientName,
			&b.ClientEmail, &b.ClientPhone, &b.Title, &b.ScheduledAt, &b.Timezone,
			&b.MeetingLink, &b.Note, &b.IntakeForm, &b.Status, &b.CancelledAt,
			&b.RescheduledFrom, &b.ProposalSentAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListByUser returns all bookings owned by a user, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Booking, error) {
	return r.List(ctx, ListParams{UserID: &userID})
}

// UpdateStatus writes a new status and the bookkeeping that goes with it.
// The status machine is enforced in the service layer; this is a plain write.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status, cancelledAt *time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bookings SET status = $2, cancelled_at = COALESCE($3, cancelled_at), updated_at = now()
		WHERE id = $1`, id, string(status), cancelledAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("booking not found")
	}
	return nil
}

// Reschedule moves a booking to a new slot. For calendar-sourced bookings
// the lineage keeps the provider's event id; portal-only bookings have none.
func (r *Repository) Reschedule(ctx context.Context, id uuid.UUID, newStart time.Time, timezone string) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE bookings SET
			scheduled_at = $2,
			timezone = COALESCE(NULLIF($3, ''), timezone),
			rescheduled_from = COALESCE(calendar_event_id, rescheduled_from),
			status = $4,
			updated_at = now()
		WHERE id = $1
		RETURNING `+bookingColumns,
		id, newStart, timezone, string(domain.StatusRescheduled))
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("booking not found")
		}
		return nil, err
	}
	return b, nil
}

// SetProposalSent stamps the time the proposal for this booking went out.
func (r *Repository) SetProposalSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bookings SET proposal_sent_at = $2, updated_at = now()
		WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("booking not found")
	}
	return nil
}

// SetIntakeForm attaches the submitted intake form JSON to a booking.
func (r *Repository) SetIntakeForm(ctx context.Context, id uuid.UUID, form []byte) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bookings SET intake_form = $2, updated_at = now()
		WHERE id = $1`, id, form)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("booking not found")
	}
	return nil
}

// StatusCounts returns the number of bookings per status.
func (r *Repository) StatusCounts(ctx context.Context) (map[domain.Status]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.Status(status)] = n
	}
	return counts, rows.Err()
}

// UpcomingCount returns how many active bookings are still ahead of now.
func (r *Repository) UpcomingCount(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE scheduled_at > $1 AND status IN ('SCHEDULED', 'RESCHEDULED')`, now).Scan(&n)
	return n, err
}

// CreateParams carries a client-initiated booking request.
type CreateParams struct {
	UserID      uuid.UUID
	ServiceID   *uuid.UUID
	Title       string
	ScheduledAt time.Time
	Timezone    string
	Note        string
	AmountCents int64
	Currency    string
}

// CreateForUser inserts a booking requested directly by a client together
// with its payment record. Contact details are copied from the user row so
// the booking snapshot stays stable if the account changes later.
func (r *Repository) CreateForUser(ctx context.Context, p CreateParams) (*Booking, paymentdomain.Status, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, "", err
	}
	defer tx.Rollback(ctx)

	var email, name, phone, timezone string
	err = tx.QueryRow(ctx, `SELECT email, name, phone, timezone FROM users WHERE id = $1`, p.UserID).
		Scan(&email, &name, &phone, &timezone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", apperr.NotFound("user not found")
		}
		return nil, "", err
	}
	if p.Timezone != "" {
		timezone = p.Timezone
	}

	var hasFree bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM payments WHERE user_id = $1 AND status = $2)`,
		p.UserID, string(paymentdomain.StatusFree)).Scan(&hasFree)
	if err != nil {
		return nil, "", err
	}

	// FREE vs PENDING is decided inside the transaction so the one free
	// consultation rule holds under concurrent requests.
	paymentStatus := paymentdomain.InitialStatus(hasFree)
	amount := p.AmountCents
	if paymentStatus == paymentdomain.StatusFree {
		amount = 0
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO bookings (id, user_id, service_id, client_name, client_email, client_phone,
			title, scheduled_at, timezone, note, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+bookingColumns,
		uuid.New(), p.UserID, p.ServiceID, name, email, phone,
		p.Title, p.ScheduledAt, timezone, p.Note, string(domain.StatusScheduled))
	b, err := scanBooking(row)
	if err != nil {
		return nil, "", err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO payments (id, booking_id, user_id, amount_cents, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), b.ID, p.UserID, amount, p.Currency, string(paymentStatus))
	if err != nil {
		return nil, "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, "", err
	}
	return b, paymentStatus, nil
}
