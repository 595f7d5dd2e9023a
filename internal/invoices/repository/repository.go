// Package repository holds database access for invoices.
package repository

import (
	"context"
	"errors"
	"time"

	"livingrite_backend/internal/invoices/domain"
	"livingrite_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Invoice is the database model for an invoice. Each booking carries at most
// one.
type Invoice struct {
	ID            uuid.UUID
	BookingID     uuid.UUID
	InvoiceNumber string
	AmountCents   int64
	TotalCents    int64
	Currency      string
	Status        domain.Status
	IssuedAt      time.Time
	DueAt         *time.Time
	PaidAt        *time.Time
	DocumentKey   *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Repository provides database operations for invoices.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new invoices repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const invoiceColumns = `id, booking_id, invoice_number, amount_cents, total_cents, currency, status,
	issued_at, due_at, paid_at, document_key, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.BookingID, &inv.InvoiceNumber, &inv.AmountCents, &inv.TotalCents,
		&inv.Currency, &inv.Status, &inv.IssuedAt, &inv.DueAt, &inv.PaidAt, &inv.DocumentKey,
		&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("invoice not found")
		}
		return nil, err
	}
	return &inv, nil
}

// NextInvoiceNumber atomically advances the per-year counter and returns the
// formatted number. The counter upsert keeps numbers gapless and unique under
// concurrent issuance for the same year.
func (r *Repository) NextInvoiceNumber(ctx context.Context, year int) (string, error) {
	var seq int
	err := r.pool.QueryRow(ctx, `
		INSERT INTO invoice_counters (year, last_number)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_number = invoice_counters.last_number + 1
		RETURNING last_number`, year).Scan(&seq)
	if err != nil {
		return "", err
	}
	return domain.FormatNumber(year, seq), nil
}

// Create inserts a new invoice.
func (r *Repository) Create(ctx context.Context, inv *Invoice) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO invoices (id, booking_id, invoice_number, amount_cents, total_cents, currency, status, issued_at, due_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+invoiceColumns,
		uuid.New(), inv.BookingID, inv.InvoiceNumber, inv.AmountCents, inv.TotalCents,
		inv.Currency, string(inv.Status), inv.IssuedAt, inv.DueAt)
	return scanInvoice(row)
}

// GetByID fetches an invoice by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	return scanInvoice(row)
}

// GetByBookingID fetches the invoice attached to a booking.
func (r *Repository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE booking_id = $1`, bookingID)
	return scanInvoice(row)
}

// List returns invoices, optionally filtered by status, newest first.
func (r *Repository) List(ctx context.Context, status *domain.Status) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	args := []interface{}{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, string(*status))
	}
	query += ` ORDER BY issued_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.BookingID, &inv.InvoiceNumber, &inv.AmountCents, &inv.TotalCents,
			&inv.Currency, &inv.Status, &inv.IssuedAt, &inv.DueAt, &inv.PaidAt, &inv.DocumentKey,
			&inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// UpdateStatus writes a new status. Guards run in the service layer.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE invoices SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("invoice not found")
	}
	return nil
}

// MarkPaidByBookingID settles the booking's invoice if it is still payable.
// Returns the invoice and whether this call changed it.
func (r *Repository) MarkPaidByBookingID(ctx context.Context, bookingID uuid.UUID, paidAt time.Time) (*Invoice, bool, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE invoices SET status = $2, paid_at = $3, updated_at = now()
		WHERE booking_id = $1 AND status IN ($4, $5, $6)
		RETURNING `+invoiceColumns,
		bookingID, string(domain.StatusPaid), paidAt,
		string(domain.StatusDraft), string(domain.StatusSent), string(domain.StatusOverdue))
	inv, err := scanInvoice(row)
	if err != nil {
		if apperr.GetKind(err) == apperr.KindNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return inv, true, nil
}

// SetDocumentKey records the storage key of the rendered PDF.
func (r *Repository) SetDocumentKey(ctx context.Context, id uuid.UUID, key string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE invoices SET document_key = $2, updated_at = now() WHERE id = $1`, id, key)
	return err
}

// BillingContext joins the booking and payment fields invoice issuance and
// rendering need.
type BillingContext struct {
	BookingID    uuid.UUID
	ClientName   string
	ClientEmail  string
	BookingTitle string
	ScheduledAt  *time.Time
	AmountCents  int64
	Currency     string
}

// GetBillingContext loads the booking and payment data behind an invoice.
func (r *Repository) GetBillingContext(ctx context.Context, bookingID uuid.UUID) (*BillingContext, error) {
	var bc BillingContext
	err := r.pool.QueryRow(ctx, `
		SELECT b.id, b.client_name, b.client_email, b.title, b.scheduled_at, p.amount_cents, p.currency
		FROM bookings b
		JOIN payments p ON p.booking_id = b.id
		WHERE b.id = $1`, bookingID).
		Scan(&bc.BookingID, &bc.ClientName, &bc.ClientEmail, &bc.BookingTitle, &bc.ScheduledAt,
			&bc.AmountCents, &bc.Currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("booking not found")
		}
		return nil, err
	}
	return &bc, nil
}

// SweepOverdue flips every SENT invoice past its due date to OVERDUE and
// returns the affected rows for event publication.
func (r *Repository) SweepOverdue(ctx context.Context, now time.Time) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE invoices SET status = $1, updated_at = now()
		WHERE status = $2 AND due_at IS NOT NULL AND due_at < $3
		RETURNING `+invoiceColumns,
		string(domain.StatusOverdue), string(domain.StatusSent), now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.BookingID, &inv.InvoiceNumber, &inv.AmountCents, &inv.TotalCents,
			&inv.Currency, &inv.Status, &inv.IssuedAt, &inv.DueAt, &inv.PaidAt, &inv.DocumentKey,
			&inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
