// Package notification subscribes to domain events and sends the matching
// transactional emails. Delivery is fire-and-forget: failures are logged and
// never roll back the state transition that produced the event.
package notification

import (
	"context"
	"fmt"
	"time"

	"livingrite_backend/internal/email"
	"livingrite_backend/internal/events"
	"livingrite_backend/internal/pdf"
	"livingrite_backend/platform/config"
	"livingrite_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module handles all notification-related event subscriptions.
type Module struct {
	pool   *pgxpool.Pool
	sender email.Sender
	cfg    config.NotificationConfig
	log    *logger.Logger
}

// New creates a new notification module.
func New(pool *pgxpool.Pool, sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{pool: pool, sender: sender, cfg: cfg, log: log}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// RegisterHandlers subscribes the module to the events it emails about.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.BookingScheduled{}.EventName(), m)
	bus.Subscribe(events.BookingCancelled{}.EventName(), m)
	bus.Subscribe(events.BookingRescheduled{}.EventName(), m)
	bus.Subscribe(events.BookingReminderDue{}.EventName(), m)
	bus.Subscribe(events.PaymentSucceeded{}.EventName(), m)
	bus.Subscribe(events.ProposalSent{}.EventName(), m)
	bus.Subscribe(events.ProposalAccepted{}.EventName(), m)
	bus.Subscribe(events.InvoiceOverdue{}.EventName(), m)
}

// Handle dispatches a domain event to its email handler.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.BookingScheduled:
		return m.handleBookingScheduled(ctx, e)
	case events.BookingCancelled:
		return m.handleBookingCancelled(ctx, e)
	case events.BookingRescheduled:
		return m.handleBookingRescheduled(ctx, e)
	case events.BookingReminderDue:
		return m.handleBookingReminderDue(ctx, e)
	case events.PaymentSucceeded:
		return m.handlePaymentSucceeded(ctx, e)
	case events.ProposalSent:
		return m.handleProposalSent(ctx, e)
	case events.ProposalAccepted:
		return m.handleProposalAccepted(ctx, e)
	case events.InvoiceOverdue:
		return m.handleInvoiceOverdue(ctx, e)
	default:
		return nil
	}
}

// formatWhen renders an instant in the client's timezone when it is known.
func formatWhen(at time.Time, timezone string) string {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err == nil {
			at = at.In(loc)
		}
	}
	return at.Format("Monday, 2 January 2006 at 15:04")
}

func (m *Module) handleBookingScheduled(ctx context.Context, e events.BookingScheduled) error {
	if e.ClientEmail == "" {
		return nil
	}
	err := m.sender.SendBookingConfirmationEmail(ctx, e.ClientEmail, e.ClientName, "your consultation",
		formatWhen(e.ScheduledAt, e.Timezone), e.MeetingLink)
	if err != nil {
		m.log.Warn("booking confirmation email failed", "bookingId", e.BookingID, "error", err)
	}
	return nil
}

func (m *Module) handleBookingCancelled(ctx context.Context, e events.BookingCancelled) error {
	if e.ClientEmail == "" {
		return nil
	}
	err := m.sender.SendBookingCancelledEmail(ctx, e.ClientEmail, e.ClientName, e.Title, e.Reason)
	if err != nil {
		m.log.Warn("booking cancellation email failed", "bookingId", e.BookingID, "error", err)
	}
	return nil
}

func (m *Module) handleBookingRescheduled(ctx context.Context, e events.BookingRescheduled) error {
	if e.ClientEmail == "" {
		return nil
	}
	err := m.sender.SendBookingRescheduledEmail(ctx, e.ClientEmail, e.ClientName, e.Title,
		formatWhen(e.NewScheduledAt, e.Timezone))
	if err != nil {
		m.log.Warn("booking reschedule email failed", "bookingId", e.BookingID, "error", err)
	}
	return nil
}

func (m *Module) handleBookingReminderDue(ctx context.Context, e events.BookingReminderDue) error {
	if e.ClientEmail == "" {
		return nil
	}
	err := m.sender.SendBookingReminderEmail(ctx, e.ClientEmail, e.ClientName, e.Title,
		formatWhen(e.ScheduledAt, e.Timezone), e.MeetingLink)
	if err != nil {
		m.log.Warn("booking reminder email failed", "bookingId", e.BookingID, "error", err)
	}
	return nil
}

func (m *Module) handlePaymentSucceeded(ctx context.Context, e events.PaymentSucceeded) error {
	if e.ClientEmail == "" {
		return nil
	}
	amount := pdf.FormatMoney(e.AmountCents, e.Currency)
	err := m.sender.SendPaymentReceiptEmail(ctx, e.ClientEmail, e.ClientName, e.Reference, amount)
	if err != nil {
		m.log.Warn("payment receipt email failed", "reference", e.Reference, "error", err)
	}
	return nil
}

func (m *Module) handleProposalSent(ctx context.Context, e events.ProposalSent) error {
	if e.ClientEmail == "" {
		return nil
	}
	proposalURL := fmt.Sprintf("%s/proposals/%s", m.cfg.GetAppBaseURL(), e.PublicToken)
	total := pdf.FormatMoney(e.TotalCents, e.Currency)
	err := m.sender.SendProposalEmail(ctx, e.ClientEmail, e.ClientName, e.Title, proposalURL, total)
	if err != nil {
		m.log.Warn("proposal email failed", "proposalId", e.ProposalID, "error", err)
	}
	return nil
}

func (m *Module) handleProposalAccepted(ctx context.Context, e events.ProposalAccepted) error {
	if e.ClientEmail == "" {
		return nil
	}
	err := m.sender.SendProposalAcceptedEmail(ctx, e.ClientEmail, e.ClientName, "your care proposal")
	if err != nil {
		m.log.Warn("proposal accepted email failed", "proposalId", e.ProposalID, "error", err)
	}
	return nil
}

// invoiceContact resolves the client contact and amount behind an overdue
// invoice. The event itself carries only identifiers.
type invoiceContact struct {
	ClientName  string
	ClientEmail string
	TotalCents  int64
	Currency    string
}

func (m *Module) resolveInvoiceContact(ctx context.Context, invoiceID uuid.UUID) *invoiceContact {
	if m.pool == nil {
		return nil
	}
	var c invoiceContact
	err := m.pool.QueryRow(ctx, `
		SELECT b.client_name, b.client_email, i.total_cents, i.currency
		FROM invoices i
		JOIN bookings b ON b.id = i.booking_id
		WHERE i.id = $1`, invoiceID).
		Scan(&c.ClientName, &c.ClientEmail, &c.TotalCents, &c.Currency)
	if err != nil {
		return nil
	}
	return &c
}

func (m *Module) handleInvoiceOverdue(ctx context.Context, e events.InvoiceOverdue) error {
	contact := m.resolveInvoiceContact(ctx, e.InvoiceID)
	if contact == nil || contact.ClientEmail == "" {
		return nil
	}
	amount := pdf.FormatMoney(contact.TotalCents, contact.Currency)
	err := m.sender.SendInvoiceOverdueEmail(ctx, contact.ClientEmail, contact.ClientName,
		e.InvoiceNumber, amount, e.DueAt.Format("2 January 2006"))
	if err != nil {
		m.log.Warn("invoice overdue email failed", "invoiceNumber", e.InvoiceNumber, "error", err)
	}
	return nil
}
