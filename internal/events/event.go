// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"livingrite_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Booking Domain Events
// =============================================================================

// BookingScheduled is published when a calendar "created" event produces a
// new or updated booking.
type BookingScheduled struct {
	BaseEvent
	BookingID       uuid.UUID `json:"bookingId"`
	UserID          uuid.UUID `json:"userId"`
	CalendarEventID string    `json:"calendarEventId"`
	ClientName      string    `json:"clientName"`
	ClientEmail     string    `json:"clientEmail"`
	ScheduledAt     time.Time `json:"scheduledAt"`
	Timezone        string    `json:"timezone"`
	MeetingLink     string    `json:"meetingLink,omitempty"`
	PaymentStatus   string    `json:"paymentStatus"`
}

func (e BookingScheduled) EventName() string { return "bookings.scheduled" }

// BookingCancelled is published when a booking is cancelled via webhook or
// client action.
type BookingCancelled struct {
	BaseEvent
	BookingID       uuid.UUID `json:"bookingId"`
	UserID          uuid.UUID `json:"userId"`
	CalendarEventID string    `json:"calendarEventId,omitempty"`
	ClientName      string    `json:"clientName"`
	ClientEmail     string    `json:"clientEmail"`
	Title           string    `json:"title"`
	Reason          string    `json:"reason,omitempty"`
	CancelledAt     time.Time `json:"cancelledAt"`
}

func (e BookingCancelled) EventName() string { return "bookings.cancelled" }

// BookingRescheduled is published when a booking moves to a new time, either
// from a calendar "rescheduled" event or a client reschedule.
type BookingRescheduled struct {
	BaseEvent
	BookingID       uuid.UUID `json:"bookingId"`
	CalendarEventID string    `json:"calendarEventId"`
	ClientName      string    `json:"clientName"`
	ClientEmail     string    `json:"clientEmail"`
	Title           string    `json:"title"`
	NewScheduledAt  time.Time `json:"newScheduledAt"`
	Timezone        string    `json:"timezone,omitempty"`
}

func (e BookingRescheduled) EventName() string { return "bookings.rescheduled" }

// BookingCompleted is published when a calendar "completed" event closes a
// booking.
type BookingCompleted struct {
	BaseEvent
	BookingID       uuid.UUID `json:"bookingId"`
	UserID          uuid.UUID `json:"userId"`
	CalendarEventID string    `json:"calendarEventId,omitempty"`
	ClientName      string    `json:"clientName"`
	ClientEmail     string    `json:"clientEmail"`
	Title           string    `json:"title"`
}

func (e BookingCompleted) EventName() string { return "bookings.completed" }

// BookingReminderDue is published by the scheduler worker when a booking's
// reminder task fires and the booking is still upcoming.
type BookingReminderDue struct {
	BaseEvent
	BookingID   uuid.UUID `json:"bookingId"`
	ClientName  string    `json:"clientName"`
	ClientEmail string    `json:"clientEmail"`
	Title       string    `json:"title"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Timezone    string    `json:"timezone,omitempty"`
	MeetingLink string    `json:"meetingLink,omitempty"`
}

func (e BookingReminderDue) EventName() string { return "bookings.reminder_due" }

// =============================================================================
// Payment Domain Events
// =============================================================================

// PaymentSucceeded is published when a gateway callback settles a payment.
// Booking status is deliberately not carried here; payment success never
// completes a booking.
type PaymentSucceeded struct {
	BaseEvent
	PaymentID   uuid.UUID `json:"paymentId"`
	BookingID   uuid.UUID `json:"bookingId"`
	UserID      uuid.UUID `json:"userId"`
	Reference   string    `json:"reference"`
	AmountCents int64     `json:"amountCents"`
	Currency    string    `json:"currency"`
	ClientEmail string    `json:"clientEmail"`
	ClientName  string    `json:"clientName"`
}

func (e PaymentSucceeded) EventName() string { return "payments.succeeded" }

// =============================================================================
// Invoice Domain Events
// =============================================================================

// InvoicePaid is published when the payment synchronizer marks an invoice paid.
type InvoicePaid struct {
	BaseEvent
	InvoiceID     uuid.UUID `json:"invoiceId"`
	BookingID     uuid.UUID `json:"bookingId"`
	InvoiceNumber string    `json:"invoiceNumber"`
	PaidAt        time.Time `json:"paidAt"`
}

func (e InvoicePaid) EventName() string { return "invoices.paid" }

// InvoiceOverdue is published by the scheduler sweep for each invoice that
// passed its due date while still SENT.
type InvoiceOverdue struct {
	BaseEvent
	InvoiceID     uuid.UUID `json:"invoiceId"`
	BookingID     uuid.UUID `json:"bookingId"`
	InvoiceNumber string    `json:"invoiceNumber"`
	DueAt         time.Time `json:"dueAt"`
}

func (e InvoiceOverdue) EventName() string { return "invoices.overdue" }

// =============================================================================
// Proposal Domain Events
// =============================================================================

// ProposalSent is published when a proposal is sent to the client. The
// notification module uses the public token to build the client-facing link.
type ProposalSent struct {
	BaseEvent
	ProposalID  uuid.UUID `json:"proposalId"`
	BookingID   uuid.UUID `json:"bookingId"`
	Title       string    `json:"title"`
	ClientName  string    `json:"clientName"`
	ClientEmail string    `json:"clientEmail"`
	PublicToken string    `json:"publicToken"`
	TotalCents  int64     `json:"totalCents"`
	Currency    string    `json:"currency"`
}

func (e ProposalSent) EventName() string { return "proposals.sent" }

// ProposalViewed is published on the first client view of a proposal.
type ProposalViewed struct {
	BaseEvent
	ProposalID uuid.UUID `json:"proposalId"`
	BookingID  uuid.UUID `json:"bookingId"`
}

func (e ProposalViewed) EventName() string { return "proposals.viewed" }

// ProposalAccepted is published when the client accepts a proposal.
type ProposalAccepted struct {
	BaseEvent
	ProposalID  uuid.UUID `json:"proposalId"`
	BookingID   uuid.UUID `json:"bookingId"`
	UserID      uuid.UUID `json:"userId"`
	ClientName  string    `json:"clientName"`
	ClientEmail string    `json:"clientEmail"`
	TotalCents  int64     `json:"totalCents"`
	Currency    string    `json:"currency"`
}

func (e ProposalAccepted) EventName() string { return "proposals.accepted" }

// ProposalRejected is published when the client rejects a proposal.
type ProposalRejected struct {
	BaseEvent
	ProposalID uuid.UUID `json:"proposalId"`
	BookingID  uuid.UUID `json:"bookingId"`
	Reason     string    `json:"reason"`
}

func (e ProposalRejected) EventName() string { return "proposals.rejected" }

// =============================================================================
// User Domain Events
// =============================================================================

// UserConverted is published when a user's conversion stage is promoted to
// client (proposal acceptance).
type UserConverted struct {
	BaseEvent
	UserID      uuid.UUID `json:"userId"`
	Email       string    `json:"email"`
	ConvertedAt time.Time `json:"convertedAt"`
}

func (e UserConverted) EventName() string { return "users.converted" }
