package notification

import (
	"context"
	"testing"
	"time"

	"livingrite_backend/internal/events"
	"livingrite_backend/platform/logger"

	"github.com/google/uuid"
)

type testNotificationConfig struct{}

func (testNotificationConfig) GetAppBaseURL() string { return "https://app.example.com" }

type testSender struct {
	confirmationCalls int
	cancelledCalls    int
	rescheduledCalls  int
	reminderCalls     int
	receiptCalls      int
	proposalCalls     int
	acceptedCalls     int
	overdueCalls      int

	lastTo          string
	lastProposalURL string
	lastAmount      string
}

func (s *testSender) SendBookingConfirmationEmail(_ context.Context, toEmail, _, _, _, _ string) error {
	s.confirmationCalls++
	s.lastTo = toEmail
	return nil
}

func (s *testSender) SendBookingCancelledEmail(_ context.Context, toEmail, _, _, _ string) error {
	s.cancelledCalls++
	s.lastTo = toEmail
	return nil
}

func (s *testSender) SendBookingRescheduledEmail(_ context.Context, toEmail, _, _, _ string) error {
	s.rescheduledCalls++
	s.lastTo = toEmail
	return nil
}

func (s *testSender) SendBookingReminderEmail(_ context.Context, toEmail, _, _, _, _ string) error {
	s.reminderCalls++
	s.lastTo = toEmail
	return nil
}

func (s *testSender) SendPaymentReceiptEmail(_ context.Context, toEmail, _, _, amountFormatted string) error {
	s.receiptCalls++
	s.lastTo = toEmail
	s.lastAmount = amountFormatted
	return nil
}

func (s *testSender) SendProposalEmail(_ context.Context, toEmail, _, _, proposalURL, _ string) error {
	s.proposalCalls++
	s.lastTo = toEmail
	s.lastProposalURL = proposalURL
	return nil
}

func (s *testSender) SendProposalAcceptedEmail(_ context.Context, toEmail, _, _ string) error {
	s.acceptedCalls++
	s.lastTo = toEmail
	return nil
}

func (s *testSender) SendInvoiceOverdueEmail(_ context.Context, toEmail, _, _, _, _ string) error {
	s.overdueCalls++
	s.lastTo = toEmail
	return nil
}

func newTestModule() (*Module, *testSender) {
	sender := &testSender{}
	return New(nil, sender, testNotificationConfig{}, logger.New("development")), sender
}

func TestBookingScheduledSendsConfirmation(t *testing.T) {
	m, sender := newTestModule()

	err := m.Handle(context.Background(), events.BookingScheduled{
		BaseEvent:   events.NewBaseEvent(),
		BookingID:   uuid.New(),
		ClientName:  "Ada Obi",
		ClientEmail: "ada@example.com",
		ScheduledAt: time.Now().Add(48 * time.Hour),
		Timezone:    "Africa/Lagos",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.confirmationCalls != 1 {
		t.Fatalf("confirmation calls = %d, want 1", sender.confirmationCalls)
	}
	if sender.lastTo != "ada@example.com" {
		t.Fatalf("sent to %q", sender.lastTo)
	}
}

func TestBookingScheduledWithoutEmailIsSkipped(t *testing.T) {
	m, sender := newTestModule()

	err := m.Handle(context.Background(), events.BookingScheduled{
		BaseEvent: events.NewBaseEvent(),
		BookingID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.confirmationCalls != 0 {
		t.Fatal("no email should be sent without a recipient")
	}
}

func TestProposalSentBuildsPublicLink(t *testing.T) {
	m, sender := newTestModule()

	err := m.Handle(context.Background(), events.ProposalSent{
		BaseEvent:   events.NewBaseEvent(),
		ProposalID:  uuid.New(),
		Title:       "Proposal for Ada Obi",
		ClientName:  "Ada Obi",
		ClientEmail: "ada@example.com",
		PublicToken: "tok-123",
		TotalCents:  500000,
		Currency:    "NGN",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.proposalCalls != 1 {
		t.Fatalf("proposal calls = %d, want 1", sender.proposalCalls)
	}
	if want := "https://app.example.com/proposals/tok-123"; sender.lastProposalURL != want {
		t.Fatalf("proposal url = %q, want %q", sender.lastProposalURL, want)
	}
}

func TestPaymentSucceededFormatsAmount(t *testing.T) {
	m, sender := newTestModule()

	err := m.Handle(context.Background(), events.PaymentSucceeded{
		BaseEvent:   events.NewBaseEvent(),
		Reference:   "LR-abc",
		AmountCents: 250000,
		Currency:    "NGN",
		ClientEmail: "ada@example.com",
		ClientName:  "Ada Obi",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.receiptCalls != 1 {
		t.Fatalf("receipt calls = %d, want 1", sender.receiptCalls)
	}
	if sender.lastAmount != "NGN 2,500.00" {
		t.Fatalf("amount = %q", sender.lastAmount)
	}
}

func TestUnknownEventIsIgnored(t *testing.T) {
	m, sender := newTestModule()

	err := m.Handle(context.Background(), events.InvoicePaid{BaseEvent: events.NewBaseEvent()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.receiptCalls+sender.confirmationCalls+sender.proposalCalls != 0 {
		t.Fatal("no email should be sent for unhandled events")
	}
}

func TestInvoiceOverdueWithoutPoolIsSkipped(t *testing.T) {
	m, sender := newTestModule()

	err := m.Handle(context.Background(), events.InvoiceOverdue{
		BaseEvent:     events.NewBaseEvent(),
		InvoiceID:     uuid.New(),
		InvoiceNumber: "INV-2026-0001",
		DueAt:         time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.overdueCalls != 0 {
		t.Fatal("overdue email needs a resolvable contact")
	}
}
