// Package email renders and delivers transactional mail. The Sender
// interface keeps the notification module ignorant of SMTP details.
package email

import (
	"context"

	"livingrite_backend/platform/config"
)

// Sender delivers the transactional emails the booking lifecycle produces.
type Sender interface {
	SendBookingConfirmationEmail(ctx context.Context, toEmail, clientName, title, scheduledDate, meetingLink string) error
	SendBookingCancelledEmail(ctx context.Context, toEmail, clientName, title, reason string) error
	SendBookingRescheduledEmail(ctx context.Context, toEmail, clientName, title, newDate string) error
	SendBookingReminderEmail(ctx context.Context, toEmail, clientName, title, scheduledDate, meetingLink string) error
	SendPaymentReceiptEmail(ctx context.Context, toEmail, clientName, reference, amountFormatted string) error
	SendProposalEmail(ctx context.Context, toEmail, clientName, title, proposalURL, totalFormatted string) error
	SendProposalAcceptedEmail(ctx context.Context, toEmail, clientName, title string) error
	SendInvoiceOverdueEmail(ctx context.Context, toEmail, clientName, invoiceNumber, amountFormatted, dueDate string) error
}

// NewSender returns an SMTP-backed sender when email is configured, otherwise
// a no-op sender so callers never need nil checks.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}

// NoopSender discards all mail. Used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendBookingConfirmationEmail(context.Context, string, string, string, string, string) error {
	return nil
}

func (NoopSender) SendBookingCancelledEmail(context.Context, string, string, string, string) error {
	return nil
}

func (NoopSender) SendBookingRescheduledEmail(context.Context, string, string, string, string) error {
	return nil
}

func (NoopSender) SendBookingReminderEmail(context.Context, string, string, string, string, string) error {
	return nil
}

func (NoopSender) SendPaymentReceiptEmail(context.Context, string, string, string, string) error {
	return nil
}

func (NoopSender) SendProposalEmail(context.Context, string, string, string, string, string) error {
	return nil
}

func (NoopSender) SendProposalAcceptedEmail(context.Context, string, string, string) error {
	return nil
}

func (NoopSender) SendInvoiceOverdueEmail(context.Context, string, string, string, string, string) error {
	return nil
}
