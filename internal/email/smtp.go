package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates an SMTPSender with the given credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendBookingConfirmationEmail(ctx context.Context, toEmail, clientName, title, scheduledDate, meetingLink string) error {
	content, err := renderEmailTemplate("booking_confirmation.html", bookingConfirmationEmailData{
		baseEmailData: baseEmailData{
			Title:   "Booking confirmed",
			Heading: "Booking confirmed",
		},
		ClientName:    clientName,
		BookingTitle:  title,
		ScheduledDate: scheduledDate,
		MeetingLink:   meetingLink,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectBookingConfirmation, content)
}

func (s *SMTPSender) SendBookingCancelledEmail(ctx context.Context, toEmail, clientName, title, reason string) error {
	content, err := renderEmailTemplate("booking_cancelled.html", bookingCancelledEmailData{
		baseEmailData: baseEmailData{
			Title:   "Booking cancelled",
			Heading: "Booking cancelled",
		},
		ClientName:   clientName,
		BookingTitle: title,
		Reason:       reason,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectBookingCancelled, content)
}

func (s *SMTPSender) SendBookingRescheduledEmail(ctx context.Context, toEmail, clientName, title, newDate string) error {
	content, err := renderEmailTemplate("booking_rescheduled.html", bookingRescheduledEmailData{
		baseEmailData: baseEmailData{
			Title:   "Booking rescheduled",
			Heading: "Booking rescheduled",
		},
		ClientName:   clientName,
		BookingTitle: title,
		NewDate:      newDate,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectBookingRescheduled, content)
}

func (s *SMTPSender) SendBookingReminderEmail(ctx context.Context, toEmail, clientName, title, scheduledDate, meetingLink string) error {
	content, err := renderEmailTemplate("booking_reminder.html", bookingReminderEmailData{
		baseEmailData: baseEmailData{
			Title:   "Upcoming consultation",
			Heading: "Your consultation is coming up",
		},
		ClientName:    clientName,
		BookingTitle:  title,
		ScheduledDate: scheduledDate,
		MeetingLink:   meetingLink,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectBookingReminder, content)
}

func (s *SMTPSender) SendPaymentReceiptEmail(ctx context.Context, toEmail, clientName, reference, amountFormatted string) error {
	content, err := renderEmailTemplate("payment_receipt.html", paymentReceiptEmailData{
		baseEmailData: baseEmailData{
			Title:   "Payment received",
			Heading: "Payment received",
		},
		ClientName:      clientName,
		Reference:       reference,
		AmountFormatted: amountFormatted,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectPaymentReceiptFmt, reference), content)
}

func (s *SMTPSender) SendProposalEmail(ctx context.Context, toEmail, clientName, title, proposalURL, totalFormatted string) error {
	content, err := renderEmailTemplate("proposal.html", proposalEmailData{
		baseEmailData: baseEmailData{
			Title:    "Your care proposal",
			Heading:  "Your care proposal",
			CTALabel: "View proposal",
			CTAURL:   proposalURL,
		},
		ClientName:     clientName,
		ProposalTitle:  title,
		TotalFormatted: totalFormatted,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectProposalFmt, title), content)
}

func (s *SMTPSender) SendProposalAcceptedEmail(ctx context.Context, toEmail, clientName, title string) error {
	content, err := renderEmailTemplate("proposal_accepted.html", proposalAcceptedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Welcome aboard",
			Heading: "Welcome aboard",
		},
		ClientName:    clientName,
		ProposalTitle: title,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectProposalAccepted, content)
}

func (s *SMTPSender) SendInvoiceOverdueEmail(ctx context.Context, toEmail, clientName, invoiceNumber, amountFormatted, dueDate string) error {
	content, err := renderEmailTemplate("invoice_overdue.html", invoiceOverdueEmailData{
		baseEmailData: baseEmailData{
			Title:   "Invoice overdue",
			Heading: "Invoice overdue",
		},
		ClientName:      clientName,
		InvoiceNumber:   invoiceNumber,
		AmountFormatted: amountFormatted,
		DueDate:         dueDate,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectInvoiceOverdueFmt, invoiceNumber), content)
}

// Compile-time check that SMTPSender implements Sender.
var _ Sender = (*SMTPSender)(nil)
