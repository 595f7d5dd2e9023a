package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type bookingConfirmationEmailData struct {
	baseEmailData
	ClientName    string
	BookingTitle  string
	ScheduledDate string
	MeetingLink   string
}

type bookingReminderEmailData struct {
	baseEmailData
	ClientName    string
	BookingTitle  string
	ScheduledDate string
	MeetingLink   string
}

type bookingCancelledEmailData struct {
	baseEmailData
	ClientName   string
	BookingTitle string
	Reason       string
}

type bookingRescheduledEmailData struct {
	baseEmailData
	ClientName   string
	BookingTitle string
	NewDate      string
}

type paymentReceiptEmailData struct {
	baseEmailData
	ClientName      string
	Reference       string
	AmountFormatted string
}

type proposalEmailData struct {
	baseEmailData
	ClientName     string
	ProposalTitle  string
	TotalFormatted string
}

type proposalAcceptedEmailData struct {
	baseEmailData
	ClientName    string
	ProposalTitle string
}

type invoiceOverdueEmailData struct {
	baseEmailData
	ClientName      string
	InvoiceNumber   string
	AmountFormatted string
	DueDate         string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
