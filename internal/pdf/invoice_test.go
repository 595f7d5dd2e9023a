package pdf

import (
	"strings"
	"testing"
	"time"
)

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		cents    int64
		currency string
		want     string
	}{
		{0, "NGN", "NGN 0.00"},
		{250000, "NGN", "NGN 2,500.00"},
		{123456789, "NGN", "NGN 1,234,567.89"},
		{-5000, "NGN", "NGN -50.00"},
		{99, "USD", "USD 0.99"},
	}
	for _, tc := range cases {
		if got := FormatMoney(tc.cents, tc.currency); got != tc.want {
			t.Errorf("FormatMoney(%d, %s) = %q, want %q", tc.cents, tc.currency, got, tc.want)
		}
	}
}

func TestRenderInvoiceHTML(t *testing.T) {
	due := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	html, err := RenderInvoiceHTML(InvoiceData{
		InvoiceNumber: "INV-2026-0042",
		IssuedAt:      time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		DueAt:         &due,
		ClientName:    "Ada Obi",
		ClientEmail:   "ada@example.com",
		BookingTitle:  "Post-operative home care",
		AmountCents:   250000,
		TotalCents:    275000,
		Currency:      "NGN",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := string(html)
	for _, want := range []string{
		"INV-2026-0042",
		"Ada Obi",
		"Post-operative home care",
		"NGN 2,500.00",
		"NGN 2,750.00",
		"Due 15 April 2026",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered invoice missing %q", want)
		}
	}
}

func TestRenderInvoiceHTMLEscapesClientInput(t *testing.T) {
	html, err := RenderInvoiceHTML(InvoiceData{
		InvoiceNumber: "INV-2026-0001",
		IssuedAt:      time.Now(),
		ClientName:    `<script>alert("x")</script>`,
		BookingTitle:  "Visit",
		Currency:      "NGN",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(string(html), "<script>") {
		t.Fatal("client-supplied HTML must be escaped")
	}
}
