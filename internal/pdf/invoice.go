package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

// InvoiceData holds everything the invoice template renders.
type InvoiceData struct {
	InvoiceNumber string
	Status        string
	IssuedAt      time.Time
	DueAt         *time.Time

	ClientName  string
	ClientEmail string

	BookingTitle string
	ScheduledAt  *time.Time

	AmountCents int64
	TotalCents  int64
	Currency    string
}

// FormatMoney renders integer minor units as a currency string, e.g.
// "NGN 2,500.00".
func FormatMoney(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	units := cents / 100
	frac := cents % 100

	digits := fmt.Sprintf("%d", units)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return fmt.Sprintf("%s %s%s.%02d", currency, sign, b.String(), frac)
}

var invoiceTemplate = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"money": FormatMoney,
	"date": func(t interface{}) string {
		switch v := t.(type) {
		case time.Time:
			return v.Format("2 January 2006")
		case *time.Time:
			if v != nil {
				return v.Format("2 January 2006")
			}
		}
		return ""
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Helvetica, Arial, sans-serif; color: #111827; margin: 0; }
  .header { display: flex; justify-content: space-between; border-bottom: 2px solid #111827; padding-bottom: 16px; }
  .brand { font-size: 22px; font-weight: bold; }
  .meta { text-align: right; color: #6b7280; font-size: 12px; }
  h1 { font-size: 18px; margin: 24px 0 4px; }
  table { width: 100%; border-collapse: collapse; margin-top: 24px; }
  th { background: #f1f5f9; text-align: left; padding: 8px; font-size: 12px; }
  td { padding: 8px; border-bottom: 1px solid #e2e8f0; font-size: 13px; }
  .totals { margin-top: 16px; width: 40%; margin-left: auto; }
  .totals td { border: none; }
  .grand { font-weight: bold; font-size: 15px; border-top: 2px solid #111827; }
  .footer { margin-top: 48px; color: #6b7280; font-size: 11px; }
</style>
</head>
<body>
  <div class="header">
    <div class="brand">LivingRite Care</div>
    <div class="meta">
      <div>Invoice {{.InvoiceNumber}}</div>
      <div>Issued {{date .IssuedAt}}</div>
      {{if .DueAt}}<div>Due {{date .DueAt}}</div>{{end}}
    </div>
  </div>

  <h1>Billed to</h1>
  <div>{{.ClientName}}</div>
  <div>{{.ClientEmail}}</div>

  <table>
    <tr><th>Description</th>{{if .ScheduledAt}}<th>Visit date</th>{{end}}<th style="text-align:right">Amount</th></tr>
    <tr>
      <td>{{.BookingTitle}}</td>
      {{if .ScheduledAt}}<td>{{date .ScheduledAt}}</td>{{end}}
      <td style="text-align:right">{{money .AmountCents .Currency}}</td>
    </tr>
  </table>

  <table class="totals">
    <tr><td>Care services</td><td style="text-align:right">{{money .AmountCents .Currency}}</td></tr>
    <tr class="grand"><td>Total due</td><td style="text-align:right">{{money .TotalCents .Currency}}</td></tr>
  </table>

  <div class="footer">
    Thank you for choosing LivingRite. Questions about this invoice? Reply to the email it arrived with.
  </div>
</body>
</html>`))

// RenderInvoiceHTML renders the invoice template for Gotenberg conversion.
func RenderInvoiceHTML(data InvoiceData) ([]byte, error) {
	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", data.InvoiceNumber, err)
	}
	return buf.Bytes(), nil
}
