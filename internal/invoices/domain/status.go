// Package domain holds the invoice status machine and number formatting.
package domain

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of an invoice.
type Status string

// Invoice statuses. OVERDUE is set by the nightly sweep when a SENT invoice
// passes its due date; payment can still settle an overdue invoice.
const (
	StatusDraft     Status = "DRAFT"
	StatusSent      Status = "SENT"
	StatusPaid      Status = "PAID"
	StatusOverdue   Status = "OVERDUE"
	StatusCancelled Status = "CANCELLED"
)

var transitions = map[Status]map[Status]bool{
	StatusDraft:     {StatusSent: true, StatusPaid: true, StatusCancelled: true},
	StatusSent:      {StatusPaid: true, StatusOverdue: true, StatusCancelled: true},
	StatusOverdue:   {StatusPaid: true, StatusCancelled: true},
	StatusPaid:      {},
	StatusCancelled: {},
}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := transitions[s]; !ok {
		return "", fmt.Errorf("unknown invoice status %q", raw)
	}
	return s, nil
}

// CanTransition reports whether an invoice may move from one status to
// another.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// IsTerminal reports whether the invoice accepts no further changes.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// FormatNumber renders an invoice number from the per-year counter,
// e.g. INV-2026-0001.
func FormatNumber(year, sequence int) string {
	return fmt.Sprintf("INV-%d-%04d", year, sequence)
}
