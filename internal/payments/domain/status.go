// Package domain holds the payment status machine.
package domain

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a payment record.
type Status string

// Payment statuses. FREE is terminal and reserved for the one free
// consultation per client; a FREE payment never settles through the gateway.
const (
	StatusPending  Status = "PENDING"
	StatusPaid     Status = "PAID"
	StatusFree     Status = "FREE"
	StatusFailed   Status = "FAILED"
	StatusRefunded Status = "REFUNDED"
)

var transitions = map[Status]map[Status]bool{
	StatusPending:  {StatusPaid: true, StatusFailed: true},
	StatusFailed:   {StatusPaid: true},
	StatusPaid:     {StatusRefunded: true},
	StatusRefunded: {},
	StatusFree:     {},
}

// InitialStatus decides the status a client's next payment starts in. The
// first booking is the complimentary consultation; once the client holds a
// FREE payment every later booking starts PENDING and settles through the
// gateway.
func InitialStatus(hasFreeBooking bool) Status {
	if hasFreeBooking {
		return StatusPending
	}
	return StatusFree
}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := transitions[s]; !ok {
		return "", fmt.Errorf("unknown payment status %q", raw)
	}
	return s, nil
}

// CanTransition reports whether a payment may move from one status to
// another.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// IsSettled reports whether the payment needs no further action.
func (s Status) IsSettled() bool {
	return s == StatusPaid || s == StatusFree || s == StatusRefunded
}
