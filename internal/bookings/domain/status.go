// Package domain holds the booking lifecycle rules: the closed status set and
// the transition table every mutation must pass through.
package domain

import "fmt"

// Status is the booking lifecycle state. The set is closed; persistence and
// transport layers parse back into this type so unknown values fail loudly.
type Status string

const (
	StatusScheduled   Status = "SCHEDULED"
	StatusRescheduled Status = "RESCHEDULED"
	StatusCancelled   Status = "CANCELLED"
	StatusCompleted   Status = "COMPLETED"
	StatusProposal    Status = "PROPOSAL"
)

// transitions is the legal next-state table. CANCELLED and COMPLETED have no
// exits. Cancellation from PROPOSAL is allowed (the client can still walk
// away before accepting); cancellation from COMPLETED is not.
var transitions = map[Status]map[Status]bool{
	StatusScheduled: {
		StatusRescheduled: true,
		StatusCancelled:   true,
		StatusCompleted:   true,
		StatusProposal:    true,
	},
	StatusRescheduled: {
		StatusRescheduled: true,
		StatusCancelled:   true,
		StatusCompleted:   true,
	},
	StatusProposal: {
		StatusCancelled: true,
	},
	StatusCancelled: {},
	StatusCompleted: {},
}

// ParseStatus converts a stored string back into a Status.
func ParseStatus(value string) (Status, error) {
	switch s := Status(value); s {
	case StatusScheduled, StatusRescheduled, StatusCancelled, StatusCompleted, StatusProposal:
		return s, nil
	default:
		return "", fmt.Errorf("unknown booking status %q", value)
	}
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to Status) bool {
	next, ok := transitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// IsTerminal reports whether the status has no legal exits.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}
