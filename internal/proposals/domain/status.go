// Package domain holds the proposal funnel rules: the closed status set and
// the forward-only transition table.
package domain

import "fmt"

// Status is the proposal lifecycle state.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusSent     Status = "SENT"
	StatusViewed   Status = "VIEWED"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
)

// transitions is strictly forward. ACCEPTED and REJECTED have no exits;
// a viewed proposal can still be accepted or rejected but never unviewed.
var transitions = map[Status]map[Status]bool{
	StatusDraft:    {StatusSent: true},
	StatusSent:     {StatusViewed: true, StatusAccepted: true, StatusRejected: true},
	StatusViewed:   {StatusAccepted: true, StatusRejected: true},
	StatusAccepted: {},
	StatusRejected: {},
}

// ParseStatus converts a stored string back into a Status.
func ParseStatus(value string) (Status, error) {
	switch s := Status(value); s {
	case StatusDraft, StatusSent, StatusViewed, StatusAccepted, StatusRejected:
		return s, nil
	default:
		return "", fmt.Errorf("unknown proposal status %q", value)
	}
}

// CanTransition reports whether a proposal may move from one status to another.
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
