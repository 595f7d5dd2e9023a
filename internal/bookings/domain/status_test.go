package domain

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusScheduled, StatusRescheduled, true},
		{StatusScheduled, StatusCancelled, true},
		{StatusScheduled, StatusCompleted, true},
		{StatusScheduled, StatusProposal, true},
		{StatusRescheduled, StatusRescheduled, true},
		{StatusRescheduled, StatusCancelled, true},
		{StatusRescheduled, StatusCompleted, true},
		{StatusRescheduled, StatusProposal, false},
		{StatusProposal, StatusCancelled, true},
		{StatusProposal, StatusCompleted, false},
		{StatusProposal, StatusScheduled, false},
		{StatusCancelled, StatusScheduled, false},
		{StatusCancelled, StatusCancelled, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusScheduled, false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	if !StatusCancelled.IsTerminal() {
		t.Error("CANCELLED should be terminal")
	}
	if !StatusCompleted.IsTerminal() {
		t.Error("COMPLETED should be terminal")
	}
	for _, s := range []Status{StatusScheduled, StatusRescheduled, StatusProposal} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []Status{StatusScheduled, StatusRescheduled, StatusCancelled, StatusCompleted, StatusProposal} {
		parsed, err := ParseStatus(string(s))
		if err != nil {
			t.Fatalf("ParseStatus(%s): %v", s, err)
		}
		if parsed != s {
			t.Fatalf("ParseStatus(%s) = %s", s, parsed)
		}
	}

	if _, err := ParseStatus("PENDING"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
