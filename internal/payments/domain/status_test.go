package domain

import "testing"

func TestInitialStatusFirstBookingIsFree(t *testing.T) {
	if got := InitialStatus(false); got != StatusFree {
		t.Fatalf("first booking payment = %s, want %s", got, StatusFree)
	}
}

func TestInitialStatusSecondBookingIsPending(t *testing.T) {
	if got := InitialStatus(true); got != StatusPending {
		t.Fatalf("second booking payment = %s, want %s", got, StatusPending)
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusFailed, true},
		{StatusFailed, StatusPaid, true},
		{StatusPaid, StatusRefunded, true},
		{StatusPaid, StatusPending, false},
		{StatusRefunded, StatusPaid, false},
		{StatusFree, StatusPaid, false},
		{StatusFree, StatusPending, false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestIsSettled(t *testing.T) {
	for _, s := range []Status{StatusPaid, StatusFree, StatusRefunded} {
		if !s.IsSettled() {
			t.Errorf("%s should be settled", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusFailed} {
		if s.IsSettled() {
			t.Errorf("%s should not be settled", s)
		}
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusPaid, StatusFree, StatusFailed, StatusRefunded} {
		parsed, err := ParseStatus(string(s))
		if err != nil {
			t.Fatalf("ParseStatus(%s): %v", s, err)
		}
		if parsed != s {
			t.Fatalf("ParseStatus(%s) = %s", s, parsed)
		}
	}

	if _, err := ParseStatus("VOIDED"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
