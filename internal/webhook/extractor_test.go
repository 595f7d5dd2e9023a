package webhook

import (
	"testing"
	"time"
)

const sampleCreated = `{
	"triggerEvent": "BOOKING_CREATED",
	"createdAt": "2026-03-01T10:00:00Z",
	"payload": {
		"uid": "evt_abc123",
		"type": "initial-consultation",
		"title": "Initial Consultation between LivingRite and Ada Obi",
		"startTime": "2026-03-05T09:00:00Z",
		"endTime": "2026-03-05T09:30:00Z",
		"additionalNotes": "Mother recently discharged from hospital",
		"attendees": [
			{"email": "Ada.Obi@example.com", "name": "Ada Obi", "timeZone": "Africa/Lagos", "phoneNumber": "+2348012345678"}
		],
		"metadata": {"videoCallUrl": "https://meet.example.com/evt_abc123"}
	}
}`

func TestExtractEventCreated(t *testing.T) {
	evt, err := ExtractEvent([]byte(sampleCreated))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if evt.TriggerEvent != TriggerBookingCreated {
		t.Fatalf("trigger = %q", evt.TriggerEvent)
	}
	if evt.CalendarEventID != "evt_abc123" {
		t.Fatalf("calendar event id = %q", evt.CalendarEventID)
	}
	if evt.EventTypeSlug != "initial-consultation" {
		t.Fatalf("event type slug = %q", evt.EventTypeSlug)
	}
	if evt.AttendeeEmail != "ada.obi@example.com" {
		t.Fatalf("attendee email not lowercased: %q", evt.AttendeeEmail)
	}
	if evt.AttendeeName != "Ada Obi" || evt.AttendeePhone != "+2348012345678" {
		t.Fatalf("attendee = %q / %q", evt.AttendeeName, evt.AttendeePhone)
	}
	if evt.Timezone != "Africa/Lagos" {
		t.Fatalf("timezone = %q", evt.Timezone)
	}
	if evt.MeetingLink != "https://meet.example.com/evt_abc123" {
		t.Fatalf("meeting link = %q", evt.MeetingLink)
	}

	want := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	if !evt.StartTime.Equal(want) {
		t.Fatalf("start time = %v", evt.StartTime)
	}
	if evt.IsIncomplete() {
		t.Fatal("event should be complete")
	}
}

func TestExtractEventPhoneFromResponses(t *testing.T) {
	body := `{
		"triggerEvent": "BOOKING_CREATED",
		"payload": {
			"uid": "evt_x",
			"attendees": [{"email": "x@example.com", "name": "X"}],
			"responses": {"phone": {"value": "08012345678"}}
		}
	}`
	evt, err := ExtractEvent([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if evt.AttendeePhone != "08012345678" {
		t.Fatalf("phone = %q", evt.AttendeePhone)
	}
}

func TestExtractEventCustomInputsBecomeIntakeForm(t *testing.T) {
	body := `{
		"triggerEvent": "BOOKING_CREATED",
		"payload": {
			"uid": "evt_ci",
			"attendees": [{"email": "ci@example.com"}],
			"customInputs": {"careNeeds": "post-surgery support", "mobility": "walker"}
		}
	}`
	evt, err := ExtractEvent([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(evt.IntakeForm) != `{"careNeeds": "post-surgery support", "mobility": "walker"}` {
		t.Fatalf("intake form = %s", evt.IntakeForm)
	}
}

func TestExtractEventResponsesBecomeIntakeForm(t *testing.T) {
	body := `{
		"triggerEvent": "BOOKING_CREATED",
		"payload": {
			"uid": "evt_resp",
			"attendees": [{"email": "resp@example.com"}],
			"responses": {"careNeeds": {"value": "daily visits"}}
		}
	}`
	evt, err := ExtractEvent([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(evt.IntakeForm) != `{"careNeeds":"daily visits"}` {
		t.Fatalf("intake form = %s", evt.IntakeForm)
	}
}

func TestExtractEventMalformedJSON(t *testing.T) {
	if _, err := ExtractEvent([]byte(`{"triggerEvent":`)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestExtractEventBadTimestampsDoNotFail(t *testing.T) {
	body := `{
		"triggerEvent": "BOOKING_CREATED",
		"payload": {"uid": "evt_y", "startTime": "not-a-time", "attendees": [{"email": "y@example.com"}]}
	}`
	evt, err := ExtractEvent([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !evt.StartTime.IsZero() {
		t.Fatalf("start time should be zero, got %v", evt.StartTime)
	}
}

func TestIsIncomplete(t *testing.T) {
	cases := []struct {
		name string
		evt  ExtractedEvent
		want bool
	}{
		{"complete", ExtractedEvent{CalendarEventID: "evt", AttendeeEmail: "a@b.c"}, false},
		{"missing uid", ExtractedEvent{AttendeeEmail: "a@b.c"}, true},
		{"missing email", ExtractedEvent{CalendarEventID: "evt"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.evt.IsIncomplete(); got != tc.want {
				t.Fatalf("IsIncomplete() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSignatureRoundTrip(t *testing.T) {
	secret := "whsec_test"
	body := []byte(sampleCreated)

	sig := SignBody(secret, body)
	if !VerifySignature(secret, body, sig) {
		t.Fatal("valid signature rejected")
	}
	if VerifySignature(secret, body, sig+"00") {
		t.Fatal("tampered signature accepted")
	}
	if VerifySignature("other-secret", body, sig) {
		t.Fatal("signature accepted under wrong secret")
	}
}
