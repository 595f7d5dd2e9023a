package webhook

import (
	"encoding/json"
	"strings"
	"time"
)

// Trigger values sent by the calendar provider. MEETING_ENDED is an alias
// some providers use for the completed trigger.
const (
	TriggerBookingCreated     = "BOOKING_CREATED"
	TriggerBookingCancelled   = "BOOKING_CANCELLED"
	TriggerBookingRescheduled = "BOOKING_RESCHEDULED"
	TriggerBookingCompleted   = "BOOKING_COMPLETED"
	TriggerMeetingEnded       = "MEETING_ENDED"
)

// calendarEnvelope is the raw webhook body shape.
type calendarEnvelope struct {
	TriggerEvent string          `json:"triggerEvent"`
	CreatedAt    time.Time       `json:"createdAt"`
	Payload      calendarPayload `json:"payload"`
}

type calendarPayload struct {
	UID                string              `json:"uid"`
	Type               string              `json:"type"`
	EventTypeSlug      string              `json:"eventTypeSlug"`
	Title              string              `json:"title"`
	StartTime          string              `json:"startTime"`
	EndTime            string              `json:"endTime"`
	AdditionalNotes    string              `json:"additionalNotes"`
	CancellationReason string              `json:"cancellationReason"`
	RescheduleUID      string              `json:"rescheduleUid"`
	Attendees          []calendarAttendee  `json:"attendees"`
	Metadata           calendarMetadata    `json:"metadata"`
	CustomInputs       json.RawMessage     `json:"customInputs"`
	Responses          map[string]response `json:"responses"`
}

type calendarAttendee struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	TimeZone    string `json:"timeZone"`
	PhoneNumber string `json:"phoneNumber"`
}

type calendarMetadata struct {
	VideoCallURL string `json:"videoCallUrl"`
}

// response holds a single booking-form answer. Values arrive as strings,
// numbers or nested objects depending on the question type.
type response struct {
	Value json.RawMessage `json:"value"`
}

// ExtractedEvent is the normalized calendar event the rest of the ingest
// pipeline works with.
type ExtractedEvent struct {
	TriggerEvent       string
	CalendarEventID    string
	EventTypeSlug      string
	Title              string
	StartTime          time.Time
	EndTime            time.Time
	AttendeeName       string
	AttendeeEmail      string
	AttendeePhone      string
	Timezone           string
	MeetingLink        string
	Notes              string
	CancellationReason string
	RescheduleUID      string
	IntakeForm         json.RawMessage
}

// IsIncomplete reports whether the minimum fields required to act on a
// "created" event are missing.
func (e ExtractedEvent) IsIncomplete() bool {
	return e.CalendarEventID == "" || e.AttendeeEmail == ""
}

// ExtractEvent parses and normalizes a raw calendar webhook body.
// Timestamps that fail to parse are left zero rather than failing the whole
// event; downstream decides whether the result is usable.
func ExtractEvent(body []byte) (ExtractedEvent, error) {
	var env calendarEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ExtractedEvent{}, err
	}

	p := env.Payload
	out := ExtractedEvent{
		TriggerEvent:       strings.ToUpper(strings.TrimSpace(env.TriggerEvent)),
		CalendarEventID:    strings.TrimSpace(p.UID),
		EventTypeSlug:      firstNonEmpty(p.EventTypeSlug, p.Type),
		Title:              strings.TrimSpace(p.Title),
		Notes:              strings.TrimSpace(p.AdditionalNotes),
		MeetingLink:        strings.TrimSpace(p.Metadata.VideoCallURL),
		CancellationReason: strings.TrimSpace(p.CancellationReason),
		RescheduleUID:      strings.TrimSpace(p.RescheduleUID),
	}

	if t, err := time.Parse(time.RFC3339, p.StartTime); err == nil {
		out.StartTime = t
	}
	if t, err := time.Parse(time.RFC3339, p.EndTime); err == nil {
		out.EndTime = t
	}

	if len(p.Attendees) > 0 {
		a := p.Attendees[0]
		out.AttendeeName = strings.TrimSpace(a.Name)
		out.AttendeeEmail = strings.ToLower(strings.TrimSpace(a.Email))
		out.AttendeePhone = strings.TrimSpace(a.PhoneNumber)
		out.Timezone = strings.TrimSpace(a.TimeZone)
	}

	// Booking-form answers can carry a phone number when the attendee
	// record does not.
	if out.AttendeePhone == "" {
		if r, ok := p.Responses["phone"]; ok {
			var s string
			if err := json.Unmarshal(r.Value, &s); err == nil {
				out.AttendeePhone = strings.TrimSpace(s)
			}
		}
	}

	out.IntakeForm = extractIntake(p)

	return out, nil
}

// extractIntake collects the booking-form answers. Providers send either a
// freeform customInputs object or a responses map keyed by question.
func extractIntake(p calendarPayload) json.RawMessage {
	if len(p.CustomInputs) > 0 && string(p.CustomInputs) != "null" {
		return p.CustomInputs
	}
	if len(p.Responses) == 0 {
		return nil
	}
	answers := make(map[string]json.RawMessage, len(p.Responses))
	for key, r := range p.Responses {
		answers[key] = r.Value
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return nil
	}
	return raw
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
