package webhook

import (
	"context"
	"sync"
	"testing"
	"time"

	"livingrite_backend/internal/events"
	paymentdomain "livingrite_backend/internal/payments/domain"
	"livingrite_backend/internal/scheduler"
	catalogrepo "livingrite_backend/internal/services/repository"
	"livingrite_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeIngestor struct {
	created      []IngestParams
	createResult *IngestResult
	cancelled    []string
	completed    []string
	rescheduled  []string
	applied      bool
}

func (f *fakeIngestor) IngestCreated(_ context.Context, p IngestParams) (*IngestResult, error) {
	f.created = append(f.created, p)
	if f.createResult != nil {
		return f.createResult, nil
	}
	return &IngestResult{BookingID: uuid.New(), UserID: uuid.New(), PaymentStatus: paymentdomain.StatusPending, Created: true}, nil
}

func (f *fakeIngestor) CancelByCalendarEventID(_ context.Context, id string, _ time.Time) (*StatusUpdateResult, error) {
	f.cancelled = append(f.cancelled, id)
	return &StatusUpdateResult{BookingID: uuid.New(), Applied: f.applied}, nil
}

func (f *fakeIngestor) CompleteByCalendarEventID(_ context.Context, id string) (*StatusUpdateResult, error) {
	f.completed = append(f.completed, id)
	return &StatusUpdateResult{BookingID: uuid.New(), Applied: f.applied}, nil
}

func (f *fakeIngestor) RescheduleByCalendarEventID(_ context.Context, prev, _ string, _ time.Time, _ string) (*StatusUpdateResult, error) {
	f.rescheduled = append(f.rescheduled, prev)
	return &StatusUpdateResult{BookingID: uuid.New(), Applied: f.applied}, nil
}

type fakeCatalog struct {
	entries map[string]*catalogrepo.CareService
}

func (f *fakeCatalog) ResolveBySlug(_ context.Context, slug string) (*catalogrepo.CareService, error) {
	return f.entries[slug], nil
}

type fakeBilling struct{}

func (fakeBilling) GetDefaultCurrency() string { return "NGN" }

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(_ context.Context, e events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventName())
	}
	return out
}

func newTestService(ingest *fakeIngestor, catalog *fakeCatalog) (*Service, *recordingBus) {
	bus := &recordingBus{}
	if catalog == nil {
		catalog = &fakeCatalog{}
	}
	return NewService(ingest, catalog, fakeBilling{}, bus, logger.New("test")), bus
}

func TestHandleCreatedResolvesCatalogPricing(t *testing.T) {
	serviceID := uuid.New()
	ingest := &fakeIngestor{}
	catalog := &fakeCatalog{entries: map[string]*catalogrepo.CareService{
		"initial-consultation": {ID: serviceID, BasePriceCents: 0, Currency: "NGN", IsFreeConsultation: true},
	}}
	svc, bus := newTestService(ingest, catalog)

	evt := ExtractedEvent{
		TriggerEvent:    TriggerBookingCreated,
		CalendarEventID: "evt_1",
		EventTypeSlug:   "initial-consultation",
		AttendeeEmail:   "ada@example.com",
		AttendeeName:    "Ada Obi",
	}
	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ingest.created) != 1 {
		t.Fatalf("expected one ingest, got %d", len(ingest.created))
	}
	p := ingest.created[0]
	if p.ServiceID == nil || *p.ServiceID != serviceID {
		t.Fatalf("service id not resolved: %v", p.ServiceID)
	}
	if got := bus.names(); len(got) != 1 || got[0] != "bookings.scheduled" {
		t.Fatalf("published events = %v", got)
	}
}

func TestHandleCreatedUnknownSlugUsesDefaults(t *testing.T) {
	ingest := &fakeIngestor{}
	svc, _ := newTestService(ingest, nil)

	evt := ExtractedEvent{
		TriggerEvent:    TriggerBookingCreated,
		CalendarEventID: "evt_2",
		EventTypeSlug:   "something-unlisted",
		AttendeeEmail:   "b@example.com",
	}
	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := ingest.created[0]
	if p.ServiceID != nil {
		t.Fatalf("unknown slug should not bind a service: %+v", p)
	}
	if p.Currency != "NGN" {
		t.Fatalf("currency = %q", p.Currency)
	}
}

func TestHandleCreatedCarriesIntakeForm(t *testing.T) {
	ingest := &fakeIngestor{}
	svc, _ := newTestService(ingest, nil)

	evt := ExtractedEvent{
		TriggerEvent:    TriggerBookingCreated,
		CalendarEventID: "evt_intake",
		AttendeeEmail:   "g@example.com",
		IntakeForm:      []byte(`{"careNeeds":"post-surgery support"}`),
	}
	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := string(ingest.created[0].IntakeForm); got != `{"careNeeds":"post-surgery support"}` {
		t.Fatalf("intake form = %s", got)
	}
}

func TestHandleCreatedIncompleteDropped(t *testing.T) {
	ingest := &fakeIngestor{}
	svc, bus := newTestService(ingest, nil)

	evt := ExtractedEvent{TriggerEvent: TriggerBookingCreated, CalendarEventID: "evt_3"}
	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("dropped event must still be acknowledged: %v", err)
	}
	if len(ingest.created) != 0 {
		t.Fatal("incomplete event must not reach the database")
	}
	if len(bus.names()) != 0 {
		t.Fatal("incomplete event must not publish")
	}
}

func TestHandleReplayedCreatedDoesNotPublish(t *testing.T) {
	ingest := &fakeIngestor{createResult: &IngestResult{
		BookingID: uuid.New(), UserID: uuid.New(), PaymentStatus: paymentdomain.StatusFree, Created: false,
	}}
	svc, bus := newTestService(ingest, nil)

	evt := ExtractedEvent{TriggerEvent: TriggerBookingCreated, CalendarEventID: "evt_4", AttendeeEmail: "c@example.com"}
	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bus.names()) != 0 {
		t.Fatal("replayed event must not publish bookings.scheduled again")
	}
}

func TestHandleCancelledPublishesWhenApplied(t *testing.T) {
	ingest := &fakeIngestor{applied: true}
	svc, bus := newTestService(ingest, nil)

	evt := ExtractedEvent{TriggerEvent: TriggerBookingCancelled, CalendarEventID: "evt_5", CancellationReason: "client request"}
	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := bus.names(); len(got) != 1 || got[0] != "bookings.cancelled" {
		t.Fatalf("published events = %v", got)
	}
}

func TestHandleCancelledTerminalIgnored(t *testing.T) {
	ingest := &fakeIngestor{applied: false}
	svc, bus := newTestService(ingest, nil)

	evt := ExtractedEvent{TriggerEvent: TriggerBookingCancelled, CalendarEventID: "evt_6"}
	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bus.names()) != 0 {
		t.Fatal("ignored cancel must not publish")
	}
}

func TestHandleRescheduledUnknownOriginFallsBackToCreated(t *testing.T) {
	ingest := &fakeIngestor{applied: false}
	svc, _ := newTestService(ingest, nil)

	evt := ExtractedEvent{
		TriggerEvent:    TriggerBookingRescheduled,
		CalendarEventID: "evt_new",
		RescheduleUID:   "evt_gone",
		AttendeeEmail:   "d@example.com",
	}
	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ingest.rescheduled) != 1 || ingest.rescheduled[0] != "evt_gone" {
		t.Fatalf("reschedule calls = %v", ingest.rescheduled)
	}
	if len(ingest.created) != 1 {
		t.Fatal("unknown origin should fall back to created ingest")
	}
}

func TestHandleCompletedAcceptsBothTriggers(t *testing.T) {
	for _, trigger := range []string{TriggerBookingCompleted, TriggerMeetingEnded} {
		t.Run(trigger, func(t *testing.T) {
			ingest := &fakeIngestor{applied: true}
			svc, bus := newTestService(ingest, nil)

			evt := ExtractedEvent{TriggerEvent: trigger, CalendarEventID: "evt_done"}
			if err := svc.HandleEvent(context.Background(), evt); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(ingest.completed) != 1 || ingest.completed[0] != "evt_done" {
				t.Fatalf("complete calls = %v", ingest.completed)
			}
			if got := bus.names(); len(got) != 1 || got[0] != "bookings.completed" {
				t.Fatalf("published events = %v", got)
			}
		})
	}
}

func TestHandleRescheduledWithoutNewUIDKeepsOwnLineage(t *testing.T) {
	ingest := &fakeIngestor{applied: true}
	svc, bus := newTestService(ingest, nil)

	evt := ExtractedEvent{
		TriggerEvent:    TriggerBookingRescheduled,
		CalendarEventID: "abc123",
		AttendeeEmail:   "h@example.com",
		StartTime:       time.Now().Add(96 * time.Hour),
	}
	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ingest.rescheduled) != 1 || ingest.rescheduled[0] != "abc123" {
		t.Fatalf("reschedule calls = %v, want the booking's own uid", ingest.rescheduled)
	}
	if got := bus.names(); len(got) != 1 || got[0] != "bookings.rescheduled" {
		t.Fatalf("published events = %v", got)
	}
}

func TestHandleUnknownTriggerAcked(t *testing.T) {
	ingest := &fakeIngestor{}
	svc, bus := newTestService(ingest, nil)

	evt := ExtractedEvent{TriggerEvent: "FORM_SUBMITTED", CalendarEventID: "evt_7"}
	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("unknown trigger must be acknowledged: %v", err)
	}
	if len(bus.names()) != 0 || len(ingest.created) != 0 {
		t.Fatal("unknown trigger must be a no-op")
	}
}

type fakeReminderScheduler struct {
	payloads []scheduler.BookingReminderPayload
	runAts   []time.Time
}

func (f *fakeReminderScheduler) ScheduleBookingReminder(_ context.Context, p scheduler.BookingReminderPayload, runAt time.Time) error {
	f.payloads = append(f.payloads, p)
	f.runAts = append(f.runAts, runAt)
	return nil
}

func TestHandleCreatedSchedulesReminderDayBefore(t *testing.T) {
	bookingID := uuid.New()
	start := time.Now().Add(48 * time.Hour)
	ingest := &fakeIngestor{createResult: &IngestResult{
		BookingID:     bookingID,
		UserID:        uuid.New(),
		PaymentStatus: paymentdomain.StatusPending,
		Created:       true,
	}}
	svc, _ := newTestService(ingest, nil)
	reminders := &fakeReminderScheduler{}
	svc.SetReminderScheduler(reminders)

	evt := ExtractedEvent{
		TriggerEvent:    TriggerBookingCreated,
		CalendarEventID: "evt_rem",
		AttendeeEmail:   "e@example.com",
		StartTime:       start,
	}
	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(reminders.payloads) != 1 {
		t.Fatalf("expected one reminder, got %d", len(reminders.payloads))
	}
	if reminders.payloads[0].BookingID != bookingID.String() {
		t.Fatalf("reminder booking id = %s", reminders.payloads[0].BookingID)
	}
	if want := start.Add(-24 * time.Hour); !reminders.runAts[0].Equal(want) {
		t.Fatalf("reminder runAt = %v, want %v", reminders.runAts[0], want)
	}
}

func TestHandleCreatedSkipsReminderForImminentBooking(t *testing.T) {
	ingest := &fakeIngestor{}
	svc, _ := newTestService(ingest, nil)
	reminders := &fakeReminderScheduler{}
	svc.SetReminderScheduler(reminders)

	evt := ExtractedEvent{
		TriggerEvent:    TriggerBookingCreated,
		CalendarEventID: "evt_soon",
		AttendeeEmail:   "f@example.com",
		StartTime:       time.Now().Add(2 * time.Hour),
	}
	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reminders.payloads) != 0 {
		t.Fatal("reminder within 24h of start must be skipped")
	}
}
