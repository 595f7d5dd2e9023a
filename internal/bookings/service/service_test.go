package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"livingrite_backend/internal/bookings/domain"
	"livingrite_backend/internal/bookings/repository"
	"livingrite_backend/internal/bookings/transport"
	"livingrite_backend/internal/events"
	paymentdomain "livingrite_backend/internal/payments/domain"
	"livingrite_backend/platform/apperr"
	"livingrite_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	booking       *repository.Booking
	created       []repository.CreateParams
	paymentStatus paymentdomain.Status
	rescheduled   []time.Time
	statusWrites  []domain.Status
}

func (f *fakeStore) get() (*repository.Booking, error) {
	if f.booking == nil {
		return nil, apperr.NotFound("booking not found")
	}
	cp := *f.booking
	return &cp, nil
}

func (f *fakeStore) CreateForUser(_ context.Context, p repository.CreateParams) (*repository.Booking, paymentdomain.Status, error) {
	f.created = append(f.created, p)
	at := p.ScheduledAt
	b := &repository.Booking{
		ID:          uuid.New(),
		UserID:      p.UserID,
		ServiceID:   p.ServiceID,
		Title:       p.Title,
		ScheduledAt: &at,
		Timezone:    p.Timezone,
		Note:        p.Note,
		Status:      domain.StatusScheduled,
		CreatedAt:   time.Now(),
	}
	status := f.paymentStatus
	if status == "" {
		status = paymentdomain.StatusFree
	}
	return b, status, nil
}

func (f *fakeStore) GetByID(context.Context, uuid.UUID) (*repository.Booking, error) {
	return f.get()
}

func (f *fakeStore) List(context.Context, repository.ListParams) ([]repository.Booking, error) {
	b, err := f.get()
	if err != nil {
		return nil, nil
	}
	return []repository.Booking{*b}, nil
}

func (f *fakeStore) ListByUser(context.Context, uuid.UUID) ([]repository.Booking, error) {
	return f.List(context.Background(), repository.ListParams{})
}

func (f *fakeStore) UpdateStatus(_ context.Context, _ uuid.UUID, status domain.Status, cancelledAt *time.Time) error {
	f.statusWrites = append(f.statusWrites, status)
	f.booking.Status = status
	if cancelledAt != nil {
		f.booking.CancelledAt = cancelledAt
	}
	return nil
}

func (f *fakeStore) Reschedule(_ context.Context, _ uuid.UUID, newStart time.Time, timezone string) (*repository.Booking, error) {
	f.rescheduled = append(f.rescheduled, newStart)
	f.booking.Status = domain.StatusRescheduled
	f.booking.ScheduledAt = &newStart
	if timezone != "" {
		f.booking.Timezone = timezone
	}
	if f.booking.CalendarEventID != nil {
		f.booking.RescheduledFrom = f.booking.CalendarEventID
	}
	return f.get()
}

func (f *fakeStore) SetProposalSent(_ context.Context, _ uuid.UUID, at time.Time) error {
	f.booking.ProposalSentAt = &at
	return nil
}

func (f *fakeStore) SetIntakeForm(_ context.Context, _ uuid.UUID, form []byte) error {
	f.booking.IntakeForm = form
	return nil
}

func (f *fakeStore) StatusCounts(context.Context) (map[domain.Status]int, error) {
	return map[domain.Status]int{domain.StatusScheduled: 1}, nil
}

func (f *fakeStore) UpcomingCount(context.Context, time.Time) (int, error) {
	return 1, nil
}

type fakePrices struct {
	amount   int64
	currency string
}

func (f *fakePrices) PriceFor(context.Context, uuid.UUID) (int64, string, error) {
	return f.amount, f.currency, nil
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

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
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

func scheduledBooking(userID uuid.UUID) *repository.Booking {
	eventID := "evt_abc"
	at := time.Now().Add(48 * time.Hour)
	return &repository.Booking{
		ID:              uuid.New(),
		CalendarEventID: &eventID,
		UserID:          userID,
		ClientName:      "Ada Obi",
		ClientEmail:     "ada@example.com",
		Title:           "Consultation",
		ScheduledAt:     &at,
		Timezone:        "Africa/Lagos",
		Status:          domain.StatusScheduled,
		CreatedAt:       time.Now(),
	}
}

func newTestService(store *fakeStore) (*Service, *recordingBus) {
	bus := &recordingBus{}
	prices := &fakePrices{amount: 250000, currency: "NGN"}
	return New(store, prices, fakeBilling{}, bus, logger.New("test")), bus
}

func TestCreateRejectsPastTime(t *testing.T) {
	store := &fakeStore{}
	svc, bus := newTestService(store)

	req := transport.CreateBookingRequest{ScheduledAt: time.Now().Add(-time.Hour)}
	_, err := svc.Create(context.Background(), uuid.New(), req)
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(store.created) != 0 || len(bus.names()) != 0 {
		t.Fatal("past booking must not be created")
	}
}

func TestCreateDefaultsTitleAndPublishes(t *testing.T) {
	store := &fakeStore{paymentStatus: paymentdomain.StatusFree}
	svc, bus := newTestService(store)

	req := transport.CreateBookingRequest{ScheduledAt: time.Now().Add(24 * time.Hour)}
	resp, err := svc.Create(context.Background(), uuid.New(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.created[0].Title != "Consultation" {
		t.Fatalf("title = %q", store.created[0].Title)
	}
	if resp.Status != string(domain.StatusScheduled) {
		t.Fatalf("status = %s", resp.Status)
	}
	if got := bus.names(); len(got) != 1 || got[0] != "bookings.scheduled" {
		t.Fatalf("published events = %v", got)
	}
}

func TestRescheduleMovesBookingAndPublishes(t *testing.T) {
	userID := uuid.New()
	store := &fakeStore{booking: scheduledBooking(userID)}
	svc, bus := newTestService(store)

	newStart := time.Now().Add(72 * time.Hour)
	resp, err := svc.Reschedule(context.Background(), store.booking.ID, &userID, transport.RescheduleBookingRequest{
		ScheduledAt: newStart,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != string(domain.StatusRescheduled) {
		t.Fatalf("status = %s", resp.Status)
	}
	if resp.RescheduledFrom != "evt_abc" {
		t.Fatalf("rescheduledFrom = %q", resp.RescheduledFrom)
	}
	if len(store.rescheduled) != 1 || !store.rescheduled[0].Equal(newStart.UTC()) {
		t.Fatalf("reschedule writes = %v", store.rescheduled)
	}
	if got := bus.names(); len(got) != 1 || got[0] != "bookings.rescheduled" {
		t.Fatalf("published events = %v", got)
	}
}

func TestRescheduleRejectsPastTime(t *testing.T) {
	userID := uuid.New()
	store := &fakeStore{booking: scheduledBooking(userID)}
	svc, _ := newTestService(store)

	_, err := svc.Reschedule(context.Background(), store.booking.ID, &userID, transport.RescheduleBookingRequest{
		ScheduledAt: time.Now().Add(-time.Hour),
	})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(store.rescheduled) != 0 {
		t.Fatal("past reschedule must not reach the store")
	}
}

func TestRescheduleOwnershipEnforced(t *testing.T) {
	store := &fakeStore{booking: scheduledBooking(uuid.New())}
	svc, _ := newTestService(store)

	other := uuid.New()
	_, err := svc.Reschedule(context.Background(), store.booking.ID, &other, transport.RescheduleBookingRequest{
		ScheduledAt: time.Now().Add(24 * time.Hour),
	})
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found for foreign booking, got %v", err)
	}
}

func TestRescheduleRefusedFromTerminal(t *testing.T) {
	userID := uuid.New()
	store := &fakeStore{booking: scheduledBooking(userID)}
	store.booking.Status = domain.StatusCompleted
	svc, bus := newTestService(store)

	_, err := svc.Reschedule(context.Background(), store.booking.ID, &userID, transport.RescheduleBookingRequest{
		ScheduledAt: time.Now().Add(24 * time.Hour),
	})
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(store.rescheduled) != 0 || len(bus.names()) != 0 {
		t.Fatal("completed booking must not be rescheduled")
	}
}
