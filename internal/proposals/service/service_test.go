package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	bookingdomain "livingrite_backend/internal/bookings/domain"
	"livingrite_backend/internal/events"
	"livingrite_backend/internal/proposals/domain"
	"livingrite_backend/internal/proposals/repository"
	"livingrite_backend/internal/proposals/transport"
	"livingrite_backend/platform/apperr"
	"livingrite_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	proposal *repository.Proposal
	booking  *repository.BookingClient
	counts   map[domain.Status]int

	bookingStatus bookingdomain.Status
	viewedCalls   int
}

func (f *fakeStore) GetBookingClient(context.Context, uuid.UUID) (*repository.BookingClient, error) {
	if f.booking == nil {
		return nil, apperr.NotFound("booking not found")
	}
	return f.booking, nil
}

func (f *fakeStore) Create(_ context.Context, p *repository.Proposal) (*repository.Proposal, error) {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	f.proposal = p
	return p, nil
}

func (f *fakeStore) get() (*repository.Proposal, error) {
	if f.proposal == nil {
		return nil, apperr.NotFound("proposal not found")
	}
	cp := *f.proposal
	return &cp, nil
}

func (f *fakeStore) GetByID(context.Context, uuid.UUID) (*repository.Proposal, error) {
	return f.get()
}

func (f *fakeStore) GetByBookingID(context.Context, uuid.UUID) (*repository.Proposal, error) {
	return f.get()
}

func (f *fakeStore) GetByPublicToken(_ context.Context, token string) (*repository.Proposal, error) {
	p, err := f.get()
	if err != nil || p.PublicToken != token {
		return nil, apperr.NotFound("proposal not found")
	}
	return p, nil
}

func (f *fakeStore) List(context.Context, *domain.Status) ([]repository.Proposal, error) {
	p, err := f.get()
	if err != nil {
		return nil, nil
	}
	return []repository.Proposal{*p}, nil
}

func (f *fakeStore) MarkSent(_ context.Context, _ uuid.UUID, at time.Time) (*repository.Proposal, error) {
	if f.proposal.Status != domain.StatusDraft {
		return nil, apperr.NotFound("proposal not found")
	}
	f.proposal.Status = domain.StatusSent
	f.proposal.SentAt = &at
	f.bookingStatus = bookingdomain.StatusProposal
	return f.get()
}

func (f *fakeStore) SetViewed(_ context.Context, _ uuid.UUID, at time.Time) (bool, error) {
	f.viewedCalls++
	if f.proposal.Status != domain.StatusSent {
		return false, nil
	}
	f.proposal.Status = domain.StatusViewed
	f.proposal.ViewedAt = &at
	return true, nil
}

func (f *fakeStore) Accept(_ context.Context, _ uuid.UUID, at time.Time) (*repository.AcceptResult, error) {
	switch f.proposal.Status {
	case domain.StatusSent, domain.StatusViewed:
		f.proposal.Status = domain.StatusAccepted
		f.proposal.AcceptedAt = &at
		p, _ := f.get()
		return &repository.AcceptResult{
			Proposal:  p,
			UserID:    f.booking.UserID,
			UserEmail: f.booking.ClientEmail,
			Applied:   true,
		}, nil
	}
	return &repository.AcceptResult{Applied: false}, nil
}

func (f *fakeStore) Reject(_ context.Context, _ uuid.UUID, at time.Time, reason string) (*repository.Proposal, bool, error) {
	switch f.proposal.Status {
	case domain.StatusSent, domain.StatusViewed:
		f.proposal.Status = domain.StatusRejected
		f.proposal.RejectedAt = &at
		f.proposal.RejectionReason = &reason
		p, _ := f.get()
		return p, true, nil
	}
	return nil, false, nil
}

func (f *fakeStore) StatusCounts(context.Context) (map[domain.Status]int, error) {
	return f.counts, nil
}

type fakeConfig struct{}

func (fakeConfig) GetDefaultCurrency() string { return "NGN" }
func (fakeConfig) GetProposalValidDays() int  { return 30 }

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

func (b *recordingBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

func storeWithBooking() *fakeStore {
	return &fakeStore{
		booking: &repository.BookingClient{
			BookingID:   uuid.New(),
			UserID:      uuid.New(),
			ClientName:  "Ada Obi",
			ClientEmail: "ada@example.com",
			Status:      bookingdomain.StatusScheduled,
		},
		bookingStatus: bookingdomain.StatusScheduled,
	}
}

func sentProposal(store *fakeStore) *repository.Proposal {
	valid := time.Now().UTC().Add(30 * 24 * time.Hour)
	sent := time.Now().UTC().Add(-time.Hour)
	p := &repository.Proposal{
		ID:              uuid.New(),
		BookingID:       store.booking.BookingID,
		Status:          domain.StatusSent,
		Title:           "Proposal for Ada Obi",
		ServicesOffered: []byte(`[]`),
		TotalCents:      500000,
		Currency:        "NGN",
		ValidUntil:      &valid,
		PublicToken:     uuid.NewString(),
		SentAt:          &sent,
	}
	store.proposal = p
	return p
}

func newTestService(store *fakeStore) (*Service, *recordingBus) {
	bus := &recordingBus{}
	return New(store, fakeConfig{}, bus, logger.New("test")), bus
}

func TestCreateDefaultsTitleAndCurrency(t *testing.T) {
	store := storeWithBooking()
	svc, _ := newTestService(store)

	resp, err := svc.Create(context.Background(), store.booking.BookingID, transport.CreateProposalRequest{TotalCents: 500000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Title != "Proposal for Ada Obi" {
		t.Fatalf("title = %q", resp.Title)
	}
	if resp.Currency != "NGN" {
		t.Fatalf("currency = %q", resp.Currency)
	}
	if resp.Status != string(domain.StatusDraft) {
		t.Fatalf("status = %s, want DRAFT", resp.Status)
	}
	if resp.ValidUntil == nil {
		t.Fatal("expected a validity window from the configured default")
	}
	if resp.PublicToken == "" {
		t.Fatal("expected a public token")
	}
}

func TestCreateRefusesSecondProposal(t *testing.T) {
	store := storeWithBooking()
	sentProposal(store)
	svc, _ := newTestService(store)

	_, err := svc.Create(context.Background(), store.booking.BookingID, transport.CreateProposalRequest{})
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestSendCascadesToBooking(t *testing.T) {
	store := storeWithBooking()
	p := sentProposal(store)
	p.Status = domain.StatusDraft
	svc, bus := newTestService(store)

	resp, err := svc.Send(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != string(domain.StatusSent) {
		t.Fatalf("status = %s, want SENT", resp.Status)
	}
	if store.bookingStatus != bookingdomain.StatusProposal {
		t.Fatalf("booking status = %s, want PROPOSAL", store.bookingStatus)
	}
	if bus.count() != 1 {
		t.Fatalf("events published = %d, want 1", bus.count())
	}
	evt, ok := bus.events[0].(events.ProposalSent)
	if !ok {
		t.Fatalf("unexpected event type %T", bus.events[0])
	}
	if evt.PublicToken != p.PublicToken || evt.ClientEmail != "ada@example.com" {
		t.Fatalf("event payload: %+v", evt)
	}
}

func TestSendRefusedAfterSent(t *testing.T) {
	store := storeWithBooking()
	p := sentProposal(store)
	svc, bus := newTestService(store)

	_, err := svc.Send(context.Background(), p.ID)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if bus.count() != 0 {
		t.Fatal("no event should be published")
	}
}

func TestFirstViewWins(t *testing.T) {
	store := storeWithBooking()
	p := sentProposal(store)
	svc, bus := newTestService(store)

	resp, err := svc.GetPublic(context.Background(), p.PublicToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != string(domain.StatusViewed) {
		t.Fatalf("status = %s, want VIEWED", resp.Status)
	}
	if bus.count() != 1 {
		t.Fatalf("events published = %d, want 1", bus.count())
	}

	// Second view keeps the original stamp and publishes nothing.
	firstViewedAt := *store.proposal.ViewedAt
	if _, err := svc.GetPublic(context.Background(), p.PublicToken); err != nil {
		t.Fatalf("unexpected error on second view: %v", err)
	}
	if !store.proposal.ViewedAt.Equal(firstViewedAt) {
		t.Fatal("viewed_at must not move on later views")
	}
	if bus.count() != 1 {
		t.Fatalf("events published = %d, want 1", bus.count())
	}
}

func TestGetPublicHidesDrafts(t *testing.T) {
	store := storeWithBooking()
	p := sentProposal(store)
	p.Status = domain.StatusDraft
	svc, _ := newTestService(store)

	_, err := svc.GetPublic(context.Background(), p.PublicToken)
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetPublicExpired(t *testing.T) {
	store := storeWithBooking()
	p := sentProposal(store)
	past := time.Now().UTC().Add(-time.Hour)
	p.ValidUntil = &past
	svc, _ := newTestService(store)

	_, err := svc.GetPublic(context.Background(), p.PublicToken)
	if apperr.GetKind(err) != apperr.KindGone {
		t.Fatalf("expected gone, got %v", err)
	}
}

func TestAcceptPromotesUser(t *testing.T) {
	store := storeWithBooking()
	p := sentProposal(store)
	p.Status = domain.StatusViewed
	svc, bus := newTestService(store)

	resp, err := svc.Accept(context.Background(), p.PublicToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != string(domain.StatusAccepted) {
		t.Fatalf("status = %s, want ACCEPTED", resp.Status)
	}
	if bus.count() != 2 {
		t.Fatalf("events published = %d, want 2", bus.count())
	}
	if _, ok := bus.events[0].(events.ProposalAccepted); !ok {
		t.Fatalf("unexpected first event %T", bus.events[0])
	}
	converted, ok := bus.events[1].(events.UserConverted)
	if !ok {
		t.Fatalf("unexpected second event %T", bus.events[1])
	}
	if converted.UserID != store.booking.UserID {
		t.Fatalf("converted user = %s, want %s", converted.UserID, store.booking.UserID)
	}

	// Re-accepting an accepted proposal is a no-op.
	if _, err := svc.Accept(context.Background(), p.PublicToken); err != nil {
		t.Fatalf("unexpected error on replay: %v", err)
	}
	if bus.count() != 2 {
		t.Fatalf("replay must not re-publish: %d", bus.count())
	}
}

func TestAcceptRefusedAfterReject(t *testing.T) {
	store := storeWithBooking()
	p := sentProposal(store)
	svc, _ := newTestService(store)

	if _, err := svc.Reject(context.Background(), p.PublicToken, "budget"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.Accept(context.Background(), p.PublicToken)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRejectRecordsReason(t *testing.T) {
	store := storeWithBooking()
	p := sentProposal(store)
	svc, bus := newTestService(store)

	resp, err := svc.Reject(context.Background(), p.PublicToken, "budget")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != string(domain.StatusRejected) {
		t.Fatalf("status = %s, want REJECTED", resp.Status)
	}
	if store.proposal.RejectionReason == nil || *store.proposal.RejectionReason != "budget" {
		t.Fatalf("rejection reason not recorded: %v", store.proposal.RejectionReason)
	}
	if bus.count() != 1 {
		t.Fatalf("events published = %d, want 1", bus.count())
	}
	evt, ok := bus.events[0].(events.ProposalRejected)
	if !ok || evt.Reason != "budget" {
		t.Fatalf("unexpected event: %#v", bus.events[0])
	}
}

func TestStatsFormulas(t *testing.T) {
	store := storeWithBooking()
	store.counts = map[domain.Status]int{
		domain.StatusDraft:    3,
		domain.StatusSent:     4,
		domain.StatusViewed:   2,
		domain.StatusAccepted: 3,
		domain.StatusRejected: 1,
	}
	svc, _ := newTestService(store)

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := stats.AcceptanceRate, 3.0/6.0; got != want {
		t.Fatalf("acceptance rate = %f, want %f", got, want)
	}
	if got, want := stats.ViewRate, 2.0/4.0; got != want {
		t.Fatalf("view rate = %f, want %f", got, want)
	}
	if stats.Counts["DRAFT"] != 3 {
		t.Fatalf("counts = %v", stats.Counts)
	}
}

func TestStatsZeroDenominators(t *testing.T) {
	store := storeWithBooking()
	store.counts = map[domain.Status]int{domain.StatusDraft: 2}
	svc, _ := newTestService(store)

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.AcceptanceRate != 0 || stats.ViewRate != 0 {
		t.Fatalf("rates must be 0 with empty denominators: %+v", stats)
	}
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to domain.Status
		ok       bool
	}{
		{domain.StatusDraft, domain.StatusSent, true},
		{domain.StatusSent, domain.StatusViewed, true},
		{domain.StatusSent, domain.StatusAccepted, true},
		{domain.StatusSent, domain.StatusRejected, true},
		{domain.StatusViewed, domain.StatusAccepted, true},
		{domain.StatusViewed, domain.StatusRejected, true},
		{domain.StatusViewed, domain.StatusSent, false},
		{domain.StatusAccepted, domain.StatusRejected, false},
		{domain.StatusRejected, domain.StatusAccepted, false},
		{domain.StatusDraft, domain.StatusViewed, false},
	}
	for _, tc := range cases {
		if got := domain.CanTransition(tc.from, tc.to); got != tc.ok {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestPublicTokenUnknown(t *testing.T) {
	store := storeWithBooking()
	sentProposal(store)
	svc, _ := newTestService(store)

	_, err := svc.GetPublic(context.Background(), strings.Repeat("x", 36))
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
