package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"livingrite_backend/internal/events"
	"livingrite_backend/internal/payments/domain"
	"livingrite_backend/internal/payments/gateway"
	"livingrite_backend/internal/payments/repository"
	"livingrite_backend/internal/payments/transport"
	"livingrite_backend/platform/apperr"
	"livingrite_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	payment     *repository.Payment
	clientEmail string
	clientName  string
	markedPaid  []string
	markedFail  []string
	references  []string
}

func (f *fakeStore) get() (*repository.Payment, error) {
	if f.payment == nil {
		return nil, apperr.NotFound("payment not found")
	}
	cp := *f.payment
	return &cp, nil
}

func (f *fakeStore) GetByBookingID(context.Context, uuid.UUID) (*repository.Payment, error) {
	return f.get()
}

func (f *fakeStore) GetByReference(context.Context, string) (*repository.Payment, error) {
	return f.get()
}

func (f *fakeStore) GetPayerByBookingID(context.Context, uuid.UUID) (*repository.PayerDetails, error) {
	p, err := f.get()
	if err != nil {
		return nil, err
	}
	return &repository.PayerDetails{Payment: *p, ClientEmail: f.clientEmail, ClientName: f.clientName}, nil
}

func (f *fakeStore) ListByUser(context.Context, uuid.UUID) ([]repository.Payment, error) {
	p, err := f.get()
	if err != nil {
		return nil, nil
	}
	return []repository.Payment{*p}, nil
}

func (f *fakeStore) SetReference(_ context.Context, _ uuid.UUID, reference string) error {
	f.references = append(f.references, reference)
	f.payment.Reference = &reference
	return nil
}

func (f *fakeStore) UpdateAmount(_ context.Context, _ uuid.UUID, amountCents int64, currency string) error {
	f.payment.AmountCents = amountCents
	f.payment.Currency = currency
	return nil
}

func (f *fakeStore) MarkPaid(_ context.Context, reference string, paidAt time.Time) (*repository.Payment, error) {
	if f.payment.Status != domain.StatusPending && f.payment.Status != domain.StatusFailed {
		return nil, apperr.NotFound("payment not found")
	}
	f.markedPaid = append(f.markedPaid, reference)
	f.payment.Status = domain.StatusPaid
	f.payment.PaidAt = &paidAt
	return f.get()
}

func (f *fakeStore) MarkFailed(_ context.Context, reference string) (*repository.Payment, error) {
	if f.payment.Status != domain.StatusPending {
		return nil, apperr.NotFound("payment not found")
	}
	f.markedFail = append(f.markedFail, reference)
	f.payment.Status = domain.StatusFailed
	return f.get()
}

type fakeGateway struct {
	initCalls   int
	verifyCalls int
	verify      gateway.VerifyResult
}

func (f *fakeGateway) Initialize(_ context.Context, req gateway.InitializeRequest) (gateway.InitializeResult, error) {
	f.initCalls++
	return gateway.InitializeResult{
		AuthorizationURL: "https://checkout.example.com/" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

func (f *fakeGateway) Verify(context.Context, string) (gateway.VerifyResult, error) {
	f.verifyCalls++
	return f.verify, nil
}

type fakeGatewayConfig struct{ enabled bool }

func (f fakeGatewayConfig) GetGatewayCallbackURL() string { return "https://app.example.com/pay/done" }
func (f fakeGatewayConfig) IsGatewayEnabled() bool        { return f.enabled }

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

func pendingPayment(amount int64) *repository.Payment {
	ref := "LR-ref"
	return &repository.Payment{
		ID:          uuid.New(),
		BookingID:   uuid.New(),
		UserID:      uuid.New(),
		AmountCents: amount,
		Currency:    "NGN",
		Status:      domain.StatusPending,
		Reference:   &ref,
	}
}

func newTestService(store *fakeStore, gw *fakeGateway, enabled bool) (*Service, *recordingBus) {
	bus := &recordingBus{}
	return New(store, gw, fakeGatewayConfig{enabled: enabled}, bus, logger.New("test")), bus
}

func TestInitializeReturnsCheckoutSession(t *testing.T) {
	store := &fakeStore{payment: pendingPayment(250000), clientEmail: "ada@example.com"}
	gw := &fakeGateway{}
	svc, _ := newTestService(store, gw, true)

	resp, err := svc.Initialize(context.Background(), store.payment.BookingID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.initCalls != 1 {
		t.Fatalf("gateway init calls = %d", gw.initCalls)
	}
	if resp.AuthorizationURL == "" || resp.Reference == "" {
		t.Fatalf("incomplete session: %+v", resp)
	}
	if resp.QRCodePNG == "" {
		t.Fatal("expected QR code for the checkout URL")
	}
	if len(store.references) != 1 || store.references[0] != resp.Reference {
		t.Fatalf("reference not stored: %v", store.references)
	}
}

func TestInitializeRefusesFreePayment(t *testing.T) {
	p := pendingPayment(0)
	p.Status = domain.StatusFree
	store := &fakeStore{payment: p}
	gw := &fakeGateway{}
	svc, _ := newTestService(store, gw, true)

	_, err := svc.Initialize(context.Background(), p.BookingID, nil)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if gw.initCalls != 0 {
		t.Fatal("gateway must not be called for a free consultation")
	}
}

func TestInitializeRefusesSettledAndUnpriced(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*repository.Payment)
	}{
		{"already paid", func(p *repository.Payment) { p.Status = domain.StatusPaid }},
		{"zero amount", func(p *repository.Payment) { p.AmountCents = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := pendingPayment(100000)
			tc.mutate(p)
			svc, _ := newTestService(&fakeStore{payment: p}, &fakeGateway{}, true)

			_, err := svc.Initialize(context.Background(), p.BookingID, nil)
			if apperr.GetKind(err) != apperr.KindConflict {
				t.Fatalf("expected conflict, got %v", err)
			}
		})
	}
}

func TestInitializeGatewayDisabled(t *testing.T) {
	svc, _ := newTestService(&fakeStore{payment: pendingPayment(100)}, &fakeGateway{}, false)
	_, err := svc.Initialize(context.Background(), uuid.New(), nil)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestInitializeOwnershipEnforced(t *testing.T) {
	store := &fakeStore{payment: pendingPayment(100000)}
	svc, _ := newTestService(store, &fakeGateway{}, true)

	other := uuid.New()
	_, err := svc.Initialize(context.Background(), store.payment.BookingID, &other)
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found for foreign booking, got %v", err)
	}
}

func TestVerifyCallbackSettlesAndPublishes(t *testing.T) {
	store := &fakeStore{payment: pendingPayment(250000), clientEmail: "ada@example.com", clientName: "Ada Obi"}
	gw := &fakeGateway{verify: gateway.VerifyResult{Status: "success", AmountMinor: 250000, Currency: "NGN"}}
	svc, bus := newTestService(store, gw, true)

	resp, err := svc.VerifyCallback(context.Background(), "LR-ref")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != string(domain.StatusPaid) {
		t.Fatalf("status = %s", resp.Status)
	}
	if resp.PaidAt == nil {
		t.Fatal("paidAt not set")
	}
	if bus.count() != 1 {
		t.Fatalf("published %d events, want 1", bus.count())
	}
}

func TestVerifyCallbackIdempotent(t *testing.T) {
	p := pendingPayment(250000)
	now := time.Now()
	p.Status = domain.StatusPaid
	p.PaidAt = &now
	store := &fakeStore{payment: p}
	gw := &fakeGateway{}
	svc, bus := newTestService(store, gw, true)

	resp, err := svc.VerifyCallback(context.Background(), "LR-ref")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != string(domain.StatusPaid) {
		t.Fatalf("status = %s", resp.Status)
	}
	if gw.verifyCalls != 0 {
		t.Fatal("replayed callback must not hit the gateway again")
	}
	if bus.count() != 0 {
		t.Fatal("replayed callback must not publish again")
	}
}

func TestVerifyCallbackRefusesFree(t *testing.T) {
	p := pendingPayment(0)
	p.Status = domain.StatusFree
	store := &fakeStore{payment: p}
	svc, bus := newTestService(store, &fakeGateway{}, true)

	_, err := svc.VerifyCallback(context.Background(), "LR-ref")
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if p.Status != domain.StatusFree || len(store.markedPaid) != 0 {
		t.Fatal("free payment must not be mutated")
	}
	if bus.count() != 0 {
		t.Fatal("free payment callback must not publish")
	}
}

func TestVerifyCallbackFailureMarksFailed(t *testing.T) {
	store := &fakeStore{payment: pendingPayment(250000)}
	gw := &fakeGateway{verify: gateway.VerifyResult{Status: "abandoned"}}
	svc, bus := newTestService(store, gw, true)

	resp, err := svc.VerifyCallback(context.Background(), "LR-ref")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != string(domain.StatusFailed) {
		t.Fatalf("status = %s", resp.Status)
	}
	if len(store.markedFail) != 1 {
		t.Fatalf("mark failed calls = %d", len(store.markedFail))
	}
	if bus.count() != 0 {
		t.Fatal("failed payment must not publish success")
	}
}

type fakeInvoices struct {
	marked []uuid.UUID
	err    error
}

func (f *fakeInvoices) MarkPaidForBooking(_ context.Context, bookingID uuid.UUID, _ time.Time) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.marked = append(f.marked, bookingID)
	return true, nil
}

func TestVerifyCallbackSettlesInvoiceInSameCall(t *testing.T) {
	store := &fakeStore{payment: pendingPayment(250000), clientEmail: "ada@example.com"}
	gw := &fakeGateway{verify: gateway.VerifyResult{Status: "success", AmountMinor: 250000, Currency: "NGN"}}
	svc, bus := newTestService(store, gw, true)
	inv := &fakeInvoices{}
	svc.SetInvoiceSyncer(inv)

	resp, err := svc.VerifyCallback(context.Background(), "LR-ref")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != string(domain.StatusPaid) {
		t.Fatalf("status = %s", resp.Status)
	}
	if len(inv.marked) != 1 || inv.marked[0] != store.payment.BookingID {
		t.Fatalf("invoice sync calls = %v", inv.marked)
	}
	if bus.count() != 1 {
		t.Fatalf("published %d events, want 1", bus.count())
	}
}

func TestVerifyCallbackInvoiceSyncFailureHealsOnReplay(t *testing.T) {
	store := &fakeStore{payment: pendingPayment(250000), clientEmail: "ada@example.com"}
	gw := &fakeGateway{verify: gateway.VerifyResult{Status: "success", AmountMinor: 250000, Currency: "NGN"}}
	svc, _ := newTestService(store, gw, true)
	inv := &fakeInvoices{err: apperr.Internal("invoices unavailable")}
	svc.SetInvoiceSyncer(inv)

	if _, err := svc.VerifyCallback(context.Background(), "LR-ref"); err == nil {
		t.Fatal("expected failure when the invoice cannot be settled")
	}
	if store.payment.Status != domain.StatusPaid {
		t.Fatalf("payment status = %s, want PAID", store.payment.Status)
	}

	// The gateway retries the callback; the replay path re-runs the sync.
	inv.err = nil
	resp, err := svc.VerifyCallback(context.Background(), "LR-ref")
	if err != nil {
		t.Fatalf("unexpected error on replay: %v", err)
	}
	if resp.Status != string(domain.StatusPaid) {
		t.Fatalf("status = %s", resp.Status)
	}
	if len(inv.marked) != 1 {
		t.Fatalf("invoice sync calls = %d, want 1", len(inv.marked))
	}
}

func TestUpdateAmountRefusesSettled(t *testing.T) {
	p := pendingPayment(1000)
	p.Status = domain.StatusPaid
	svc, _ := newTestService(&fakeStore{payment: p}, &fakeGateway{}, true)

	_, err := svc.UpdateAmount(context.Background(), p.BookingID, transportAmount(5000))
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func transportAmount(cents int64) transport.UpdatePaymentAmountRequest {
	return transport.UpdatePaymentAmountRequest{AmountCents: cents}
}

func TestPaymentStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to domain.Status
		want     bool
	}{
		{domain.StatusPending, domain.StatusPaid, true},
		{domain.StatusPending, domain.StatusFailed, true},
		{domain.StatusFailed, domain.StatusPaid, true},
		{domain.StatusPaid, domain.StatusPending, false},
		{domain.StatusFree, domain.StatusPaid, false},
		{domain.StatusFree, domain.StatusPending, false},
	}
	for _, tc := range cases {
		if got := domain.CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
