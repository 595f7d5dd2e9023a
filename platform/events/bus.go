package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"livingrite_backend/platform/logger"
)

// InMemoryBus is a process-local Bus. Handlers registered for an event name
// run in a fresh goroutine on Publish; a panicking handler is recovered and
// logged so one subscriber cannot take down the others.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
}

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for the given event name.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish dispatches the event to all subscribed handlers asynchronously.
// The caller's context deadline does not bind the handlers; they receive a
// background context because the publishing request usually completes first.
func (b *InMemoryBus) Publish(_ context.Context, event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.EventName()]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		go func(h Handler) {
			defer b.recoverPanic(event)
			if err := h.Handle(context.Background(), event); err != nil {
				b.log.Error("event handler failed",
					"event", event.EventName(),
					"error", err,
				)
			}
		}(h)
	}
}

// PublishSync dispatches the event and waits for every handler, collecting
// their errors.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.EventName()]...)
	b.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := b.handleSafely(ctx, h, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *InMemoryBus) handleSafely(ctx context.Context, h Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panicked: %v", r)
		}
	}()
	return h.Handle(ctx, event)
}

func (b *InMemoryBus) recoverPanic(event Event) {
	if r := recover(); r != nil {
		b.log.Error("event handler panicked",
			"event", event.EventName(),
			"panic", fmt.Sprint(r),
		)
	}
}

var _ Bus = (*InMemoryBus)(nil)
