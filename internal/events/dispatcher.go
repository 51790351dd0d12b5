package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher fans complaint lifecycle events out to subscribers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// Option configures the in-memory dispatcher.
type Option func(*inMemoryDispatcher)

// WithLogger reports handler failures and panics.
func WithLogger(logger *zap.Logger) Option {
	return func(d *inMemoryDispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithClock overrides the timestamp source for events published without one.
func WithClock(now func() time.Time) Option {
	return func(d *inMemoryDispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
	logger    *zap.Logger
	now       func() time.Time
}

// NewInMemoryDispatcher creates a synchronous dispatcher.
func NewInMemoryDispatcher(opts ...Option) Dispatcher {
	d := &inMemoryDispatcher{
		listeners: make(map[EventType][]EventHandler),
		logger:    zap.NewNop(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Publish stamps missing identity fields and invokes every handler for the
// event type in subscription order. A failing or panicking handler does not
// stop the rest; failures are joined.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.now()
	}

	d.mu.RLock()
	handlers := append([]EventHandler(nil), d.listeners[event.Type]...)
	d.mu.RUnlock()

	var errs []error
	for i, handler := range handlers {
		if err := d.invoke(ctx, handler, event); err != nil {
			d.logger.Warn("event handler failed",
				zap.String("event_type", string(event.Type)),
				zap.String("event_id", event.ID),
				zap.String("ticket_id", event.TicketID),
				zap.Int("handler", i),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *inMemoryDispatcher) invoke(ctx context.Context, handler EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic on %s: %v", event.Type, r)
		}
	}()
	return handler(ctx, event)
}

// Subscribe registers a handler for the given event type.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	if handler == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}
