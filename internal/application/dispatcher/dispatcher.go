// Package dispatcher fans lifecycle events out to subscribers after the
// transition that produced them has committed.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/garyjia/travel-approval/internal/domain/event"
)

// ErrClosed is returned once Close has been called
var ErrClosed = errors.New("dispatcher is closed")

// Handler processes one lifecycle event
type Handler func(ctx context.Context, evt *event.Event) error

// Dispatcher routes lifecycle events to named subscribers
type Dispatcher interface {
	// Subscribe adds handler under name and returns a func that removes it.
	// Subscribing the same name twice for one type replaces the earlier handler.
	Subscribe(eventType event.Type, name string, handler Handler) (unsubscribe func())

	// Dispatch runs subscribers in order and stops at the first error
	Dispatch(ctx context.Context, evt *event.Event) error

	// DispatchAsync delivers evt on a background goroutine. Subscribers run in
	// order, each under its own deadline, and see a context detached from the
	// caller's cancellation. Errors are logged and do not stop later subscribers.
	DispatchAsync(ctx context.Context, evt *event.Event)

	// Subscribers names the handlers registered for eventType, in order
	Subscribers(eventType event.Type) []string

	// Pending reports async deliveries still running
	Pending() int

	// Close rejects new events and waits for pending deliveries
	Close() error
}

// Logger is the structured logging surface the dispatcher writes to
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type subscription struct {
	name    string
	handler Handler
}

type eventDispatcher struct {
	logger         Logger
	handlerTimeout time.Duration

	mu     sync.RWMutex
	subs   map[event.Type][]subscription
	closed bool

	inflight sync.WaitGroup
	pending  atomic.Int64
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) { d.logger = logger }
}

// WithHandlerTimeout bounds each async handler call. Zero disables the bound.
func WithHandlerTimeout(timeout time.Duration) Option {
	return func(d *eventDispatcher) { d.handlerTimeout = timeout }
}

func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{subs: make(map[event.Type][]subscription)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *eventDispatcher) Subscribe(eventType event.Type, name string, handler Handler) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.subs[eventType] = append(without(d.subs[eventType], name), subscription{name: name, handler: handler})
	d.logInfo("Subscriber added", "event_type", eventType, "subscriber", name)

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.subs[eventType] = without(d.subs[eventType], name)
	}
}

func without(subs []subscription, name string) []subscription {
	out := make([]subscription, 0, len(subs))
	for _, s := range subs {
		if s.name != name {
			out = append(out, s)
		}
	}
	return out
}

func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	subs, err := d.subscribers(evt)
	if err != nil {
		return err
	}
	for _, s := range subs {
		if err := d.invoke(ctx, evt, s); err != nil {
			d.logError("Subscriber failed", "event_type", evt.Type, "event_id", evt.ID, "subscriber", s.name, "error", err)
			return fmt.Errorf("subscriber %s: %w", s.name, err)
		}
	}
	return nil
}

func (d *eventDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		d.logError("Event dropped, dispatcher closed", "event_type", evt.Type, "event_id", evt.ID)
		return
	}
	subs := append([]subscription(nil), d.subs[evt.Type]...)
	// Add under the read lock so Close cannot start waiting in between.
	d.inflight.Add(1)
	d.mu.RUnlock()

	if len(subs) == 0 {
		d.inflight.Done()
		return
	}

	d.pending.Add(1)
	d.logInfo("Delivering event",
		"event_type", evt.Type,
		"event_id", evt.ID,
		"travel_request_id", evt.TravelRequestID,
		"subscribers", len(subs))

	go d.deliver(context.WithoutCancel(ctx), evt, subs)
}

func (d *eventDispatcher) deliver(base context.Context, evt *event.Event, subs []subscription) {
	defer d.inflight.Done()
	defer d.pending.Add(-1)

	for _, s := range subs {
		ctx, cancel := base, context.CancelFunc(func() {})
		if d.handlerTimeout > 0 {
			ctx, cancel = context.WithTimeout(base, d.handlerTimeout)
		}
		err := d.invoke(ctx, evt, s)
		cancel()
		if err != nil {
			d.logError("Async subscriber failed", "event_type", evt.Type, "event_id", evt.ID, "subscriber", s.name, "error", err)
		}
	}
}

func (d *eventDispatcher) Subscribers(eventType event.Type) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.subs[eventType]))
	for _, s := range d.subs[eventType] {
		names = append(names, s.name)
	}
	return names
}

func (d *eventDispatcher) Pending() int {
	return int(d.pending.Load())
}

func (d *eventDispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.closed = true
	d.mu.Unlock()

	d.logInfo("Draining dispatcher", "pending", d.Pending())
	d.inflight.Wait()
	return nil
}

func (d *eventDispatcher) subscribers(evt *event.Event) ([]subscription, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, ErrClosed
	}
	return append([]subscription(nil), d.subs[evt.Type]...), nil
}

// invoke turns a subscriber panic into an error
func (d *eventDispatcher) invoke(ctx context.Context, evt *event.Event, s subscription) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panic: %v", r)
			d.logError("Subscriber panicked", "event_type", evt.Type, "event_id", evt.ID, "subscriber", s.name, "panic", r)
		}
	}()
	return s.handler(ctx, evt)
}

func (d *eventDispatcher) logInfo(msg string, kv ...interface{}) {
	if d.logger != nil {
		d.logger.Info(msg, kv...)
	}
}

func (d *eventDispatcher) logError(msg string, kv ...interface{}) {
	if d.logger != nil {
		d.logger.Error(msg, kv...)
	}
}
