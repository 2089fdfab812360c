package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// HandlerFunc is a function that handles an event.
type HandlerFunc func(ctx context.Context, event Event) error

// EventBus implements an asynchronous publish-subscribe event system.
// Protocol handlers emit into it; the publishing pipeline and the scheduler
// consume from it.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]handlerEntry
	stopCh   chan struct{}
	stopped  bool
	wg       sync.WaitGroup
	logger   zerolog.Logger

	emitted atomic.Uint64
	failed  atomic.Uint64
}

type handlerEntry struct {
	name    string
	handler HandlerFunc
}

// BusStats is a point-in-time view of bus counters.
type BusStats struct {
	Emitted uint64 `json:"emitted"`
	Failed  uint64 `json:"failed"`
}

// NewEventBus creates a new EventBus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]handlerEntry),
		stopCh:   make(chan struct{}),
		logger:   log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers a handler function for a specific event type.
// The name parameter is used for logging/debugging purposes.
func (eb *EventBus) Subscribe(eventType EventType, name string, handler HandlerFunc) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handlerEntry{
		name:    name,
		handler: handler,
	})

	eb.logger.Debug().
		Str("event", string(eventType)).
		Str("handler", name).
		Msg("subscribed to event")
}

// SubscribeAll registers handler under name for every domain event type.
func (eb *EventBus) SubscribeAll(name string, handler HandlerFunc) {
	for _, t := range DomainEvents {
		eb.Subscribe(t, name, handler)
	}
}

// Unsubscribe removes a named handler from a specific event type.
func (eb *EventBus) Unsubscribe(eventType EventType, name string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	handlers, exists := eb.handlers[eventType]
	if !exists {
		return
	}

	filtered := make([]handlerEntry, 0, len(handlers))
	for _, h := range handlers {
		if h.name != name {
			filtered = append(filtered, h)
		}
	}
	eb.handlers[eventType] = filtered
}

// snapshot returns a copy of the handlers for eventType, or nil once stopped.
func (eb *EventBus) snapshot(eventType EventType) []handlerEntry {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.stopped {
		return nil
	}
	handlers := eb.handlers[eventType]
	if len(handlers) == 0 {
		return nil
	}
	out := make([]handlerEntry, len(handlers))
	copy(out, handlers)
	return out
}

// invoke runs one handler, turning a panic into an error.
func (eb *EventBus) invoke(ctx context.Context, h handlerEntry, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %s panicked: %v", h.name, r)
		}
		if err != nil {
			eb.failed.Add(1)
			eb.logger.Error().
				Err(err).
				Str("event", string(event.Type)).
				Str("handler", h.name).
				Msg("event handler failed")
		}
	}()
	return h.handler(ctx, event)
}

// Emit publishes an event to all subscribed handlers asynchronously.
// Each handler runs in its own goroutine to prevent blocking.
func (eb *EventBus) Emit(ctx context.Context, event Event) {
	eb.mu.RLock()
	if eb.stopped || len(eb.handlers[event.Type]) == 0 {
		eb.mu.RUnlock()
		return
	}
	handlers := make([]handlerEntry, len(eb.handlers[event.Type]))
	copy(handlers, eb.handlers[event.Type])
	// Added under the read lock so Stop cannot start waiting before these count.
	eb.wg.Add(len(handlers))
	eb.mu.RUnlock()

	eb.emitted.Add(1)
	eb.logger.Trace().
		Str("event", string(event.Type)).
		Str("source", event.Source).
		Int("handlers", len(handlers)).
		Msg("emitting event")

	for _, h := range handlers {
		go func() {
			defer eb.wg.Done()
			_ = eb.invoke(ctx, h, event)
		}()
	}
}

// EmitSync publishes an event and waits for all handlers to complete.
// Returns the first error encountered, if any.
func (eb *EventBus) EmitSync(ctx context.Context, event Event) error {
	handlers := eb.snapshot(event.Type)
	if handlers == nil {
		return nil
	}
	eb.emitted.Add(1)

	var firstErr error
	var errOnce sync.Once
	var wg sync.WaitGroup

	for _, h := range handlers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := eb.invoke(ctx, h, event); err != nil {
				errOnce.Do(func() { firstErr = err })
			}
		}()
	}

	wg.Wait()
	return firstErr
}

// Stop signals the EventBus to stop accepting new events and waits
// for all in-flight handlers to complete. It is safe to call more than once.
func (eb *EventBus) Stop() {
	eb.mu.Lock()
	if eb.stopped {
		eb.mu.Unlock()
		return
	}
	eb.stopped = true
	close(eb.stopCh)
	eb.mu.Unlock()

	eb.wg.Wait()
	eb.logger.Info().Msg("event bus stopped")
}

// StopCh returns a channel that is closed when the EventBus is stopped.
func (eb *EventBus) StopCh() <-chan struct{} {
	return eb.stopCh
}

// HandlerCount returns the number of handlers registered for a specific event type.
func (eb *EventBus) HandlerCount(eventType EventType) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.handlers[eventType])
}

// Stats returns the bus counters.
func (eb *EventBus) Stats() BusStats {
	return BusStats{
		Emitted: eb.emitted.Load(),
		Failed:  eb.failed.Load(),
	}
}
