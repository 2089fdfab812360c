// Package dispatch classifies decoded message bodies and routes each one to the
// handler registered for its (kind, code) pair.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/riftwatch/riftwatch/internal/capture"
	"github.com/riftwatch/riftwatch/internal/codes"
	"github.com/riftwatch/riftwatch/internal/events"
	"github.com/riftwatch/riftwatch/internal/protocol"
	"github.com/riftwatch/riftwatch/internal/world"
)

// DefaultMaxInFlight bounds concurrent handler invocations when Options leaves it unset.
const DefaultMaxInFlight = 64

var (
	// ErrStopped is returned for payloads offered after Stop.
	ErrStopped = errors.New("dispatcher stopped")
	// ErrDuplicateHandler means a (kind, code) pair was registered twice.
	ErrDuplicateHandler = errors.New("handler already registered")
)

// HandlerFunc handles one classified message.
type HandlerFunc func(ctx context.Context, call *Call) error

// HandlerFault wraps an error or panic raised by a handler.
type HandlerFault struct {
	Kind protocol.Kind
	Code int
	Name string
	Err  error
}

func (f *HandlerFault) Error() string {
	return fmt.Sprintf("handler %s (%s %d): %v", f.Name, f.Kind, f.Code, f.Err)
}

func (f *HandlerFault) Unwrap() error {
	return f.Err
}

// Options configures a Dispatcher.
type Options struct {
	MaxInFlight int64
	Clock       func() time.Time
}

// Stats is a point-in-time view of dispatcher counters.
type Stats struct {
	Received      uint64 `json:"received"`
	Dispatched    uint64 `json:"dispatched"`
	Unregistered  uint64 `json:"unregistered"`
	DecodeErrors  uint64 `json:"decode_errors"`
	HandlerFaults uint64 `json:"handler_faults"`
	Dropped       uint64 `json:"dropped"`
	InFlight      int64  `json:"in_flight"`
	Handlers      int    `json:"handlers"`
}

type routeKey struct {
	kind protocol.Kind
	code int
}

type route struct {
	name    string
	handler HandlerFunc
}

// Dispatcher owns the handler table and the shared world registry.
type Dispatcher struct {
	parser *protocol.EnvelopeParser
	world  *world.Registry
	bus    *events.EventBus
	opts   Options
	logger zerolog.Logger

	mu      sync.RWMutex
	routes  map[routeKey]route
	stopped bool
	wg      sync.WaitGroup

	received      atomic.Uint64
	dispatched    atomic.Uint64
	unregistered  atomic.Uint64
	decodeErrors  atomic.Uint64
	handlerFaults atomic.Uint64
	dropped       atomic.Uint64
	inFlight      atomic.Int64
}

// New creates a dispatcher. bus may be nil, in which case handler emissions are
// discarded.
func New(opts Options, parser *protocol.EnvelopeParser, reg *world.Registry, bus *events.EventBus) *Dispatcher {
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = DefaultMaxInFlight
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if parser == nil {
		parser = protocol.NewEnvelopeParser()
	}
	return &Dispatcher{
		parser: parser,
		world:  reg,
		bus:    bus,
		opts:   opts,
		logger: log.With().Str("component", "dispatcher").Logger(),
		routes: make(map[routeKey]route),
	}
}

// Register binds name/handler to (kind, code). It is meant for startup; a
// duplicate pair or nil handler is a configuration error.
func (d *Dispatcher) Register(kind protocol.Kind, code int, name string, handler HandlerFunc) error {
	if handler == nil {
		return fmt.Errorf("register %s: nil handler", name)
	}
	key := routeKey{kind: kind, code: code}

	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, exists := d.routes[key]; exists {
		return fmt.Errorf("register %s for %s %d: %w (%s)", name, kind, code, ErrDuplicateHandler, prev.name)
	}
	d.routes[key] = route{name: name, handler: handler}

	d.logger.Debug().
		Str("kind", kind.String()).
		Int("code", code).
		Str("handler", name).
		Msg("handler registered")
	return nil
}

// BindTable registers every entry of table using the handler of the same name
// from catalog.
func (d *Dispatcher) BindTable(table *codes.Table, catalog map[string]HandlerFunc) error {
	bindings, err := table.Bindings()
	if err != nil {
		return fmt.Errorf("invalid code table: %w", err)
	}
	for _, b := range bindings {
		h, ok := catalog[b.Name]
		if !ok {
			return fmt.Errorf("code table names unknown handler %q", b.Name)
		}
		if err := d.Register(b.Kind, b.Code, b.Name, h); err != nil {
			return err
		}
	}
	d.logger.Info().Int("handlers", len(bindings)).Msg("code table bound")
	return nil
}

// Dispatch decodes payload and runs its handler synchronously. Unregistered
// codes are ignored and return nil. Decode failures are returned as is;
// handler failures come back as *HandlerFault.
func (d *Dispatcher) Dispatch(ctx context.Context, payload []byte) error {
	d.mu.RLock()
	if d.stopped {
		d.mu.RUnlock()
		d.dropped.Add(1)
		return ErrStopped
	}
	d.wg.Add(1)
	d.mu.RUnlock()
	defer d.wg.Done()

	d.received.Add(1)

	env, err := d.parser.Parse(payload)
	if err != nil {
		d.decodeErrors.Add(1)
		return fmt.Errorf("decode message: %w", err)
	}

	d.mu.RLock()
	r, ok := d.routes[routeKey{kind: env.Kind, code: env.Code}]
	d.mu.RUnlock()
	if !ok {
		d.unregistered.Add(1)
		d.logger.Trace().
			Str("kind", env.Kind.String()).
			Int("code", env.Code).
			Int("params", env.Parameters.Len()).
			Msg("no handler for message")
		return nil
	}

	call := &Call{
		Envelope: env,
		Params:   env.Parameters,
		World:    d.world,
		ctx:      ctx,
		name:     r.name,
		bus:      d.bus,
		clock:    d.opts.Clock,
	}
	if err := d.invoke(ctx, r, call); err != nil {
		d.handlerFaults.Add(1)
		return &HandlerFault{Kind: env.Kind, Code: env.Code, Name: r.name, Err: err}
	}
	d.dispatched.Add(1)
	return nil
}

func (d *Dispatcher) invoke(ctx context.Context, r route, call *Call) (err error) {
	d.inFlight.Add(1)
	defer d.inFlight.Add(-1)
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error().
				Str("handler", r.name).
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Msg("handler panicked")
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return r.handler(ctx, call)
}

// Run consumes src until it ends or ctx is cancelled. Each payload is dispatched
// on its own goroutine, at most MaxInFlight at a time; a full pipeline makes the
// source wait. Per-payload failures are logged and counted, never fatal.
func (d *Dispatcher) Run(ctx context.Context, src capture.Source) error {
	sem := semaphore.NewWeighted(d.opts.MaxInFlight)

	err := src.Run(ctx, func(payload []byte) {
		if err := sem.Acquire(ctx, 1); err != nil {
			d.dropped.Add(1)
			return
		}
		go func() {
			defer sem.Release(1)
			d.report(d.Dispatch(ctx, payload))
		}()
	})

	// Wait for the payloads already handed out.
	_ = sem.Acquire(context.Background(), d.opts.MaxInFlight)

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("capture source: %w", err)
	}
	return nil
}

func (d *Dispatcher) report(err error) {
	if err == nil {
		return
	}
	var fault *HandlerFault
	switch {
	case errors.As(err, &fault):
		d.logger.Warn().
			Err(fault.Err).
			Str("handler", fault.Name).
			Str("kind", fault.Kind.String()).
			Int("code", fault.Code).
			Msg("handler failed")
	case errors.Is(err, ErrStopped):
		d.logger.Trace().Msg("payload dropped after stop")
	default:
		d.logger.Debug().Err(err).Msg("payload discarded")
	}
}

// Stop rejects further payloads and waits for in-flight handlers to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info().Msg("dispatcher stopped")
}

// Stats returns the dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.RLock()
	handlers := len(d.routes)
	d.mu.RUnlock()

	return Stats{
		Received:      d.received.Load(),
		Dispatched:    d.dispatched.Load(),
		Unregistered:  d.unregistered.Load(),
		DecodeErrors:  d.decodeErrors.Load(),
		HandlerFaults: d.handlerFaults.Load(),
		Dropped:       d.dropped.Load(),
		InFlight:      d.inFlight.Load(),
		Handlers:      handlers,
	}
}
