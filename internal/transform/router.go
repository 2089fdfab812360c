// Package transform turns domain events into versioned broker contracts.
package transform

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/riftwatch/riftwatch/internal/contracts"
	"github.com/riftwatch/riftwatch/internal/events"
)

// Transformer converts one kind of event into a contract.
type Transformer interface {
	// CanTransform reports whether this transformer claims evt.
	CanTransform(evt events.Event) bool
	// TryTransform converts evt. ok is false when the payload is not usable.
	TryTransform(evt events.Event) (ok bool, topic string, payload contracts.Contract)
}

// Router tries transformers in registration order. The first one that claims an
// event decides the outcome even when its conversion fails; later transformers
// are never consulted for that event.
type Router struct {
	mu           sync.RWMutex
	transformers []Transformer
	logger       zerolog.Logger
}

// NewRouter creates a router with transformers in priority order.
func NewRouter(transformers ...Transformer) *Router {
	return &Router{
		transformers: transformers,
		logger:       log.With().Str("component", "router").Logger(),
	}
}

// Add appends a transformer with the lowest priority so far.
func (r *Router) Add(t Transformer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transformers = append(r.transformers, t)
}

// Len returns the number of registered transformers.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.transformers)
}

// TryRoute returns the result of the first transformer claiming evt, exactly as
// that transformer reported it.
func (r *Router) TryRoute(evt events.Event) (bool, string, contracts.Contract) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.transformers {
		if !t.CanTransform(evt) {
			continue
		}
		ok, topic, payload := t.TryTransform(evt)
		if !ok {
			r.logger.Debug().
				Str("event", string(evt.Type)).
				Msg("transformer claimed event but could not convert it")
		} else {
			r.logger.Debug().
				Str("event", string(evt.Type)).
				Str("topic", topic).
				Msg("event routed")
		}
		return ok, topic, payload
	}

	r.logger.Debug().Str("event", string(evt.Type)).Msg("no transformer for event")
	return false, "", nil
}
