package publish

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/riftwatch/riftwatch/internal/contracts"
	"github.com/riftwatch/riftwatch/internal/events"
	"github.com/riftwatch/riftwatch/internal/transform"
)

const subscriberName = "publish.pipeline"

// PipelineStats counts what happened to events reaching the pipeline.
type PipelineStats struct {
	Routed    uint64 `json:"routed"`
	Unrouted  uint64 `json:"unrouted"`
	Published uint64 `json:"published"`
	Failed    uint64 `json:"failed"`
}

// Pipeline routes domain events to contracts and publishes them.
type Pipeline struct {
	router  *transform.Router
	codec   contracts.Codec
	pub     Publisher
	prefix  string
	timeout time.Duration
	logger  zerolog.Logger

	routed    atomic.Uint64
	unrouted  atomic.Uint64
	published atomic.Uint64
	failed    atomic.Uint64
}

// NewPipeline creates a pipeline. A non-empty prefix is joined to every
// topic with a dot. A positive timeout bounds each publish.
func NewPipeline(router *transform.Router, codec contracts.Codec, pub Publisher, prefix string, timeout time.Duration) *Pipeline {
	return &Pipeline{
		router:  router,
		codec:   codec,
		pub:     pub,
		prefix:  prefix,
		timeout: timeout,
		logger:  log.With().Str("component", "pipeline").Logger(),
	}
}

// Attach subscribes the pipeline to every domain event on bus.
func (p *Pipeline) Attach(bus *events.EventBus) {
	bus.SubscribeAll(subscriberName, p.onEvent)
	bus.Subscribe(events.EventShutdown, subscriberName, p.onShutdown)
}

// Handle routes, encodes and publishes evt. The channel yields exactly one
// value. Events no transformer claims resolve to nil.
func (p *Pipeline) Handle(ctx context.Context, evt events.Event) <-chan error {
	matched, topic, contract := p.router.TryRoute(evt)
	if !matched {
		p.unrouted.Add(1)
		return result(nil)
	}
	p.routed.Add(1)

	data, err := p.codec.Encode(contract)
	if err != nil {
		p.failed.Add(1)
		p.logger.Warn().Err(err).Str("topic", topic).Msg("encode failed")
		return result(err)
	}

	topic = p.topic(topic)
	src := p.pub.PublishAsync(ctx, topic, data)
	out := make(chan error, 1)
	go func() {
		err := <-src
		if err != nil {
			p.failed.Add(1)
			p.logger.Warn().Err(err).Str("topic", topic).Msg("publish failed")
			err = fmt.Errorf("publish %s: %w", contract.ContractName(), err)
		} else {
			p.published.Add(1)
			p.logger.Trace().Str("topic", topic).Int("bytes", len(data)).Msg("published")
		}
		out <- err
	}()
	return out
}

func (p *Pipeline) onEvent(ctx context.Context, evt events.Event) error {
	// Events emitted just before shutdown still publish; the bus drains them
	// before the publisher closes and the timeout bounds each attempt.
	ctx = context.WithoutCancel(ctx)
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	// Failures are already counted and logged; the bus should not log them twice.
	<-p.Handle(ctx, evt)
	return nil
}

func (p *Pipeline) onShutdown(_ context.Context, _ events.Event) error {
	s := p.Stats()
	p.logger.Info().
		Uint64("routed", s.Routed).
		Uint64("unrouted", s.Unrouted).
		Uint64("published", s.Published).
		Uint64("failed", s.Failed).
		Msg("pipeline stopping")
	return nil
}

func (p *Pipeline) topic(t string) string {
	if p.prefix == "" {
		return t
	}
	return p.prefix + "." + t
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() PipelineStats {
	return PipelineStats{
		Routed:    p.routed.Load(),
		Unrouted:  p.unrouted.Load(),
		Published: p.published.Load(),
		Failed:    p.failed.Load(),
	}
}
