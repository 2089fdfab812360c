package publish

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogPublisher is a dry-run publisher that only logs what would be sent.
type LogPublisher struct {
	logger zerolog.Logger
	count  atomic.Uint64
}

// NewLogPublisher creates a dry-run publisher.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{logger: log.With().Str("component", "publish.log").Logger()}
}

func (p *LogPublisher) PublishAsync(ctx context.Context, topic string, payload []byte) <-chan error {
	if err := ctx.Err(); err != nil {
		return result(err)
	}
	p.count.Add(1)
	p.logger.Info().Str("topic", topic).Int("bytes", len(payload)).Msg("publish")
	return result(nil)
}

// Count returns the number of messages seen.
func (p *LogPublisher) Count() uint64 {
	return p.count.Load()
}

func (p *LogPublisher) Close() error { return nil }
