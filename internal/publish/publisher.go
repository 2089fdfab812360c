// Package publish delivers encoded contracts to a message broker.
package publish

import (
	"context"
	"fmt"

	"github.com/riftwatch/riftwatch/internal/config"
)

// Publisher is the broker boundary. PublishAsync always yields exactly one
// value on the returned channel: nil on success, the failure otherwise. The
// core never retries.
type Publisher interface {
	PublishAsync(ctx context.Context, topic string, payload []byte) <-chan error
	Close() error
}

// New connects the publisher selected by cfg.Kind.
func New(ctx context.Context, cfg config.PublisherConfig) (Publisher, error) {
	switch cfg.Kind {
	case config.PublisherMQTT:
		return NewMQTTPublisher(ctx, cfg.MQTT)
	case config.PublisherNATS:
		return NewNATSPublisher(cfg.NATS)
	case config.PublisherRedis:
		return NewRedisPublisher(ctx, cfg.Redis)
	case config.PublisherLog, "":
		return NewLogPublisher(), nil
	}
	return nil, fmt.Errorf("unknown publisher kind %q", cfg.Kind)
}

// result returns a channel already holding err.
func result(err error) <-chan error {
	ch := make(chan error, 1)
	ch <- err
	return ch
}
