package publish

import (
	"context"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/riftwatch/riftwatch/internal/config"
)

// NATSPublisher publishes contracts as NATS subjects.
type NATSPublisher struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// NewNATSPublisher connects to the configured NATS servers.
func NewNATSPublisher(cfg config.NATSConfig) (*NATSPublisher, error) {
	logger := log.With().Str("component", "nats").Logger()

	opts := []nats.Option{
		nats.Name("riftwatch"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(strings.Join(cfg.Hosts, ","), opts...)
	if err != nil {
		return nil, fmt.Errorf("NATS connect failed: %w", err)
	}
	logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS connected")

	return &NATSPublisher{conn: nc, logger: logger}, nil
}

// PublishAsync hands payload to the client's write buffer.
func (p *NATSPublisher) PublishAsync(ctx context.Context, topic string, payload []byte) <-chan error {
	if err := ctx.Err(); err != nil {
		return result(err)
	}
	if err := p.conn.Publish(topic, payload); err != nil {
		return result(fmt.Errorf("publish %s: %w", topic, err))
	}
	return result(nil)
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Drain()
	p.logger.Info().Msg("NATS closed")
	return err
}
