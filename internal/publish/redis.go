package publish

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/riftwatch/riftwatch/internal/config"
)

// RedisPublisher publishes contracts on Redis Pub/Sub channels.
type RedisPublisher struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisPublisher connects and pings the Redis server.
func NewRedisPublisher(ctx context.Context, cfg config.RedisConfig) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	logger := log.With().Str("component", "redis").Logger()
	logger.Info().Str("addr", cfg.Addr).Msg("Redis connected")
	return &RedisPublisher{client: client, logger: logger}, nil
}

// PublishAsync publishes payload on the channel named topic.
func (p *RedisPublisher) PublishAsync(ctx context.Context, topic string, payload []byte) <-chan error {
	ch := make(chan error, 1)
	go func() {
		if err := p.client.Publish(ctx, topic, payload).Err(); err != nil {
			ch <- fmt.Errorf("publish %s: %w", topic, err)
			return
		}
		ch <- nil
	}()
	return ch
}

// Close releases the connection pool.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
