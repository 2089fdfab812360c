package publish

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/riftwatch/riftwatch/internal/config"
	"github.com/riftwatch/riftwatch/internal/util"
)

const mqttConnectTimeout = 15 * time.Second

// MQTTPublisher publishes contracts to an MQTT broker with optional mTLS.
type MQTTPublisher struct {
	client mqtt.Client
	qos    byte
	logger zerolog.Logger
}

// NewMQTTPublisher configures the client and connects to the broker.
func NewMQTTPublisher(ctx context.Context, cfg config.MQTTConfig) (*MQTTPublisher, error) {
	logger := log.With().Str("component", "mqtt").Logger()

	scheme := "tcp"
	if cfg.UseTLS {
		scheme = "ssl"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.BrokerURL, cfg.Port))

	if cfg.ClientID != "" {
		opts.SetClientID(cfg.ClientID)
	} else {
		opts.SetClientID(fmt.Sprintf("riftwatch-%s", util.GetSystemInfo().Hostname))
	}
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetCleanSession(false)

	if cfg.UseTLS {
		tlsConfig := &tls.Config{
			MinVersion: tls.VersionTLS12,
		}

		// mTLS: load client certificate
		if cfg.CertFile != "" && cfg.KeyFile != "" {
			cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load MQTT TLS certificate: %w", err)
			}
			tlsConfig.Certificates = []tls.Certificate{cert}
		}

		opts.SetTLSConfig(tlsConfig)
	}

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logger.Info().Msg("MQTT connected")
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logger.Warn().Err(err).Msg("MQTT connection lost")
	})

	p := &MQTTPublisher{
		client: mqtt.NewClient(opts),
		qos:    cfg.QoS,
		logger: logger,
	}

	logger.Info().
		Str("broker", cfg.BrokerURL).
		Int("port", cfg.Port).
		Msg("connecting to MQTT broker")

	token := p.client.Connect()
	if err := waitToken(ctx, token, mqttConnectTimeout); err != nil {
		return nil, fmt.Errorf("MQTT connect failed: %w", err)
	}
	return p, nil
}

// PublishAsync publishes payload at the configured QoS.
func (p *MQTTPublisher) PublishAsync(ctx context.Context, topic string, payload []byte) <-chan error {
	if !p.client.IsConnectionOpen() {
		return result(fmt.Errorf("publish %s: MQTT not connected", topic))
	}

	token := p.client.Publish(mqttTopic(topic), p.qos, false, payload)
	ch := make(chan error, 1)
	go func() {
		ch <- waitToken(ctx, token, 0)
	}()
	return ch
}

// Close disconnects, allowing in-flight messages up to 5 seconds.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(5000)
	p.logger.Info().Msg("MQTT disconnected")
	return nil
}

// waitToken waits for token completion, ctx cancellation, or timeout when
// timeout is positive.
func waitToken(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	var expire <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expire = timer.C
	}

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-expire:
		return fmt.Errorf("timed out after %s", timeout)
	}
}

// mqttTopic maps dotted topics onto the MQTT level separator.
func mqttTopic(topic string) string {
	return strings.ReplaceAll(topic, ".", "/")
}
