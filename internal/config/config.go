// Package config handles configuration loading, validation, and persistence
// for the Riftwatch sniffer.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/riftwatch/riftwatch/internal/util"
)

const (
	DefaultConfigDir  = "config"
	DefaultConfigFile = "config.json"
	DefaultAPIPort    = 5080
	DefaultGamePort   = 5056
)

// Publisher kinds.
const (
	PublisherMQTT  = "mqtt"
	PublisherNATS  = "nats"
	PublisherRedis = "redis"
	PublisherLog   = "log"
)

// Config is the root configuration structure for Riftwatch.
type Config struct {
	mu   sync.RWMutex
	path string

	Identity  IdentityConfig  `json:"identity"`
	Capture   CaptureConfig   `json:"capture"`
	Dispatch  DispatchConfig  `json:"dispatch"`
	Publisher PublisherConfig `json:"publisher"`
	API       APIConfig       `json:"api"`
	Catalog   CatalogConfig   `json:"catalog"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Logging   util.LogConfig  `json:"logging"`
	CodesPath string          `json:"codes_path"`
}

// IdentityConfig describes where this sniffer observes from.
type IdentityConfig struct {
	Region string `json:"region"`
	Name   string `json:"name"`
}

// CaptureConfig selects the packet source.
type CaptureConfig struct {
	// Mode is "pcap", "file" or "udp".
	Mode    string `json:"mode"`
	Device  string `json:"device"`
	File    string `json:"file"`
	Filter  string `json:"filter"`
	UDPAddr string `json:"udp_addr"`
	// UDPRaw means mirrored datagrams carry bare message bodies.
	UDPRaw bool `json:"udp_raw"`
}

// DispatchConfig tunes the dispatcher.
type DispatchConfig struct {
	MaxInFlight int64 `json:"max_in_flight"`
}

// PublisherConfig selects and configures the broker adapter.
type PublisherConfig struct {
	Kind          string      `json:"kind"`
	TopicPrefix   string      `json:"topic_prefix"`
	Codec         string      `json:"codec"`
	PublishTimeout int         `json:"publish_timeout_sec"`
	MQTT          MQTTConfig  `json:"mqtt"`
	NATS          NATSConfig  `json:"nats"`
	Redis         RedisConfig `json:"redis"`
}

// MQTTConfig holds MQTT broker settings.
type MQTTConfig struct {
	BrokerURL string `json:"broker_url"`
	Port      int    `json:"port"`
	UseTLS    bool   `json:"use_tls"`
	CertFile  string `json:"cert_file"`
	KeyFile   string `json:"key_file"`
	ClientID  string `json:"client_id"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	QoS       byte   `json:"qos"`
}

// NATSConfig holds NATS settings.
type NATSConfig struct {
	Hosts []string `json:"hosts"`
	Token string   `json:"token"`
}

// RedisConfig holds Redis pub/sub settings.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// APIConfig holds the read-only HTTP API settings.
type APIConfig struct {
	Enabled        bool     `json:"enabled"`
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	AllowedOrigins []string `json:"allowed_origins"`
	RateLimitRPS   int      `json:"rate_limit_rps"`
}

// CatalogConfig locates the mob reference database.
type CatalogConfig struct {
	Path     string `json:"path"`
	SeedFile string `json:"seed_file"`
}

// SchedulerConfig holds periodic task intervals.
type SchedulerConfig struct {
	SnapshotInterval int `json:"snapshot_interval_sec"`
	MovementTTL      int `json:"movement_ttl_sec"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Identity: IdentityConfig{
			Region: "default",
			Name:   "riftwatch",
		},
		Capture: CaptureConfig{
			Mode:    "pcap",
			Device:  "any",
			Filter:  fmt.Sprintf("udp port %d", DefaultGamePort),
			UDPAddr: fmt.Sprintf("0.0.0.0:%d", DefaultGamePort),
		},
		Dispatch: DispatchConfig{
			MaxInFlight: 64,
		},
		Publisher: PublisherConfig{
			Kind:          PublisherLog,
			TopicPrefix:   "riftwatch",
			Codec:         "json",
			PublishTimeout: 10,
			MQTT: MQTTConfig{
				BrokerURL: "localhost",
				Port:      1883,
				QoS:       1,
			},
			NATS: NATSConfig{
				Hosts: []string{"nats://127.0.0.1:4222"},
			},
			Redis: RedisConfig{
				Addr: "127.0.0.1:6379",
			},
		},
		API: APIConfig{
			Enabled:      true,
			Host:         "127.0.0.1",
			Port:         DefaultAPIPort,
			RateLimitRPS: 50,
		},
		Catalog: CatalogConfig{
			Path:     filepath.Join("data", "catalog.db"),
			SeedFile: filepath.Join(DefaultConfigDir, "mobs.yaml"),
		},
		Scheduler: SchedulerConfig{
			SnapshotInterval: 30,
			MovementTTL:      60,
		},
		Logging:   util.DefaultLogConfig(),
		CodesPath: filepath.Join(DefaultConfigDir, "codes.yaml"),
	}
}

// Load reads configuration from a JSON file in configDir. A missing file is
// created from DefaultConfig.
func Load(configDir string) (*Config, error) {
	configPath := filepath.Join(configDir, DefaultConfigFile)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", configPath).Msg("config file not found, creating default")
			cfg := DefaultConfig()
			cfg.path = configPath
			if saveErr := cfg.Save(); saveErr != nil {
				return nil, fmt.Errorf("failed to save default config: %w", saveErr)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig() // Start with defaults, then overlay
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	cfg.path = configPath
	log.Info().Str("path", configPath).Msg("configuration loaded")

	// Re-save so the file always lists every option known to this build.
	if saveErr := cfg.Save(); saveErr != nil {
		log.Warn().Err(saveErr).Msg("failed to re-save config with updated defaults")
	}

	return cfg, nil
}

// Save writes the current configuration to disk.
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Debug().Str("path", c.path).Msg("configuration saved")
	return nil
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.path
}

// GetPublisher returns a copy of the publisher configuration.
func (c *Config) GetPublisher() PublisherConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Publisher
}

// GetCapture returns a copy of the capture configuration.
func (c *Config) GetCapture() CaptureConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Capture
}

// GetAPI returns a copy of the API configuration.
func (c *Config) GetAPI() APIConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.API
}

// GetScheduler returns a copy of the scheduler configuration.
func (c *Config) GetScheduler() SchedulerConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Scheduler
}

// SetPublisherKind switches the broker adapter used on next start.
func (c *Config) SetPublisherKind(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Publisher.Kind = kind
}
