package config

import (
	"fmt"
	"strings"

	"github.com/riftwatch/riftwatch/internal/contracts"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationResult holds the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// IsValid returns true if there are no validation errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// AddError adds a validation error.
func (r *ValidationResult) AddError(field, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
}

// AddWarning adds a validation warning.
func (r *ValidationResult) AddWarning(field, message string) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Message: message})
}

// Validate performs comprehensive validation of the configuration.
func Validate(cfg *Config) *ValidationResult {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	result := &ValidationResult{}

	validateCapture(&cfg.Capture, result)
	validatePublisher(&cfg.Publisher, result)
	validateAPI(&cfg.API, result)

	if cfg.Dispatch.MaxInFlight < 1 {
		result.AddError("dispatch.max_in_flight", "must be at least 1")
	}
	if cfg.Scheduler.SnapshotInterval < 1 {
		result.AddWarning("scheduler.snapshot_interval_sec", "snapshot broadcast disabled")
	}
	if cfg.Scheduler.MovementTTL < 1 {
		result.AddWarning("scheduler.movement_ttl_sec", "movement records will never be pruned")
	}
	if strings.TrimSpace(cfg.CodesPath) == "" {
		result.AddError("codes_path", "code table path is required")
	}
	if strings.TrimSpace(cfg.Identity.Region) == "" {
		result.AddWarning("identity.region", "region is empty, contracts will carry no region")
	}

	return result
}

func validateCapture(c *CaptureConfig, result *ValidationResult) {
	switch c.Mode {
	case "pcap":
		if strings.TrimSpace(c.Device) == "" {
			result.AddError("capture.device", "device is required in pcap mode")
		}
	case "file":
		if strings.TrimSpace(c.File) == "" {
			result.AddError("capture.file", "capture file is required in file mode")
		}
	case "udp":
		if strings.TrimSpace(c.UDPAddr) == "" {
			result.AddError("capture.udp_addr", "listen address is required in udp mode")
		}
	default:
		result.AddError("capture.mode", fmt.Sprintf("unknown capture mode %q (pcap, file, udp)", c.Mode))
	}
}

func validatePublisher(p *PublisherConfig, result *ValidationResult) {
	if _, err := contracts.NewCodec(p.Codec); err != nil {
		result.AddError("publisher.codec", err.Error())
	}
	if p.PublishTimeout < 1 {
		result.AddWarning("publisher.publish_timeout_sec", "publishes will wait indefinitely")
	}

	switch p.Kind {
	case PublisherMQTT:
		if strings.TrimSpace(p.MQTT.BrokerURL) == "" {
			result.AddError("publisher.mqtt.broker_url", "MQTT broker URL is required")
		}
		validatePort(p.MQTT.Port, "publisher.mqtt.port", result)
		if p.MQTT.QoS > 2 {
			result.AddError("publisher.mqtt.qos", "QoS must be 0, 1 or 2")
		}
	case PublisherNATS:
		if len(p.NATS.Hosts) == 0 {
			result.AddError("publisher.nats.hosts", "at least one NATS host is required")
		}
	case PublisherRedis:
		if strings.TrimSpace(p.Redis.Addr) == "" {
			result.AddError("publisher.redis.addr", "Redis address is required")
		}
	case PublisherLog:
		result.AddWarning("publisher.kind", "log publisher selected, nothing reaches a broker")
	default:
		result.AddError("publisher.kind", fmt.Sprintf("unknown publisher %q", p.Kind))
	}
}

func validateAPI(a *APIConfig, result *ValidationResult) {
	if !a.Enabled {
		return
	}
	validatePort(a.Port, "api.port", result)
	if a.RateLimitRPS < 1 {
		result.AddWarning("api.rate_limit_rps",
			"rate limit is disabled (0 RPS), this may expose the API to abuse")
	}
	if a.Host != "127.0.0.1" && a.Host != "localhost" {
		result.AddWarning("api.host", fmt.Sprintf("API listens on %q, world data will be reachable from the network", a.Host))
	}
}

func validatePort(port int, field string, result *ValidationResult) {
	if port < 1 || port > 65535 {
		result.AddError(field, fmt.Sprintf("invalid port number: %d (must be 1-65535)", port))
		return
	}
	if port < 1024 {
		result.AddWarning(field,
			fmt.Sprintf("port %d is a privileged port, may require elevated permissions", port))
	}
}
