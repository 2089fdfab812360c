package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Publisher.Kind != PublisherLog || cfg.API.Port != DefaultAPIPort {
		t.Fatalf("unexpected defaults %+v", cfg.Publisher)
	}
	if _, err := os.Stat(filepath.Join(dir, DefaultConfigFile)); err != nil {
		t.Fatalf("expected config written: %v", err)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigFile)
	data := `{"publisher": {"kind": "nats", "nats": {"hosts": ["nats://a:4222"]}}, "identity": {"region": "west"}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Publisher.Kind != PublisherNATS || cfg.Publisher.NATS.Hosts[0] != "nats://a:4222" {
		t.Fatalf("overlay lost: %+v", cfg.Publisher)
	}
	if cfg.Publisher.Codec != "json" || cfg.Scheduler.SnapshotInterval != 30 {
		t.Fatal("defaults lost for fields absent from the file")
	}

	saved, _ := os.ReadFile(path)
	if !strings.Contains(string(saved), "snapshot_interval_sec") {
		t.Fatal("expected re-save to add new default fields")
	}
}

func TestLoadRejectsBadJSON(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("{"), 0644)
	if _, err := Load(dir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateDefaults(t *testing.T) {
	result := Validate(DefaultConfig())
	if !result.IsValid() {
		t.Fatalf("default config invalid: %v", result.Errors)
	}
}

func TestValidateErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capture.Mode = "tap"
	cfg.Publisher.Kind = "kafka"
	cfg.Publisher.Codec = "xml"
	cfg.Dispatch.MaxInFlight = 0
	cfg.API.Port = 70000

	result := Validate(cfg)
	fields := map[string]bool{}
	for _, e := range result.Errors {
		fields[e.Field] = true
	}
	for _, want := range []string{"capture.mode", "publisher.kind", "publisher.codec", "dispatch.max_in_flight", "api.port"} {
		if !fields[want] {
			t.Fatalf("expected error for %s, got %v", want, result.Errors)
		}
	}
}

func TestValidateMQTT(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Publisher.Kind = PublisherMQTT
	cfg.Publisher.MQTT.QoS = 3
	cfg.Publisher.MQTT.BrokerURL = ""

	result := Validate(cfg)
	if len(result.Errors) != 2 {
		t.Fatalf("expected broker and qos errors, got %v", result.Errors)
	}
}
