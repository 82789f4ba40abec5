package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cfg := DefaultConfig()
	if cfg.Bus.InputTopic != "river_pipeline" || cfg.Bus.MetricsTopic != "river_metrics" {
		t.Fatalf("unexpected default topics: %+v", cfg.Bus)
	}
	if cfg.Monitor.Threshold != 0.60 {
		t.Fatalf("default threshold = %v, want 0.60", cfg.Monitor.Threshold)
	}
	if cfg.Learner.PositiveClass != 0 {
		t.Fatalf("default positive class = %d, want 0", cfg.Learner.PositiveClass)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"kafka without brokers", func(c *Config) { c.Bus.Brokers = nil }},
		{"unknown driver", func(c *Config) { c.Bus.Driver = "rabbit" }},
		{"same topics", func(c *Config) { c.Bus.MetricsTopic = c.Bus.InputTopic }},
		{"threshold above one", func(c *Config) { c.Monitor.Threshold = 1.5 }},
		{"positive class outside classes", func(c *Config) { c.Learner.PositiveClass = 7 }},
		{"api without addr", func(c *Config) { c.API.Enabled = true; c.API.Addr = "" }},
		{"no dataset", func(c *Config) { c.Publisher.Dataset = "" }},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(cfg)
		if err := Validate(cfg); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "driftwatch.yaml")
	content := `
log_level: debug
bus:
  driver: memory
monitor:
  threshold: 0.75
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.Bus.Driver != "memory" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Monitor.Threshold != 0.75 {
		t.Fatalf("threshold = %v, want 0.75", cfg.Monitor.Threshold)
	}
	// Untouched sections keep their defaults.
	if cfg.Bus.InputTopic != "river_pipeline" {
		t.Fatalf("default topic lost: %q", cfg.Bus.InputTopic)
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "driftwatch.json")
	content := `{"monitor":{"threshold":0.5},"bus":{"driver":"memory"}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Monitor.Threshold != 0.5 {
		t.Fatalf("threshold = %v, want 0.5", cfg.Monitor.Threshold)
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Monitor.Threshold != 0.60 {
		t.Fatalf("expected defaults, got %+v", cfg.Monitor)
	}
}
