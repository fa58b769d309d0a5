package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cellcore.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "plant_id: test-cell\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PlantID != "test-cell" {
		t.Fatalf("plant_id = %q", cfg.PlantID)
	}
	if len(cfg.Plant.Warehouses) != 3 || len(cfg.Plant.Conveyors) != 3 {
		t.Fatalf("defaults not applied: %d warehouses, %d conveyors",
			len(cfg.Plant.Warehouses), len(cfg.Plant.Conveyors))
	}
	if cfg.Monitor.HealthInterval() != 30*time.Second {
		t.Fatalf("health interval = %v", cfg.Monitor.HealthInterval())
	}
	if cfg.Feed.PollTimeout() != time.Second {
		t.Fatalf("poll timeout = %v", cfg.Feed.PollTimeout())
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
feed:
  reconnect_interval_s: 5
monitor:
  auto_restock: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("driver = %q", cfg.Database.Driver)
	}
	if cfg.Feed.ReconnectInterval() != 5*time.Second {
		t.Fatalf("reconnect interval = %v", cfg.Feed.ReconnectInterval())
	}
	if cfg.Monitor.AutoRestock {
		t.Fatal("auto_restock override not applied")
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad driver", func(c *Config) { c.Database.Driver = "oracle" }},
		{"bad backend", func(c *Config) { c.Messaging.Backend = "amqp" }},
		{"no warehouses", func(c *Config) { c.Plant.Warehouses = nil }},
		{"no conveyors", func(c *Config) { c.Plant.Conveyors = nil }},
		{"zero buffer cap", func(c *Config) { c.Plant.Conveyors[0].BufferCap = 0 }},
	}
	for _, tc := range cases {
		cfg := Default()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
