package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	path := writeTemp(t, "config.json", `{
		"logging": {"level": "debug", "console": true},
		"broker": {"max_active": 500, "max_per_second": 5},
		"storage": {"driver": "sqlite", "path": "./state.db", "busy_timeout": "2s"},
		"identity": {"apps": [
			{"bundle": "app1", "uid": 42},
			{"bundle": "sysapp", "uid": 99, "system_app": true}
		]},
		"distributed": {"enabled": true, "device_id": "devA", "retry_base": "250ms"},
		"sweeper": {"enabled": true, "schedule": "@every 30s"}
	}`)

	m := NewConfigManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.Broker.MaxActive != 500 || cfg.Broker.MaxPerSecond != 5 {
		t.Fatalf("broker = %+v", cfg.Broker)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if d, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil || d != 2*time.Second {
		t.Fatalf("busy_timeout = %v, %v", d, err)
	}
	if len(cfg.Identity.Apps) != 2 || !cfg.Identity.Apps[1].SystemApp {
		t.Fatalf("identity = %+v", cfg.Identity)
	}
	if !cfg.Distributed.Enabled || cfg.Distributed.DeviceID != "devA" {
		t.Fatalf("distributed = %+v", cfg.Distributed)
	}
	if cfg.Sweeper.Schedule != "@every 30s" {
		t.Fatalf("sweeper = %+v", cfg.Sweeper)
	}

	if got := m.Get(); got != cfg {
		t.Fatal("Get did not return the committed config")
	}
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	path := writeTemp(t, "config.yaml", `
logging:
  level: info
  console: false
broker:
  max_active_per_app: 50
storage:
  driver: redis
  addr: 127.0.0.1:6379
  namespace: nb
identity:
  apps:
    - bundle: app1
      uid: 42
`)

	cfg, err := NewConfigManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "info" || cfg.Broker.MaxActivePerApp != 50 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Storage.Driver != "redis" || cfg.Storage.Namespace != "nb" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	t.Parallel()
	path := writeTemp(t, "config.json", `{"logging": {"level": "info"}, "telemetry": {}}`)
	if _, err := NewConfigManager(path).Parse(); err == nil {
		t.Fatal("unknown top-level key accepted")
	}

	path = writeTemp(t, "config.yaml", "broker:\n  max_queue: 7\n")
	if _, err := NewConfigManager(path).Parse(); err == nil {
		t.Fatal("unknown nested yaml key accepted")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeTemp(t, "config.json", `{"logging": {"level": "info"}}{"extra": true}`)
	if _, err := NewConfigManager(path).Parse(); err == nil {
		t.Fatal("trailing JSON document accepted")
	}
}

func TestSubscribePublish(t *testing.T) {
	t.Parallel()
	path := writeTemp(t, "config.json", `{"logging": {"level": "info"}}`)
	m := NewConfigManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	m.publish(cfg)
	select {
	case got := <-ch:
		if got != cfg {
			t.Fatal("wrong config delivered")
		}
	default:
		t.Fatal("no config delivered")
	}

	// A slow subscriber keeps only the newest value.
	older := &Config{}
	newer := &Config{}
	m.publish(older)
	m.publish(newer)
	select {
	case got := <-ch:
		if got != newer {
			t.Fatal("stale config delivered after overflow")
		}
	default:
		t.Fatal("nothing delivered after overflow")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	if _, err := ParseDurationField("x", "nonsense"); err == nil {
		t.Fatal("bad duration accepted")
	}
	d, err := ParseDurationOrDefault("x", "", 3*time.Second)
	if err != nil || d != 3*time.Second {
		t.Fatalf("default = %v, %v", d, err)
	}
}
