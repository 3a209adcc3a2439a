package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	// Server section absent entirely.
	p := writeConfig(t, `other:
  key: value
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
	if cfg.Server.ShutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("shutdown_timeout: got %v, want %v", cfg.Server.ShutdownTimeout, DefaultShutdownTimeout)
	}
	if cfg.Server.Log.Level != DefaultLogLevel || cfg.Server.Log.Format != DefaultLogFormat {
		t.Errorf("log: got %+v", cfg.Server.Log)
	}
	if cfg.Server.Tracing.Enabled {
		t.Error("tracing.enabled: got true, want false")
	}
	if !reflect.DeepEqual(cfg.Server.CORS.AllowedOrigins, []string{"*"}) {
		t.Errorf("cors.allowed_origins: got %v, want [*]", cfg.Server.CORS.AllowedOrigins)
	}
	if len(cfg.Server.Dataset.Paths) != 0 {
		t.Errorf("dataset.paths: got %v, want empty", cfg.Server.Dataset.Paths)
	}
}

func TestLoad_FullServer(t *testing.T) {
	p := writeConfig(t, `server:
  http_port: 9091
  shutdown_timeout: 3s
  dataset:
    paths: ["/srv/data/telemetry.jsonl", "telemetry.json"]
  log:
    level: debug
    format: text
  tracing:
    enabled: true
    exporter: otlp
    endpoint: collector:4317
    sample_ratio: 0.25
  cors:
    allowed_origins: ["https://dash.example.com"]
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Server
	if s.HTTPPort != 9091 {
		t.Errorf("http_port: got %d, want 9091", s.HTTPPort)
	}
	if s.ShutdownTimeout != 3*time.Second {
		t.Errorf("shutdown_timeout: got %v, want 3s", s.ShutdownTimeout)
	}
	if len(s.Dataset.Paths) != 2 || s.Dataset.Paths[0] != "/srv/data/telemetry.jsonl" {
		t.Errorf("dataset.paths: got %v", s.Dataset.Paths)
	}
	if s.Log.SlogLevel() != slog.LevelDebug {
		t.Errorf("log level: got %v, want debug", s.Log.SlogLevel())
	}
	if !s.Tracing.Enabled || s.Tracing.Exporter != "otlp" || s.Tracing.SampleRatio != 0.25 {
		t.Errorf("tracing: got %+v", s.Tracing)
	}
	if s.Tracing.ServiceName != DefaultServiceName {
		t.Errorf("tracing.service_name: got %q, want default", s.Tracing.ServiceName)
	}
	if !reflect.DeepEqual(s.CORS.AllowedOrigins, []string{"https://dash.example.com"}) {
		t.Errorf("cors.allowed_origins: got %v", s.CORS.AllowedOrigins)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"port out of range":  "server:\n  http_port: 70000\n",
		"unknown log level":  "server:\n  log:\n    level: chatty\n",
		"unknown log format": "server:\n  log:\n    format: xml\n",
		"unknown exporter":   "server:\n  tracing:\n    exporter: zipkin\n",
		"bad sample ratio":   "server:\n  tracing:\n    sample_ratio: 1.5\n",
		"empty dataset path": "server:\n  dataset:\n    paths: [\"\"]\n",
		"negative timeout":   "server:\n  shutdown_timeout: -1s\n",
		"malformed yaml":     "server: [\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, content)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want default", cfg.Server.HTTPPort)
	}
}

func TestLoadOrDefault_InvalidFileStillFails(t *testing.T) {
	if _, err := LoadOrDefault(writeConfig(t, "server:\n  http_port: 0\n")); err == nil {
		t.Fatal("expected validation error, got nil")
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := (LogConfig{Level: in}).SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	p := writeConfig(t, "server:\n  log:\n    level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, p, func(c *Config) {
			select {
			case got <- c:
			default:
			}
		})
	}()

	// Keep rewriting until the watcher picks a change up; the first write can
	// race the watcher registration, and a truncate may surface as an empty
	// (all defaults) reload before the new content lands.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case c := <-got:
			if c.Server.Log.Level != "debug" {
				continue
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Watch returned %v", err)
			}
			return
		case <-tick.C:
			if err := os.WriteFile(p, []byte("server:\n  log:\n    level: debug\n"), 0o600); err != nil {
				t.Fatalf("rewrite config: %v", err)
			}
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"), func(*Config) {})
	if err == nil {
		t.Fatal("expected error watching a missing file, got nil")
	}
}
