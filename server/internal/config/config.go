package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort        = 8080
	DefaultShutdownTimeout = 10 * time.Second
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultTracingExporter = "stdout"
	DefaultServiceName     = "regionstats-server"
)

// Config holds the server-side configuration parsed from the `server:`
// section of the config file.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API and /metrics listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// ShutdownTimeout bounds graceful HTTP shutdown (default 10s).
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	Dataset DatasetConfig `yaml:"dataset"`
	Log     LogConfig     `yaml:"log"`
	Tracing TracingConfig `yaml:"tracing"`
	CORS    CORSConfig    `yaml:"cors"`
}

// DatasetConfig says where the telemetry file lives.
type DatasetConfig struct {
	// Paths replaces the built-in candidate list when non-empty. The first
	// path that exists is loaded.
	Paths []string `yaml:"paths"`
}

// LogConfig controls the slog handler installed at startup.
type LogConfig struct {
	// Level is one of: debug | info | warn | error. Reloaded on config change.
	Level string `yaml:"level"`

	// Format is one of: json | text. Applied at startup only.
	Format string `yaml:"format"`
}

// TracingConfig governs OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"` // stdout | otlp
	Endpoint    string  `yaml:"endpoint"` // otlp gRPC endpoint, default localhost:4317
	SampleRatio float64 `yaml:"sample_ratio"`
	ServiceName string  `yaml:"service_name"`
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// SlogLevel maps Level onto a slog.Level. Unknown values fall back to info;
// validate rejects them before that matters.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads and parses the config file at path.
// Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load but returns Defaults when path does not
// exist. The server runs without a config file.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Defaults(), nil
	}
	return cfg, err
}

// Defaults returns a Config pre-populated with default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        DefaultHTTPPort,
			ShutdownTimeout: DefaultShutdownTimeout,
			Log: LogConfig{
				Level:  DefaultLogLevel,
				Format: DefaultLogFormat,
			},
			Tracing: TracingConfig{
				Exporter:    DefaultTracingExporter,
				SampleRatio: 1.0,
				ServiceName: DefaultServiceName,
			},
			CORS: CORSConfig{
				AllowedOrigins: []string{"*"},
			},
		},
	}
}

// Validate checks structural constraints; callers that patch a loaded config
// (CLI overrides) run it again.
func Validate(cfg *Config) error { return validate(cfg) }

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	if s.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must not be negative")
	}
	switch strings.ToLower(s.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("server.log.level %q unknown: want debug|info|warn|error", s.Log.Level)
	}
	switch strings.ToLower(s.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("server.log.format %q unknown: want json|text", s.Log.Format)
	}
	switch strings.ToLower(s.Tracing.Exporter) {
	case "stdout", "otlp", "otlpgrpc":
	default:
		return fmt.Errorf("server.tracing.exporter %q unknown: want stdout|otlp", s.Tracing.Exporter)
	}
	if s.Tracing.SampleRatio < 0 || s.Tracing.SampleRatio > 1 {
		return fmt.Errorf("server.tracing.sample_ratio %v is out of range [0, 1]", s.Tracing.SampleRatio)
	}
	for i, p := range s.Dataset.Paths {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("server.dataset.paths[%d] is empty", i)
		}
	}
	return nil
}
