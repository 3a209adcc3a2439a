// Package config loads the server configuration from the `server:` section
// of a YAML file.
//
// Config fields:
//   - HTTPPort               REST API and /metrics port (default 8080)
//   - ShutdownTimeout        graceful shutdown bound (default 10s)
//   - Dataset.Paths          dataset candidates; empty means built-in list
//   - Log.Level / Log.Format slog level (reloadable) and handler (json|text)
//   - Tracing.*              OpenTelemetry exporter settings (off by default)
//   - CORS.AllowedOrigins    browser origins (default "*")
//
// Load(path) applies defaults before unmarshalling, then validates.
// LoadOrDefault tolerates a missing file. Watch reloads on file change.
package config
