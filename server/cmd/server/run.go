package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/obsidianstack/regionstats/server/internal/api"
	"github.com/obsidianstack/regionstats/server/internal/config"
	"github.com/obsidianstack/regionstats/server/internal/dataset"
	"github.com/obsidianstack/regionstats/server/internal/observability"
)

// settings resolves the config file and applies CLI overrides on top of it.
func settings(c *cli.Context) (*config.Config, string, error) {
	path := c.String("config")
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, path, err
	}
	if c.IsSet("port") {
		cfg.Server.HTTPPort = c.Int("port")
	}
	if paths := c.StringSlice("dataset"); len(paths) > 0 {
		cfg.Server.Dataset.Paths = paths
	}
	if err := config.Validate(cfg); err != nil {
		return nil, path, fmt.Errorf("server config: %w", err)
	}
	return cfg, path, nil
}

// setupLogging installs the default slog logger. The returned LevelVar lets
// config reloads change verbosity without rebuilding the handler.
func setupLogging(w io.Writer, lc config.LogConfig) *slog.LevelVar {
	level := new(slog.LevelVar)
	level.Set(lc.SlogLevel())
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if lc.Format == "text" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
	return level
}

// loadDataset loads from the configured paths, or the built-in candidates
// when none are configured.
func loadDataset(cfg *config.Config) (*dataset.Dataset, error) {
	paths := cfg.Server.Dataset.Paths
	if len(paths) == 0 {
		paths = dataset.Candidates(dataset.ExecutableDir())
	}
	return dataset.Load(paths)
}

func rejectedByReason(ds *dataset.Dataset) map[string]int {
	out := make(map[string]int)
	for reason, n := range ds.Rejections() {
		out[string(reason)] = n
	}
	return out
}

func serveAction(c *cli.Context) error {
	cfg, path, err := settings(c)
	if err != nil {
		return err
	}
	level := setupLogging(os.Stdout, cfg.Server.Log)

	slog.Info("regionstats-server starting",
		"config", path,
		"http_port", cfg.Server.HTTPPort,
		"tracing", cfg.Server.Tracing.Enabled,
	)

	ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tc := cfg.Server.Tracing
	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     tc.Enabled,
		ServiceName: tc.ServiceName,
		Exporter:    tc.Exporter,
		Endpoint:    tc.Endpoint,
		SampleRatio: tc.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing)

	// A dataset that cannot be loaded is fatal: nothing listens.
	ds, err := loadDataset(cfg)
	if err != nil {
		slog.Error("failed to load dataset", "err", err)
		return err
	}

	collector, err := observability.NewCollector(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	collector.SetDataset(ds.Len(), len(ds.Regions()), rejectedByReason(ds))

	if _, statErr := os.Stat(path); statErr == nil {
		go func() {
			err := config.Watch(ctx, path, func(next *config.Config) {
				level.Set(next.Server.Log.SlogLevel())
				slog.Info("config reloaded", "log_level", next.Server.Log.Level)
			})
			if err != nil {
				slog.Warn("config watch stopped", "path", path, "err", err)
			}
		}()
	}

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: api.New(ds, api.Options{
			Collector:      collector,
			AllowedOrigins: cfg.Server.CORS.AllowedOrigins,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort, "records", ds.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			slog.Error("HTTP server stopped", "err", err)
			return err
		}
	}

	slog.Info("regionstats-server shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", "err", err)
	}
	return nil
}

// checkSummary is what `check` prints.
type checkSummary struct {
	Source   string         `json:"source"`
	Encoding string         `json:"encoding"`
	Records  int            `json:"records"`
	Regions  []string       `json:"regions"`
	Rejected map[string]int `json:"rejected"`
}

func checkAction(c *cli.Context) error {
	cfg, _, err := settings(c)
	if err != nil {
		return err
	}
	setupLogging(c.App.ErrWriter, cfg.Server.Log)

	ds, err := loadDataset(cfg)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(checkSummary{
		Source:   ds.Source(),
		Encoding: ds.Encoding().String(),
		Records:  ds.Len(),
		Regions:  ds.Regions(),
		Rejected: rejectedByReason(ds),
	})
}
