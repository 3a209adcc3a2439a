package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/obsidianstack/regionstats/server/internal/compute"
	"github.com/obsidianstack/regionstats/server/internal/dataset"
	"github.com/obsidianstack/regionstats/server/internal/observability"
)

// maxBodyBytes bounds a metrics request body.
const maxBodyBytes = 1 << 20

// Options carries the optional collaborators of the handler.
type Options struct {
	// Collector records request metrics and serves GET /metrics. Nil
	// disables both.
	Collector *observability.Collector

	// AllowedOrigins configures CORS; empty means any origin.
	AllowedOrigins []string
}

// Handler is the HTTP handler for the REST API. It answers from a dataset
// that is loaded before the handler is built and never changes afterwards.
type Handler struct {
	ds      *dataset.Dataset
	metrics *observability.Collector
	router  chi.Router
}

// ValidationError is a client error in a request body. It is reported as
// 400 before any computation runs.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// New creates a Handler answering from ds and registers all routes.
func New(ds *dataset.Dataset, opts Options) http.Handler {
	h := &Handler{ds: ds, metrics: opts.Collector, router: chi.NewRouter()}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := h.router
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(h.instrument)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", h.health)
	r.Get("/api/v1/health", h.health)
	r.Get("/api/v1/dataset", h.datasetInfo)
	r.Post("/api/v1/metrics", h.regionMetrics)
	r.Post("/api/metrics", h.regionMetrics)
	if opts.Collector != nil {
		r.Method(http.MethodGet, "/metrics", opts.Collector.Handler())
	}

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /health: liveness plus the loaded record count.
func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, HealthResponse{OK: true, Records: h.ds.Len()})
}

// datasetInfo returns GET /api/v1/dataset: where the data came from and
// what was dropped while loading it.
func (h *Handler) datasetInfo(w http.ResponseWriter, _ *http.Request) {
	rejected := make(map[string]int)
	for reason, n := range h.ds.Rejections() {
		rejected[string(reason)] = n
	}
	jsonResp(w, http.StatusOK, DatasetResponse{
		Source:   h.ds.Source(),
		Encoding: h.ds.Encoding().String(),
		Records:  h.ds.Len(),
		Regions:  h.ds.Regions(),
		Rejected: rejected,
	})
}

// regionMetrics returns POST /api/v1/metrics: statistics for every
// requested region, keyed by the region string as sent.
func (h *Handler) regionMetrics(w http.ResponseWriter, r *http.Request) {
	req, err := decodeMetricsRequest(w, r)
	if err != nil {
		h.metrics.ObserveValidationError()
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	threshold := *req.ThresholdMs

	ctx := r.Context()
	var resp MetricsResponse
	for _, region := range req.Regions {
		_, span := observability.Tracer().Start(ctx, "compute.region",
			trace.WithAttributes(
				attribute.String("region", region),
				attribute.Float64("threshold_ms", threshold),
			))
		records := h.ds.Region(region)
		m := compute.Summarize(records, threshold)
		span.SetAttributes(
			attribute.Int("records", len(records)),
			attribute.Int("breaches", m.Breaches),
		)
		span.End()

		h.metrics.ObserveRegion(len(records) > 0)
		resp.Regions.Set(region, m)
	}

	jsonResp(w, http.StatusOK, resp)
}

// decodeMetricsRequest parses and validates the request body.
func decodeMetricsRequest(w http.ResponseWriter, r *http.Request) (*MetricsRequest, error) {
	var req MetricsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, &ValidationError{Field: "body", Msg: fmt.Sprintf("exceeds %d bytes", maxBodyBytes)}
		}
		return nil, &ValidationError{Field: "body", Msg: "invalid JSON: " + err.Error()}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// Validate checks that regions is non-empty and threshold_ms is positive.
func (req *MetricsRequest) Validate() error {
	if len(req.Regions) == 0 {
		return &ValidationError{Field: "regions", Msg: "must be a non-empty list of strings"}
	}
	if req.ThresholdMs == nil {
		return &ValidationError{Field: "threshold_ms", Msg: "is required"}
	}
	if *req.ThresholdMs <= 0 {
		return &ValidationError{Field: "threshold_ms", Msg: "must be greater than 0"}
	}
	return nil
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// routePattern returns the matched chi route, or "unmatched".
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
