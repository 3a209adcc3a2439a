// Package api implements the HTTP REST API for regionstats-server.
//
// New(dataset, opts) returns an http.Handler that serves:
//
//	POST /api/v1/metrics   per-region statistics (alias: POST /api/metrics)
//	GET  /api/v1/dataset   dataset source, encoding, regions, rejected rows
//	GET  /api/v1/health    liveness and record count (alias: GET /health)
//	GET  /metrics          Prometheus exposition, when a collector is set
//
// The metrics body is {"regions": [...], "threshold_ms": n}. An empty region
// list or a threshold that is missing or not positive is answered with 400
// before anything is computed. Each region is computed independently and
// keyed in the response by the exact string the caller sent; regions with no
// data come back as zeros.
//
// All responses are JSON, carry an X-Request-ID header, and allow CORS from
// the configured origins. Unknown paths get 404 and wrong methods 405.
package api
