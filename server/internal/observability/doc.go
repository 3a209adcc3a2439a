// Package observability wires Prometheus metrics and OpenTelemetry tracing
// for regionstats-server.
//
// Collector registers the HTTP request counter and latency histogram, the
// dataset gauges set once after load, and the per-request region and
// validation counters. Handler() serves them on /metrics.
//
// InitTracing installs a tracer provider (stdout or OTLP gRPC exporter) or a
// noop provider when tracing is disabled, and returns a shutdown func.
package observability
