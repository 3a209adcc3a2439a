// Package types defines the Go types shared by the dataset loader, the
// metrics engine and the REST API. They are the canonical in-memory shapes
// of telemetry records and per-region statistics, separate from the JSON
// request/response envelopes in server/internal/api.
package types
