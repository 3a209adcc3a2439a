package api

import (
	"bytes"
	"encoding/json"

	"github.com/obsidianstack/regionstats/pkg/types"
)

// MetricsRequest is the body of POST /api/v1/metrics.
type MetricsRequest struct {
	Regions []string `json:"regions"`

	// ThresholdMs is a pointer so a missing field is distinguishable from 0.
	ThresholdMs *float64 `json:"threshold_ms"`
}

// MetricsResponse is the payload for POST /api/v1/metrics.
type MetricsResponse struct {
	Regions RegionResults `json:"regions"`
}

// RegionResults maps each requested region string, exactly as the caller
// sent it, to its statistics. Keys marshal in first-request order.
type RegionResults struct {
	keys   []string
	values map[string]types.RegionMetrics
}

// Set stores m under key. A repeated key keeps its original position.
func (r *RegionResults) Set(key string, m types.RegionMetrics) {
	if r.values == nil {
		r.values = make(map[string]types.RegionMetrics)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = m
}

// Get returns the statistics stored under key.
func (r RegionResults) Get(key string) (types.RegionMetrics, bool) {
	m, ok := r.values[key]
	return m, ok
}

// Len returns the number of distinct keys.
func (r RegionResults) Len() int { return len(r.keys) }

// MarshalJSON writes a JSON object with keys in insertion order.
func (r RegionResults) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// HealthResponse is the payload for GET /health and GET /api/v1/health.
type HealthResponse struct {
	OK      bool `json:"ok"`
	Records int  `json:"records"`
}

// DatasetResponse is the payload for GET /api/v1/dataset.
type DatasetResponse struct {
	Source   string         `json:"source"`
	Encoding string         `json:"encoding"`
	Records  int            `json:"records"`
	Regions  []string       `json:"regions"`
	Rejected map[string]int `json:"rejected"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
