package types

// Record is one normalized telemetry sample. Records are created once during
// dataset load and never modified afterwards.
type Record struct {
	// Region is lowercased and trimmed; never empty.
	Region string

	// LatencyMs is the observed request latency in milliseconds.
	LatencyMs float64

	// Uptime is the availability ratio in [0, 1]. Nil means the source row
	// carried no usable uptime value; such records are left out of uptime
	// averages rather than counted as zero.
	Uptime *float64
}

// HasUptime reports whether the record carries an uptime value.
func (r Record) HasUptime() bool { return r.Uptime != nil }

// RegionMetrics is the aggregate computed for one region on demand.
type RegionMetrics struct {
	AvgLatency float64 `json:"avg_latency"`
	P95Latency float64 `json:"p95_latency"`
	AvgUptime  float64 `json:"avg_uptime"`
	Breaches   int     `json:"breaches"`
}
