package compute

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/obsidianstack/regionstats/pkg/types"
	"github.com/obsidianstack/regionstats/server/internal/dataset"
)

// Rounding applied to reported values.
const (
	LatencyPlaces = 4
	UptimePlaces  = 6
)

// p95 is the rank used for RegionMetrics.P95Latency.
const p95 = 0.95

// ForRegion computes the statistics for region. Matching is exact after
// trimming and lowercasing; there is no substring or fuzzy match.
func ForRegion(ds *dataset.Dataset, region string, thresholdMs float64) types.RegionMetrics {
	return Summarize(ds.Region(region), thresholdMs)
}

// Summarize computes the statistics for an already-matched set of records.
func Summarize(records []types.Record, thresholdMs float64) types.RegionMetrics {
	if len(records) == 0 {
		return types.RegionMetrics{}
	}

	latencies := make([]float64, len(records))
	var (
		latencySum float64
		uptimeSum  float64
		uptimeN    int
		breaches   int
	)
	for i, r := range records {
		latencies[i] = r.LatencyMs
		latencySum += r.LatencyMs
		if r.LatencyMs > thresholdMs {
			breaches++
		}
		if r.Uptime != nil {
			uptimeSum += *r.Uptime
			uptimeN++
		}
	}

	out := types.RegionMetrics{
		AvgLatency: Round(latencySum/float64(len(records)), LatencyPlaces),
		P95Latency: Round(Percentile(latencies, p95), LatencyPlaces),
		Breaches:   breaches,
	}
	if uptimeN > 0 {
		out.AvgUptime = Round(uptimeSum/float64(uptimeN), UptimePlaces)
	}
	return out
}

// Percentile returns the nearest-rank percentile q (0 < q <= 1) of values:
// the element at sorted index ceil(q*n)-1, clamped to [0, n-1]. It returns 0
// for an empty slice and does not modify values.
func Percentile(values []float64, q float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(math.Ceil(q*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}

// Round rounds v to the given number of decimal places, half away from zero.
// Non-finite values are returned unchanged.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
