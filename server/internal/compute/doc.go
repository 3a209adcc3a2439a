// Package compute derives per-region latency and uptime statistics from the
// loaded dataset.
//
// ForRegion(ds, region, thresholdMs) is a pure function over the immutable
// dataset and is safe to call from any number of goroutines:
//
//	avg_latency  mean latency of matching records            (4 dp)
//	p95_latency  nearest-rank 95th percentile, not interpolated (4 dp)
//	avg_uptime   mean uptime over records that carry one        (6 dp)
//	breaches     records with latency strictly above threshold
//
// A region with no matching records yields all zeros.
package compute
