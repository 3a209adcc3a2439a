package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the server's Prometheus metrics. A nil *Collector is
// valid and records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	Requests         *prometheus.CounterVec
	Durations        *prometheus.HistogramVec
	RegionQueries    *prometheus.CounterVec
	ValidationErrors prometheus.Counter

	DatasetRecords  prometheus.Gauge
	DatasetRegions  prometheus.Gauge
	DatasetRejected *prometheus.GaugeVec
}

// NewCollector registers the metrics against reg, defaulting to the global
// Prometheus registry when nil. Registering twice against the same registry
// returns the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "regionstats_http_requests_total",
		Help: "Total HTTP requests, labeled by route, method, and status code.",
	}, []string{"route", "method", "code"}), "regionstats_http_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "regionstats_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"route", "method"}), "regionstats_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	regionQueries, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "regionstats_region_queries_total",
		Help: "Regions computed, labeled by whether any record matched.",
	}, []string{"matched"}), "regionstats_region_queries_total")
	if err != nil {
		return nil, err
	}

	validation, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "regionstats_validation_errors_total",
		Help: "Requests rejected before computation because the body was invalid.",
	}), "regionstats_validation_errors_total")
	if err != nil {
		return nil, err
	}

	records, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "regionstats_dataset_records",
		Help: "Telemetry records held in the loaded dataset.",
	}), "regionstats_dataset_records")
	if err != nil {
		return nil, err
	}

	regions, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "regionstats_dataset_regions",
		Help: "Distinct regions in the loaded dataset.",
	}), "regionstats_dataset_regions")
	if err != nil {
		return nil, err
	}

	rejected, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "regionstats_dataset_rows_rejected",
		Help: "Rows dropped while loading the dataset, labeled by reason.",
	}, []string{"reason"}), "regionstats_dataset_rows_rejected")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:         gatherer,
		Requests:         requests,
		Durations:        durations,
		RegionQueries:    regionQueries,
		ValidationErrors: validation,
		DatasetRecords:   records,
		DatasetRegions:   regions,
		DatasetRejected:  rejected,
	}, nil
}

// ObserveRequest records one finished HTTP request.
func (c *Collector) ObserveRequest(route, method string, code int, d time.Duration) {
	if c == nil {
		return
	}
	c.Requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	c.Durations.WithLabelValues(route, method).Observe(d.Seconds())
}

// ObserveRegion records one region computation.
func (c *Collector) ObserveRegion(matched bool) {
	if c == nil {
		return
	}
	c.RegionQueries.WithLabelValues(strconv.FormatBool(matched)).Inc()
}

// ObserveValidationError records a rejected request body.
func (c *Collector) ObserveValidationError() {
	if c == nil {
		return
	}
	c.ValidationErrors.Inc()
}

// SetDataset publishes the dataset shape. Called once after load.
func (c *Collector) SetDataset(records, regions int, rejected map[string]int) {
	if c == nil {
		return
	}
	c.DatasetRecords.Set(float64(records))
	c.DatasetRegions.Set(float64(regions))
	for reason, n := range rejected {
		c.DatasetRejected.WithLabelValues(reason).Set(float64(n))
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	if c == nil || c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// register adds col to reg, returning the already-registered collector of
// the same type when one exists.
func register[T prometheus.Collector](reg prometheus.Registerer, col T, name string) (T, error) {
	if err := reg.Register(col); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return col, nil
}
