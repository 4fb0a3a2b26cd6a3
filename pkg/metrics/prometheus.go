package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetches        *prometheus.CounterVec
	providerErrors *prometheus.CounterVec
	cacheResults   *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	widgets        prometheus.Gauge
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder registered on reg.
// A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		fetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finboard_fetches_total",
				Help: "Market data fetches by kind and source (cache, demo, live)",
			},
			[]string{"kind", "source"},
		),
		providerErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finboard_provider_errors_total",
				Help: "Normalized provider errors by provider and code",
			},
			[]string{"provider", "code"},
		),
		cacheResults: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finboard_cache_lookups_total",
				Help: "Response cache lookups by kind and result",
			},
			[]string{"kind", "result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finboard_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		widgets: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "finboard_widgets",
				Help: "Number of widgets on the dashboard",
			},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finboard_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordFetch records a served quote or series and where it came from.
func (r *Recorder) RecordFetch(kind, source string) {
	r.fetches.WithLabelValues(kind, source).Inc()
}

// RecordProviderError records a normalized provider failure.
func (r *Recorder) RecordProviderError(provider, code string) {
	r.providerErrors.WithLabelValues(provider, code).Inc()
}

// RecordCacheResult records a cache hit or miss.
func (r *Recorder) RecordCacheResult(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheResults.WithLabelValues(kind, result).Inc()
}

// RecordWidgetCount sets the widget gauge.
func (r *Recorder) RecordWidgetCount(n int) {
	r.widgets.Set(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordFetch(string, string)         {}
func (Nop) RecordProviderError(string, string) {}
func (Nop) RecordCacheResult(string, bool)     {}
func (Nop) RecordWidgetCount(int)              {}
func (Nop) RecordError(string)                 {}
func (Nop) RecordLatency(string, float64)      {}
