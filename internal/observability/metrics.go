package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// discovery service.
type Metrics struct {
	QueriesTotal        *prometheus.CounterVec // labels: outcome={success,invalid,error}
	CacheHits           prometheus.Counter
	CacheMisses         prometheus.Counter
	CacheEvictions      prometheus.Counter
	CacheStaleMarked    prometheus.Counter
	NormalizationErrors *prometheus.CounterVec // labels: provider
	SubmissionsTotal    *prometheus.CounterVec // labels: path={direct,queued,rejected}
	DrainOutcomes       *prometheus.CounterVec // labels: outcome={succeeded,failed}

	CacheSize  prometheus.Gauge
	IndexSize  prometheus.Gauge
	QueueDepth prometheus.Gauge

	QueryDuration    prometheus.Histogram
	ProviderDuration *prometheus.HistogramVec // labels: provider
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facility_discovery",
			Name:      "queries_total",
			Help:      "Discovery queries by outcome.",
		}, []string{"outcome"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "facility_discovery",
			Name:      "cache_hits_total",
			Help:      "Cache lookups that found an entry.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "facility_discovery",
			Name:      "cache_misses_total",
			Help:      "Cache lookups that found nothing.",
		}),
		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "facility_discovery",
			Name:      "cache_evictions_total",
			Help:      "Entries evicted to hold the cache capacity bound.",
		}),
		CacheStaleMarked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "facility_discovery",
			Name:      "cache_stale_marked_total",
			Help:      "Entries marked stale by the TTL sweep.",
		}),
		NormalizationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facility_discovery",
			Name:      "normalization_errors_total",
			Help:      "Raw records rejected during normalization, by provider.",
		}, []string{"provider"}),
		SubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facility_discovery",
			Name:      "submissions_total",
			Help:      "User submissions by delivery path.",
		}, []string{"path"}),
		DrainOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facility_discovery",
			Name:      "queue_drain_total",
			Help:      "Offline queue drain deliveries by outcome.",
		}, []string{"outcome"}),
		CacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "facility_discovery",
			Name:      "cache_size",
			Help:      "Current number of cached facilities.",
		}),
		IndexSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "facility_discovery",
			Name:      "index_size",
			Help:      "Current number of indexed facilities.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "facility_discovery",
			Name:      "offline_queue_depth",
			Help:      "Submissions waiting in the offline queue.",
		}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "facility_discovery",
			Name:      "query_duration_seconds",
			Help:      "Duration of a discovery query end to end.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "facility_discovery",
			Name:      "provider_request_duration_seconds",
			Help:      "Remote provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
	}

	prometheus.MustRegister(
		m.QueriesTotal,
		m.CacheHits,
		m.CacheMisses,
		m.CacheEvictions,
		m.CacheStaleMarked,
		m.NormalizationErrors,
		m.SubmissionsTotal,
		m.DrainOutcomes,
		m.CacheSize,
		m.IndexSize,
		m.QueueDepth,
		m.QueryDuration,
		m.ProviderDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		QueriesTotal:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "facility_discovery", Name: "queries_total"}, []string{"outcome"}),
		CacheHits:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: "facility_discovery", Name: "cache_hits_total"}),
		CacheMisses:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "facility_discovery", Name: "cache_misses_total"}),
		CacheEvictions:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "facility_discovery", Name: "cache_evictions_total"}),
		CacheStaleMarked:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "facility_discovery", Name: "cache_stale_marked_total"}),
		NormalizationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "facility_discovery", Name: "normalization_errors_total"}, []string{"provider"}),
		SubmissionsTotal:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "facility_discovery", Name: "submissions_total"}, []string{"path"}),
		DrainOutcomes:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "facility_discovery", Name: "queue_drain_total"}, []string{"outcome"}),
		CacheSize:           prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "facility_discovery", Name: "cache_size"}),
		IndexSize:           prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "facility_discovery", Name: "index_size"}),
		QueueDepth:          prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "facility_discovery", Name: "offline_queue_depth"}),
		QueryDuration:       prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "facility_discovery", Name: "query_duration_seconds"}),
		ProviderDuration:    prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "facility_discovery", Name: "provider_request_duration_seconds"}, []string{"provider"}),
	}
}
