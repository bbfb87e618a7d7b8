package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all metrics for one index session. Each session gets its
// own registry so several sessions can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	VectorInserts prometheus.Counter
	SearchQueries prometheus.Counter
	SearchErrors  prometheus.Counter
	SearchLatency prometheus.Histogram

	PoolHits       prometheus.Counter
	PoolMisses     prometheus.Counter
	PoolEvictions  prometheus.Counter
	PoolWriteBacks prometheus.Counter
	Flushes        prometheus.Counter
}

// NewMetrics creates a metrics instance backed by a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		VectorInserts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tinyworld_vector_inserts_total",
			Help: "Total vector insertions",
		}),
		SearchQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tinyworld_search_queries_total",
			Help: "Total search queries",
		}),
		SearchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tinyworld_search_errors_total",
			Help: "Total search errors",
		}),
		SearchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "tinyworld_search_latency_seconds",
			Help: "Search latency",
		}),
		PoolHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tinyworld_pool_hits_total",
			Help: "Vector pool reads served from a resident frame",
		}),
		PoolMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tinyworld_pool_misses_total",
			Help: "Vector pool reads that paged in from disk",
		}),
		PoolEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tinyworld_pool_evictions_total",
			Help: "Pages evicted from the vector pool",
		}),
		PoolWriteBacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tinyworld_pool_write_backs_total",
			Help: "Dirty frames written back to disk",
		}),
		Flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tinyworld_flushes_total",
			Help: "Explicit flushes of the session",
		}),
	}
	m.registry.MustRegister(
		m.VectorInserts, m.SearchQueries, m.SearchErrors, m.SearchLatency,
		m.PoolHits, m.PoolMisses, m.PoolEvictions, m.PoolWriteBacks, m.Flushes,
	)
	return m
}

// Registry exposes the session registry, e.g. for an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// The nil-safe helpers below let callers hold a nil *Metrics when
// metrics are disabled.

func (m *Metrics) IncPoolHit() {
	if m != nil {
		m.PoolHits.Inc()
	}
}

func (m *Metrics) IncPoolMiss() {
	if m != nil {
		m.PoolMisses.Inc()
	}
}

func (m *Metrics) IncPoolEviction() {
	if m != nil {
		m.PoolEvictions.Inc()
	}
}

func (m *Metrics) IncPoolWriteBack() {
	if m != nil {
		m.PoolWriteBacks.Inc()
	}
}
