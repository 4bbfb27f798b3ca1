// Package metrics holds the Prometheus collectors for kalshidash. All
// recording methods are safe on a nil *Metrics so components can treat
// metrics as optional.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kalshidash"

// Scan outcomes.
const (
	ScanCompleted  = "completed"
	ScanSuperseded = "superseded"
	ScanFailed     = "failed"
)

// Metrics is a private registry plus the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	breakerState     *prometheus.GaugeVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	scans         *prometheus.CounterVec
	scanDuration  prometheus.Histogram
	fetchFailures prometheus.Counter

	universeMarkets prometheus.Gauge
	universeEvents  prometheus.Gauge
	mispriced       prometheus.Gauge

	httpRequests *prometheus.CounterVec
	wsClients    prometheus.Gauge
}

// New creates a Metrics with its own registry, including the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		upstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Upstream REST requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		upstreamLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Upstream REST request latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		breakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open).",
		}, []string{"name"}),

		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Snapshot cache hits by kind.",
		}, []string{"kind"}),
		cacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Snapshot cache misses by kind.",
		}, []string{"kind"}),

		scans: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "runs_total",
			Help:      "Related-market scans by outcome.",
		}, []string{"outcome"}),
		scanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Wall time of completed scans.",
			Buckets:   prometheus.DefBuckets,
		}),
		fetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "fetch_failures_total",
			Help:      "Per-market supplementary fetches that failed during scans.",
		}),

		universeMarkets: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "universe",
			Name:      "markets",
			Help:      "Markets in the loaded universe.",
		}),
		universeEvents: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "universe",
			Name:      "events",
			Help:      "Events in the loaded universe.",
		}),
		mispriced: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "arbitrage",
			Name:      "mispriced_events",
			Help:      "Events currently flagged as mispriced.",
		}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests by method and status code.",
		}, []string{"method", "code"}),
		wsClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Connected WebSocket clients.",
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveUpstream records one upstream request.
func (m *Metrics) ObserveUpstream(endpoint, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	m.upstreamLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

// SetBreakerState records a circuit breaker transition.
func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(float64(state))
}

// CacheHit counts a snapshot cache hit for kind.
func (m *Metrics) CacheHit(kind string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(kind).Inc()
}

// CacheMiss counts a snapshot cache miss for kind.
func (m *Metrics) CacheMiss(kind string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(kind).Inc()
}

// ScanFinished records a scan outcome. Duration is observed for completed
// scans only.
func (m *Metrics) ScanFinished(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(outcome).Inc()
	if outcome == ScanCompleted {
		m.scanDuration.Observe(d.Seconds())
	}
}

// FetchFailed counts one failed supplementary fetch.
func (m *Metrics) FetchFailed() {
	if m == nil {
		return
	}
	m.fetchFailures.Inc()
}

// SetUniverse records the size of the loaded universe.
func (m *Metrics) SetUniverse(events, markets int) {
	if m == nil {
		return
	}
	m.universeEvents.Set(float64(events))
	m.universeMarkets.Set(float64(markets))
}

// SetMispriced records how many events are currently mispriced.
func (m *Metrics) SetMispriced(n int) {
	if m == nil {
		return
	}
	m.mispriced.Set(float64(n))
}

// HTTPRequest counts one served API request.
func (m *Metrics) HTTPRequest(method, code string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, code).Inc()
}

// WSClientDelta adjusts the connected WebSocket client gauge.
func (m *Metrics) WSClientDelta(delta int) {
	if m == nil {
		return
	}
	m.wsClients.Add(float64(delta))
}
