package instrumentation

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status values for metric labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds the collectors for the application. Each instance owns its
// registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	apiCallsTotal   *prometheus.CounterVec
	apiCallDuration *prometheus.HistogramVec
	gridRenders     *prometheus.CounterVec
	refreshTotal    *prometheus.CounterVec
	cachedEvents    prometheus.Gauge
}

// NewMetrics creates and registers all collectors, including the Go and
// process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		apiCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classcal_api_calls_total",
			Help: "Total number of platform API calls.",
		}, []string{"operation", "status"}),
		apiCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "classcal_api_call_duration_seconds",
			Help:    "Platform API call duration in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		gridRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classcal_grid_renders_total",
			Help: "Total number of calendar grids generated.",
		}, []string{"mode"}),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classcal_event_refresh_total",
			Help: "Total number of event list refreshes.",
		}, []string{"trigger", "status"}),
		cachedEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "classcal_cached_events",
			Help: "Number of events in the in-memory cache.",
		}),
	}

	m.registry.MustRegister(
		m.apiCallsTotal,
		m.apiCallDuration,
		m.gridRenders,
		m.refreshTotal,
		m.cachedEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveAPICall records one platform API call.
func (m *Metrics) ObserveAPICall(operation string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.apiCallsTotal.WithLabelValues(operation, statusOf(err)).Inc()
	m.apiCallDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveGrid records one grid generation.
func (m *Metrics) ObserveGrid(mode string) {
	if m == nil {
		return
	}
	m.gridRenders.WithLabelValues(mode).Inc()
}

// ObserveRefresh records a refresh and the resulting cache size.
func (m *Metrics) ObserveRefresh(trigger string, err error, cached int) {
	if m == nil {
		return
	}
	m.refreshTotal.WithLabelValues(trigger, statusOf(err)).Inc()
	if err == nil {
		m.cachedEvents.Set(float64(cached))
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func statusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
