package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/staffline/boond-sync/internal/resilience"
	"github.com/staffline/boond-sync/pkg/boond"
)

// Metrics exposes BoondManager traffic and reconciliation outcomes to
// Prometheus. A nil *Metrics records nothing.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	SyncRecords     *prometheus.CounterVec
	SyncRuns        *prometheus.CounterVec
	SyncRunDuration prometheus.Histogram
	BreakerState    *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers every metric on reg. Pass a fresh
// prometheus.NewRegistry() in tests.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "boond_requests_total",
			Help: "BoondManager API requests by environment, operation and status code (0 when no response arrived)",
		}, []string{"environment", "operation", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "boond_request_duration_seconds",
			Help:    "Duration of BoondManager API requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"environment", "operation"}),
		SyncRecords: f.NewCounterVec(prometheus.CounterOpts{
			Name: "boond_sync_records_total",
			Help: "Reconciled records by resource type and outcome",
		}, []string{"type", "outcome"}),
		SyncRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "boond_sync_runs_total",
			Help: "Production to sandbox runs by final status",
		}, []string{"status"}),
		SyncRunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "boond_sync_run_duration_seconds",
			Help:    "Duration of production to sandbox runs",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "boond_circuit_state",
			Help: "Circuit breaker state per environment (0 closed, 1 open, 2 half-open)",
		}, []string{"environment"}),
		gatherer: reg,
	}
}

// ObserveRequest matches boond.ObserveFunc.
func (m *Metrics) ObserveRequest(env boond.Environment, operation string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(string(env), operation, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(string(env), operation).Observe(elapsed.Seconds())
}

// RecordOutcome adds n records of rt to an outcome bucket.
func (m *Metrics) RecordOutcome(rt boond.ResourceType, outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SyncRecords.WithLabelValues(string(rt), outcome).Add(float64(n))
}

// RecordRun counts a finished run.
func (m *Metrics) RecordRun(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SyncRuns.WithLabelValues(status).Inc()
	m.SyncRunDuration.Observe(elapsed.Seconds())
}

// BreakerChanged matches the resilience.Breakers observer.
func (m *Metrics) BreakerChanged(environment string, _, to resilience.CircuitState) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(environment).Set(float64(to))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
