package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors exported by the process. Each instance owns
// its own registry so tests can create isolated sets.
type Metrics struct {
	Registry *prometheus.Registry

	// WakeAttempts counts wake_up requests sent to the vehicle API.
	WakeAttempts prometheus.Counter

	// WakeOutcomes counts finished wake loops by outcome (online / gave_up / error).
	WakeOutcomes *prometheus.CounterVec

	// Runs counts scheduled runs by result (published / gave_up / skipped / failed).
	Runs *prometheus.CounterVec

	// PublishTotal counts display pushes by status (success / failed).
	PublishTotal *prometheus.CounterVec

	// APILatency records request latency per upstream API call.
	APILatency *prometheus.HistogramVec

	// BatteryLevel holds the last fetched battery level in percent.
	BatteryLevel prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		WakeAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tesla_lametric_wake_attempts_total",
			Help: "Total number of wake_up requests sent to the vehicle API.",
		}),
		WakeOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tesla_lametric_wake_outcomes_total",
			Help: "Finished wake loops by outcome.",
		}, []string{"outcome"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tesla_lametric_runs_total",
			Help: "Scheduled runs by result.",
		}, []string{"result"}),
		PublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tesla_lametric_publish_total",
			Help: "Display pushes by status.",
		}, []string{"status"}),
		APILatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tesla_lametric_api_latency_seconds",
			Help:    "Latency of upstream API calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"call"}),
		BatteryLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tesla_lametric_battery_level_percent",
			Help: "Battery level reported by the last charge_state fetch.",
		}),
	}

	m.Registry = prometheus.NewRegistry()
	m.Registry.MustRegister(
		m.WakeAttempts,
		m.WakeOutcomes,
		m.Runs,
		m.PublishTotal,
		m.APILatency,
		m.BatteryLevel,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
