package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// weather monitor.
type Metrics struct {
	PollsTotal         *prometheus.CounterVec // labels: trigger={initial,manual,auto}, outcome={success,network_error,status_error,malformed_response,error}
	FetchDuration      prometheus.Histogram
	ActiveAlerts       prometheus.Gauge
	StrongAlertSignals prometheus.Counter
	AutoRefreshEnabled prometheus.Gauge
	LastSuccessTime    prometheus.Gauge
}

// NewMetrics creates and registers all monitor metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		PollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_monitor",
			Name:      "polls_total",
			Help:      "Completed polls by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_monitor",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a single forecast API request.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		ActiveAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_monitor",
			Name:      "active_alerts",
			Help:      "Number of alerts derived from the most recent reading.",
		}),
		StrongAlertSignals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_monitor",
			Name:      "strong_alert_signals_total",
			Help:      "Strong-alert side-channel events fired for high-severity alerts.",
		}),
		AutoRefreshEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_monitor",
			Name:      "auto_refresh_enabled",
			Help:      "1 when the recurring poll timer is enabled, 0 otherwise.",
		}),
		LastSuccessTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_monitor",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the most recent successful poll.",
		}),
	}

	prometheus.MustRegister(
		m.PollsTotal,
		m.FetchDuration,
		m.ActiveAlerts,
		m.StrongAlertSignals,
		m.AutoRefreshEnabled,
		m.LastSuccessTime,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		PollsTotal:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "weather_monitor", Name: "polls_total"}, []string{"trigger", "outcome"}),
		FetchDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "weather_monitor", Name: "fetch_duration_seconds"}),
		ActiveAlerts:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "weather_monitor", Name: "active_alerts"}),
		StrongAlertSignals: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_monitor", Name: "strong_alert_signals_total"}),
		AutoRefreshEnabled: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "weather_monitor", Name: "auto_refresh_enabled"}),
		LastSuccessTime:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "weather_monitor", Name: "last_success_timestamp_seconds"}),
	}
}
