package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for a monitor run.
type Metrics struct {
	registry *prometheus.Registry

	SitesChecked    prometheus.Counter
	SiteFailures    *prometheus.CounterVec // labels: stage={current,historical,statistics}
	Classifications *prometheus.CounterVec // labels: severity
	ExtremeSites    prometheus.Gauge
	LastRunSuccess  prometheus.Gauge
	LastRunUnixTime prometheus.Gauge

	// Upstream request metrics.
	FetchRequests *prometheus.CounterVec   // labels: service={site,iv,dv}, outcome={success,empty,error}
	FetchDuration *prometheus.HistogramVec // labels: service

	// Alert publishing metrics.
	AlertsPublished prometheus.Counter
	AlertErrors     prometheus.Counter
}

// NewMetrics creates all monitor metrics on a dedicated registry. A run is a
// short-lived process, so metrics are exported by WriteTextfile rather than
// scraped.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SitesChecked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "river_monitor",
			Name:      "sites_checked_total",
			Help:      "Sites processed in this run.",
		}),
		SiteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "river_monitor",
			Name:      "site_failures_total",
			Help:      "Sites that could not be classified, by failing stage.",
		}, []string{"stage"}),
		Classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "river_monitor",
			Name:      "classifications_total",
			Help:      "Classified sites by severity.",
		}, []string{"severity"}),
		ExtremeSites: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "river_monitor",
			Name:      "extreme_sites",
			Help:      "Sites whose severity is not NORMAL in the last run.",
		}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "river_monitor",
			Name:      "last_run_success",
			Help:      "1 when the last run classified at least one site, 0 otherwise.",
		}),
		LastRunUnixTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "river_monitor",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "river_monitor",
			Name:      "fetch_requests_total",
			Help:      "NWIS requests by service and outcome.",
		}, []string{"service", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "river_monitor",
			Name:      "fetch_duration_seconds",
			Help:      "NWIS request duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"service"}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "river_monitor",
			Name:      "alerts_published_total",
			Help:      "Alerts written to the alert topic.",
		}),
		AlertErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "river_monitor",
			Name:      "alert_errors_total",
			Help:      "Alerts that failed to publish.",
		}),
	}

	m.registry.MustRegister(
		m.SitesChecked,
		m.SiteFailures,
		m.Classifications,
		m.ExtremeSites,
		m.LastRunSuccess,
		m.LastRunUnixTime,
		m.FetchRequests,
		m.FetchDuration,
		m.AlertsPublished,
		m.AlertErrors,
	)

	return m
}

// Gatherer exposes the registry, mainly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes all metrics in the text exposition format for the
// node_exporter textfile collector. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
