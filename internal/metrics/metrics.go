// Package metrics exposes Prometheus collectors for the folio service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scrapeProjectsTotal        *prometheus.CounterVec
	probeFailuresTotal         *prometheus.CounterVec
	refreshTotal               *prometheus.CounterVec
	snapshotProjects           prometheus.Gauge
	snapshotAgeSeconds         prometheus.Gauge
	shareCardsTotal            *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scrapeProjectsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_scrape_projects_total",
				Help: "Projects seen per scrape pass, labeled by outcome (ok, skipped).",
			},
			[]string{"outcome"},
		)

		probeFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_probe_failures_total",
				Help: "Media items whose dimension or content resolution failed, by kind.",
			},
			[]string{"kind"},
		)

		refreshTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_refresh_total",
				Help: "Snapshot refresh attempts, labeled by mode (cold, background, forced) and outcome.",
			},
			[]string{"mode", "outcome"},
		)

		snapshotProjects = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "folio_snapshot_projects",
				Help: "Number of projects in the current snapshot.",
			},
		)

		snapshotAgeSeconds = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "folio_snapshot_age_seconds",
				Help: "Age of the snapshot at the time it was last served.",
			},
		)

		shareCardsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_share_cards_total",
				Help: "Share card requests, labeled by scope and cache result (hit, miss).",
			},
			[]string{"scope", "cache"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveProject counts one project seen during a scrape pass.
func ObserveProject(outcome string) {
	if scrapeProjectsTotal == nil {
		return
	}
	scrapeProjectsTotal.WithLabelValues(outcome).Inc()
}

// ObserveProbeFailure counts a failed media probe.
func ObserveProbeFailure(kind string) {
	if probeFailuresTotal == nil {
		return
	}
	probeFailuresTotal.WithLabelValues(kind).Inc()
}

// ObserveRefresh counts one refresh attempt.
func ObserveRefresh(mode, outcome string) {
	if refreshTotal == nil {
		return
	}
	refreshTotal.WithLabelValues(mode, outcome).Inc()
}

// SetSnapshot records the size and age of the snapshot being served.
func SetSnapshot(projects int, age time.Duration) {
	if snapshotProjects == nil {
		return
	}
	snapshotProjects.Set(float64(projects))
	snapshotAgeSeconds.Set(age.Seconds())
}

// ObserveShareCard counts one share card request.
func ObserveShareCard(scope string, hit bool) {
	if shareCardsTotal == nil {
		return
	}
	cache := "miss"
	if hit {
		cache = "hit"
	}
	shareCardsTotal.WithLabelValues(scope, cache).Inc()
}
