// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "foodtracker"

var (
	// MealsCommitted counts meals accepted by the meal book, by mode
	// ("add" or "edit").
	MealsCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "meals_committed_total",
		Help:      "Meals committed from an entry form.",
	}, []string{"mode"})

	// ArchiveSkipped counts persisted records dropped during a load because
	// they failed to decode or validate.
	ArchiveSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "archive_skipped_records_total",
		Help:      "Malformed meal records skipped while loading an archive.",
	}, []string{"backend"})

	// FormSessionsOpen is the number of entry forms currently open.
	FormSessionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "form_sessions_open",
		Help:      "Entry form sessions currently open.",
	})

	// HTTPRequests counts served requests by chi route pattern, so
	// /api/forms/{id} is one series rather than one per session.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served.",
	}, []string{"route", "method", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
