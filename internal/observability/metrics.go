package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	requestsTotal         *prometheus.CounterVec
	latencySeconds        *prometheus.HistogramVec
	errorsTotal           *prometheus.CounterVec
	assignmentsCreated    prometheus.Counter
	reviewsSubmittedTotal *prometheus.CounterVec
	scoresPublishedTotal  prometheus.Counter
	eventsDroppedTotal    *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the cross-check API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crosscheck_requests_total",
			Help: "Total number of cross-check API requests served.",
		}, []string{"method", "route", "status"})

		latencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crosscheck_latency_seconds",
			Help:    "Latency distribution for cross-check API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crosscheck_errors_total",
			Help: "Total number of error responses returned by cross-check endpoints.",
		}, []string{"method", "route", "status"})

		assignmentsCreated = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crosscheck_assignments_created_total",
			Help: "Number of checker assignments created by distribution runs.",
		})

		reviewsSubmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crosscheck_reviews_submitted_total",
			Help: "Number of review submissions, split by first submission and revision.",
		}, []string{"kind"})

		scoresPublishedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crosscheck_scores_published_total",
			Help: "Number of final cross-check scores written to task results.",
		})

		eventsDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crosscheck_events_dropped_total",
			Help: "Score events that could not be delivered to a broker.",
		}, []string{"broker"})

		prometheus.MustRegister(
			requestsTotal,
			latencySeconds,
			errorsTotal,
			assignmentsCreated,
			reviewsSubmittedTotal,
			scoresPublishedTotal,
			eventsDroppedTotal,
		)
	})
}

// Requests exposes the counter for cross-check requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the latency histogram for cross-check requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return latencySeconds
}

// Errors exposes the counter for cross-check error responses.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return errorsTotal
}

// AssignmentsCreated counts assignments produced by distribution.
func AssignmentsCreated() prometheus.Counter {
	RegisterMetrics()
	return assignmentsCreated
}

// ReviewsSubmitted counts review submissions by kind ("created" or "revised").
func ReviewsSubmitted() *prometheus.CounterVec {
	RegisterMetrics()
	return reviewsSubmittedTotal
}

// ScoresPublished counts final scores written during completion.
func ScoresPublished() prometheus.Counter {
	RegisterMetrics()
	return scoresPublishedTotal
}

// EventsDropped counts undeliverable score events per broker.
func EventsDropped() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsDroppedTotal
}
