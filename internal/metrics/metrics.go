package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"trueneutral/internal/domain"
)

var (
	// Query Metrics
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_queries_total",
			Help: "Total number of recommendation queries by outcome",
		},
		[]string{"source", "outcome"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_query_duration_seconds",
			Help:    "Recommendation query duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		},
		[]string{"source"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Scrape Metrics
	ScrapeFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_fetches_total",
			Help: "Total number of page fetches by result (ok, cached, error, breaker_open)",
		},
		[]string{"result"},
	)

	ScrapeFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scrape_fetch_duration_seconds",
			Help:    "Duration of uncached page fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// RecordQuery records the outcome of one recommendation query.
// source is the surface that issued it: http, cli, tui or mcp.
func RecordQuery(source string, duration time.Duration, err error) {
	QueriesTotal.WithLabelValues(source, QueryOutcome(err)).Inc()
	QueryDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// QueryOutcome maps a query error onto a low-cardinality label.
func QueryOutcome(err error) string {
	var invalid *domain.InvalidQueryError
	var unknown *domain.UnknownTitleError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &invalid):
		return "invalid"
	case errors.As(err, &unknown):
		return "unknown_title"
	default:
		return "error"
	}
}

func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func RecordFetch(result string, duration time.Duration) {
	ScrapeFetchesTotal.WithLabelValues(result).Inc()
	if result == "ok" || result == "error" {
		ScrapeFetchDuration.Observe(duration.Seconds())
	}
}
