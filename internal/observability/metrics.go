package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "identity",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "identity",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})

	HTTPErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "identity",
		Name:      "http_errors_total",
		Help:      "Total HTTP error responses, by error code.",
	}, []string{"path", "method", "code"})

	// Auth metrics

	LoginAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "identity",
		Name:      "login_attempts_total",
		Help:      "Total login attempts, by outcome.",
	}, []string{"outcome"})

	TokensIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "identity",
		Name:      "tokens_issued_total",
		Help:      "Total bearer tokens issued, by flow.",
	}, []string{"flow"})

	// Queue metrics

	QueueMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "identity",
		Name:      "queue_messages_total",
		Help:      "Total queue messages processed, by outcome.",
	}, []string{"outcome"})
)

// RegisterMetrics registers all collectors against the given registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestDuration,
		HTTPRequestsTotal,
		HTTPErrorsTotal,
		LoginAttemptsTotal,
		TokensIssuedTotal,
		QueueMessagesTotal,
	)
}
