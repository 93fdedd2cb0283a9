package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	gatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paras",
			Name:      "gateway_requests_total",
			Help:      "Gateway HTTP requests by endpoint and status class.",
		},
		[]string{"endpoint", "status"},
	)

	upstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paras",
			Name:      "upstream_requests_total",
			Help:      "Remote PARAS API calls by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	validationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "paras",
			Name:      "window_validation_failures_total",
			Help:      "Loan windows rejected by client-side rules.",
		},
	)

	loanTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paras",
			Name:      "loan_transitions_total",
			Help:      "Confirmed loan status transitions by action.",
		},
		[]string{"action"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(gatewayRequests, upstreamRequests, validationFailures, loanTransitions)
	})
}

// IncGateway counts a served gateway request.
func IncGateway(endpoint, status string) {
	gatewayRequests.WithLabelValues(endpoint, status).Inc()
}

// IncUpstream counts a remote API call outcome ("ok" or "error").
func IncUpstream(operation, outcome string) {
	upstreamRequests.WithLabelValues(operation, outcome).Inc()
}

// IncValidationFailure counts a window rejected before any request was sent.
func IncValidationFailure() {
	validationFailures.Inc()
}

// IncTransition counts a confirmed status transition.
func IncTransition(action string) {
	loanTransitions.WithLabelValues(action).Inc()
}
