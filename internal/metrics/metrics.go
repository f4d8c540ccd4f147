package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Backend API metrics
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suimarket_api_requests_total",
			Help: "Total number of backend API requests",
		},
		[]string{"endpoint", "status"}, // /contracts, success/error
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "suimarket_api_request_duration_seconds",
			Help:    "Duration of backend API requests",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	// Chain RPC metrics
	RPCCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suimarket_rpc_calls_total",
			Help: "Total number of Sui JSON-RPC calls",
		},
		[]string{"method", "status"},
	)

	RPCCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "suimarket_rpc_call_duration_seconds",
			Help:    "Duration of Sui JSON-RPC calls",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method"},
	)

	// User actions
	Actions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suimarket_actions_total",
			Help: "Total number of user actions by kind and outcome",
		},
		[]string{"action", "status"}, // bet/create/resolve/favorite, success/rejected/error
	)

	SettleWaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "suimarket_settle_wait_duration_seconds",
			Help:    "Time spent waiting for the indexer to reflect an action",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 40},
		},
		[]string{"action", "settled"},
	)

	StaleResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suimarket_stale_responses_total",
			Help: "Responses discarded because a newer request superseded them",
		},
		[]string{"resource"},
	)

	// Watch mode
	OddsMoves = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "suimarket_odds_moves_total",
			Help: "Outcome percentage changes observed between polls",
		},
	)

	NoticesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "suimarket_notices_dropped_total",
			Help: "Watch notices skipped because the notice rate was exceeded",
		},
	)

	HealthChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suimarket_health_checks_total",
			Help: "Total number of health check requests",
		},
		[]string{"status"}, // healthy/unhealthy
	)
)

// RecordAPIRequest records backend request metrics
func RecordAPIRequest(endpoint string, duration time.Duration, err error) {
	APIRequests.WithLabelValues(endpoint, statusOf(err)).Inc()
	APIRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordRPCCall records chain RPC metrics
func RecordRPCCall(method string, duration time.Duration, err error) {
	RPCCalls.WithLabelValues(method, statusOf(err)).Inc()
	RPCCallDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordAction records the outcome of a user action
func RecordAction(action, status string) {
	Actions.WithLabelValues(action, status).Inc()
}

// RecordSettleWait records how long a settle wait took and whether it settled
func RecordSettleWait(action string, duration time.Duration, settled bool) {
	label := "true"
	if !settled {
		label = "false"
	}
	SettleWaitDuration.WithLabelValues(action, label).Observe(duration.Seconds())
}

// RecordStaleResponse counts a discarded response
func RecordStaleResponse(resource string) {
	StaleResponses.WithLabelValues(resource).Inc()
}

// RecordOddsMoves counts outcome percentage changes seen in one poll
func RecordOddsMoves(n int) {
	OddsMoves.Add(float64(n))
}

// RecordNoticeDropped counts a notice skipped by the watch rate limit
func RecordNoticeDropped() {
	NoticesDropped.Inc()
}

// RecordHealthCheck records health check status
func RecordHealthCheck(healthy bool) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	HealthChecks.WithLabelValues(status).Inc()
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
