// Package observability provides metrics, tracing, and audit logging.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthOutcomes counts authentication attempts by outcome
	// (authenticated, malformed, invalid, missing).
	AuthOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_auth_outcomes_total",
		Help: "Total number of authentication attempts by outcome",
	}, []string{"outcome"})

	// ReactionToggles counts reaction toggles by target type and action.
	ReactionToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_reaction_toggles_total",
		Help: "Total number of reaction toggles by target and action",
	}, []string{"target", "action"})

	// TokensIssued counts issued session tokens.
	TokensIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_tokens_issued_total",
		Help: "Total number of session tokens issued",
	})

	// TokensRevoked counts revoked session tokens by reason category.
	TokensRevoked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_tokens_revoked_total",
		Help: "Total number of session tokens revoked",
	}, []string{"scope"})

	// PermissionDenials counts authorization denials by resource type.
	PermissionDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_permission_denials_total",
		Help: "Total number of authorization denials by resource type",
	}, []string{"resource"})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkwell_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// ObserveQuery records the latency of a database query that started at start.
func ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}
