// Package metrics declares the prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConversationTurns counts turns by the step they started in and how they ended.
	ConversationTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinebot_conversation_turns_total",
			Help: "Total number of conversation turns",
		},
		[]string{"step", "outcome"},
	)

	ClassificationScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cinebot_classification_score",
			Help:    "Cosine similarity of the best matching genre",
			Buckets: prometheus.LinearBuckets(-0.2, 0.1, 13), // -0.2 .. 1.0
		},
	)

	// ExternalRequestDuration tracks calls to the embedding and metadata providers.
	ExternalRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinebot_external_request_duration_seconds",
			Help:    "Duration of outbound provider calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "operation", "status"},
	)

	GenreCacheRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinebot_genre_cache_refreshes_total",
			Help: "Provider genre map refreshes by result",
		},
		[]string{"result"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cinebot_sessions_active",
			Help: "Sessions held by the in-memory store",
		},
	)

	SessionsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinebot_sessions_evicted_total",
			Help: "Sessions evicted after exceeding the idle timeout",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cinebot_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// Status returns the status label for an outbound call result.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
