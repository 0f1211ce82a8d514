// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConversationStepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_steps_total",
			Help: "Total number of decision unit steps executed",
		},
		[]string{"unit"},
	)

	ConversationTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_turns_total",
			Help: "Total number of conversation turns by outcome",
		},
		[]string{"outcome"},
	)

	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "conversation_step_duration_seconds",
			Help: "Duration of a single decision unit step in seconds",
		},
		[]string{"unit"},
	)

	StepsPerTurn = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "conversation_steps_per_turn",
			Help:    "Number of unit steps taken to settle one turn",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "conversation_active_sessions",
			Help: "Number of sessions currently held open",
		},
	)

	CollaboratorCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collaborator_calls_total",
			Help: "Total calls to unit collaborators by status",
		},
		[]string{"collaborator", "status"},
	)
)
