// Package metrics содержит счётчики Prometheus сервиса рефиллиа.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	StationsSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "refillia_stations_submitted_total", Help: "Total station submissions"},
	)
	ModerationDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "refillia_moderation_decisions_total", Help: "Total moderation decisions"},
		[]string{"decision"},
	)
	FeedbackGiven = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "refillia_feedback_total", Help: "Total feedback submissions"},
	)
	RefillSettlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "refillia_refill_settlements_total", Help: "Total settled refill confirmations"},
		[]string{"outcome"},
	)
	PointsAwarded = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "refillia_points_awarded_total", Help: "Total points credited to user profiles"},
	)
)

// Register регистрирует счётчики в реестре по умолчанию.
func Register() {
	prometheus.MustRegister(StationsSubmitted, ModerationDecisions, FeedbackGiven, RefillSettlements, PointsAwarded)
}
