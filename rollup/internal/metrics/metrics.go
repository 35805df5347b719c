package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Field compatibility resolution
	FieldResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollup_wizard_field_resolutions_total",
			Help: "Field compatibility resolutions by result (ok, empty, error)",
		},
		[]string{"result"},
	)

	FieldResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rollup_wizard_field_resolution_duration_seconds",
			Help:    "Duration of field metadata fetch and intersection",
			Buckets: prometheus.DefBuckets,
		},
	)

	MatchedIndices = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rollup_wizard_matched_indices",
			Help:    "Number of concrete indices matched by a source pattern",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	StaleResolutions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rollup_wizard_stale_resolutions_total",
			Help: "Field resolutions discarded because the source pattern changed",
		},
	)

	// Step gating
	StepTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollup_wizard_step_transitions_total",
			Help: "Wizard step transition attempts",
		},
		[]string{"from", "to", "result"},
	)

	// Submission
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollup_wizard_submissions_total",
			Help: "Rollup job submissions by action and result",
		},
		[]string{"action", "result"},
	)

	SubmissionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rollup_wizard_submission_duration_seconds",
			Help:    "Duration of rollup job submissions",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Sessions
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rollup_wizard_active_sessions",
			Help: "Wizard sessions opened and not yet submitted or cancelled",
		},
	)
)
