package knowledge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mentor_pipeline_runs_total",
		Help: "Total content generation runs by outcome",
	}, []string{"outcome"})

	pipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mentor_pipeline_duration_seconds",
		Help:    "Content generation duration",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
	})

	quizGrades = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mentor_quiz_grades_total",
		Help: "Total graded quiz answers by type and status",
	}, []string{"type", "status"})

	motivationToasts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mentor_motivation_toasts_total",
		Help: "Total motivation toasts shown",
	})
)
