// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UnitsAdded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_units_added_total",
			Help: "Total number of units added to inspection sessions",
		},
		[]string{"inspection"},
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_submissions_total",
			Help: "Total number of session submissions by outcome",
		},
		[]string{"inspection", "outcome"},
	)

	UnitPosts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_unit_posts_total",
			Help: "Total number of per-unit create-record calls by result",
		},
		[]string{"inspection", "result"},
	)

	SubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "inspection_submission_duration_seconds",
			Help: "Duration of a full session submission in seconds",
		},
		[]string{"inspection"},
	)

	DraftDiscards = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_draft_discards_total",
			Help: "Draft values discarded because they were corrupt or from another schema version",
		},
		[]string{"reason"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)
