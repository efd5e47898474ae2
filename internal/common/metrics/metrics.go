// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
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

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	StageTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "case_stage_transitions_total",
			Help: "Routing decisions by source and target stage",
		},
		[]string{"from", "to"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "case_stage_duration_seconds",
			Help:    "Time spent in a stage collaborator call",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"stage", "outcome"},
	)

	CaseRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "case_runs_total",
			Help: "Completed case runs by terminal status",
		},
		[]string{"status"},
	)

	IdentityConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "identity_match_confidence",
			Help:    "Confidence of the top identity candidate",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	RoutingAnomalies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routing_anomalies_total",
			Help: "Histories that fell through to the indeterminate rule",
		},
		[]string{"last_stage"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "records_cache_lookups_total",
			Help: "Reference data cache lookups by tier and result",
		},
		[]string{"tier", "result"},
	)
)
