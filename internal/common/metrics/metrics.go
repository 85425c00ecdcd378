package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuotesComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_quotes_computed_total",
			Help: "Total number of loan quotes computed",
		},
		[]string{"loan_type"},
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_submissions_total",
			Help: "Total number of application submissions by outcome",
		},
		[]string{"outcome"},
	)

	CRMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crm_request_duration_seconds",
			Help:    "Duration of CRM requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	FallbackWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_writes_total",
			Help: "Total number of leads written to the local fallback store",
		},
		[]string{"backend", "result"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total number of submissions rejected by the rate limiter",
		},
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

func ObserveCRMRequest(result string, d time.Duration) {
	CRMRequestDuration.WithLabelValues(result).Observe(d.Seconds())
}
