// Package metrics holds the Prometheus instruments of the notification pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Settlement outcomes
const (
	OutcomeAcked        = "acked"
	OutcomeRetried      = "retried"
	OutcomeDeadLettered = "dead_lettered"
	OutcomeDropped      = "dropped"

	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

var (
	// JobsSettled counts consumed jobs by queue and how they were settled
	JobsSettled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_jobs_settled_total",
			Help: "Consumed jobs by queue and settlement outcome",
		},
		[]string{"queue", "outcome"},
	)

	// HandlerDuration observes how long job handlers run
	HandlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notify_job_handler_duration_seconds",
			Help:    "Job handler execution time by queue",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"queue"},
	)

	// DirectJobs counts jobs executed in-process without the broker
	DirectJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_direct_jobs_total",
			Help: "Jobs run in direct mode by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// EnqueueFallbacks counts broker enqueue failures that fell back to direct execution
	EnqueueFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_enqueue_fallbacks_total",
			Help: "Broker enqueue failures handed to the direct path, by kind",
		},
		[]string{"kind"},
	)

	// DeadLetterDepth reports the ready messages in each dead-letter queue
	DeadLetterDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "notify_dead_letter_queue_depth",
			Help: "Messages waiting in a dead-letter queue",
		},
		[]string{"queue"},
	)
)
