package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all scheduler metrics
type Metrics struct {
	// Due-processing metrics
	ScanCycles        prometheus.Counter
	RemindersDue      prometheus.Histogram
	DeliveryAttempts  *prometheus.CounterVec
	DeliveryLatency   *prometheus.HistogramVec
	SnoozeResets      prometheus.Counter
	ClaimsSkipped     prometheus.Counter
	SubscriptionsLost prometheus.Counter

	// Recurrence metrics
	OccurrencesCreated prometheus.Counter
	DuplicatesSkipped  prometheus.Counter
	SeriesTerminated   prometheus.Counter

	// Cleanup metrics
	RemindersPurged *prometheus.CounterVec
	SharesExpired   prometheus.Counter

	// Task metrics
	TaskRuns     *prometheus.CounterVec
	TaskDuration *prometheus.HistogramVec
}

// New creates and registers all scheduler metrics under the given namespace
// on the default registerer.
func New(namespace string) *Metrics {
	return NewWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the metrics on an explicit registerer, which keeps
// repeated construction in tests from colliding on the global registry.
func NewWithRegistry(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ScanCycles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_cycles_total",
			Help:      "Total number of due-reminder scan cycles",
		}),
		RemindersDue: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reminders_due_per_cycle",
			Help:      "Number of due reminders found per scan cycle",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500},
		}),
		DeliveryAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_attempts_total",
			Help:      "Total number of delivery attempts by channel and result",
		}, []string{"channel", "result"}),
		DeliveryLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_duration_seconds",
			Help:      "Time spent delivering a single reminder",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"channel"}),
		SnoozeResets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snooze_resets_total",
			Help:      "Total number of snoozed reminders reset to pending after delivery",
		}),
		ClaimsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_skipped_total",
			Help:      "Reminders skipped because another cycle holds the dispatch claim",
		}),
		SubscriptionsLost: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_subscriptions_cleared_total",
			Help:      "Push subscriptions cleared after the endpoint reported gone",
		}),
		OccurrencesCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recurrence_occurrences_created_total",
			Help:      "Next occurrences created from completed recurring reminders",
		}),
		DuplicatesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recurrence_duplicates_skipped_total",
			Help:      "Next occurrences skipped because an identical instance already exists",
		}),
		SeriesTerminated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recurrence_series_terminated_total",
			Help:      "Recurring series that reached their end date or occurrence limit",
		}),
		RemindersPurged: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_purged_total",
			Help:      "Stale reminders hard-deleted by the cleanup task, by status",
		}, []string{"status"}),
		SharesExpired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "share_links_expired_total",
			Help:      "Share links cleared after their expiry passed",
		}),
		TaskRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_runs_total",
			Help:      "Periodic task runs by task and outcome",
		}, []string{"task", "outcome"}),
		TaskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of periodic task runs",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task"}),
	}
}
