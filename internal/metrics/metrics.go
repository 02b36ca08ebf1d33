// Package metrics holds the bot's Prometheus counters. They are registered
// on the default registry and served by promhttp on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	MemosCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "todobot_memos_created_total",
			Help: "Memos added, plain and timed.",
		},
	)

	MemosCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "todobot_memos_completed_total",
			Help: "Memos marked done.",
		},
	)

	RemindersScheduled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "todobot_reminders_scheduled_total",
			Help: "Reminder jobs registered.",
		},
	)

	RemindersFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todobot_reminders_fired_total",
			Help: "Reminder jobs that ran, by outcome (sent, gone).",
		},
		[]string{"outcome"},
	)

	RemindersCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "todobot_reminders_cancelled_total",
			Help: "Reminder jobs cancelled before firing.",
		},
	)

	JobsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todobot_jobs_failed_total",
			Help: "Jobs that ended in failure, by job type.",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(
		MemosCreated,
		MemosCompleted,
		RemindersScheduled,
		RemindersFired,
		RemindersCancelled,
		JobsFailed,
	)
}
