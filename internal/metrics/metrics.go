package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RemindersFiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proofpal_reminders_fired_total",
		Help: "Reminder events emitted, by deadline kind.",
	},
		[]string{"kind"},
	)

	ScanSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proofpal_scan_skipped_records_total",
		Help: "Records skipped by a reminder scan because they were malformed or could not be recorded.",
	})

	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "proofpal_scan_duration_seconds",
		Help:    "Duration of reminder scans.",
		Buckets: prometheus.DefBuckets,
	})

	NotificationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proofpal_notification_errors_total",
		Help: "Reminder deliveries that failed, by notifier.",
	},
		[]string{"notifier"},
	)

	DossiersBuiltTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proofpal_dossiers_built_total",
		Help: "Dossier documents successfully built.",
	})

	DossierPlaceholdersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proofpal_dossier_placeholders_total",
		Help: "Attachment sections replaced by a placeholder page.",
	})

	TrackedRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "proofpal_tracked_records",
		Help: "Number of purchase records seen by the last scan.",
	})
)
