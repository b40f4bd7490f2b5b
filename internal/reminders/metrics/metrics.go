package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RemindersCreatedTotal      *prometheus.CounterVec
	GenerationSkippedTotal     *prometheus.CounterVec
	BatchErrorsTotal           prometheus.Counter
	RemindersDeletedTotal      *prometheus.CounterVec
	MaintenanceRunsTotal       *prometheus.CounterVec
	MaintenanceDurationSeconds prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		RemindersCreatedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kinship_reminders_created_total",
			Help: "Total number of reminder records created, by reminder type",
		}, []string{"type"}),
		GenerationSkippedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kinship_reminders_generation_skipped_total",
			Help: "Total number of contacts skipped during generation, by reason",
		}, []string{"reason"}),
		BatchErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kinship_reminders_batch_errors_total",
			Help: "Total number of per-contact failures absorbed by batch operations",
		}),
		RemindersDeletedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kinship_reminders_deleted_total",
			Help: "Total number of reminder records deleted, by cause",
		}, []string{"cause"}),
		MaintenanceRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kinship_reminders_maintenance_runs_total",
			Help: "Total number of maintenance worker runs",
		}, []string{"status"}),
		MaintenanceDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "kinship_reminders_maintenance_duration_seconds",
			Help: "Duration of maintenance worker runs in seconds",
		}),
	}
}
