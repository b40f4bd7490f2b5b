// Package maintenance runs the periodic consistency pass: a destructive
// refresh of communication reminders followed by garbage collection of
// closed ones. Invocations are fire-and-forget; failures are logged, never
// surfaced, never retried early.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"kinship/internal/reminders/metrics"
	"kinship/internal/reminders/models"
)

// Result contains the outcome of a single maintenance run.
type Result struct {
	Refreshed *models.RefreshResult
	CleanedUp int
	Duration  time.Duration
}

// Orchestrator is the engine surface the worker drives.
type Orchestrator interface {
	RefreshAll(ctx context.Context) (*models.RefreshResult, error)
	Cleanup(ctx context.Context, daysOld int) (int, error)
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

func WithCleanupAgeDays(days int) Option {
	return func(w *Worker) {
		if days > 0 {
			w.cleanupAgeDays = days
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

type Worker struct {
	orchestrator   Orchestrator
	logger         *slog.Logger
	interval       time.Duration
	cleanupAgeDays int
	metrics        *metrics.Metrics
}

func New(orchestrator Orchestrator, opts ...Option) *Worker {
	worker := &Worker{
		orchestrator:   orchestrator,
		logger:         slog.Default(),
		interval:       6 * time.Hour,
		cleanupAgeDays: 30,
		metrics:        nil,
	}
	for _, opt := range opts {
		opt(worker)
	}
	return worker
}

func (w *Worker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			startTime := time.Now()
			res, err := w.RunOnce(ctx)
			duration := time.Since(startTime)

			if err != nil {
				w.logger.Error("reminder_maintenance_failed",
					"error", err,
					"duration_ms", duration.Milliseconds(),
				)
				if w.metrics != nil {
					w.metrics.MaintenanceRunsTotal.WithLabelValues("error").Inc()
					w.metrics.MaintenanceDurationSeconds.Observe(duration.Seconds())
				}
				continue
			}

			res.Duration = duration
			w.logger.Info("reminder_maintenance_completed",
				"deleted", res.Refreshed.Deleted,
				"created", res.Refreshed.Created,
				"contacts_processed", res.Refreshed.ContactsProcessed,
				"cleaned_up", res.CleanedUp,
				"duration_ms", duration.Milliseconds(),
			)
			if w.metrics != nil {
				w.metrics.MaintenanceRunsTotal.WithLabelValues("success").Inc()
				w.metrics.MaintenanceDurationSeconds.Observe(duration.Seconds())
			}

		case <-ctx.Done():
			w.logger.Info("reminder maintenance worker stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// RunOnce executes a single maintenance run. Logging is handled by the caller (Start).
func (w *Worker) RunOnce(ctx context.Context) (*Result, error) {
	refreshed, err := w.orchestrator.RefreshAll(ctx)
	if err != nil {
		return nil, err
	}
	cleaned, err := w.orchestrator.Cleanup(ctx, w.cleanupAgeDays)
	if err != nil {
		return nil, err
	}
	return &Result{Refreshed: refreshed, CleanedUp: cleaned}, nil
}
