package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/reminderd/internal/model"
	"github.com/jwalitptl/reminderd/internal/repository"
	"github.com/jwalitptl/reminderd/pkg/logger"
	"github.com/jwalitptl/reminderd/pkg/metrics"
)

type CleanupConfig struct {
	CompletedRetention time.Duration
	CancelledRetention time.Duration
}

// CleanupWorker is the cleanup task: expire share links whose expiry has
// passed and hard-delete reminders past their retention window.
type CleanupWorker struct {
	repo    repository.ReminderRepository
	config  CleanupConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewCleanupWorker(repo repository.ReminderRepository, config CleanupConfig, logger *logger.Logger, m *metrics.Metrics) *CleanupWorker {
	if config.CompletedRetention <= 0 {
		config.CompletedRetention = 90 * 24 * time.Hour
	}
	if config.CancelledRetention <= 0 {
		config.CancelledRetention = 30 * 24 * time.Hour
	}
	return &CleanupWorker{
		repo:    repo,
		config:  config,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Run executes one cleanup cycle.
func (w *CleanupWorker) Run(ctx context.Context) error {
	now := w.now()

	expired, err := w.repo.ClearExpiredShares(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to expire share links: %w", err)
	}
	if expired > 0 {
		w.metrics.SharesExpired.Add(float64(expired))
		w.logger.Info("expired share links", "count", expired)
	}

	completed, err := w.repo.DeleteOlderThan(ctx, model.ReminderStatusCompleted, now.Add(-w.config.CompletedRetention))
	if err != nil {
		return fmt.Errorf("failed to purge completed reminders: %w", err)
	}
	if completed > 0 {
		w.metrics.RemindersPurged.WithLabelValues(string(model.ReminderStatusCompleted)).Add(float64(completed))
		w.logger.Info("purged completed reminders", "count", completed)
	}

	cancelled, err := w.repo.DeleteOlderThan(ctx, model.ReminderStatusCancelled, now.Add(-w.config.CancelledRetention))
	if err != nil {
		return fmt.Errorf("failed to purge cancelled reminders: %w", err)
	}
	if cancelled > 0 {
		w.metrics.RemindersPurged.WithLabelValues(string(model.ReminderStatusCancelled)).Add(float64(cancelled))
		w.logger.Info("purged cancelled reminders", "count", cancelled)
	}

	return nil
}
