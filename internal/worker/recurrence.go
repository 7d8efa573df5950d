package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/reminderd/internal/model"
	"github.com/jwalitptl/reminderd/internal/repository"
	"github.com/jwalitptl/reminderd/internal/service/recurrence"
	"github.com/jwalitptl/reminderd/pkg/logger"
	"github.com/jwalitptl/reminderd/pkg/messaging"
	"github.com/jwalitptl/reminderd/pkg/metrics"
)

// RecurrenceProcessor is the recurrence-processing task: for every completed
// recurring reminder whose scheduled time has passed, compute the next
// occurrence and create it unless an identical instance already exists. The
// duplicate guard makes the task safe to run more than once over the same
// parent.
type RecurrenceProcessor struct {
	repo    repository.ReminderRepository
	engine  *recurrence.Engine
	broker  messaging.Broker
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewRecurrenceProcessor(
	repo repository.ReminderRepository,
	engine *recurrence.Engine,
	broker messaging.Broker,
	logger *logger.Logger,
	m *metrics.Metrics,
) *RecurrenceProcessor {
	return &RecurrenceProcessor{
		repo:    repo,
		engine:  engine,
		broker:  broker,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Run executes one recurrence-processing cycle.
func (p *RecurrenceProcessor) Run(ctx context.Context) error {
	parents, err := p.repo.FindCompletedRecurring(ctx, p.now())
	if err != nil {
		return fmt.Errorf("recurrence-processing scan failed: %w", err)
	}

	for _, parent := range parents {
		if err := p.process(ctx, parent); err != nil {
			p.logger.Error(err, "failed to process recurring reminder", "reminder_id", parent.ID.String())
		}
	}
	return nil
}

func (p *RecurrenceProcessor) process(ctx context.Context, parent *model.Reminder) error {
	next := p.engine.NextInstance(parent, p.now())
	if next == nil {
		p.metrics.SeriesTerminated.Inc()
		p.logger.Debug("recurring series terminated",
			"reminder_id", parent.ID.String(), "title", parent.Title)
		return nil
	}

	exists, err := p.repo.Exists(ctx, next.UserID, next.Title, next.ScheduledTime, next.Recurrence.Type)
	if err != nil {
		return fmt.Errorf("duplicate check failed: %w", err)
	}
	if exists {
		// Already created by an earlier run over the same parent; not an
		// error the user ever sees.
		p.metrics.DuplicatesSkipped.Inc()
		return nil
	}

	if err := p.repo.Create(ctx, next); err != nil {
		return fmt.Errorf("failed to create next occurrence: %w", err)
	}
	p.metrics.OccurrencesCreated.Inc()
	p.logger.Info("created next occurrence",
		"parent_id", parent.ID.String(),
		"reminder_id", next.ID.String(),
		"scheduled_time", next.ScheduledTime.Format(time.RFC3339))

	p.publishCreated(ctx, parent.ID, next)
	return nil
}

func (p *RecurrenceProcessor) publishCreated(ctx context.Context, parentID uuid.UUID, next *model.Reminder) {
	if p.broker == nil {
		return
	}
	evt := map[string]interface{}{
		"parent_id":      parentID,
		"reminder_id":    next.ID,
		"user_id":        next.UserID,
		"scheduled_time": next.ScheduledTime,
		"occurrence":     next.Recurrence.Occurrence,
	}
	if err := p.broker.Publish(ctx, messaging.ChannelReminderRecurrence, evt); err != nil {
		p.logger.Error(err, "failed to publish recurrence event", "reminder_id", next.ID.String())
	}
}
