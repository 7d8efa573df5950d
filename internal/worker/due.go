package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/reminderd/internal/model"
	"github.com/jwalitptl/reminderd/internal/repository"
	"github.com/jwalitptl/reminderd/internal/service/delivery"
	"github.com/jwalitptl/reminderd/internal/service/scanner"
	"github.com/jwalitptl/reminderd/pkg/logger"
	"github.com/jwalitptl/reminderd/pkg/metrics"
)

type DueProcessorConfig struct {
	// Concurrency bounds how many reminders are delivered in parallel
	// within one cycle.
	Concurrency int
	// ClaimTTL is how long a dispatch claim is held. It should exceed the
	// longest plausible delivery round trip so an overlapping cycle cannot
	// double-send the same reminder.
	ClaimTTL time.Duration
}

// DueProcessor is the due-processing task: scan, deliver each due reminder,
// and reset snoozed-and-delivered reminders back to pending. Deliveries are
// isolated per reminder; one failure never aborts the cycle.
type DueProcessor struct {
	scanner  *scanner.Scanner
	delivery delivery.Service
	repo     repository.ReminderRepository
	claims   *gocache.Cache
	config   DueProcessorConfig
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewDueProcessor(
	scanner *scanner.Scanner,
	deliverySvc delivery.Service,
	repo repository.ReminderRepository,
	config DueProcessorConfig,
	logger *logger.Logger,
	m *metrics.Metrics,
) *DueProcessor {
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	if config.ClaimTTL <= 0 {
		config.ClaimTTL = 5 * time.Minute
	}
	return &DueProcessor{
		scanner:  scanner,
		delivery: deliverySvc,
		repo:     repo,
		claims:   gocache.New(config.ClaimTTL, 2*config.ClaimTTL),
		config:   config,
		logger:   logger,
		metrics:  m,
	}
}

// Run executes one due-processing cycle.
func (p *DueProcessor) Run(ctx context.Context) error {
	p.metrics.ScanCycles.Inc()

	due, err := p.scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("due-processing scan failed: %w", err)
	}
	p.metrics.RemindersDue.Observe(float64(len(due)))
	if len(due) == 0 {
		return nil
	}

	p.logger.Debug("processing due reminders", "count", len(due))

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.config.Concurrency)
	for _, reminder := range due {
		reminder := reminder
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			p.process(ctx, reminder)
		}()
	}
	wg.Wait()

	return nil
}

func (p *DueProcessor) process(ctx context.Context, reminder *model.Reminder) {
	if reminder.User == nil {
		p.logger.Warn("due reminder has no owning user, skipping", "reminder_id", reminder.ID.String())
		return
	}

	// Short-lived claim so an overlapping or manually triggered cycle cannot
	// dispatch the same reminder twice while a send is in flight.
	if err := p.claims.Add(reminder.ID.String(), struct{}{}, p.config.ClaimTTL); err != nil {
		p.metrics.ClaimsSkipped.Inc()
		return
	}
	defer p.claims.Delete(reminder.ID.String())

	wasSnoozed := reminder.Status == model.ReminderStatusSnoozed

	// A pending reminder that already went out stays visible as due until its
	// owner acts on it; the sent flags suppress re-sending across cycles.
	if !wasSnoozed && (reminder.WebPushDelivery.Sent || reminder.EmailDelivery.Sent) {
		return
	}

	outcome := p.delivery.Deliver(ctx, reminder, reminder.User)
	if !outcome.Delivered() {
		p.logger.Warn("reminder not delivered on any channel",
			"reminder_id", reminder.ID.String(), "user_id", reminder.UserID.String())
	}

	// The reset happens after delivery so the reminder does not match the
	// pending-due rule a second time within this same cycle.
	if wasSnoozed {
		if err := p.repo.ResetSnooze(ctx, reminder.ID); err != nil {
			p.logger.Error(err, "failed to reset snoozed reminder", "reminder_id", reminder.ID.String())
			return
		}
		p.metrics.SnoozeResets.Inc()
	}
}
