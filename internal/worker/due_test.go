package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/reminderd/internal/channel"
	"github.com/jwalitptl/reminderd/internal/model"
	"github.com/jwalitptl/reminderd/internal/service/delivery"
	"github.com/jwalitptl/reminderd/internal/service/scanner"
	"github.com/jwalitptl/reminderd/pkg/logger"
)

func fixedClock() func() time.Time {
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func dueReminder(status model.ReminderStatus) *model.Reminder {
	user := &model.User{
		ID:             uuid.New(),
		Email:          "user@example.com",
		WebPushEnabled: true,
		EmailEnabled:   true,
		EmailFallback:  true,
	}
	past := time.Date(2026, 8, 1, 11, 58, 0, 0, time.UTC)
	r := &model.Reminder{
		ID:            uuid.New(),
		UserID:        user.ID,
		Title:         "Pay rent",
		Status:        status,
		ScheduledTime: past,
		User:          user,
	}
	if status == model.ReminderStatusSnoozed {
		r.SnoozeUntil = &past
		r.SnoozeCount = 1
	}
	return r
}

func newDueProcessor(repo *memRepo, svc delivery.Service, cfg DueProcessorConfig) *DueProcessor {
	return NewDueProcessor(
		scanner.NewWithClock(repo, fixedClock()),
		svc,
		repo,
		cfg,
		logger.NewNop(),
		testMetrics(),
	)
}

func TestDueProcessorDeliversPending(t *testing.T) {
	repo := newMemRepo()
	reminder := dueReminder(model.ReminderStatusPending)
	repo.due = []*model.Reminder{reminder}

	svc := &fakeDelivery{outcome: delivery.Outcome{WebPush: channel.Success()}}
	p := newDueProcessor(repo, svc, DueProcessorConfig{})

	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, 1, svc.count())
	assert.Empty(t, repo.snoozeResets, "pending reminders are not snooze-reset")
}

func TestDueProcessorResetsSnoozedAfterDelivery(t *testing.T) {
	repo := newMemRepo()
	reminder := dueReminder(model.ReminderStatusSnoozed)
	repo.due = []*model.Reminder{reminder}

	svc := &fakeDelivery{outcome: delivery.Outcome{WebPush: channel.Success()}}
	p := newDueProcessor(repo, svc, DueProcessorConfig{})

	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, 1, svc.count(), "snoozed-and-due reminders are delivered")
	require.Len(t, repo.snoozeResets, 1)
	assert.Equal(t, reminder.ID, repo.snoozeResets[0])
}

func TestDueProcessorSuppressesAlreadySentPending(t *testing.T) {
	repo := newMemRepo()
	reminder := dueReminder(model.ReminderStatusPending)
	sentAt := time.Date(2026, 8, 1, 11, 59, 0, 0, time.UTC)
	reminder.WebPushDelivery = model.DeliveryRecord{Sent: true, SentAt: &sentAt}
	repo.due = []*model.Reminder{reminder}

	svc := &fakeDelivery{}
	p := newDueProcessor(repo, svc, DueProcessorConfig{})

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, 0, svc.count(), "sent flags suppress re-sending across cycles")
}

func TestDueProcessorClaimPreventsDoubleSend(t *testing.T) {
	repo := newMemRepo()
	reminder := dueReminder(model.ReminderStatusPending)
	repo.due = []*model.Reminder{reminder}

	block := make(chan struct{})
	svc := &fakeDelivery{outcome: delivery.Outcome{WebPush: channel.Success()}, block: block}
	p := newDueProcessor(repo, svc, DueProcessorConfig{ClaimTTL: time.Minute})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = p.Run(context.Background())
	}()

	// Give the first cycle time to take the claim, then run an overlapping
	// cycle; it must skip the claimed reminder.
	time.Sleep(50 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		_ = p.Run(context.Background())
		close(done)
	}()
	<-done

	close(block)
	wg.Wait()

	assert.Equal(t, 1, svc.count(), "the overlapping cycle must not dispatch the claimed reminder")
}

func TestDueProcessorScanErrorFailsCycle(t *testing.T) {
	repo := newMemRepo()
	repo.dueErr = errors.New("storage unavailable")

	svc := &fakeDelivery{}
	p := newDueProcessor(repo, svc, DueProcessorConfig{})

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, svc.count())
}

func TestDueProcessorEmptyScanIsNotAnError(t *testing.T) {
	repo := newMemRepo()
	svc := &fakeDelivery{}
	p := newDueProcessor(repo, svc, DueProcessorConfig{})

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, 0, svc.count())
}

func TestDueProcessorSkipsReminderWithoutUser(t *testing.T) {
	repo := newMemRepo()
	reminder := dueReminder(model.ReminderStatusPending)
	reminder.User = nil
	repo.due = []*model.Reminder{reminder}

	svc := &fakeDelivery{}
	p := newDueProcessor(repo, svc, DueProcessorConfig{})

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, 0, svc.count())
}
