package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/reminderd/internal/model"
	"github.com/jwalitptl/reminderd/internal/service/delivery"
	"github.com/jwalitptl/reminderd/pkg/metrics"
)

func testMetrics() *metrics.Metrics {
	return metrics.NewWithRegistry("test", prometheus.NewRegistry())
}

// memRepo is an in-memory repository.ReminderRepository for worker tests.
type memRepo struct {
	mu sync.Mutex

	due       []*model.Reminder
	dueErr    error
	recurring []*model.Reminder

	created      []*model.Reminder
	existing     map[string]bool // keyed by title + scheduled time
	snoozeResets []uuid.UUID

	deleteCutoffs map[model.ReminderStatus]time.Time
	purged        map[model.ReminderStatus]int64
	sharesCleared int64
	shareCutoff   time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{
		existing:      map[string]bool{},
		deleteCutoffs: map[model.ReminderStatus]time.Time{},
		purged:        map[model.ReminderStatus]int64{},
	}
}

func dupKey(title string, at time.Time) string {
	return title + "|" + at.Format(time.RFC3339Nano)
}

func (m *memRepo) FindDue(context.Context, time.Time) ([]*model.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.due, m.dueErr
}

func (m *memRepo) FindCompletedRecurring(context.Context, time.Time) ([]*model.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recurring, nil
}

func (m *memRepo) FindStale(context.Context, model.ReminderStatus, time.Time) ([]*model.Reminder, error) {
	return nil, nil
}

func (m *memRepo) Create(_ context.Context, reminder *model.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, reminder)
	m.existing[dupKey(reminder.Title, reminder.ScheduledTime)] = true
	return nil
}

func (m *memRepo) Get(context.Context, uuid.UUID) (*model.Reminder, error) { return nil, nil }

func (m *memRepo) Delete(context.Context, uuid.UUID) error { return nil }

func (m *memRepo) Exists(_ context.Context, _ uuid.UUID, title string, scheduledTime time.Time, _ model.RecurrenceType) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.existing[dupKey(title, scheduledTime)], nil
}

func (m *memRepo) RecordDeliveryOutcome(context.Context, uuid.UUID, string, model.DeliveryRecord) error {
	return nil
}

func (m *memRepo) ResetSnooze(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snoozeResets = append(m.snoozeResets, id)
	return nil
}

func (m *memRepo) ClearExpiredShares(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shareCutoff = now
	return m.sharesCleared, nil
}

func (m *memRepo) DeleteOlderThan(_ context.Context, status model.ReminderStatus, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCutoffs[status] = cutoff
	return m.purged[status], nil
}

// fakeDelivery implements delivery.Service and records which reminders it saw.
type fakeDelivery struct {
	mu        sync.Mutex
	delivered []uuid.UUID
	outcome   delivery.Outcome
	block     chan struct{} // when set, Deliver waits until closed
}

func (f *fakeDelivery) Deliver(_ context.Context, reminder *model.Reminder, _ *model.User) delivery.Outcome {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered = append(f.delivered, reminder.ID)
	return f.outcome
}

func (f *fakeDelivery) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.delivered)
}
