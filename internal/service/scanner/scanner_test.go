package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/reminderd/internal/model"
)

type stubRepo struct {
	due     []*model.Reminder
	err     error
	queried time.Time
}

func (s *stubRepo) FindDue(_ context.Context, now time.Time) ([]*model.Reminder, error) {
	s.queried = now
	return s.due, s.err
}

func (s *stubRepo) FindCompletedRecurring(context.Context, time.Time) ([]*model.Reminder, error) {
	return nil, nil
}

func (s *stubRepo) FindStale(context.Context, model.ReminderStatus, time.Time) ([]*model.Reminder, error) {
	return nil, nil
}

func (s *stubRepo) Create(context.Context, *model.Reminder) error { return nil }

func (s *stubRepo) Get(context.Context, uuid.UUID) (*model.Reminder, error) { return nil, nil }

func (s *stubRepo) Delete(context.Context, uuid.UUID) error { return nil }

func (s *stubRepo) Exists(context.Context, uuid.UUID, string, time.Time, model.RecurrenceType) (bool, error) {
	return false, nil
}

func (s *stubRepo) RecordDeliveryOutcome(context.Context, uuid.UUID, string, model.DeliveryRecord) error {
	return nil
}

func (s *stubRepo) ResetSnooze(context.Context, uuid.UUID) error { return nil }

func (s *stubRepo) ClearExpiredShares(context.Context, time.Time) (int64, error) { return 0, nil }

func (s *stubRepo) DeleteOlderThan(context.Context, model.ReminderStatus, time.Time) (int64, error) {
	return 0, nil
}

func TestScanUsesInjectedClock(t *testing.T) {
	repo := &stubRepo{due: []*model.Reminder{{ID: uuid.New()}}}
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	s := NewWithClock(repo, func() time.Time { return at })
	got, err := s.Scan(context.Background())
	require.NoError(t, err)

	assert.Len(t, got, 1)
	assert.Equal(t, at, repo.queried)
}

func TestScanEmptyIsNotAnError(t *testing.T) {
	s := NewWithClock(&stubRepo{}, time.Now)

	got, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestScanPropagatesStorageError(t *testing.T) {
	s := NewWithClock(&stubRepo{err: errors.New("storage unavailable")}, time.Now)

	_, err := s.Scan(context.Background())
	assert.Error(t, err)
}
