package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/reminderd/internal/model"
	"github.com/jwalitptl/reminderd/internal/repository"
)

// Scanner selects reminders that are currently due: pending with an elapsed
// scheduled time, or snoozed with an elapsed snooze deadline. It is read-only
// and never mutates state; no ordering is guaranteed across users.
type Scanner struct {
	repo repository.ReminderRepository
	now  func() time.Time
}

func New(repo repository.ReminderRepository) *Scanner {
	return &Scanner{repo: repo, now: time.Now}
}

// NewWithClock injects the clock, for tests.
func NewWithClock(repo repository.ReminderRepository, now func() time.Time) *Scanner {
	return &Scanner{repo: repo, now: now}
}

// Scan returns due reminders populated with their owning user. Zero due
// reminders is an empty slice, not an error.
func (s *Scanner) Scan(ctx context.Context) ([]*model.Reminder, error) {
	reminders, err := s.repo.FindDue(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to scan for due reminders: %w", err)
	}
	if reminders == nil {
		reminders = []*model.Reminder{}
	}
	return reminders, nil
}
