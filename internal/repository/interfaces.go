package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/reminderd/internal/model"
)

// All repository interfaces in one file
type (
	// ReminderRepository is the storage hand-off point between the scheduler
	// and the API layer. User-initiated status changes land here and become
	// visible to the next scan cycle.
	ReminderRepository interface {
		// FindDue returns reminders matching the due invariant (pending with
		// elapsed scheduled time, or snoozed with elapsed snooze deadline),
		// each populated with its owning user's notification projection.
		FindDue(ctx context.Context, now time.Time) ([]*model.Reminder, error)
		// FindCompletedRecurring returns completed reminders with a
		// recurrence type other than none whose scheduled time has passed.
		FindCompletedRecurring(ctx context.Context, now time.Time) ([]*model.Reminder, error)
		FindStale(ctx context.Context, status model.ReminderStatus, cutoff time.Time) ([]*model.Reminder, error)

		Create(ctx context.Context, reminder *model.Reminder) error
		Get(ctx context.Context, id uuid.UUID) (*model.Reminder, error)
		Delete(ctx context.Context, id uuid.UUID) error

		// Exists is the recurrence duplicate guard: same user, same title,
		// same scheduled time, same recurrence type.
		Exists(ctx context.Context, userID uuid.UUID, title string, scheduledTime time.Time, recurrenceType model.RecurrenceType) (bool, error)

		// RecordDeliveryOutcome persists one channel's delivery record
		// without touching the other channel's record.
		RecordDeliveryOutcome(ctx context.Context, id uuid.UUID, channel string, record model.DeliveryRecord) error
		// ResetSnooze flips a snoozed reminder back to pending and clears
		// its snooze deadline. The snooze counter is never reset.
		ResetSnooze(ctx context.Context, id uuid.UUID) error

		ClearExpiredShares(ctx context.Context, now time.Time) (int64, error)
		DeleteOlderThan(ctx context.Context, status model.ReminderStatus, cutoff time.Time) (int64, error)
	}

	// UserRepository exposes the notification projection of user accounts.
	UserRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		// ClearPushSubscription removes a dead push endpoint so later cycles
		// stop retrying it. Last write wins against a concurrent
		// re-subscription from the API layer.
		ClearPushSubscription(ctx context.Context, userID uuid.UUID) error
		SavePushSubscription(ctx context.Context, userID uuid.UUID, sub *model.PushSubscription) error
	}
)
