package recurrence

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/reminderd/internal/model"
)

// Engine computes the next occurrence of a recurring reminder. It is pure:
// no clock reads, no I/O.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// NextOccurrence returns the scheduled time of the next instance in the
// series, or nil when the series does not continue: the reminder is not
// recurring, the next time would pass the series end date, or the series has
// already emitted its maximum number of occurrences.
//
// Weekly reminders with a day-of-week set advance by 7*interval days first
// and then roll forward to the nearest weekday in the set. This keeps the
// interval cadence and still lands on a configured day.
func (e *Engine) NextOccurrence(reminder *model.Reminder) *time.Time {
	rec := reminder.Recurrence
	if !rec.IsRecurring() {
		return nil
	}

	interval := rec.Interval
	if interval < 1 {
		interval = 1
	}

	var next time.Time
	switch rec.Type {
	case model.RecurrenceDaily:
		next = reminder.ScheduledTime.AddDate(0, 0, interval)
	case model.RecurrenceWeekly:
		next = reminder.ScheduledTime.AddDate(0, 0, 7*interval)
		next = rollToWeekday(next, rec.Weekdays())
	case model.RecurrenceMonthly:
		next = reminder.ScheduledTime.AddDate(0, interval, 0)
	case model.RecurrenceYearly:
		next = reminder.ScheduledTime.AddDate(interval, 0, 0)
	default:
		return nil
	}

	if rec.EndDate != nil && next.After(*rec.EndDate) {
		return nil
	}
	if rec.MaxOccurrences != nil && occurrence(rec) >= *rec.MaxOccurrences {
		return nil
	}

	return &next
}

// NextInstance builds the pending reminder for the next occurrence of a
// completed recurring parent, or nil when the series terminates. Delivery
// records, snooze state and share link start empty; only the occurrence
// counter carries the series history forward.
func (e *Engine) NextInstance(parent *model.Reminder, now time.Time) *model.Reminder {
	next := e.NextOccurrence(parent)
	if next == nil {
		return nil
	}

	rec := parent.Recurrence
	rec.Occurrence = occurrence(parent.Recurrence) + 1

	return &model.Reminder{
		ID:            uuid.New(),
		UserID:        parent.UserID,
		Title:         parent.Title,
		Description:   parent.Description,
		Tags:          parent.Tags,
		Priority:      parent.Priority,
		ScheduledTime: *next,
		Recurrence:    rec,
		Status:        model.ReminderStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// occurrence treats an unset counter as the first instance of the series.
func occurrence(rec model.Recurrence) int {
	if rec.Occurrence < 1 {
		return 1
	}
	return rec.Occurrence
}

// rollToWeekday advances t by up to six days to the first weekday contained
// in days. An empty set leaves t unchanged.
func rollToWeekday(t time.Time, days []time.Weekday) time.Time {
	if len(days) == 0 {
		return t
	}

	allowed := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		allowed[d] = true
	}

	for i := 0; i < 7; i++ {
		if allowed[t.Weekday()] {
			return t
		}
		t = t.AddDate(0, 0, 1)
	}
	return t
}
