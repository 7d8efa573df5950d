package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/reminderd/internal/model"
)

func reminderAt(scheduled time.Time, rec model.Recurrence) *model.Reminder {
	return &model.Reminder{
		Title:         "Pay rent",
		ScheduledTime: scheduled,
		Recurrence:    rec,
		Status:        model.ReminderStatusCompleted,
	}
}

func TestNextOccurrenceNonRecurring(t *testing.T) {
	engine := NewEngine()
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	assert.Nil(t, engine.NextOccurrence(reminderAt(base, model.Recurrence{Type: model.RecurrenceNone})))
	assert.Nil(t, engine.NextOccurrence(reminderAt(base, model.Recurrence{})))
}

func TestNextOccurrenceCalendarUnits(t *testing.T) {
	engine := NewEngine()
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		rec  model.Recurrence
		want time.Time
	}{
		{
			name: "daily interval 1",
			rec:  model.Recurrence{Type: model.RecurrenceDaily, Interval: 1},
			want: base.AddDate(0, 0, 1),
		},
		{
			name: "daily interval 3",
			rec:  model.Recurrence{Type: model.RecurrenceDaily, Interval: 3},
			want: base.AddDate(0, 0, 3),
		},
		{
			name: "weekly without day set",
			rec:  model.Recurrence{Type: model.RecurrenceWeekly, Interval: 2},
			want: base.AddDate(0, 0, 14),
		},
		{
			name: "monthly",
			rec:  model.Recurrence{Type: model.RecurrenceMonthly, Interval: 1},
			want: base.AddDate(0, 1, 0),
		},
		{
			name: "yearly",
			rec:  model.Recurrence{Type: model.RecurrenceYearly, Interval: 1},
			want: base.AddDate(1, 0, 0),
		},
		{
			name: "zero interval treated as 1",
			rec:  model.Recurrence{Type: model.RecurrenceDaily},
			want: base.AddDate(0, 0, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := engine.NextOccurrence(reminderAt(base, tt.rec))
			require.NotNil(t, next)
			assert.Equal(t, tt.want, *next)
		})
	}
}

// Weekly with an explicit day set: the engine advances by 7*interval days and
// then rolls forward to the nearest weekday in the set. 2026-08-01 is a
// Saturday, so a Mon/Wed set lands on the Monday after the jumped week.
func TestNextOccurrenceWeeklyDaySet(t *testing.T) {
	engine := NewEngine()
	saturday := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	require.Equal(t, time.Saturday, saturday.Weekday())

	next := engine.NextOccurrence(reminderAt(saturday, model.Recurrence{
		Type:       model.RecurrenceWeekly,
		Interval:   1,
		DaysOfWeek: []int64{int64(time.Monday), int64(time.Wednesday)},
	}))
	require.NotNil(t, next)
	assert.Equal(t, time.Monday, next.Weekday())
	// Sat +7d = Sat 2026-08-08, rolled to Mon 2026-08-10.
	assert.Equal(t, time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC), *next)
}

func TestNextOccurrenceWeeklyDaySetAlreadyQualifying(t *testing.T) {
	engine := NewEngine()
	monday := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	require.Equal(t, time.Monday, monday.Weekday())

	next := engine.NextOccurrence(reminderAt(monday, model.Recurrence{
		Type:       model.RecurrenceWeekly,
		Interval:   1,
		DaysOfWeek: []int64{int64(time.Monday)},
	}))
	require.NotNil(t, next)
	assert.Equal(t, monday.AddDate(0, 0, 7), *next)
}

func TestNextOccurrenceEndDate(t *testing.T) {
	engine := NewEngine()
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	pastEnd := base.AddDate(0, 0, -1)
	assert.Nil(t, engine.NextOccurrence(reminderAt(base, model.Recurrence{
		Type: model.RecurrenceDaily, Interval: 1, EndDate: &pastEnd,
	})))

	roomyEnd := base.AddDate(0, 1, 0)
	assert.NotNil(t, engine.NextOccurrence(reminderAt(base, model.Recurrence{
		Type: model.RecurrenceDaily, Interval: 1, EndDate: &roomyEnd,
	})))
}

func TestNextOccurrenceMaxOccurrences(t *testing.T) {
	engine := NewEngine()
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	max := 3

	// Second of three occurrences still continues.
	second := reminderAt(base, model.Recurrence{
		Type: model.RecurrenceDaily, Interval: 1, MaxOccurrences: &max, Occurrence: 2,
	})
	assert.NotNil(t, engine.NextOccurrence(second))

	// The third and last occurrence produces no fourth.
	third := reminderAt(base, model.Recurrence{
		Type: model.RecurrenceDaily, Interval: 1, MaxOccurrences: &max, Occurrence: 3,
	})
	assert.Nil(t, engine.NextOccurrence(third))
}

func TestNextInstance(t *testing.T) {
	engine := NewEngine()
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)

	sentAt := base.Add(time.Minute)
	parent := reminderAt(base, model.Recurrence{Type: model.RecurrenceMonthly, Interval: 1})
	parent.Description = "transfer to landlord"
	parent.Tags = []string{"finance"}
	parent.Priority = model.PriorityHigh
	parent.SnoozeCount = 2
	parent.WebPushDelivery = model.DeliveryRecord{Sent: true, SentAt: &sentAt}

	next := engine.NextInstance(parent, now)
	require.NotNil(t, next)

	assert.NotEqual(t, parent.ID, next.ID)
	assert.Equal(t, parent.UserID, next.UserID)
	assert.Equal(t, parent.Title, next.Title)
	assert.Equal(t, parent.Description, next.Description)
	assert.Equal(t, parent.Priority, next.Priority)
	assert.Equal(t, base.AddDate(0, 1, 0), next.ScheduledTime)
	assert.Equal(t, model.ReminderStatusPending, next.Status)
	assert.Equal(t, 2, next.Recurrence.Occurrence)

	// Delivery and snooze state start fresh on the new instance.
	assert.False(t, next.WebPushDelivery.Sent)
	assert.Nil(t, next.SnoozeUntil)
	assert.Equal(t, now, next.CreatedAt)
}

func TestNextInstanceTerminatedSeries(t *testing.T) {
	engine := NewEngine()
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	assert.Nil(t, engine.NextInstance(reminderAt(base, model.Recurrence{Type: model.RecurrenceNone}), base))
}
