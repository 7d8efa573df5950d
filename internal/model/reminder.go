package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type ReminderStatus string

const (
	ReminderStatusPending   ReminderStatus = "pending"
	ReminderStatusCompleted ReminderStatus = "completed"
	ReminderStatusCancelled ReminderStatus = "cancelled"
	ReminderStatusSnoozed   ReminderStatus = "snoozed"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type RecurrenceType string

const (
	RecurrenceNone    RecurrenceType = "none"
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
	RecurrenceYearly  RecurrenceType = "yearly"
)

// Recurrence describes how a reminder repeats after completion.
type Recurrence struct {
	Type           RecurrenceType `json:"type" db:"recurrence_type"`
	Interval       int            `json:"interval" db:"recurrence_interval"`
	EndDate        *time.Time     `json:"end_date,omitempty" db:"recurrence_end_date"`
	MaxOccurrences *int           `json:"max_occurrences,omitempty" db:"recurrence_max_occurrences"`
	DaysOfWeek     pq.Int64Array  `json:"days_of_week,omitempty" db:"recurrence_days_of_week"`
	// Occurrence is 1 for the first instance of a series and increments on
	// every spawned next occurrence.
	Occurrence int `json:"occurrence" db:"recurrence_occurrence"`
}

// IsRecurring reports whether the reminder spawns a next occurrence on completion.
func (r Recurrence) IsRecurring() bool {
	return r.Type != "" && r.Type != RecurrenceNone
}

// Weekdays converts the stored day-of-week set to time.Weekday values.
func (r Recurrence) Weekdays() []time.Weekday {
	days := make([]time.Weekday, 0, len(r.DaysOfWeek))
	for _, d := range r.DaysOfWeek {
		days = append(days, time.Weekday(d))
	}
	return days
}

// DeliveryRecord tracks one channel's delivery state for a reminder. Records
// are independent per channel; a push failure never touches the email record.
type DeliveryRecord struct {
	Sent   bool       `json:"sent"`
	SentAt *time.Time `json:"sent_at,omitempty"`
	Error  string     `json:"error,omitempty"`
}

type Reminder struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	UserID      uuid.UUID      `json:"user_id" db:"user_id"`
	Title       string         `json:"title" db:"title"`
	Description string         `json:"description,omitempty" db:"description"`
	Tags        pq.StringArray `json:"tags,omitempty" db:"tags"`
	Priority    Priority       `json:"priority" db:"priority"`

	ScheduledTime time.Time  `json:"scheduled_time" db:"scheduled_time"`
	Recurrence    Recurrence `json:"recurrence"`

	Status      ReminderStatus `json:"status" db:"status"`
	CompletedAt *time.Time     `json:"completed_at,omitempty" db:"completed_at"`

	SnoozeUntil *time.Time `json:"snooze_until,omitempty" db:"snooze_until"`
	SnoozeCount int        `json:"snooze_count" db:"snooze_count"`

	WebPushDelivery DeliveryRecord `json:"web_push_delivery"`
	EmailDelivery   DeliveryRecord `json:"email_delivery"`

	ShareToken     string     `json:"share_token,omitempty" db:"share_token"`
	ShareExpiresAt *time.Time `json:"share_expires_at,omitempty" db:"share_expires_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// User carries the owning user's notification projection when the
	// reminder was loaded by the due-item scanner.
	User *User `json:"-" db:"-"`
}

// IsDue reports whether the reminder should be dispatched now: pending with an
// elapsed scheduled time, or snoozed with an elapsed snooze deadline.
func (r *Reminder) IsDue(now time.Time) bool {
	switch r.Status {
	case ReminderStatusPending:
		return !r.ScheduledTime.After(now)
	case ReminderStatusSnoozed:
		return r.SnoozeUntil != nil && !r.SnoozeUntil.After(now)
	default:
		return false
	}
}

// Urgency maps reminder priority to web push urgency.
func (r *Reminder) Urgency() string {
	if r.Priority == PriorityUrgent {
		return "high"
	}
	return "normal"
}
