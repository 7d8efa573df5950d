package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/reminderd/internal/channel"
	"github.com/jwalitptl/reminderd/internal/model"
	"github.com/jwalitptl/reminderd/internal/repository"
	apperrors "github.com/jwalitptl/reminderd/pkg/errors"
)

type reminderRepository struct {
	*BaseRepository
}

func NewReminderRepository(base *BaseRepository) repository.ReminderRepository {
	return &reminderRepository{BaseRepository: base}
}

const reminderColumns = `
	r.id, r.user_id, r.title, r.description, r.tags, r.priority,
	r.scheduled_time, r.recurrence_type, r.recurrence_interval,
	r.recurrence_end_date, r.recurrence_max_occurrences,
	r.recurrence_days_of_week, r.recurrence_occurrence,
	r.status, r.completed_at, r.snooze_until, r.snooze_count,
	r.web_push_sent, r.web_push_sent_at, r.web_push_error,
	r.email_sent, r.email_sent_at, r.email_error,
	r.share_token, r.share_expires_at, r.created_at, r.updated_at`

// reminderRow flattens a reminder plus its per-channel delivery columns.
type reminderRow struct {
	ID            uuid.UUID      `db:"id"`
	UserID        uuid.UUID      `db:"user_id"`
	Title         string         `db:"title"`
	Description   string         `db:"description"`
	Tags          pq.StringArray `db:"tags"`
	Priority      string         `db:"priority"`
	ScheduledTime time.Time      `db:"scheduled_time"`

	RecurrenceType    string         `db:"recurrence_type"`
	RecurrenceInt     int            `db:"recurrence_interval"`
	RecurrenceEnd     *time.Time     `db:"recurrence_end_date"`
	RecurrenceMax     *int           `db:"recurrence_max_occurrences"`
	RecurrenceDays    pq.Int64Array  `db:"recurrence_days_of_week"`
	RecurrenceCounter int            `db:"recurrence_occurrence"`

	Status      string     `db:"status"`
	CompletedAt *time.Time `db:"completed_at"`
	SnoozeUntil *time.Time `db:"snooze_until"`
	SnoozeCount int        `db:"snooze_count"`

	WebPushSent   bool       `db:"web_push_sent"`
	WebPushSentAt *time.Time `db:"web_push_sent_at"`
	WebPushError  string     `db:"web_push_error"`
	EmailSent     bool       `db:"email_sent"`
	EmailSentAt   *time.Time `db:"email_sent_at"`
	EmailError    string     `db:"email_error"`

	ShareToken     string     `db:"share_token"`
	ShareExpiresAt *time.Time `db:"share_expires_at"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

func (row *reminderRow) toModel() *model.Reminder {
	return &model.Reminder{
		ID:            row.ID,
		UserID:        row.UserID,
		Title:         row.Title,
		Description:   row.Description,
		Tags:          row.Tags,
		Priority:      model.Priority(row.Priority),
		ScheduledTime: row.ScheduledTime,
		Recurrence: model.Recurrence{
			Type:           model.RecurrenceType(row.RecurrenceType),
			Interval:       row.RecurrenceInt,
			EndDate:        row.RecurrenceEnd,
			MaxOccurrences: row.RecurrenceMax,
			DaysOfWeek:     row.RecurrenceDays,
			Occurrence:     row.RecurrenceCounter,
		},
		Status:      model.ReminderStatus(row.Status),
		CompletedAt: row.CompletedAt,
		SnoozeUntil: row.SnoozeUntil,
		SnoozeCount: row.SnoozeCount,
		WebPushDelivery: model.DeliveryRecord{
			Sent:   row.WebPushSent,
			SentAt: row.WebPushSentAt,
			Error:  row.WebPushError,
		},
		EmailDelivery: model.DeliveryRecord{
			Sent:   row.EmailSent,
			SentAt: row.EmailSentAt,
			Error:  row.EmailError,
		},
		ShareToken:     row.ShareToken,
		ShareExpiresAt: row.ShareExpiresAt,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

// dueRow joins the reminder with its owning user's notification projection.
type dueRow struct {
	reminderRow
	UserEmail      string  `db:"user_email"`
	UserLanguage   string  `db:"user_language"`
	WebPushEnabled bool    `db:"user_web_push_enabled"`
	EmailEnabled   bool    `db:"user_email_enabled"`
	EmailFallback  bool    `db:"user_email_fallback"`
	PushEndpoint   *string `db:"user_push_endpoint"`
	PushP256dh     *string `db:"user_push_p256dh"`
	PushAuth       *string `db:"user_push_auth"`
}

func (row *dueRow) toModel() *model.Reminder {
	reminder := row.reminderRow.toModel()
	user := &model.User{
		ID:             row.UserID,
		Email:          row.UserEmail,
		Language:       row.UserLanguage,
		WebPushEnabled: row.WebPushEnabled,
		EmailEnabled:   row.EmailEnabled,
		EmailFallback:  row.EmailFallback,
	}
	if row.PushEndpoint != nil && *row.PushEndpoint != "" {
		user.PushSubscription = &model.PushSubscription{
			Endpoint: *row.PushEndpoint,
			P256dh:   derefString(row.PushP256dh),
			Auth:     derefString(row.PushAuth),
		}
	}
	reminder.User = user
	return reminder
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *reminderRepository) FindDue(ctx context.Context, now time.Time) ([]*model.Reminder, error) {
	query := fmt.Sprintf(`
		SELECT %s,
			u.email AS user_email,
			u.language AS user_language,
			u.web_push_enabled AS user_web_push_enabled,
			u.email_enabled AS user_email_enabled,
			u.email_fallback AS user_email_fallback,
			u.push_endpoint AS user_push_endpoint,
			u.push_p256dh AS user_push_p256dh,
			u.push_auth AS user_push_auth
		FROM reminders r
		JOIN users u ON u.id = r.user_id
		WHERE (r.status = $1 AND r.scheduled_time <= $3)
		   OR (r.status = $2 AND r.snooze_until IS NOT NULL AND r.snooze_until <= $3)`,
		reminderColumns)

	var rows []dueRow
	if err := r.db.SelectContext(ctx, &rows, query,
		model.ReminderStatusPending, model.ReminderStatusSnoozed, now); err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}

	reminders := make([]*model.Reminder, 0, len(rows))
	for i := range rows {
		reminders = append(reminders, rows[i].toModel())
	}
	return reminders, nil
}

func (r *reminderRepository) FindCompletedRecurring(ctx context.Context, now time.Time) ([]*model.Reminder, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM reminders r
		WHERE r.status = $1
		  AND r.recurrence_type <> $2
		  AND r.scheduled_time <= $3`,
		reminderColumns)

	var rows []reminderRow
	if err := r.db.SelectContext(ctx, &rows, query,
		model.ReminderStatusCompleted, model.RecurrenceNone, now); err != nil {
		return nil, fmt.Errorf("failed to query completed recurring reminders: %w", err)
	}

	reminders := make([]*model.Reminder, 0, len(rows))
	for i := range rows {
		reminders = append(reminders, rows[i].toModel())
	}
	return reminders, nil
}

func (r *reminderRepository) FindStale(ctx context.Context, status model.ReminderStatus, cutoff time.Time) ([]*model.Reminder, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM reminders r
		WHERE r.status = $1 AND r.updated_at < $2`,
		reminderColumns)

	var rows []reminderRow
	if err := r.db.SelectContext(ctx, &rows, query, status, cutoff); err != nil {
		return nil, fmt.Errorf("failed to query stale reminders: %w", err)
	}

	reminders := make([]*model.Reminder, 0, len(rows))
	for i := range rows {
		reminders = append(reminders, rows[i].toModel())
	}
	return reminders, nil
}

func (r *reminderRepository) Create(ctx context.Context, reminder *model.Reminder) error {
	query := `
		INSERT INTO reminders (
			id, user_id, title, description, tags, priority,
			scheduled_time, recurrence_type, recurrence_interval,
			recurrence_end_date, recurrence_max_occurrences,
			recurrence_days_of_week, recurrence_occurrence,
			status, snooze_count, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)`

	_, err := r.db.ExecContext(ctx, query,
		reminder.ID, reminder.UserID, reminder.Title, reminder.Description,
		reminder.Tags, reminder.Priority, reminder.ScheduledTime,
		reminder.Recurrence.Type, reminder.Recurrence.Interval,
		reminder.Recurrence.EndDate, reminder.Recurrence.MaxOccurrences,
		reminder.Recurrence.DaysOfWeek, reminder.Recurrence.Occurrence,
		reminder.Status, reminder.SnoozeCount,
		reminder.CreatedAt, reminder.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

func (r *reminderRepository) Get(ctx context.Context, id uuid.UUID) (*model.Reminder, error) {
	query := fmt.Sprintf(`SELECT %s FROM reminders r WHERE r.id = $1`, reminderColumns)

	var row reminderRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("reminder", err)
		}
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return row.toModel(), nil
}

func (r *reminderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	return nil
}

func (r *reminderRepository) Exists(ctx context.Context, userID uuid.UUID, title string, scheduledTime time.Time, recurrenceType model.RecurrenceType) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM reminders
			WHERE user_id = $1 AND title = $2
			  AND scheduled_time = $3 AND recurrence_type = $4
		)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, title, scheduledTime, recurrenceType); err != nil {
		return false, fmt.Errorf("failed to check for duplicate reminder: %w", err)
	}
	return exists, nil
}

func (r *reminderRepository) RecordDeliveryOutcome(ctx context.Context, id uuid.UUID, channelName string, record model.DeliveryRecord) error {
	var query string
	switch channelName {
	case channel.WebPush:
		query = `
			UPDATE reminders
			SET web_push_sent = $2, web_push_sent_at = $3, web_push_error = $4, updated_at = NOW()
			WHERE id = $1`
	case channel.Email:
		query = `
			UPDATE reminders
			SET email_sent = $2, email_sent_at = $3, email_error = $4, updated_at = NOW()
			WHERE id = $1`
	default:
		return apperrors.BadRequest(fmt.Sprintf("unknown delivery channel %q", channelName), nil)
	}

	if _, err := r.db.ExecContext(ctx, query, id, record.Sent, record.SentAt, record.Error); err != nil {
		return fmt.Errorf("failed to record delivery outcome: %w", err)
	}
	return nil
}

func (r *reminderRepository) ResetSnooze(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE reminders
		SET status = $2, snooze_until = NULL, updated_at = NOW()
		WHERE id = $1 AND status = $3`

	if _, err := r.db.ExecContext(ctx, query, id,
		model.ReminderStatusPending, model.ReminderStatusSnoozed); err != nil {
		return fmt.Errorf("failed to reset snooze: %w", err)
	}
	return nil
}

func (r *reminderRepository) ClearExpiredShares(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE reminders
		SET share_token = '', share_expires_at = NULL, updated_at = NOW()
		WHERE share_expires_at IS NOT NULL AND share_expires_at <= $1`

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired shares: %w", err)
	}
	return res.RowsAffected()
}

func (r *reminderRepository) DeleteOlderThan(ctx context.Context, status model.ReminderStatus, cutoff time.Time) (int64, error) {
	// Completed reminders age from their completion time; cancelled ones
	// from their last update (the cancellation).
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM reminders WHERE status = $1 AND COALESCE(completed_at, updated_at) < $2`, status, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale reminders: %w", err)
	}
	return res.RowsAffected()
}
