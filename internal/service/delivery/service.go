package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/reminderd/internal/channel"
	"github.com/jwalitptl/reminderd/internal/model"
	"github.com/jwalitptl/reminderd/internal/repository"
	"github.com/jwalitptl/reminderd/pkg/logger"
	"github.com/jwalitptl/reminderd/pkg/messaging"
	"github.com/jwalitptl/reminderd/pkg/metrics"
)

// Outcome aggregates both channels' results for one reminder. Channels are
// independent; a failed push never blocks the email fallback and vice versa.
type Outcome struct {
	WebPush channel.Result `json:"web_push"`
	Email   channel.Result `json:"email"`
}

// Delivered reports whether at least one channel got the notification out.
func (o Outcome) Delivered() bool {
	return o.WebPush.Sent || o.Email.Sent
}

// event is the broker payload handed off to the API/PWA layer.
type event struct {
	ReminderID uuid.UUID `json:"reminder_id"`
	UserID     uuid.UUID `json:"user_id"`
	Title      string    `json:"title"`
	Outcome    Outcome   `json:"outcome"`
	At         time.Time `json:"at"`
}

type Service interface {
	Deliver(ctx context.Context, reminder *model.Reminder, user *model.User) Outcome
}

type service struct {
	reminders repository.ReminderRepository
	users     repository.UserRepository
	push      channel.PushSender
	email     channel.EmailSender
	broker    messaging.Broker
	logger    *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewService(
	reminders repository.ReminderRepository,
	users repository.UserRepository,
	push channel.PushSender,
	email channel.EmailSender,
	broker messaging.Broker,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) Service {
	return &service{
		reminders: reminders,
		users:     users,
		push:      push,
		email:     email,
		broker:    broker,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Deliver attempts push first when the user can receive it, then decides the
// email fallback from the push outcome. Each attempted channel's result is
// persisted on the reminder's own delivery record. Deliver never returns an
// error: channel failures are aggregated into the outcome so the caller can
// judge overall success, and one reminder's failure stays isolated from the
// rest of the cycle.
func (s *service) Deliver(ctx context.Context, reminder *model.Reminder, user *model.User) Outcome {
	var outcome Outcome

	if user.CanReceivePush() {
		outcome.WebPush = s.deliverPush(ctx, reminder, user)
	}

	// Email is a safety net, not a duplicate channel: send it when push did
	// not get through, or when the push channel is unavailable for the user.
	attemptEmail := user.EmailEnabled &&
		((user.EmailFallback && !outcome.WebPush.Sent) || !user.CanReceivePush())
	if attemptEmail {
		outcome.Email = s.deliverEmail(ctx, reminder, user)
	}

	s.publishOutcome(ctx, reminder, outcome)
	return outcome
}

func (s *service) deliverPush(ctx context.Context, reminder *model.Reminder, user *model.User) channel.Result {
	timer := prometheus.NewTimer(s.metrics.DeliveryLatency.WithLabelValues(channel.WebPush))
	result := s.push.Send(ctx, user.PushSubscription, pushPayload(reminder), reminder.Urgency())
	timer.ObserveDuration()

	if result.Error != nil && *result.Error == channel.ErrSubscriptionInvalid {
		// The endpoint is gone; clear it so future cycles stop retrying a
		// dead subscription until the user re-subscribes.
		if err := s.users.ClearPushSubscription(ctx, user.ID); err != nil {
			s.logger.Error(err, "failed to clear dead push subscription", "user_id", user.ID.String())
		} else {
			user.PushSubscription = nil
			s.metrics.SubscriptionsLost.Inc()
			s.logger.Info("cleared gone push subscription", "user_id", user.ID.String())
		}
	}

	s.recordResult(ctx, reminder.ID, channel.WebPush, result)
	return result
}

func (s *service) deliverEmail(ctx context.Context, reminder *model.Reminder, user *model.User) channel.Result {
	timer := prometheus.NewTimer(s.metrics.DeliveryLatency.WithLabelValues(channel.Email))
	result := s.email.Send(ctx, user.Email, reminder, user.Language)
	timer.ObserveDuration()

	s.recordResult(ctx, reminder.ID, channel.Email, result)
	return result
}

func (s *service) recordResult(ctx context.Context, reminderID uuid.UUID, channelName string, result channel.Result) {
	record := model.DeliveryRecord{Sent: result.Sent}
	if result.Sent {
		now := s.now()
		record.SentAt = &now
		s.metrics.DeliveryAttempts.WithLabelValues(channelName, "sent").Inc()
	} else if result.Error != nil {
		record.Error = string(*result.Error)
		s.metrics.DeliveryAttempts.WithLabelValues(channelName, string(*result.Error)).Inc()
	}

	if err := s.reminders.RecordDeliveryOutcome(ctx, reminderID, channelName, record); err != nil {
		s.logger.Error(err, "failed to persist delivery record",
			"reminder_id", reminderID.String(), "channel", channelName)
	}
}

func (s *service) publishOutcome(ctx context.Context, reminder *model.Reminder, outcome Outcome) {
	if s.broker == nil {
		return
	}

	topic := messaging.ChannelReminderDelivered
	if !outcome.Delivered() {
		topic = messaging.ChannelReminderDeliveryFailed
	}

	evt := event{
		ReminderID: reminder.ID,
		UserID:     reminder.UserID,
		Title:      reminder.Title,
		Outcome:    outcome,
		At:         s.now(),
	}
	if err := s.broker.Publish(ctx, topic, evt); err != nil {
		s.logger.Error(err, "failed to publish delivery event", "reminder_id", reminder.ID.String())
	}
}

func pushPayload(reminder *model.Reminder) *channel.PushPayload {
	body := reminder.Description
	if body == "" {
		body = reminder.Title
	}
	return &channel.PushPayload{
		Title: reminder.Title,
		Body:  body,
		Icon:  "/icons/icon-192.png",
		Badge: "/icons/badge-72.png",
		Tag:   "reminder-" + reminder.ID.String(),
		Actions: []channel.PushAction{
			{Action: "complete", Title: "Complete"},
			{Action: "snooze", Title: "Snooze"},
		},
		Data: channel.PushData{
			ReminderID: reminder.ID.String(),
			Priority:   string(reminder.Priority),
		},
	}
}
