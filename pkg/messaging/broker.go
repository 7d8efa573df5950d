package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Event channels published by the scheduler for the API/PWA layer to consume.
const (
	ChannelReminderDelivered      = "reminder.delivered"
	ChannelReminderDeliveryFailed = "reminder.delivery_failed"
	ChannelReminderRecurrence     = "reminder.recurrence_created"
)
