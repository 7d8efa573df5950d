package channel

import (
	"context"

	"github.com/jwalitptl/reminderd/internal/model"
)

// Channel names as persisted on delivery records.
const (
	WebPush = "web_push"
	Email   = "email"
)

// ErrorKind classifies channel failures so the orchestrator can decide what
// is retryable, what is self-healing and what needs operator attention.
type ErrorKind string

const (
	// ErrChannelNotConfigured means the channel has no credentials or keys;
	// permanent until fixed in config.
	ErrChannelNotConfigured ErrorKind = "channel_not_configured"
	// ErrSubscriptionInvalid means the push endpoint rejected the
	// subscription as gone; the stored subscription should be cleared.
	ErrSubscriptionInvalid ErrorKind = "subscription_invalid"
	// ErrTransportFailure is a transient network or provider error; the
	// reminder stays due and is retried next cycle.
	ErrTransportFailure ErrorKind = "transport_failure"
	// ErrRecipientInvalid means the email was rejected at submission.
	ErrRecipientInvalid ErrorKind = "recipient_invalid"
)

// Result is the outcome of a single channel send.
type Result struct {
	Attempted bool       `json:"attempted"`
	Sent      bool       `json:"sent"`
	Error     *ErrorKind `json:"error,omitempty"`
}

func Success() Result {
	return Result{Attempted: true, Sent: true}
}

func Failure(kind ErrorKind) Result {
	return Result{Attempted: true, Error: &kind}
}

// PushPayload is the JSON body handed to the push transport. Action
// identifiers match what the service worker understands.
type PushPayload struct {
	Title   string       `json:"title"`
	Body    string       `json:"body"`
	Icon    string       `json:"icon,omitempty"`
	Badge   string       `json:"badge,omitempty"`
	Tag     string       `json:"tag,omitempty"`
	Actions []PushAction `json:"actions"`
	Data    PushData     `json:"data"`
}

type PushAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

type PushData struct {
	ReminderID string `json:"reminder_id"`
	Priority   string `json:"priority"`
}

// PushSender delivers a payload to a single push subscription.
type PushSender interface {
	Send(ctx context.Context, sub *model.PushSubscription, payload *PushPayload, urgency string) Result
}

// EmailSender delivers a reminder email to a single recipient.
type EmailSender interface {
	Send(ctx context.Context, to string, reminder *model.Reminder, language string) Result
}
