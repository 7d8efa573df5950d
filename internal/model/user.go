package model

import (
	"github.com/google/uuid"
)

// PushSubscription is the browser push endpoint plus its encryption keys.
type PushSubscription struct {
	Endpoint string `json:"endpoint" db:"push_endpoint"`
	P256dh   string `json:"p256dh" db:"push_p256dh"`
	Auth     string `json:"auth" db:"push_auth"`
}

func (s *PushSubscription) Valid() bool {
	return s != nil && s.Endpoint != "" && s.P256dh != "" && s.Auth != ""
}

// User is the notification-relevant projection of an account: channel flags
// and at most one push subscription. The full account lives behind the API
// layer and is out of scope here.
type User struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Email    string    `json:"email" db:"email"`
	Language string    `json:"language" db:"language"`

	WebPushEnabled bool `json:"web_push_enabled" db:"web_push_enabled"`
	EmailEnabled   bool `json:"email_enabled" db:"email_enabled"`
	EmailFallback  bool `json:"email_fallback" db:"email_fallback"`

	PushSubscription *PushSubscription `json:"push_subscription,omitempty"`
}

// CanReceivePush reports whether the push channel is usable for this user.
func (u *User) CanReceivePush() bool {
	return u.WebPushEnabled && u.PushSubscription.Valid()
}
