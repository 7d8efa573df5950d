package push

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/reminderd/internal/channel"
	"github.com/jwalitptl/reminderd/internal/model"
	"github.com/jwalitptl/reminderd/pkg/logger"
)

// Reminder payloads stay meaningful for a day; after that the push service
// may drop them.
const payloadTTL = 24 * time.Hour

type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string  // contact mailto/URL sent to the push service
	RatePerSecond   float64 // 0 disables throttling
	RateBurst       int
}

// Adapter sends web push notifications. It distinguishes a gone subscription
// (endpoint returned 404/410) from transient transport failures so the
// orchestrator can clear dead subscriptions.
type Adapter struct {
	cfg     Config
	limiter *rate.Limiter
	logger  *logger.Logger

	// send is swappable for tests.
	send func(ctx context.Context, payload []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error)
}

func New(cfg Config, logger *logger.Logger) *Adapter {
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return &Adapter{
		cfg:     cfg,
		limiter: limiter,
		logger:  logger,
		send:    webpush.SendNotificationWithContext,
	}
}

func (a *Adapter) Configured() bool {
	return a.cfg.VAPIDPublicKey != "" && a.cfg.VAPIDPrivateKey != ""
}

func (a *Adapter) Send(ctx context.Context, sub *model.PushSubscription, payload *channel.PushPayload, urgency string) channel.Result {
	if !a.Configured() {
		return channel.Failure(channel.ErrChannelNotConfigured)
	}
	if !sub.Valid() {
		return channel.Failure(channel.ErrSubscriptionInvalid)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		a.logger.Error(err, "failed to marshal push payload")
		return channel.Failure(channel.ErrTransportFailure)
	}

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return channel.Failure(channel.ErrTransportFailure)
		}
	}

	wpUrgency := webpush.UrgencyNormal
	if urgency == "high" {
		wpUrgency = webpush.UrgencyHigh
	}

	resp, err := a.send(ctx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      a.cfg.Subscriber,
		VAPIDPublicKey:  a.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: a.cfg.VAPIDPrivateKey,
		TTL:             int(payloadTTL.Seconds()),
		Urgency:         wpUrgency,
	})
	if err != nil {
		a.logger.Error(err, "push send failed", "endpoint", sub.Endpoint)
		return channel.Failure(channel.ErrTransportFailure)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return channel.Failure(channel.ErrSubscriptionInvalid)
	case resp.StatusCode >= 400:
		a.logger.Warn("push service rejected notification", "status", resp.StatusCode, "endpoint", sub.Endpoint)
		return channel.Failure(channel.ErrTransportFailure)
	}

	return channel.Success()
}
