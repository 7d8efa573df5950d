package email

import (
	"context"
	"net/mail"

	gomail "gopkg.in/gomail.v2"

	"github.com/jwalitptl/reminderd/internal/channel"
	"github.com/jwalitptl/reminderd/internal/model"
	"github.com/jwalitptl/reminderd/pkg/logger"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Adapter sends reminder emails over SMTP. Content is localized per user
// language and rendered bidirectional-aware for RTL scripts.
type Adapter struct {
	cfg    Config
	logger *logger.Logger

	// dial is swappable for tests.
	dial func(m *gomail.Message) error
}

func New(cfg Config, logger *logger.Logger) *Adapter {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &Adapter{
		cfg:    cfg,
		logger: logger,
		dial: func(m *gomail.Message) error {
			return dialer.DialAndSend(m)
		},
	}
}

func (a *Adapter) Configured() bool {
	return a.cfg.Host != "" && a.cfg.From != ""
}

func (a *Adapter) Send(ctx context.Context, to string, reminder *model.Reminder, language string) channel.Result {
	if !a.Configured() {
		return channel.Failure(channel.ErrChannelNotConfigured)
	}
	if _, err := mail.ParseAddress(to); err != nil {
		return channel.Failure(channel.ErrRecipientInvalid)
	}
	if err := ctx.Err(); err != nil {
		return channel.Failure(channel.ErrTransportFailure)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", a.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", renderSubject(reminder, language))
	m.SetBody("text/plain", renderText(reminder, language))
	m.AddAlternative("text/html", renderHTML(reminder, language))

	if err := a.dial(m); err != nil {
		a.logger.Error(err, "email send failed", "to", to, "reminder_id", reminder.ID.String())
		return channel.Failure(channel.ErrTransportFailure)
	}

	return channel.Success()
}
