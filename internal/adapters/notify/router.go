// Package notify delivers alert messages over Twilio and Telegram.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

var ErrNoChannel = errors.New("no notification channel for recipient")

// Router picks a channel by recipient: "telegram:<id>" goes to Telegram and
// anything else is treated as a phone number.
type Router struct {
	sms      ports.Notifier
	telegram ports.Notifier
}

var _ ports.Notifier = (*Router)(nil)

func NewRouter(sms, telegram ports.Notifier) *Router {
	return &Router{sms: sms, telegram: telegram}
}

func (r *Router) Name() string { return "router" }

func (r *Router) Send(ctx context.Context, recipient, body string) (domain.Ack, error) {
	target := r.sms
	if strings.HasPrefix(recipient, TelegramScheme) {
		target = r.telegram
	}
	if target == nil {
		return domain.Ack{}, fmt.Errorf("%w: %s", ErrNoChannel, recipient)
	}
	return target.Send(ctx, recipient, body)
}

// Log writes messages to the logger instead of sending them.
type Log struct {
	log zerolog.Logger
	seq atomic.Uint64
}

func NewLog(log zerolog.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Name() string { return "log" }

func (l *Log) Send(_ context.Context, recipient, body string) (domain.Ack, error) {
	id := l.seq.Add(1)
	l.log.Info().
		Str("recipient", recipient).
		Str("body", body).
		Uint64("id", id).
		Msg("notification_dry_run")
	return domain.Ack{Channel: "log", ID: fmt.Sprintf("dry-%d", id)}, nil
}

// New builds the notifier described by cfg. Channels without credentials are
// left out; with none configured every send fails with ErrNoChannel.
func New(cfg Config, log zerolog.Logger) (ports.Notifier, error) {
	if cfg.DryRun {
		return NewLog(log), nil
	}

	var sms, tg ports.Notifier
	if cfg.Twilio.Enabled() {
		s, err := NewTwilio(cfg.Twilio)
		if err != nil {
			return nil, err
		}
		sms = s
	}
	if cfg.Telegram.Enabled() {
		t, err := NewTelegram(cfg.Telegram)
		if err != nil {
			return nil, err
		}
		tg = t
	}
	if sms == nil && tg == nil {
		log.Warn().Msg("no notification channel configured; alerts will not be delivered")
	}
	return NewRouter(sms, tg), nil
}
