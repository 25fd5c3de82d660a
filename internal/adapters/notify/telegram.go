package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
)

// TelegramScheme prefixes recipients that are Telegram chat ids.
const TelegramScheme = "telegram:"

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends messages with a bot account.
type Telegram struct {
	bot botSender
}

func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return &Telegram{bot: bot}, nil
}

func (t *Telegram) Name() string { return "telegram" }

// Send accepts "telegram:<chat id>" or a bare chat id.
func (t *Telegram) Send(ctx context.Context, recipient, body string) (domain.Ack, error) {
	if err := ctx.Err(); err != nil {
		return domain.Ack{}, err
	}

	chatID, err := strconv.ParseInt(strings.TrimPrefix(recipient, TelegramScheme), 10, 64)
	if err != nil {
		return domain.Ack{}, fmt.Errorf("telegram: bad chat id %q", recipient)
	}

	msg, err := t.bot.Send(tgbotapi.NewMessage(chatID, body))
	if err != nil {
		return domain.Ack{}, fmt.Errorf("telegram send to %d: %w", chatID, err)
	}
	return domain.Ack{Channel: "telegram", ID: strconv.Itoa(msg.MessageID)}, nil
}
