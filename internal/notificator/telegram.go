package notificator

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"

	"github.com/coinlaunch/launchbot/internal/models"
	"github.com/coinlaunch/launchbot/pkg/logger"
)

const sendTimeout = 10 * time.Second

// TelegramNotificator sends pipeline alerts to a single ops chat.
type TelegramNotificator struct {
	logger *logger.Logger
	bot    *bot.Bot
	chatID string
}

// NewTelegramNotificator creates the notificator, or ErrUnconfigured when the
// bot token or chat id is missing.
func NewTelegramNotificator(token, chatID string, logger *logger.Logger) (*TelegramNotificator, error) {
	if token == "" || chatID == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN or TELEGRAM_OPS_CHAT_ID is missing: %w", models.ErrUnconfigured)
	}

	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramNotificator{logger: logger, bot: b, chatID: chatID}, nil
}

// SendAlert delivers the message to the ops chat. Failures are logged only.
func (t *TelegramNotificator) SendAlert(message string) {
	safeCall(t.logger, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: t.chatID,
			Text:   message,
		})
		if err != nil {
			t.logger.Error("Failed to send ops alert: ", err)
		}
	})
}
