package telegram

import (
	"context"
	"fmt"
	"strategy-lab/config"
	"strategy-lab/pkg/logger"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

// Sender is the part of *telebot.Bot the notifier needs.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// Notifier pushes messages to a single configured chat, throttled to Telegram's
// per-chat limit.
type Notifier struct {
	log     *logger.Logger
	sender  Sender
	chat    *telebot.Chat
	limiter *rate.Limiter
}

// NewBot builds an offline bot: it only sends, it never polls for updates.
func NewBot(cfg config.Telegram) (*telebot.Bot, error) {
	bot, err := telebot.NewBot(telebot.Settings{
		Token:   cfg.BotToken,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return bot, nil
}

func NewNotifier(log *logger.Logger, sender Sender, chatID int64) *Notifier {
	return &Notifier{
		log:     log,
		sender:  sender,
		chat:    &telebot.Chat{ID: chatID},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
}

func (n *Notifier) Notify(ctx context.Context, text string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit: %w", err)
	}
	if _, err := n.sender.Send(n.chat, text, telebot.ModeMarkdown); err != nil {
		n.log.ErrorContext(ctx, "Failed to send telegram message", logger.ErrorField(err))
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}
