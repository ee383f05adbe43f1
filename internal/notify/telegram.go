package notify

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is satisfied by *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends each reminder as a chat message.
type TelegramNotifier struct {
	bot    Sender
	chatID int64
	loc    *time.Location
}

// NewTelegramNotifier logs in with token.
func NewTelegramNotifier(token string, chatID int64, loc *time.Location) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	return NewTelegramNotifierWithSender(bot, chatID, loc), nil
}

func NewTelegramNotifierWithSender(bot Sender, chatID int64, loc *time.Location) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatID: chatID, loc: loc}
}

func (n *TelegramNotifier) Notify(ctx context.Context, r Reminder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, r.Text(n.loc))
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram notify todo %d: %w", r.TodoID, err)
	}
	return nil
}
