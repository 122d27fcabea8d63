package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ChatIDSource resolves the Telegram chat to deliver to. The chat id is
// learned at runtime from /start, so absence is normal and not an error.
type ChatIDSource interface {
	ChatID(ctx context.Context) (int64, bool)
}

// TelegramSink pushes payloads to the owner's Telegram chat.
type TelegramSink struct {
	api   *tgbotapi.BotAPI
	chats ChatIDSource
}

func NewTelegramSink(api *tgbotapi.BotAPI, chats ChatIDSource) *TelegramSink {
	return &TelegramSink{api: api, chats: chats}
}

func (s *TelegramSink) Name() string { return "telegram" }

// Send is a no-op until a chat id has been recorded.
func (s *TelegramSink) Send(ctx context.Context, p Payload) error {
	chatID, ok := s.chats.ChatID(ctx)
	if !ok {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, p.Title+"\n"+p.Body)
	if _, err := s.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send to chat %d: %w", chatID, err)
	}
	return nil
}
