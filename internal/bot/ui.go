package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram clears a chat action after about five seconds.
const typingInterval = 4 * time.Second

// keepTyping shows the typing indicator in chatID until the returned stop is called.
func (b *Bot) keepTyping(ctx context.Context, chatID int64) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)

		t := time.NewTicker(typingInterval)
		defer t.Stop()

		for {
			b.sendChatAction(ctx, chatID, tgbotapi.ChatTyping)

			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func (b *Bot) sendChatAction(ctx context.Context, chatID int64, action string) {
	if _, err := b.rateLimiter.Request(ctx, tgbotapi.NewChatAction(chatID, action)); err != nil && ctx.Err() == nil {
		b.log.WarnContext(ctx, "Failed to send chat action",
			"error", err,
			"chatID", chatID,
			"action", action)
	}
}
