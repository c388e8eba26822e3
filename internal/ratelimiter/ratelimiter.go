// Package ratelimiter keeps outgoing Telegram calls under the flood limits:
// one message per second in private chats, one per three seconds in groups
// and thirty per second overall.
package ratelimiter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

const (
	privateChatRate = time.Second
	groupChatRate   = 3 * time.Second
	globalRate      = 30
	maxTrackedChats = 10_000
)

// Sender is the part of the Telegram API the limiter forwards to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type chatLimiter struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

type RateLimiter struct {
	api    Sender
	global *rate.Limiter

	mu    sync.Mutex
	chats map[int64]*chatLimiter

	ctx    context.Context
	cancel context.CancelFunc
	log    *slog.Logger
}

func New(ctx context.Context, api Sender, log *slog.Logger) *RateLimiter {
	ctx, cancel := context.WithCancel(ctx)

	return &RateLimiter{
		api:    api,
		global: rate.NewLimiter(rate.Limit(globalRate), globalRate),
		chats:  make(map[int64]*chatLimiter),
		ctx:    ctx,
		cancel: cancel,
		log:    log,
	}
}

// Send waits for the chat's turn and sends the message.
func (rl *RateLimiter) Send(ctx context.Context, message tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := rl.wait(ctx, getChatID(message)); err != nil {
		return tgbotapi.Message{}, err
	}

	return rl.api.Send(message)
}

// Request forwards calls that are not chat messages, like callback answers and
// chat actions. Only the global limit applies to them.
func (rl *RateLimiter) Request(ctx context.Context, c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	ctx, cancel := rl.merge(ctx)
	defer cancel()

	if err := rl.global.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for global limit: %w", err)
	}

	return rl.api.Request(c)
}

// Stop fails every pending and future call.
func (rl *RateLimiter) Stop() {
	rl.cancel()
}

func (rl *RateLimiter) wait(ctx context.Context, chatID int64) error {
	ctx, cancel := rl.merge(ctx)
	defer cancel()

	reservation := rl.chatLimiter(chatID, time.Now()).Reserve()

	if delay := reservation.Delay(); delay > 0 {
		rl.log.DebugContext(ctx, "Rate limiting message",
			"chatID", chatID,
			"delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			reservation.Cancel()
			return fmt.Errorf("wait for chat limit: %w", ctx.Err())
		}
	}

	if err := rl.global.Wait(ctx); err != nil {
		return fmt.Errorf("wait for global limit: %w", err)
	}

	return nil
}

// merge returns a context that is done when either ctx or the limiter is.
func (rl *RateLimiter) merge(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(rl.ctx, cancel)

	return ctx, func() {
		stop()
		cancel()
	}
}

func (rl *RateLimiter) chatLimiter(chatID int64, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	chat, ok := rl.chats[chatID]
	if !ok {
		if len(rl.chats) >= maxTrackedChats {
			rl.forgetIdleLocked(now)
		}

		chat = &chatLimiter{limiter: rate.NewLimiter(rate.Every(getRate(chatID)), 1)}
		rl.chats[chatID] = chat
	}
	chat.lastUsed = now

	return chat.limiter
}

// A chat idle for longer than its rate has a full bucket, so forgetting it
// changes nothing.
func (rl *RateLimiter) forgetIdleLocked(now time.Time) {
	for chatID, chat := range rl.chats {
		if now.Sub(chat.lastUsed) > getRate(chatID) {
			delete(rl.chats, chatID)
		}
	}
}

func getChatID(message tgbotapi.Chattable) int64 {
	switch m := message.(type) {
	case tgbotapi.MessageConfig:
		return m.ChatID
	case tgbotapi.PhotoConfig:
		return m.ChatID
	case tgbotapi.EditMessageTextConfig:
		return m.ChatID
	case tgbotapi.EditMessageReplyMarkupConfig:
		return m.ChatID
	case tgbotapi.DeleteMessageConfig:
		return m.ChatID
	case tgbotapi.ChatActionConfig:
		return m.ChatID
	default:
		return 0
	}
}

// Group chats have negative IDs.
func getRate(chatID int64) time.Duration {
	if chatID < 0 {
		return groupChatRate
	}
	return privateChatRate
}
