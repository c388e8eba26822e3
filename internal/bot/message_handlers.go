package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"standupboard/internal/domain"
	"standupboard/internal/markdown"
	"standupboard/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	welcomeText = `🤖 *Super Simple Standup Bot*

Group members submit updates here and everybody can look them up later\.

– /updates shows the updates of every group you are in`

	loginText    = "🔐 Log in on the dashboard first\\."
	failedText   = "❌ Could not load profile\\. Make sure you message the bot first\\."
	noGroupsText = "✖️ No group updates yet\\."
)

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	if !message.IsCommand() {
		return nil
	}

	switch message.Command() {
	case "start", "help":
		return b.sendMessageWithKeyboard(ctx, message.Chat.ID, b.withDashboardLink(welcomeText), nil)
	case "updates":
		return b.handleUpdatesCommand(ctx, message.Chat.ID, message.From.ID)
	default:
		return nil
	}
}

func (b *Bot) handleUpdatesCommand(ctx context.Context, chatID int64, userID int64) error {
	store := session.NewKVStore(b.kv, session.UserKey(userID), b.log)

	auth := session.Resolve(ctx, store, b.production)
	if _, ok := auth.(domain.LoggedOut); ok {
		return b.sendMessageWithKeyboard(ctx, chatID, b.withDashboardLink(loginText), nil)
	}

	stopTyping := b.keepTyping(ctx, chatID)
	defer stopTyping()

	feed, _ := b.feeds.GetOrCreate(feedKey(chatID, userID), time.Now(), b.composer.NewFeed)
	feed.SetAuth(ctx, auth)

	if err := feed.Wait(ctx); err != nil {
		return fmt.Errorf("wait for feed: %w", err)
	}

	vm := feed.View()

	switch vm.Status {
	case domain.StatusFailed:
		return b.sendMessageWithKeyboard(ctx, chatID, failedText, nil)
	case domain.StatusReady:
	default:
		return fmt.Errorf("feed is not ready (status = %s)", vm.Status)
	}

	if len(vm.Groups) == 0 {
		return b.sendMessageWithKeyboard(ctx, chatID, noGroupsText, nil)
	}

	var errs []error
	for _, section := range vm.Groups {
		if err := b.sendMessageWithKeyboard(ctx, chatID, formatSection(section), sectionKeyboard(section)); err != nil {
			errs = append(errs, fmt.Errorf("send section (groupID = %s): %w", section.ID, err))
		}
	}

	return errors.Join(errs...)
}

func (b *Bot) withDashboardLink(text string) string {
	if b.dashboardURL == "" {
		return text
	}

	return text + "\n\n" + markdown.Link("📊 Open dashboard", b.dashboardURL)
}
