package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"standupboard/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	data := strings.TrimSpace(callback.Data)

	if data == noopCallbackData {
		return b.answerCallback(ctx, callback, "")
	}

	groupID, page, ok := parsePageCallback(data)
	if !ok || callback.Message == nil || callback.Message.Chat == nil {
		return b.answerCallback(ctx, callback, "")
	}

	return b.handlePageQuery(ctx, callback, groupID, page)
}

func (b *Bot) handlePageQuery(
	ctx context.Context,
	callback *tgbotapi.CallbackQuery,
	groupID domain.GroupID,
	page int,
) error {
	chatID := callback.Message.Chat.ID

	feed, ok := b.feeds.Get(feedKey(chatID, callback.From.ID), time.Now())
	if !ok {
		return b.answerCallback(ctx, callback, "⌛ Expired. Send /updates again.")
	}

	feed.SetPage(groupID, page)
	vm := feed.View()

	var section *domain.GroupSection
	for i := range vm.Groups {
		if vm.Groups[i].ID == groupID {
			section = &vm.Groups[i]
			break
		}
	}

	if section == nil {
		b.log.WarnContext(ctx, "Group is missing from feed",
			"groupID", groupID,
			"chatID", chatID,
			"status", vm.Status.String())

		return b.answerCallback(ctx, callback, "⌛ Expired. Send /updates again.")
	}

	var errs []error
	if err := b.answerCallback(ctx, callback, ""); err != nil {
		errs = append(errs, err)
	}

	if err := b.editMessageWithKeyboard(
		ctx,
		chatID,
		callback.Message.MessageID,
		formatSection(*section),
		sectionKeyboard(*section),
	); err != nil {
		errs = append(errs, fmt.Errorf("edit message with keyboard: %w", err))
	}

	return errors.Join(errs...)
}

func (b *Bot) answerCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, text string) error {
	if _, err := b.rateLimiter.Request(ctx, tgbotapi.NewCallback(callback.ID, text)); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	return nil
}
