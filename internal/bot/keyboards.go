package bot

import (
	"context"
	"strconv"
	"strings"

	"standupboard/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	pageCallbackPrefix = "page:"
	noopCallbackData   = "noop"
)

// sectionKeyboard returns the page control of a group, or nil when it fits on one page.
func sectionKeyboard(section domain.GroupSection) [][]tgbotapi.InlineKeyboardButton {
	if section.PageCount <= 1 && section.Page == 0 {
		return nil
	}

	last := section.PageCount - 1
	current := min(section.Page, last)

	var row []tgbotapi.InlineKeyboardButton

	if current > 0 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("⬅️", pageCallbackData(section.ID, current-1)))
	}

	label := strconv.Itoa(section.Page+1) + "/" + strconv.Itoa(section.PageCount)
	row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, noopCallbackData))

	if section.Page < last {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("➡️", pageCallbackData(section.ID, section.Page+1)))
	}

	return [][]tgbotapi.InlineKeyboardButton{row}
}

func pageCallbackData(id domain.GroupID, page int) string {
	return pageCallbackPrefix + string(id) + ":" + strconv.Itoa(page)
}

func parsePageCallback(data string) (domain.GroupID, int, bool) {
	rest, ok := strings.CutPrefix(data, pageCallbackPrefix)
	if !ok {
		return "", 0, false
	}

	sep := strings.LastIndex(rest, ":")
	if sep <= 0 {
		return "", 0, false
	}

	page, err := strconv.Atoi(rest[sep+1:])
	if err != nil || page < 0 {
		return "", 0, false
	}

	return domain.GroupID(rest[:sep]), page, true
}

func (b *Bot) sendMessageWithKeyboard(
	ctx context.Context,
	chatID int64,
	text string,
	keyboard [][]tgbotapi.InlineKeyboardButton,
) error {
	message := tgbotapi.NewMessage(chatID, b.normalizeText(chatID, text))

	// See https://core.telegram.org/bots/api#markdownv2-style.
	message.ParseMode = tgbotapi.ModeMarkdownV2

	message.DisableWebPagePreview = true
	if len(keyboard) > 0 {
		message.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	}

	_, err := b.rateLimiter.Send(ctx, message)
	return err
}

func (b *Bot) editMessageWithKeyboard(
	ctx context.Context,
	chatID int64,
	messageID int,
	text string,
	keyboard [][]tgbotapi.InlineKeyboardButton,
) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, b.normalizeText(chatID, text))
	edit.ParseMode = tgbotapi.ModeMarkdownV2
	edit.DisableWebPagePreview = true

	if len(keyboard) > 0 {
		markup := tgbotapi.NewInlineKeyboardMarkup(keyboard...)
		edit.ReplyMarkup = &markup
	}

	_, err := b.rateLimiter.Send(ctx, edit)
	return err
}

func (b *Bot) normalizeText(chatID int64, text string) string {
	normalized := strings.ToValidUTF8(text, "?")
	if normalized != text {
		b.log.Warn("Message text had invalid UTF-8 and was normalized",
			"chatID", chatID,
			"originalLen", len(text),
			"normalizedLen", len(normalized))
	}

	return normalized
}
