package bot

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"standupboard/internal/domain"
	"standupboard/internal/markdown"
)

// Telegram rejects longer message texts.
const maxMessageLength = 4096

const truncatedNotice = "\n\n…"

// formatSection adds updates whole until the next one would not fit, so no
// MarkdownV2 entity is ever split. An update that does not fit gets a shortened message.
func formatSection(section domain.GroupSection) string {
	var b strings.Builder

	b.WriteString("👥 *")
	b.WriteString(markdown.EscapeV2(section.Name))
	b.WriteString("* ")
	b.WriteString(markdown.EscapeV2("(" + strconv.Itoa(section.TotalUpdates) + " updates)"))

	if len(section.Updates) == 0 {
		b.WriteString("\n\n")
		b.WriteString(markdown.EscapeV2("No updates on this page."))
	}

	room := maxMessageLength - utf8.RuneCountInString(b.String()) - utf8.RuneCountInString(truncatedNotice)

	for _, update := range section.Updates {
		block := formatUpdate(update)
		if n := utf8.RuneCountInString(block); n <= room {
			b.WriteString(block)
			room -= n

			continue
		}

		if shortened, ok := shortenUpdate(update, room); ok {
			b.WriteString(shortened)
		}
		b.WriteString(truncatedNotice)

		break
	}

	return b.String()
}

func formatUpdate(update domain.DisplayUpdate) string {
	var b strings.Builder

	b.WriteString("\n\n📅 ")
	b.WriteString(markdown.EscapeV2(update.FormattedDate))

	if !update.Message.IsEmpty() {
		b.WriteString("\n")
		b.WriteString(markdown.InlineCode(update.Message.Text))
	}

	for i, link := range update.Message.Links {
		b.WriteString("\n")
		b.WriteString(markdown.Link("🔗 Link "+strconv.Itoa(i+1), link))
	}

	if line := mediaLine(update.Media); line != "" {
		b.WriteString("\n")
		b.WriteString(line)
	}

	return b.String()
}

// shortenUpdate cuts the message text of update until it fits into room.
func shortenUpdate(update domain.DisplayUpdate, room int) (string, bool) {
	text := []rune(update.Message.Text)

	for len(text) > 0 {
		update.Message.Text = string(text)

		block := formatUpdate(update)
		excess := utf8.RuneCountInString(block) - room
		if excess <= 0 {
			return block, true
		}

		text = text[:max(len(text)-excess, 0)]
	}

	return "", false
}

func mediaLine(media domain.MediaView) string {
	switch m := media.(type) {
	case domain.ImageView:
		return markdown.Link("🖼 Photo", m.Source)
	case domain.PlaybackView:
		return markdown.Link(mediaIcon(m.Kind)+" "+mediaLabel(m.Kind), m.Source)
	default:
		return ""
	}
}

func mediaIcon(kind domain.MediaKind) string {
	switch kind {
	case domain.MediaVoice, domain.MediaAudio:
		return "🎙"
	case domain.MediaVideo, domain.MediaVideoNote:
		return "🎬"
	case domain.MediaAnimation:
		return "🎞"
	case domain.MediaUnknown, domain.MediaText, domain.MediaPhoto:
		return "📎"
	default:
		return "📎"
	}
}

func mediaLabel(kind domain.MediaKind) string {
	switch kind {
	case domain.MediaVoice:
		return "Voice message"
	case domain.MediaAudio:
		return "Audio"
	case domain.MediaVideo:
		return "Video"
	case domain.MediaVideoNote:
		return "Video note"
	case domain.MediaAnimation:
		return "Animation"
	case domain.MediaUnknown, domain.MediaText, domain.MediaPhoto:
		return "Attachment"
	default:
		return "Attachment"
	}
}
