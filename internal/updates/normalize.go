// Package updates turns raw group updates into display records.
package updates

import (
	"time"

	"standupboard/internal/domain"

	"mvdan.cc/xurls/v2"
)

const (
	// DateLayout keeps the calendar date only.
	DateLayout = "Mon Jan 02 2006"

	PhotoHeight = 200
	PhotoAlt    = "Submission"
)

//nolint:gochecknoglobals // Compiled once, safe for concurrent use.
var linkRe = xurls.Strict()

// Normalize converts every group's updates into display records. Records without
// both message and file path are dropped. The input is not modified.
func Normalize(groups []domain.GroupFeed) []domain.DisplayGroup {
	out := make([]domain.DisplayGroup, 0, len(groups))

	for _, group := range groups {
		out = append(out, domain.DisplayGroup{
			ID:      group.ID,
			Name:    group.Name,
			Updates: NormalizeUpdates(group.Updates),
		})
	}

	return out
}

func NormalizeUpdates(records []domain.UpdateRecord) []domain.DisplayUpdate {
	out := make([]domain.DisplayUpdate, 0, len(records))

	for _, record := range records {
		if !Displayable(record) {
			continue
		}

		out = append(out, domain.DisplayUpdate{
			FormattedDate: FormatDate(record.CreatedAt),
			Message:       messageView(record.Message),
			Media:         MediaViewFor(record.Kind, record.FilePath),
			CreatedAt:     record.CreatedAt,
		})
	}

	return out
}

// Displayable reports whether a record carries a message or a file.
func Displayable(record domain.UpdateRecord) bool {
	return record.Message != "" || record.FilePath != ""
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func messageView(message string) domain.MessageView {
	if message == "" {
		return domain.MessageView{}
	}

	return domain.MessageView{
		Text:  message,
		Links: linkRe.FindAllString(message, -1),
	}
}

// MediaViewFor picks the rendering of a file by media kind. It returns nil when
// there is nothing to render.
func MediaViewFor(kind domain.MediaKind, filePath string) domain.MediaView {
	if filePath == "" {
		return nil
	}

	switch kind {
	case domain.MediaVoice,
		domain.MediaVideo,
		domain.MediaAnimation,
		domain.MediaAudio,
		domain.MediaVideoNote:
		animation := kind == domain.MediaAnimation

		return domain.PlaybackView{
			Source:   filePath,
			Kind:     kind,
			Autoplay: animation,
			Controls: !animation,
			Loop:     true,
		}
	case domain.MediaPhoto:
		return domain.ImageView{
			Source: filePath,
			Alt:    PhotoAlt,
			Height: PhotoHeight,
		}
	case domain.MediaText, domain.MediaUnknown:
		return nil
	default:
		return nil
	}
}
