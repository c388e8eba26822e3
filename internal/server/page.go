package server

import "standupboard/internal/domain"

const (
	pageTitle       = "Super Simple Standup Bot"
	pageDescription = "Super simple standup bot brings standup functionality to Telegram. " +
		"Group members are able to submit updates, and they are all sent to a shared channel at a set time."
	documentationURL = "https://github.com/RusseII/telegram-standup-bot"
)

type pageData struct {
	Title            string
	Description      string
	BotName          string
	DocumentationURL string
	ShowLoginWidget  bool
	View             domain.ViewModel
	Groups           []groupData
}

type groupData struct {
	domain.GroupSection

	Anchor string
	Rows   []rowData
	Pages  []int
}

type rowData struct {
	Date  string
	Text  string
	Links []string
	Media mediaData
}

// mediaData flattens a MediaView for the templates.
type mediaData struct {
	View     string
	Source   string
	Autoplay bool
	Controls bool
	Loop     bool
	Alt      string
	Height   int
}

func (s *Server) newPageData(vm domain.ViewModel) pageData {
	data := pageData{
		Title:            pageTitle,
		Description:      pageDescription,
		BotName:          s.opts.BotName,
		DocumentationURL: documentationURL,
		ShowLoginWidget:  s.opts.Production && s.opts.BotName != "" && vm.Status == domain.StatusLoggedOut,
		View:             vm,
	}

	for _, section := range vm.Groups {
		group := groupData{
			GroupSection: section,
			Anchor:       groupAnchor(section.ID),
			Pages:        make([]int, section.PageCount),
		}

		for i := range group.Pages {
			group.Pages[i] = i
		}

		for _, update := range section.Updates {
			group.Rows = append(group.Rows, rowData{
				Date:  update.FormattedDate,
				Text:  update.Message.Text,
				Links: update.Message.Links,
				Media: newMediaData(update.Media),
			})
		}

		data.Groups = append(data.Groups, group)
	}

	return data
}

func newMediaData(media domain.MediaView) mediaData {
	switch m := media.(type) {
	case domain.PlaybackView:
		return mediaData{
			View:     "playback",
			Source:   m.Source,
			Autoplay: m.Autoplay,
			Controls: m.Controls,
			Loop:     m.Loop,
		}
	case domain.ImageView:
		return mediaData{
			View:   "image",
			Source: m.Source,
			Alt:    m.Alt,
			Height: m.Height,
		}
	default:
		return mediaData{}
	}
}

func groupAnchor(id domain.GroupID) string {
	return "group-" + string(id)
}
