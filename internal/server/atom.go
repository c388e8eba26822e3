package server

import (
	"html"
	"net/http"
	"strconv"
	"strings"

	"standupboard/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/feeds"
)

const atomDescription = "Standup updates posted to the group"

func (s *Server) handleAtom(w http.ResponseWriter, r *http.Request) {
	groupID := domain.GroupID(strings.TrimSpace(chi.URLParam(r, "groupID")))
	feed := s.feed(w, r)

	if err := feed.Wait(r.Context()); err != nil {
		http.Error(w, "Request is canceled", http.StatusServiceUnavailable)
		return
	}

	group, ok := feed.Group(groupID)
	if !ok {
		http.NotFound(w, r)
		return
	}

	atom, err := s.atomFeed(r, group).ToAtom()
	if err != nil {
		s.log.ErrorContext(r.Context(), "Failed to build atom feed",
			"error", err,
			"groupID", groupID)

		http.Error(w, "Failed to build feed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/atom+xml; charset=utf-8")
	if _, err = w.Write([]byte(atom)); err != nil {
		s.log.WarnContext(r.Context(), "Failed to write atom feed",
			"error", err,
			"groupID", groupID)
	}
}

func (s *Server) atomFeed(r *http.Request, group domain.DisplayGroup) *feeds.Feed {
	base := s.baseURL(r)
	link := base + "/#" + groupAnchor(group.ID)

	feed := &feeds.Feed{
		Title:       group.Name,
		Link:        &feeds.Link{Href: link},
		Description: atomDescription,
		Id:          base + "/groups/" + string(group.ID),
	}

	for i, update := range group.Updates {
		item := &feeds.Item{
			Id:          feed.Id + "/updates/" + strconv.Itoa(i),
			Title:       update.FormattedDate,
			Link:        &feeds.Link{Href: link},
			Description: update.Message.Text,
			Created:     update.CreatedAt,
		}

		if source := mediaSource(update.Media); source != "" {
			item.Content = html.EscapeString(update.Message.Text) +
				`<p><a href="` + html.EscapeString(source) + `">` + mediaLabel(update.Media) + `</a></p>`
		}

		if feed.Updated.Before(update.CreatedAt) {
			feed.Updated = update.CreatedAt
		}

		feed.Items = append(feed.Items, item)
	}

	if feed.Updated.IsZero() {
		feed.Updated = s.now()
	}
	feed.Created = feed.Updated

	return feed
}

func mediaSource(media domain.MediaView) string {
	switch m := media.(type) {
	case domain.PlaybackView:
		return m.Source
	case domain.ImageView:
		return m.Source
	default:
		return ""
	}
}

func mediaLabel(media domain.MediaView) string {
	if v, ok := media.(domain.PlaybackView); ok {
		return v.Kind.String()
	}

	return "photo"
}

func (s *Server) baseURL(r *http.Request) string {
	if s.opts.PublicURL != "" {
		return s.opts.PublicURL
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	return scheme + "://" + r.Host
}
