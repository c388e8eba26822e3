package server

import (
	"net/http"
	"strings"

	"standupboard/internal/composer"
	"standupboard/internal/session"

	"github.com/google/uuid"
)

const (
	slotCookieName   = "telegram-user"
	slotCookieMaxAge = 365 * 24 * 60 * 60
	feedKeyPrefix    = "web:"
)

// slotID returns the durable slot of the browser, issuing a new one when the
// cookie is missing or malformed.
func (s *Server) slotID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(slotCookieName); err == nil {
		if id, parseErr := uuid.Parse(strings.TrimSpace(cookie.Value)); parseErr == nil {
			return id.String()
		}
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     slotCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   slotCookieMaxAge,
		HttpOnly: true,
		Secure:   s.opts.Production,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

func (s *Server) slotStore(slotID string) *session.KVStore {
	return session.NewKVStore(s.kv, session.SlotKey(slotID), s.log)
}

// feed returns the feed of the browser slot. A new feed resolves the stored
// session and starts fetching right away.
func (s *Server) feed(w http.ResponseWriter, r *http.Request) *composer.Feed {
	slotID := s.slotID(w, r)

	feed, created := s.feeds.GetOrCreate(feedKeyPrefix+slotID, s.now(), s.composer.NewFeed)
	if created {
		ctx := r.Context()
		feed.SetAuth(ctx, session.Resolve(ctx, s.slotStore(slotID), s.opts.Production))
	}

	return feed
}
