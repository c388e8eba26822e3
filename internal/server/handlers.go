package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"standupboard/internal/domain"
	"standupboard/internal/session"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	vm := s.feed(w, r).View()

	s.render(w, r, "layout.html", s.newPageData(vm))
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	feed := s.feed(w, r)

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		if err := feed.WaitSettled(r.Context()); err != nil {
			http.Error(w, "Request is canceled", http.StatusServiceUnavailable)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	if err := json.NewEncoder(w).Encode(feed.View()); err != nil {
		s.log.ErrorContext(r.Context(), "Failed to encode view",
			"error", err)
	}
}

func (s *Server) handleTelegramLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.opts.BotToken == "" {
		http.Error(w, "Telegram login is not configured", http.StatusNotFound)
		return
	}

	sess, err := session.VerifyLogin(r.URL.Query(), s.opts.BotToken, s.now(), s.opts.LoginMaxAge)
	if err != nil {
		s.log.WarnContext(ctx, "Rejected Telegram login",
			"error", err,
			"expired", errors.Is(err, session.ErrExpired),
			"badHash", errors.Is(err, session.ErrBadHash))

		http.Error(w, "Telegram login is invalid", http.StatusUnauthorized)
		return
	}

	slotID := s.slotID(w, r)

	// The user key lets the bot find the session of a Telegram user.
	stores := []session.Store{
		s.slotStore(slotID),
		session.NewKVStore(s.kv, session.UserKey(sess.Identity.ID), s.log),
	}

	var errs []error
	for _, store := range stores {
		if err = store.Save(ctx, sess); err != nil {
			errs = append(errs, err)
		}
	}

	if err = errors.Join(errs...); err != nil {
		s.log.ErrorContext(ctx, "Failed to save session",
			"error", err,
			"userID", sess.Identity.ID)

		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}

	feed, _ := s.feeds.GetOrCreate(feedKeyPrefix+slotID, s.now(), s.composer.NewFeed)
	feed.SetAuth(ctx, domain.LoggedIn{Session: sess})

	s.log.InfoContext(ctx, "User is logged in",
		"userID", sess.Identity.ID,
		"username", sess.Identity.Username)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	groupID := domain.GroupID(strings.TrimSpace(chi.URLParam(r, "groupID")))
	if groupID == "" {
		http.Error(w, "Group is missing", http.StatusBadRequest)
		return
	}

	page, err := strconv.Atoi(strings.TrimSpace(r.FormValue("page")))
	if err != nil || page < 0 {
		http.Error(w, "Page is invalid", http.StatusBadRequest)
		return
	}

	s.feed(w, r).SetPage(groupID, page)

	http.Redirect(w, r, "/#"+groupAnchor(groupID), http.StatusSeeOther)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.feed(w, r).Refresh(r.Context())

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.log.ErrorContext(r.Context(), "Failed to render template",
			"error", err,
			"template", name)

		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}
