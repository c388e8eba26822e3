// Package server serves the standup dashboard over HTTP.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"standupboard/internal/composer"
	"standupboard/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
	compressLevel     = 5
)

//go:embed templates/*.html
var templatesFS embed.FS

type Options struct {
	BotName     string
	BotToken    string
	Production  bool
	PublicURL   string
	LoginMaxAge time.Duration
}

type Server struct {
	kv        session.KV
	composer  *composer.Composer
	feeds     *composer.Cache
	opts      Options
	router    chi.Router
	templates *template.Template
	now       func() time.Time
	log       *slog.Logger
}

func New(
	kv session.KV,
	c *composer.Composer,
	feeds *composer.Cache,
	opts Options,
	log *slog.Logger,
) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"join": strings.Join,
		"inc":  func(i int) int { return i + 1 },
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	opts.PublicURL = strings.TrimRight(strings.TrimSpace(opts.PublicURL), "/")

	s := &Server{
		kv:        kv,
		composer:  c,
		feeds:     feeds,
		opts:      opts,
		templates: tmpl,
		now:       time.Now,
		log:       log,
	}
	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(compressLevel))

	r.Get("/", s.handleHome)
	r.Get("/auth/telegram", s.handleTelegramLogin)
	r.Post("/refresh", s.handleRefresh)

	r.Route("/groups/{groupID}", func(r chi.Router) {
		r.Post("/page", s.handlePage)
		r.Get("/atom", s.handleAtom)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/view", s.handleView)
	})

	s.router = r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.log.InfoContext(ctx, "Server is started",
		"addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("listen and serve: %w", err)

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}

		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.DebugContext(r.Context(), "Request is served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"requestID", middleware.GetReqID(r.Context()),
			"durationMs", time.Since(start).Milliseconds())
	})
}
