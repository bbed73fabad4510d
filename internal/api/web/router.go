// Package web provides the plain HTTP routes served next to the RPC service:
// media streaming, cover art lookup, the streaming account login flow and
// health checks.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	zlog "github.com/rs/zerolog/log"
)

// MediaFiles resolves library paths to files on disk.
type MediaFiles interface {
	Resolve(relPath string) (string, error)
	ContentType(absPath string) string
}

// CoverArt looks up album covers.
type CoverArt interface {
	CoverArt(ctx context.Context, artist, album string) string
}

// Authenticator drives the interactive streaming account login.
type Authenticator interface {
	AuthURL() (string, error)
	CompleteAuth(ctx context.Context, r *http.Request) error
}

// Config holds the collaborators of the router. Nil collaborators disable
// their routes.
type Config struct {
	Media     MediaFiles
	CoverArt  CoverArt
	Auth      Authenticator
	StaticDir string

	// RPCPath and RPCHandler mount the Connect service.
	RPCPath    string
	RPCHandler http.Handler
}

// Server serves the HTTP routes.
type Server struct {
	media    MediaFiles
	coverArt CoverArt
	auth     Authenticator
	started  time.Time
}

// NewRouter builds the chi router.
func NewRouter(cfg Config) http.Handler {
	s := &Server{
		media:    cfg.Media,
		coverArt: cfg.CoverArt,
		auth:     cfg.Auth,
		started:  time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware)

	r.Get("/healthz", s.handleHealth)

	if s.media != nil {
		r.Get("/stream/*", s.handleStream)
		r.Head("/stream/*", s.handleStream)
	}
	if s.coverArt != nil {
		r.Get("/api/cover-art", s.handleCoverArt)
	}
	if s.auth != nil {
		r.Get("/login", s.handleLogin)
		r.Get("/callback", s.handleCallback)
	}
	if cfg.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))
	}
	if cfg.RPCHandler != nil {
		r.Handle(cfg.RPCPath+"*", cfg.RPCHandler)
	}

	return r
}

// loggingMiddleware logs each request at debug level.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zlog.Debug().Msgf("http request: method=%s path=%s status=%d duration=%s",
			r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}
