package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/castbox/internal/app/library"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest = "bad_request"
	ErrCodeNotFound   = "not_found"
	ErrCodeInternal   = "internal_error"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // connection may already be closed
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Truncate(time.Second).String(),
	})
}

// handleStream serves a library file. Range requests are handled by
// http.ServeFile, which cast devices rely on for seeking.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	abs, err := s.media.Resolve(rel)
	if err != nil {
		switch {
		case errors.Is(err, library.ErrOutsideRoot):
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid path")
		case errors.Is(err, library.ErrNotFound):
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "file not found")
		default:
			zlog.Error().Msgf("failed to resolve stream path: path=%s error=%v", rel, err)
			writeError(w, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", s.media.ContentType(abs))
	http.ServeFile(w, r, abs)
}

func (s *Server) handleCoverArt(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	url := s.coverArt.CoverArt(r.Context(), q.Get("artist"), q.Get("album"))
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	url, err := s.auth.AuthURL()
	if err != nil {
		zlog.Error().Msgf("failed to start login: %v", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to start login")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.CompleteAuth(r.Context(), r); err != nil {
		zlog.Warn().Msgf("login callback failed: %v", err)
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "login failed")
		return
	}
	zlog.Info().Msg("streaming account authenticated")
	writeJSON(w, http.StatusOK, map[string]string{"status": "authenticated"})
}
