package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/castbox/internal/app/library"
)

type fakeCoverArt struct {
	artist, album string
}

func (f *fakeCoverArt) CoverArt(_ context.Context, artist, album string) string {
	f.artist, f.album = artist, album
	return "https://img.example/cover.jpg"
}

type fakeAuth struct {
	completeErr error
	completed   bool
}

func (f *fakeAuth) AuthURL() (string, error) {
	return "https://accounts.example/authorize?state=abc", nil
}

func (f *fakeAuth) CompleteAuth(_ context.Context, _ *http.Request) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completed = true
	return nil
}

func newTestLibrary(t *testing.T) *library.Library {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "jazz"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "jazz", "So What.mp3"), []byte("ID3\x03\x00\x00\x00\x00\x00\x00audio"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("text"), 0o644))
	lib, err := library.New(library.Config{Root: root, Extensions: []string{".mp3"}})
	require.NoError(t, err)
	return lib
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_Health(t *testing.T) {
	h := NewRouter(Config{})

	w := serve(h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_Stream(t *testing.T) {
	h := NewRouter(Config{Media: newTestLibrary(t)})

	tests := []struct {
		name   string
		target string
		status int
	}{
		{name: "audio file", target: "/stream/jazz/So%20What.mp3", status: http.StatusOK},
		{name: "missing file", target: "/stream/jazz/Freddie.mp3", status: http.StatusNotFound},
		{name: "not audio", target: "/stream/notes.txt", status: http.StatusNotFound},
		{name: "folder", target: "/stream/jazz", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(h, http.MethodGet, tt.target)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRouter_StreamContent(t *testing.T) {
	h := NewRouter(Config{Media: newTestLibrary(t)})

	w := serve(h, http.MethodGet, "/stream/jazz/So%20What.mp3")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))
	assert.Contains(t, w.Body.String(), "audio")
}

func TestRouter_StreamRange(t *testing.T) {
	h := NewRouter(Config{Media: newTestLibrary(t)})

	req := httptest.NewRequest(http.MethodGet, "/stream/jazz/So%20What.mp3", nil)
	req.Header.Set("Range", "bytes=0-2")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "ID3", w.Body.String())
}

func TestRouter_StreamDisabledWithoutLibrary(t *testing.T) {
	h := NewRouter(Config{})

	w := serve(h, http.MethodGet, "/stream/jazz/So%20What.mp3")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_CoverArt(t *testing.T) {
	art := &fakeCoverArt{}
	h := NewRouter(Config{CoverArt: art})

	w := serve(h, http.MethodGet, "/api/cover-art?artist=Miles%20Davis&album=Kind%20of%20Blue")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "https://img.example/cover.jpg", body["url"])
	assert.Equal(t, "Miles Davis", art.artist)
	assert.Equal(t, "Kind of Blue", art.album)
}

func TestRouter_Login(t *testing.T) {
	auth := &fakeAuth{}
	h := NewRouter(Config{Auth: auth})

	w := serve(h, http.MethodGet, "/login")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://accounts.example/authorize?state=abc", w.Header().Get("Location"))

	w = serve(h, http.MethodGet, "/callback?code=xyz&state=abc")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, auth.completed)
}

func TestRouter_CallbackFailure(t *testing.T) {
	h := NewRouter(Config{Auth: &fakeAuth{completeErr: errors.New("state mismatch")}})

	w := serve(h, http.MethodGet, "/callback?code=xyz&state=zzz")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body Error
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, ErrCodeBadRequest, body.Code)
}

func TestRouter_Static(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default_album.png"), []byte("png"), 0o644))
	h := NewRouter(Config{StaticDir: dir})

	w := serve(h, http.MethodGet, "/static/default_album.png")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png", w.Body.String())
}

func TestRouter_MountsRPCHandler(t *testing.T) {
	var gotPath string
	rpc := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})
	h := NewRouter(Config{RPCPath: "/castbox.v1.PlaybackService/", RPCHandler: rpc})

	req := httptest.NewRequest(http.MethodPost, "/castbox.v1.PlaybackService/GetStatus", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "/castbox.v1.PlaybackService/GetStatus", gotPath)
}
