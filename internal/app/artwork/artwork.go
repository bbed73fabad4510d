// Package artwork provides album cover lookup with caching.
package artwork

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru/v2"
	zlog "github.com/rs/zerolog/log"
)

// DefaultPlaceholder is served when no cover is found.
const DefaultPlaceholder = "/static/default_album.png"

// Finder is one cover source. It returns an empty URL when nothing matches.
type Finder struct {
	Name string
	Find func(ctx context.Context, artist, album string) (string, error)
}

// Config represents artwork lookup configuration.
type Config struct {
	CacheSize   int
	Placeholder string
}

// Service looks up album covers across finders in order.
type Service struct {
	finders     []Finder
	cache       *lru.Cache[string, string]
	placeholder string
}

// New creates a lookup service. Finders are tried in the given order.
func New(cfg Config, finders ...Finder) (*Service, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	if cfg.Placeholder == "" {
		cfg.Placeholder = DefaultPlaceholder
	}

	cache, err := lru.New[string, string](cfg.CacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create artwork cache")
	}

	return &Service{
		finders:     finders,
		cache:       cache,
		placeholder: cfg.Placeholder,
	}, nil
}

// Placeholder returns the fallback cover URL.
func (s *Service) Placeholder() string {
	return s.placeholder
}

// Lookup returns a cover URL for the album, or the placeholder.
func (s *Service) Lookup(ctx context.Context, artist, album string) string {
	artist = normalize(artist)
	album = normalize(album)
	if isUnknownArtist(artist) {
		return s.placeholder
	}

	key := strings.ToLower(artist) + "\x00" + strings.ToLower(album)
	if url, ok := s.cache.Get(key); ok {
		if url == "" {
			return s.placeholder
		}
		return url
	}

	url, definitive := s.find(ctx, artist, album)
	if definitive {
		s.cache.Add(key, url)
	}
	if url == "" {
		return s.placeholder
	}
	return url
}

// find queries finders in order. The result is definitive when a cover was
// found or every finder answered without error.
func (s *Service) find(ctx context.Context, artist, album string) (string, bool) {
	definitive := true
	for _, f := range s.finders {
		url, err := f.Find(ctx, artist, album)
		if err != nil {
			definitive = false
			zlog.Debug().Msgf("artwork: lookup failed: source=%s artist=%q album=%q error=%v", f.Name, artist, album, err)
			continue
		}
		if url != "" {
			zlog.Debug().Msgf("artwork: found: source=%s artist=%q album=%q", f.Name, artist, album)
			return url, true
		}
	}
	return "", definitive
}

// normalize collapses runs of whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isUnknownArtist(artist string) bool {
	switch strings.ToLower(artist) {
	case "", "unknown", "unknown artist":
		return true
	}
	return false
}
