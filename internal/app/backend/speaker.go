package backend

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/castbox/internal/domain/track"
	"github.com/osa030/castbox/internal/infra/sonos"
)

const speakerStatePlaying = "PLAYING"

// SpeakerClient defines the transport operations needed by the speaker backend.
type SpeakerClient interface {
	SetAVTransportURI(ctx context.Context, baseURL, uri, metadata string) error
	Play(ctx context.Context, baseURL string) error
	Stop(ctx context.Context, baseURL string) error
	GetTransportInfo(ctx context.Context, baseURL string) (*sonos.TransportInfo, error)
}

// Speaker plays media URLs on a networked speaker. Loading and starting the
// track runs in its own goroutine. A Stop issued while it runs keeps the
// track from starting, or stops it again once started.
type Speaker struct {
	baseURL string
	client  SpeakerClient
	timeout time.Duration

	mu      sync.Mutex
	gen     uint64 // bumped by every Play and Stop
	stopGen uint64 // gen of the last Stop
}

// NewSpeaker creates a speaker backend for the device at baseURL.
func NewSpeaker(baseURL string, client SpeakerClient, timeout time.Duration) *Speaker {
	return &Speaker{baseURL: baseURL, client: client, timeout: timeout}
}

func (s *Speaker) Name() string { return "speaker" }

// Play starts the handshake and returns immediately.
func (s *Speaker) Play(_ context.Context, item track.Item) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	go s.handshake(item, gen)
	return nil
}

func (s *Speaker) handshake(item track.Item, gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if s.superseded(gen) {
		zlog.Debug().Msgf("speaker: stopped before load: device=%s", s.baseURL)
		return
	}
	meta := sonos.MusicMetadata(item.MediaURL, item.DisplayTitle())
	if err := s.client.SetAVTransportURI(ctx, s.baseURL, item.MediaURL, meta); err != nil {
		zlog.Error().Msgf("speaker: set uri failed: device=%s url=%s error=%v", s.baseURL, item.MediaURL, err)
		return
	}
	if s.superseded(gen) {
		zlog.Debug().Msgf("speaker: stopped before play: device=%s", s.baseURL)
		return
	}
	if err := s.client.Play(ctx, s.baseURL); err != nil {
		zlog.Error().Msgf("speaker: play failed: device=%s error=%v", s.baseURL, err)
		return
	}
	if s.stoppedAfter(gen) {
		// Stop raced the play command.
		if err := s.client.Stop(ctx, s.baseURL); err != nil {
			zlog.Warn().Msgf("speaker: stop after play failed: device=%s error=%v", s.baseURL, err)
		}
		return
	}
	zlog.Info().Msgf("speaker: playback started: device=%s title=%s", s.baseURL, item.DisplayTitle())
}

// superseded reports whether a later Play or Stop replaced handshake gen.
func (s *Speaker) superseded(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen != gen
}

// stoppedAfter reports whether Stop was called after handshake gen began.
func (s *Speaker) stoppedAfter(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopGen > gen
}

func (s *Speaker) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.gen++
	s.stopGen = s.gen
	s.mu.Unlock()
	return s.client.Stop(ctx, s.baseURL)
}

// IsPlaying reports whether the transport state is PLAYING.
func (s *Speaker) IsPlaying(ctx context.Context) (bool, error) {
	info, err := s.client.GetTransportInfo(ctx, s.baseURL)
	if err != nil {
		return false, err
	}
	return info.CurrentTransportState == speakerStatePlaying, nil
}
