package backend

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/osa030/castbox/internal/domain/track"
)

// StreamingAccount defines the streaming operations needed by the streaming backend.
type StreamingAccount interface {
	Play(ctx context.Context, deviceID, ref string) error
	Pause(ctx context.Context, deviceID string) error
	IsPlaying(ctx context.Context) (bool, error)
}

// Streaming plays track references through the streaming service's Web API.
// Play is synchronous.
type Streaming struct {
	account  StreamingAccount
	deviceID string // empty targets the account's active device
	poll     bool

	mu      sync.Mutex
	started bool
}

// NewStreaming creates a streaming backend. With poll disabled IsPlaying
// reports playing once a play command succeeded, so the end of a track is
// never observed and the session only ends through next, stop, or the stop
// timeout.
func NewStreaming(account StreamingAccount, deviceID string, poll bool) *Streaming {
	return &Streaming{account: account, deviceID: deviceID, poll: poll}
}

func (s *Streaming) Name() string {
	if s.deviceID == "" {
		return "streaming(active device)"
	}
	return "streaming"
}

func (s *Streaming) Play(ctx context.Context, item track.Item) error {
	if err := s.account.Play(ctx, s.deviceID, item.TrackRef); err != nil {
		return errors.Wrap(err, "streaming play failed")
	}
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	return nil
}

func (s *Streaming) Stop(ctx context.Context) error {
	return s.account.Pause(ctx, s.deviceID)
}

func (s *Streaming) IsPlaying(ctx context.Context) (bool, error) {
	if s.poll {
		return s.account.IsPlaying(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started, nil
}
