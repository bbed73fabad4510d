// Package cast adapts the go2tv cast protocol client to castbox.
package cast

import (
	"strings"

	"github.com/cockroachdb/errors"
	"go2tv.app/go2tv/v2/castprotocol"
)

// Player states reported by cast receivers.
const (
	StatePlaying   = "PLAYING"
	StateBuffering = "BUFFERING"
	StatePaused    = "PAUSED"
	StateIdle      = "IDLE"
)

// Status is the receiver's media status.
type Status struct {
	PlayerState string
	CurrentTime float32
	Duration    float32
	MediaTitle  string
}

// Active reports whether the receiver is playing or about to.
func (s Status) Active() bool {
	switch strings.ToUpper(s.PlayerState) {
	case StatePlaying, StateBuffering:
		return true
	}
	return false
}

// Session is a connected receiver.
type Session interface {
	Load(mediaURL, contentType string) error
	Stop() error
	Status() (*Status, error)
	Close() error
}

// Dialer opens a session to a receiver at addr (host:port).
type Dialer func(addr string) (Session, error)

type session struct {
	client *castprotocol.CastClient
}

// Dial connects to the receiver at addr.
func Dial(addr string) (Session, error) {
	client, err := castprotocol.NewCastClient(addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create cast client: addr=%s", addr)
	}
	if err := client.Connect(); err != nil {
		return nil, errors.Wrapf(err, "failed to connect cast receiver: addr=%s", addr)
	}
	return &session{client: client}, nil
}

func (s *session) Load(mediaURL, contentType string) error {
	if err := s.client.Load(mediaURL, contentType, 0, 0, ""); err != nil {
		return errors.Wrap(err, "failed to load media")
	}
	return nil
}

func (s *session) Stop() error {
	return errors.Wrap(s.client.Stop(), "failed to stop media")
}

func (s *session) Status() (*Status, error) {
	st, err := s.client.GetStatus()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get cast status")
	}
	return &Status{
		PlayerState: st.PlayerState,
		CurrentTime: st.CurrentTime,
		Duration:    st.Duration,
		MediaTitle:  st.MediaTitle,
	}, nil
}

func (s *session) Close() error {
	return s.client.Close(false)
}
