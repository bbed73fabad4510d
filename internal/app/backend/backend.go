// Package backend provides the per-device-family playback commands.
package backend

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/castbox/internal/domain/device"
	"github.com/osa030/castbox/internal/domain/track"
	"github.com/osa030/castbox/internal/infra/cast"
)

var (
	// ErrUnsupported is returned when no backend can play the item on the device.
	ErrUnsupported = errors.New("item kind is not supported on this device")
	// ErrNotConnected is returned by status probes before a handshake completed.
	ErrNotConnected = errors.New("device session is not connected")
)

// Backend issues commands to one device for the lifetime of one playback
// session. Play may return before the device confirms; Stop is best-effort.
// An IsPlaying error means the status is unknown.
type Backend interface {
	Play(ctx context.Context, item track.Item) error
	Stop(ctx context.Context) error
	IsPlaying(ctx context.Context) (bool, error)

	// Name returns the backend family (for logging).
	Name() string
}

// Resolver chooses the backend for a device and item kind.
type Resolver interface {
	Resolve(d device.Device, kind track.Kind) (Backend, error)
}

// Config holds backend tuning.
type Config struct {
	// CommandTimeout bounds asynchronous handshakes.
	CommandTimeout time.Duration
	// PollStreaming switches the streaming backend from the play-acknowledged
	// approximation to polling the account's player state.
	PollStreaming bool
}

// Factory creates a fresh backend per dispatch.
type Factory struct {
	config    Config
	castDial  cast.Dialer
	speaker   SpeakerClient
	streaming StreamingAccount
}

// NewFactory creates a backend factory. Any client may be nil, in which case
// the corresponding family is reported as unsupported.
func NewFactory(config Config, castDial cast.Dialer, speaker SpeakerClient, streaming StreamingAccount) *Factory {
	if config.CommandTimeout <= 0 {
		config.CommandTimeout = 10 * time.Second
	}
	return &Factory{
		config:    config,
		castDial:  castDial,
		speaker:   speaker,
		streaming: streaming,
	}
}

// Resolve implements Resolver.
//
//	streaming item on a streaming device -> streaming backend bound to the device id
//	streaming item on any other device   -> streaming backend on the active device
//	file item on a cast device           -> cast backend
//	file item on a speaker               -> speaker backend
//	file item on a streaming device      -> ErrUnsupported
func (f *Factory) Resolve(d device.Device, kind track.Kind) (Backend, error) {
	switch kind {
	case track.KindStreaming:
		if f.streaming == nil {
			return nil, errors.Wrap(ErrUnsupported, "no streaming account configured")
		}
		deviceID := ""
		if d.Kind == device.KindStreaming {
			deviceID = d.Handle
		}
		return NewStreaming(f.streaming, deviceID, f.config.PollStreaming), nil

	case track.KindFile:
		switch d.Kind {
		case device.KindCast:
			if f.castDial == nil {
				return nil, errors.Wrap(ErrUnsupported, "cast support disabled")
			}
			return NewCast(d.Handle, f.castDial, f.config.CommandTimeout), nil
		case device.KindSpeaker:
			if f.speaker == nil {
				return nil, errors.Wrap(ErrUnsupported, "speaker support disabled")
			}
			return NewSpeaker(d.Handle, f.speaker, f.config.CommandTimeout), nil
		default:
			return nil, errors.Wrapf(ErrUnsupported, "cannot play file URLs on %s device %s", d.Kind, d.Name)
		}
	}
	return nil, errors.Wrapf(ErrUnsupported, "item kind %q", kind)
}
