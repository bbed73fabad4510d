// Package discovery finds playback devices on the network and on the
// streaming account.
package discovery

import (
	"context"

	"github.com/osa030/castbox/internal/domain/device"
	"github.com/osa030/castbox/internal/infra/spotify"
)

// Source is one discovery mechanism. Implementations return the complete list
// of devices they currently see.
type Source interface {
	Discover(ctx context.Context) ([]device.Device, error)

	// Name returns the source type (used in config).
	Name() string
}

// SpotifyDevices defines the streaming account operation needed by the
// streaming source.
type SpotifyDevices interface {
	Devices(ctx context.Context) ([]spotify.PlayerDevice, error)
}
