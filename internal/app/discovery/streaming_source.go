package discovery

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/castbox/internal/domain/device"
)

type StreamingSourceConfig struct {
	NamePrefix string `mapstructure:"name_prefix" default:"Spotify: "`
}

// StreamingSource lists the devices registered with the streaming account.
type StreamingSource struct {
	config  StreamingSourceConfig
	account SpotifyDevices
}

// NewStreamingSource creates a new StreamingSource.
func NewStreamingSource(account SpotifyDevices, settings map[string]any) (*StreamingSource, error) {
	if account == nil {
		return nil, errors.New("streaming source requires a spotify account")
	}
	var config StreamingSourceConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}
	zlog.Debug().Msgf("streaming source config: %+v", config)
	return &StreamingSource{config: config, account: account}, nil
}

func (s *StreamingSource) Discover(ctx context.Context) ([]device.Device, error) {
	found, err := s.account.Devices(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list streaming devices")
	}

	devices := make([]device.Device, 0, len(found))
	for _, d := range found {
		if d.ID == "" {
			continue
		}
		devices = append(devices, device.Device{
			Name:   s.config.NamePrefix + d.Name,
			Kind:   device.KindStreaming,
			Handle: d.ID,
			Model:  d.Type,
		})
	}
	return devices, nil
}

func (s *StreamingSource) Name() string {
	return "streaming"
}
