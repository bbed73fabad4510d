package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/castbox/internal/domain/device"
)

type SpeakerSourceConfig struct {
	Service       string        `mapstructure:"service" default:"_sonos._tcp" validate:"required"`
	BrowseTimeout time.Duration `mapstructure:"browse_timeout" default:"3s" validate:"gt=0"`
	ControlPort   int           `mapstructure:"control_port" default:"1400" validate:"gt=0,lte=65535"`
}

// SpeakerSource finds networked speakers over mDNS. Speakers advertise
// instances as "<id>@<room name>"; the room name becomes the device name.
type SpeakerSource struct {
	config SpeakerSourceConfig
	browse browseFunc
}

// NewSpeakerSource creates a new SpeakerSource.
func NewSpeakerSource(settings map[string]any) (*SpeakerSource, error) {
	var config SpeakerSourceConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}
	zlog.Debug().Msgf("speaker source config: %+v", config)
	return &SpeakerSource{config: config, browse: browseMDNS}, nil
}

func (s *SpeakerSource) Discover(ctx context.Context) ([]device.Device, error) {
	entries, err := s.browse(ctx, s.config.Service, s.config.BrowseTimeout)
	if err != nil {
		return nil, err
	}

	devices := make([]device.Device, 0, len(entries))
	for _, e := range entries {
		name := unescapeInstance(e.Instance)
		if i := strings.Index(name, "@"); i >= 0 {
			name = name[i+1:]
		}
		devices = append(devices, device.Device{
			Name:   name,
			Kind:   device.KindSpeaker,
			Handle: fmt.Sprintf("http://%s:%d", e.AddrIPv4[0].String(), s.config.ControlPort),
			Model:  txtValue(e.Text, "mdl"),
		})
	}
	return devices, nil
}

func (s *SpeakerSource) Name() string {
	return "speaker"
}
