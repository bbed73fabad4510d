package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/castbox/internal/domain/device"
)

type CastSourceConfig struct {
	Service       string        `mapstructure:"service" default:"_googlecast._tcp" validate:"required"`
	BrowseTimeout time.Duration `mapstructure:"browse_timeout" default:"3s" validate:"gt=0"`
}

// CastSource finds cast receivers over mDNS. The receiver's friendly name
// comes from the fn TXT record.
type CastSource struct {
	config CastSourceConfig
	browse browseFunc
}

// NewCastSource creates a new CastSource.
func NewCastSource(settings map[string]any) (*CastSource, error) {
	var config CastSourceConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}
	zlog.Debug().Msgf("cast source config: %+v", config)
	return &CastSource{config: config, browse: browseMDNS}, nil
}

func (s *CastSource) Discover(ctx context.Context) ([]device.Device, error) {
	entries, err := s.browse(ctx, s.config.Service, s.config.BrowseTimeout)
	if err != nil {
		return nil, err
	}

	devices := make([]device.Device, 0, len(entries))
	for _, e := range entries {
		name := txtValue(e.Text, "fn")
		if name == "" {
			name = unescapeInstance(e.Instance)
		}
		devices = append(devices, device.Device{
			Name:   name,
			Kind:   device.KindCast,
			Handle: fmt.Sprintf("%s:%d", e.AddrIPv4[0].String(), e.Port),
			Model:  txtValue(e.Text, "md"),
		})
	}
	return devices, nil
}

func (s *CastSource) Name() string {
	return "cast"
}

// decodeSettings decodes map settings, applies defaults and validates.
func decodeSettings(settings map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     out,
		TagName:    "mapstructure",
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}
