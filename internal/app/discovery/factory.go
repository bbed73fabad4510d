package discovery

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/castbox/internal/infra/config"
)

// NewChainFromConfig creates a source chain from configuration. With no
// sources configured, cast and speaker discovery are enabled, plus streaming
// when an account is available.
func NewChainFromConfig(cfg *config.Config, account SpotifyDevices) (*Chain, error) {
	sources := cfg.Discovery.Sources
	if len(sources) == 0 {
		sources = []config.SourceConfig{{Type: "cast"}, {Type: "speaker"}}
		if account != nil {
			sources = append(sources, config.SourceConfig{Type: "streaming"})
		}
	}

	var result []Source
	for i, scfg := range sources {
		var src Source
		var err error
		zlog.Debug().Msgf("creating discovery source: index=%d type=%s settings=%+v", i+1, scfg.Type, scfg.Settings)
		switch scfg.Type {
		case "cast":
			src, err = NewCastSource(scfg.Settings)

		case "speaker":
			src, err = NewSpeakerSource(scfg.Settings)

		case "streaming":
			src, err = NewStreamingSource(account, scfg.Settings)

		default:
			return nil, errors.Newf("unsupported source type: %s (source index %d)", scfg.Type, i)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create source (index %d, type %s)", i, scfg.Type)
		}

		result = append(result, src)
		zlog.Info().Msgf("registered discovery source: index=%d type=%s", i+1, scfg.Type)
	}

	return NewChain(result), nil
}
