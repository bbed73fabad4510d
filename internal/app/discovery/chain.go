package discovery

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/castbox/internal/domain/device"
)

// Chain queries every source in order and merges the results.
// A failing source is logged and contributes nothing to the result.
type Chain struct {
	sources []Source
}

// NewChain creates a new source chain.
func NewChain(sources []Source) *Chain {
	return &Chain{sources: sources}
}

// Discover runs all sources. On duplicate names the later source wins.
func (c *Chain) Discover(ctx context.Context) []device.Device {
	var all []device.Device
	seen := make(map[string]int)

	for i, src := range c.sources {
		start := time.Now()
		found, err := src.Discover(ctx)
		if err != nil {
			zlog.Warn().Msgf("discovery source failed, skipping: index=%d source=%s error=%v", i+1, src.Name(), err)
			continue
		}

		for _, d := range found {
			if idx, ok := seen[d.Name]; ok {
				zlog.Debug().Msgf("duplicate device name, replacing: name=%s old_kind=%s new_kind=%s",
					d.Name, all[idx].Kind, d.Kind)
				all[idx] = d
				continue
			}
			seen[d.Name] = len(all)
			all = append(all, d)
		}

		zlog.Debug().Msgf("discovery source returned devices: source=%s count=%d elapsed=%s",
			src.Name(), len(found), time.Since(start).Round(time.Millisecond))
	}

	return all
}

// Sources returns the configured source names.
func (c *Chain) Sources() []string {
	names := make([]string, len(c.sources))
	for i, s := range c.sources {
		names[i] = s.Name()
	}
	return names
}
