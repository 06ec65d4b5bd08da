package pipeline

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"go.viam.com/posecap/config"
	"go.viam.com/posecap/device"
	"go.viam.com/posecap/filter"
	"go.viam.com/posecap/logging"
	"go.viam.com/posecap/mapping"
)

// NewChain builds every filter of cfg into a chain.
func NewChain(cfg *config.Config, logger logging.Logger) (*filter.Chain, error) {
	filters := make([]filter.Filter, 0, len(cfg.Filters))
	for _, conf := range cfg.Filters {
		f, err := filter.New(conf, logger)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filter.NewChain(filters...)
}

func newComponents(cfg *config.Config, logger logging.Logger) (*filter.Chain, *mapping.Profile, error) {
	chain, err := NewChain(cfg, logger.Sublogger("filters"))
	if err != nil {
		return nil, nil, err
	}
	profile, err := cfg.Mapping.NewProfile(cfg.Rig)
	if err != nil {
		return nil, nil, err
	}
	return chain, profile, nil
}

// Build assembles a driver from a config.
func Build(cfg *config.Config, logger logging.Logger, opts ...Option) (*Driver, error) {
	chain, profile, err := newComponents(cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Infow("pipeline built",
		"rig", cfg.Rig,
		"profile", profile.Name(),
		"pre", chain.Names(filter.PreMapping),
		"post", chain.Names(filter.PostMapping),
	)
	return NewDriver(cfg.Rig, cfg.CacheSize, chain, profile, logger, opts...), nil
}

// Reconfigure replaces the chain, profile and cache size with those of cfg. Nothing changes if
// any part of cfg cannot be built. History recorded under filter names that no longer exist
// stays in the cache until evicted and is never consulted. Changing the rig resets the session.
func (d *Driver) Reconfigure(cfg *config.Config) error {
	chain, profile, err := newComponents(cfg, d.logger)
	if err != nil {
		return errors.Wrap(err, "cannot reconfigure pipeline")
	}
	if err := d.cache.Resize(cfg.CacheSize); err != nil {
		return errors.Wrap(err, "cannot reconfigure pipeline")
	}
	if cfg.Rig != d.rig {
		d.logger.Infow("rig changed, resetting session", "from", d.rig, "to", cfg.Rig)
		d.rig = cfg.Rig
		d.Reset()
	}
	d.chain = chain
	d.profile = profile
	d.logger.Infow("pipeline reconfigured",
		"cache_size", d.cache.Size(),
		"profile", profile.Name(),
		"pre", chain.Names(filter.PreMapping),
		"post", chain.Names(filter.PostMapping),
	)
	return nil
}

// Run reads frames from dev and processes them until the device is exhausted, ctx is done or
// processing fails. Configs received on reconfigure are applied between frames; a config that
// cannot be applied is logged and the previous configuration kept.
func Run(ctx context.Context, dev device.Device, d *Driver, reconfigure <-chan *config.Config) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cfg, ok := <-reconfigure:
			if !ok {
				reconfigure = nil
				continue
			}
			if err := d.Reconfigure(cfg); err != nil {
				d.logger.Errorw("keeping previous configuration", "error", err)
			}
			continue
		default:
		}

		f, err := dev.NextFrame(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "cannot read frame from %q", dev.Name())
		}
		if _, err := d.Process(ctx, f, f.ElapsedMs); err != nil {
			return err
		}
	}
}
