// Package config defines the JSON configuration of a capture session: the cache size, the rig,
// the mapping profile and the filter chain.
package config

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/posecap/cache"
	"go.viam.com/posecap/filter"
	"go.viam.com/posecap/frame"
	"go.viam.com/posecap/mapping"
	"go.viam.com/posecap/utils"
)

// Config describes a capture session.
type Config struct {
	CacheSize int             `json:"cache_size,omitempty"`
	Rig       frame.Kind      `json:"rig"`
	Mapping   MappingConfig   `json:"mapping"`
	Filters   []filter.Config `json:"filters,omitempty"`

	// ConfigFilePath is the file the config was read from, if any.
	ConfigFilePath string `json:"-"`
}

// MappingConfig selects the mapping profile and its initial state.
type MappingConfig struct {
	Profile string `json:"profile,omitempty"`

	// Mask lists the groups that pass through. Empty means every group.
	Mask        []mapping.Group         `json:"mask,omitempty"`
	Orientation mapping.OrientationMode `json:"orientation"`
}

// SetDefaults fills in the cache size and mapping profile when they are not set.
func (c *Config) SetDefaults() {
	if c.CacheSize == 0 {
		c.CacheSize = cache.DefaultSize
	}
	if c.Mapping.Profile == "" {
		c.Mapping.Profile = mapping.DefaultFor(c.Rig)
	}
}

// Validate checks the whole config, reporting every problem found rather than only the first.
func (c *Config) Validate() error {
	var allErrs error
	if c.CacheSize < 0 {
		allErrs = multierr.Append(allErrs,
			utils.NewConfigValidationError("cache_size", errors.Errorf("must be at least 1, got %d", c.CacheSize)))
	}
	if err := c.Mapping.Validate("mapping", c.Rig); err != nil {
		allErrs = multierr.Append(allErrs, err)
	}

	names := map[string]bool{}
	for idx := range c.Filters {
		conf := &c.Filters[idx]
		path := fmt.Sprintf("%s.%d", "filters", idx)
		if err := conf.Validate(path); err != nil {
			allErrs = multierr.Append(allErrs, err)
			continue
		}
		if !filter.IsRegistered(conf.Model) {
			allErrs = multierr.Append(allErrs, utils.NewConfigValidationError(path,
				errors.Errorf("unknown filter model %q, registered models are %v", conf.Model, filter.RegisteredModels())))
		}
		if conf.Name == cache.StageMapped || conf.Name == cache.StageResult {
			allErrs = multierr.Append(allErrs, utils.NewConfigValidationError(path, errors.Errorf("filter name %q is reserved", conf.Name)))
		}
		if names[conf.Name] {
			allErrs = multierr.Append(allErrs, utils.NewConfigValidationError(path, errors.Errorf("duplicate filter name %q", conf.Name)))
		}
		names[conf.Name] = true
	}
	return allErrs
}

// Validate checks the profile exists for the rig and that the mask names its groups.
func (mc *MappingConfig) Validate(path string, rig frame.Kind) error {
	if mc.Profile == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "profile")
	}
	profile, err := mapping.New(mc.Profile, rig)
	if err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if _, err := profile.MaskOf(mc.Mask...); err != nil {
		return utils.NewConfigValidationError(path+".mask", err)
	}
	return nil
}

// NewProfile builds the configured mapping profile with its mask and orientation mode applied.
func (mc *MappingConfig) NewProfile(rig frame.Kind) (*mapping.Profile, error) {
	profile, err := mapping.New(mc.Profile, rig)
	if err != nil {
		return nil, err
	}
	if len(mc.Mask) > 0 {
		mask, err := profile.MaskOf(mc.Mask...)
		if err != nil {
			return nil, err
		}
		profile.SetMask(mask)
	}
	profile.SetOrientationMode(mc.Orientation)
	return profile, nil
}

// FindFilter returns the config of the named filter.
func (c *Config) FindFilter(name string) (*filter.Config, bool) {
	for idx := range c.Filters {
		if c.Filters[idx].Name == name {
			return &c.Filters[idx], true
		}
	}
	return nil, false
}
