// Package filter defines the Filter interface applied to captured frames, the ordered Chain of
// filters run before and after mapping, and the registry of filter models.
package filter

import (
	"github.com/pkg/errors"

	"go.viam.com/posecap/cache"
	"go.viam.com/posecap/frame"
)

// Stage selects whether a filter runs before or after the mapping profile.
type Stage int

// The two places in the pipeline a filter can run.
const (
	PreMapping Stage = iota
	PostMapping
)

func (s Stage) String() string {
	if s == PostMapping {
		return "post"
	}
	return "pre"
}

// ParseStage parses "pre" or "post".
func ParseStage(s string) (Stage, error) {
	switch s {
	case "pre", "pre_mapping", "":
		return PreMapping, nil
	case "post", "post_mapping":
		return PostMapping, nil
	}
	return PreMapping, errors.Errorf("unknown filter stage %q, expected pre or post", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stage) UnmarshalText(text []byte) error {
	parsed, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// A Filter transforms a frame. The pipeline always calls ApplyCache, which may read earlier
// results from the capture cache; filters that only need the current frame delegate to Apply.
//
// Filters are configuration shared across a session. They may be reconfigured between capture
// events but never while ApplyCache runs.
type Filter interface {
	Name() string
	Enabled() bool
	SetEnabled(enabled bool)
	Ordinal() int
	SetOrdinal(ordinal int)
	Stage() Stage

	// Apply filters a single frame without consulting history. It must not modify f.
	Apply(f *frame.Frame) *frame.Frame
	// ApplyCache filters the current frame of c.
	ApplyCache(c *cache.CaptureCache) (*frame.Frame, error)
}

// Base holds the identity, enabled flag, ordinal and stage every filter carries. Concrete
// filters embed it.
type Base struct {
	name    string
	enabled bool
	ordinal int
	stage   Stage
}

// NewBase returns the Base described by conf.
func NewBase(conf Config) Base {
	return Base{
		name:    conf.Name,
		enabled: conf.IsEnabled(),
		ordinal: conf.Ordinal,
		stage:   conf.Stage,
	}
}

// Name returns the filter's name, which is also the stage name recorded in the cache.
func (b *Base) Name() string {
	return b.name
}

// Enabled returns whether the pipeline runs this filter.
func (b *Base) Enabled() bool {
	return b.enabled
}

// SetEnabled enables or disables the filter.
func (b *Base) SetEnabled(enabled bool) {
	b.enabled = enabled
}

// Ordinal returns the filter's position in its stage's execution order.
func (b *Base) Ordinal() int {
	return b.ordinal
}

// SetOrdinal sets the filter's position in its stage's execution order.
func (b *Base) SetOrdinal(ordinal int) {
	b.ordinal = ordinal
}

// Stage returns whether the filter runs before or after mapping.
func (b *Base) Stage() Stage {
	return b.stage
}

// ApplyCurrent runs a history-free apply function on the cache's current frame. Stateless
// filters implement ApplyCache with it.
func ApplyCurrent(c *cache.CaptureCache, apply func(*frame.Frame) *frame.Frame) (*frame.Frame, error) {
	cur, err := c.Current()
	if err != nil {
		return nil, err
	}
	return apply(cur), nil
}
