// Package pipeline drives captured frames through the capture cache, the pre-mapping filters,
// the mapping profile and the post-mapping filters, and records the results.
package pipeline

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"go.viam.com/posecap/cache"
	"go.viam.com/posecap/filter"
	"go.viam.com/posecap/frame"
	"go.viam.com/posecap/logging"
	"go.viam.com/posecap/mapping"
)

// PreviewFunc receives every result frame as soon as it is produced. It runs on the
// processing goroutine. The frame is shared with the cache and must not be modified.
type PreviewFunc func(result *frame.Frame)

// ErrNotRecording is returned when stopping a recording that was never started.
var ErrNotRecording = errors.New("not recording")

// Driver runs one capture session. It owns the session's cache; the chain and profile are
// configuration it may swap out between frames. A Driver is not safe for concurrent use: frames
// are processed one at a time to completion.
type Driver struct {
	rig       frame.Kind
	cache     *cache.CaptureCache
	chain     *filter.Chain
	profile   *mapping.Profile
	preview   PreviewFunc
	recording *Recording
	stats     Stats
	clock     clock.Clock
	logger    logging.Logger
}

// An Option configures a Driver.
type Option func(*Driver)

// WithPreview sets the callback receiving every result.
func WithPreview(fn PreviewFunc) Option {
	return func(d *Driver) {
		d.preview = fn
	}
}

// WithClock sets the clock used for latencies and recording start times.
func WithClock(clk clock.Clock) Option {
	return func(d *Driver) {
		d.clock = clk
	}
}

// NewDriver returns a driver for frames of rig, retaining cacheSize frames of history.
func NewDriver(
	rig frame.Kind,
	cacheSize int,
	chain *filter.Chain,
	profile *mapping.Profile,
	logger logging.Logger,
	opts ...Option,
) *Driver {
	if chain == nil {
		chain = &filter.Chain{}
	}
	if profile == nil {
		profile = mapping.Identity(rig)
	}
	d := &Driver{
		rig:     rig,
		cache:   cache.New(cacheSize),
		chain:   chain,
		profile: profile,
		clock:   clock.New(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Rig returns the kind of frames the driver accepts.
func (d *Driver) Rig() frame.Kind {
	return d.rig
}

// Cache returns the session's capture cache.
func (d *Driver) Cache() *cache.CaptureCache {
	return d.cache
}

// Chain returns the filter chain. Changes made to it apply from the next frame.
func (d *Driver) Chain() *filter.Chain {
	return d.chain
}

// Profile returns the mapping profile. Changes made to it apply from the next frame.
func (d *Driver) Profile() *mapping.Profile {
	return d.profile
}

// SetPreview replaces the preview callback; nil disables previews.
func (d *Driver) SetPreview(fn PreviewFunc) {
	d.preview = fn
}

// Stats returns the session statistics.
func (d *Driver) Stats() *Stats {
	return &d.stats
}

// Process runs one capture event: the raw frame is pushed into the cache, each enabled
// pre-mapping filter runs in ordinal order, the profile maps the result, each enabled
// post-mapping filter runs, and the final frame is recorded as the Result stage, previewed
// and, while recording, appended as a keyframe. Every intermediate frame is recorded in the
// cache under the name of the step that produced it.
func (d *Driver) Process(ctx context.Context, raw *frame.Frame, elapsedMs float64) (*frame.Frame, error) {
	ctx, span := trace.StartSpan(ctx, "pipeline::Driver::Process")
	defer span.End()

	if raw == nil {
		return nil, errors.New("cannot process a nil frame")
	}
	if raw.Kind != d.rig {
		return nil, errors.Errorf("driver accepts %s frames, got %s", d.rig, raw.Kind)
	}
	start := d.clock.Now()

	raw = raw.Clone()
	raw.ElapsedMs = elapsedMs
	frame.TopologyFor(raw.Kind).Complete(raw)
	d.cache.Push(raw, elapsedMs)

	if _, err := d.chain.Run(ctx, filter.PreMapping, d.cache); err != nil {
		return nil, err
	}
	premapped, err := d.cache.Current()
	if err != nil {
		return nil, err
	}
	if err := d.cache.RecordMapped(d.profile.Map(premapped)); err != nil {
		return nil, err
	}
	result, err := d.chain.Run(ctx, filter.PostMapping, d.cache)
	if err != nil {
		return nil, err
	}
	if err := d.cache.RecordResult(result); err != nil {
		return nil, err
	}

	if d.preview != nil {
		d.preview(result)
	}
	if d.recording != nil {
		d.recording.Append(Keyframe{ElapsedMs: elapsedMs, Frame: result, Raw: raw})
	}
	latency := d.clock.Since(start)
	d.stats.Observe(raw, result, latency)
	d.logger.Debugw("processed frame", "elapsed_ms", elapsedMs, "latency", latency)
	return result, nil
}

// StartRecording begins a new recording session, replacing any recording in progress.
func (d *Driver) StartRecording() *Recording {
	if d.recording != nil {
		d.logger.Warnw("discarding unfinished recording", "id", d.recording.ID, "keyframes", d.recording.Len())
	}
	d.recording = NewRecording(d.rig, d.clock.Now())
	d.logger.Infow("recording started", "id", d.recording.ID)
	return d.recording
}

// StopRecording ends the current recording and returns it.
func (d *Driver) StopRecording() (*Recording, error) {
	if d.recording == nil {
		return nil, ErrNotRecording
	}
	rec := d.recording
	d.recording = nil
	d.logger.Infow("recording stopped", "id", rec.ID, "keyframes", rec.Len(), "duration_ms", rec.DurationMs())
	return rec, nil
}

// Recording returns the recording in progress, if any.
func (d *Driver) Recording() (*Recording, bool) {
	return d.recording, d.recording != nil
}

// Reset tears down the session state: the cache and the statistics. Configuration is kept.
func (d *Driver) Reset() {
	d.cache.Clear()
	d.stats.Reset()
}

// Replay processes the raw frames of a stored recording, returning the results in order. A
// keyframe without its raw frame is replayed from its processed frame.
func (d *Driver) Replay(ctx context.Context, rec *Recording) ([]*frame.Frame, error) {
	results := make([]*frame.Frame, 0, rec.Len())
	for i, kf := range rec.Keyframes {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		in := kf.Raw
		if in == nil {
			in = kf.Frame
		}
		out, err := d.Process(ctx, in, kf.ElapsedMs)
		if err != nil {
			return results, errors.Wrapf(err, "cannot replay keyframe %d", i)
		}
		results = append(results, out)
	}
	return results, nil
}
