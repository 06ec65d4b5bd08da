// Package cache retains the most recent captured frames together with every named stage each
// frame passed through, so temporal filters can look up their own earlier results.
package cache

import (
	"github.com/pkg/errors"

	"go.viam.com/posecap/frame"
)

// DefaultSize is the number of frames retained when no size is configured.
const DefaultSize = 10

// Reserved stage names recorded by the pipeline.
const (
	StageMapped = "Mapped"
	StageResult = "Result"
)

// ErrEmptyCache is returned when a stage is recorded or queried before any frame was pushed.
var ErrEmptyCache = errors.New("capture cache is empty: push a frame before recording or querying stages")

// A Stage is the named output of one step applied to a cached frame.
type Stage struct {
	Name  string
	Frame *frame.Frame
}

// CacheFrameData is one retained raw frame and the stages produced while processing it, in
// the order they ran.
type CacheFrameData struct {
	Raw       *frame.Frame
	ElapsedMs float64
	Stages    []Stage
}

// Current returns the last recorded stage, or the raw frame if nothing ran yet.
func (d *CacheFrameData) Current() *frame.Frame {
	if len(d.Stages) == 0 {
		return d.Raw
	}
	return d.Stages[len(d.Stages)-1].Frame
}

// After returns the output of the named stage.
func (d *CacheFrameData) After(name string) (*frame.Frame, bool) {
	for _, s := range d.Stages {
		if s.Name == name {
			return s.Frame, true
		}
	}
	return nil, false
}

// Before returns the frame the named stage consumed: the previous stage, or the raw frame if
// the named stage ran first.
func (d *CacheFrameData) Before(name string) (*frame.Frame, bool) {
	for i, s := range d.Stages {
		if s.Name != name {
			continue
		}
		if i == 0 {
			return d.Raw, true
		}
		return d.Stages[i-1].Frame, true
	}
	return nil, false
}

// Result returns the final stage recorded by the pipeline, if any.
func (d *CacheFrameData) Result() (*frame.Frame, bool) {
	return d.After(StageResult)
}

func (d *CacheFrameData) record(name string, f *frame.Frame) {
	d.Stages = append(d.Stages, Stage{Name: name, Frame: f})
}

// CaptureCache is a bounded first in, first out history of captured frames. It is owned by a
// single pipeline and is not safe for concurrent use.
type CaptureCache struct {
	size    int
	entries []*CacheFrameData
}

// New returns a cache retaining at most size frames. A size below one uses DefaultSize.
func New(size int) *CaptureCache {
	if size < 1 {
		size = DefaultSize
	}
	return &CaptureCache{size: size, entries: make([]*CacheFrameData, 0, size)}
}

// Size returns the capacity.
func (c *CaptureCache) Size() int {
	return c.size
}

// Len returns the number of retained frames.
func (c *CaptureCache) Len() int {
	return len(c.entries)
}

// Push appends a raw frame, evicting the oldest entries beyond capacity.
func (c *CaptureCache) Push(raw *frame.Frame, elapsedMs float64) *CacheFrameData {
	data := &CacheFrameData{Raw: raw, ElapsedMs: elapsedMs}
	c.entries = append(c.entries, data)
	c.truncate()
	return data
}

// Resize changes the capacity, dropping the oldest entries immediately if there are too many.
func (c *CaptureCache) Resize(size int) error {
	if size < 1 {
		return errors.Errorf("cache size must be at least 1, got %d", size)
	}
	c.size = size
	c.truncate()
	return nil
}

func (c *CaptureCache) truncate() {
	if over := len(c.entries) - c.size; over > 0 {
		for i := 0; i < over; i++ {
			c.entries[i] = nil
		}
		c.entries = append(c.entries[:0], c.entries[over:]...)
	}
}

// Clear drops every entry, keeping the capacity.
func (c *CaptureCache) Clear() {
	c.entries = c.entries[:0]
}

// Latest returns the most recently pushed entry.
func (c *CaptureCache) Latest() (*CacheFrameData, error) {
	if len(c.entries) == 0 {
		return nil, ErrEmptyCache
	}
	return c.entries[len(c.entries)-1], nil
}

// Entries returns the retained entries, oldest first. The slice is a copy; the entries are not.
func (c *CaptureCache) Entries() []*CacheFrameData {
	out := make([]*CacheFrameData, len(c.entries))
	copy(out, c.entries)
	return out
}

// RecordFiltered appends a named stage to the most recent entry.
func (c *CaptureCache) RecordFiltered(name string, f *frame.Frame) error {
	latest, err := c.Latest()
	if err != nil {
		return errors.Wrapf(err, "cannot record stage %q", name)
	}
	latest.record(name, f)
	return nil
}

// RecordMapped appends the mapping profile's output to the most recent entry.
func (c *CaptureCache) RecordMapped(f *frame.Frame) error {
	return c.RecordFiltered(StageMapped, f)
}

// RecordResult appends the final pipeline output to the most recent entry.
func (c *CaptureCache) RecordResult(f *frame.Frame) error {
	return c.RecordFiltered(StageResult, f)
}

// Current returns the last recorded stage of the most recent entry, or its raw frame.
func (c *CaptureCache) Current() (*frame.Frame, error) {
	latest, err := c.Latest()
	if err != nil {
		return nil, err
	}
	return latest.Current(), nil
}

// StagesAfter returns, oldest first, the output of the named stage for every retained entry
// that recorded it. Entries that never ran the stage are skipped.
func (c *CaptureCache) StagesAfter(name string) []*frame.Frame {
	var out []*frame.Frame
	for _, e := range c.entries {
		if f, ok := e.After(name); ok {
			out = append(out, f)
		}
	}
	return out
}

// StageBefore returns, oldest first, the input of the named stage for every retained entry
// that recorded it.
func (c *CaptureCache) StageBefore(name string) []*frame.Frame {
	var out []*frame.Frame
	for _, e := range c.entries {
		if f, ok := e.Before(name); ok {
			out = append(out, f)
		}
	}
	return out
}

// LastAfter returns the most recent output of the named stage, if any entry recorded it.
func (c *CaptureCache) LastAfter(name string) (*frame.Frame, bool) {
	for i := len(c.entries) - 1; i >= 0; i-- {
		if f, ok := c.entries[i].After(name); ok {
			return f, true
		}
	}
	return nil, false
}
