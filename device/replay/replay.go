// Package replay implements a device that plays back the raw frames of a stored recording, so
// a session can be reviewed through a different filter chain or mapping.
package replay

import (
	"context"
	"io"
	"sync"
	"time"

	goutils "go.viam.com/utils"

	"go.viam.com/posecap/device"
	"go.viam.com/posecap/frame"
	"go.viam.com/posecap/pipeline"
)

// Device replays a recording.
type Device struct {
	mu       sync.Mutex
	name     string
	rec      *pipeline.Recording
	next     int
	realtime bool
	closed   bool
}

var _ device.Device = (*Device)(nil)

// New returns a device replaying rec. With realtime set, frames are spaced by the elapsed
// time recorded between them.
func New(name string, rec *pipeline.Recording, realtime bool) *Device {
	return &Device{name: name, rec: rec, realtime: realtime}
}

// Open returns a device replaying the recording stored at path.
func Open(path string, realtime bool) (*Device, error) {
	rec, err := pipeline.ReadRecordingFile(path)
	if err != nil {
		return nil, err
	}
	return New(path, rec, realtime), nil
}

// Name returns the device name.
func (d *Device) Name() string {
	return d.name
}

// Kind returns the rig of the recording.
func (d *Device) Kind() frame.Kind {
	return d.rec.Rig
}

// Recording returns the recording being replayed.
func (d *Device) Recording() *pipeline.Recording {
	return d.rec
}

// Ready is always true; a stored recording needs no warm up.
func (d *Device) Ready(ctx context.Context) (bool, error) {
	return true, nil
}

// NextFrame returns the raw frame of the next keyframe, or its processed frame when the raw
// one was not stored.
func (d *Device) NextFrame(ctx context.Context) (*frame.Frame, error) {
	d.mu.Lock()
	if d.closed || d.next >= d.rec.Len() {
		d.mu.Unlock()
		return nil, io.EOF
	}
	kf := d.rec.Keyframes[d.next]
	var wait time.Duration
	if d.realtime && d.next > 0 {
		gapMs := kf.ElapsedMs - d.rec.Keyframes[d.next-1].ElapsedMs
		wait = time.Duration(gapMs * float64(time.Millisecond))
	}
	d.next++
	d.mu.Unlock()

	if wait > 0 && !goutils.SelectContextOrWait(ctx, wait) {
		return nil, ctx.Err()
	}
	f := kf.Raw
	if f == nil {
		f = kf.Frame
	}
	out := f.Clone()
	out.ElapsedMs = kf.ElapsedMs
	return out, nil
}

// Rewind restarts playback from the first keyframe.
func (d *Device) Rewind() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next = 0
	d.closed = false
}

// Close ends playback.
func (d *Device) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
