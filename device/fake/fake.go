// Package fake implements a synthetic device producing smoothly moving skeleton or face
// frames with optional noise, for testing and for running the pipeline without hardware.
package fake

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	goutils "go.viam.com/utils"
	"gonum.org/v1/gonum/stat/distuv"

	"go.viam.com/posecap/device"
	"go.viam.com/posecap/frame"
	"go.viam.com/posecap/spatialmath"
)

// DefaultPeriodMs is the frame period of a 30Hz device.
const DefaultPeriodMs = 1000.0 / 30

// Config configures a fake device.
type Config struct {
	Kind frame.Kind

	// Frames is the number of frames produced before io.EOF. Zero means unlimited.
	Frames int
	// PeriodMs is the elapsed time between frames. Zero uses DefaultPeriodMs.
	PeriodMs float64
	// Noise is the amplitude of uniform noise added to every position and value.
	Noise float64
	Seed  int64
	// ReadyAfter is the number of Ready calls answered not ready.
	ReadyAfter int
	// Realtime waits one period of wall time before each frame.
	Realtime bool
}

// Device is a synthetic frame source.
type Device struct {
	mu     sync.Mutex
	name   string
	cfg    Config
	noise  distuv.Uniform
	index  int
	checks int
	closed bool
}

var _ device.Device = (*Device)(nil)

// New returns a fake device.
func New(name string, cfg Config) *Device {
	if cfg.PeriodMs <= 0 {
		cfg.PeriodMs = DefaultPeriodMs
	}
	amplitude := math.Abs(cfg.Noise)
	return &Device{
		name: name,
		cfg:  cfg,
		//nolint:gosec
		noise: distuv.Uniform{Min: -amplitude, Max: amplitude, Src: rand.NewPCG(uint64(cfg.Seed), 0)},
	}
}

// Name returns the device name.
func (d *Device) Name() string {
	return d.name
}

// Kind returns the rig the device produces.
func (d *Device) Kind() frame.Kind {
	return d.cfg.Kind
}

// Ready reports ready once ReadyAfter checks have been made.
func (d *Device) Ready(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.checks++
	return d.checks > d.cfg.ReadyAfter, nil
}

// ReadyChecks returns the number of times Ready was called.
func (d *Device) ReadyChecks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.checks
}

// NextFrame returns the next synthetic frame.
func (d *Device) NextFrame(ctx context.Context) (*frame.Frame, error) {
	if d.cfg.Realtime {
		if !goutils.SelectContextOrWait(ctx, time.Duration(d.cfg.PeriodMs*float64(time.Millisecond))) {
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || (d.cfg.Frames > 0 && d.index >= d.cfg.Frames) {
		return nil, io.EOF
	}
	elapsed := float64(d.index) * d.cfg.PeriodMs
	d.index++

	var f *frame.Frame
	if d.cfg.Kind == frame.Face {
		f = d.face(elapsed)
	} else {
		f = d.skeleton(elapsed)
	}
	f.ElapsedMs = elapsed
	return f, nil
}

// Close makes every later NextFrame return io.EOF.
func (d *Device) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *Device) jitter() float64 {
	if d.cfg.Noise == 0 {
		return 0
	}
	return d.noise.Rand()
}

func (d *Device) skeleton(elapsedMs float64) *frame.Frame {
	top := frame.SkeletonTopology
	f := frame.New(frame.Skeleton)
	phase := elapsedMs / 1000 * 2 * math.Pi * 0.5
	sway := 0.1 * math.Sin(phase)
	for i, id := range top.Channels {
		side := 0.0
		for _, pair := range top.Pairs {
			switch id {
			case pair.Left:
				side = -0.2
			case pair.Right:
				side = 0.2
			}
		}
		f.Set(id, frame.Channel{
			Position: r3.Vector{
				X: side + sway + d.jitter(),
				Y: 1.5 - 0.06*float64(i) + d.jitter(),
				Z: 2 + d.jitter(),
			},
			Orientation: spatialmath.NewQuaternionFromAxisAngle(r3.Vector{Y: 1}, sway+d.jitter()),
			Tracking:    frame.Tracked,
		})
	}
	f.Orientation = spatialmath.NewQuaternionFromAxisAngle(r3.Vector{Y: 1}, 2*sway)
	return f
}

func (d *Device) face(elapsedMs float64) *frame.Frame {
	top := frame.FaceTopology
	f := frame.New(frame.Face)
	phase := elapsedMs / 1000 * 2 * math.Pi
	for i, id := range top.Channels {
		ch := frame.NewChannel()
		ch.Value = 0.5 + 0.5*math.Sin(phase+float64(i)) + d.jitter()
		ch.Tracking = frame.Tracked
		f.Set(id, ch)
	}
	f.Orientation = spatialmath.NewQuaternionFromAxisAngle(r3.Vector{Y: 1}, 0.3*math.Sin(phase/4))
	return f
}
