package builtin

import (
	"github.com/golang/geo/r3"
	"go.uber.org/multierr"

	"go.viam.com/posecap/cache"
	"go.viam.com/posecap/filter"
	"go.viam.com/posecap/frame"
	"go.viam.com/posecap/logging"
	"go.viam.com/posecap/utils"
)

// ModelDoubleExponential smooths joint positions with a Holt double exponential filter.
const ModelDoubleExponential = "joint_double_exponential"

func init() {
	filter.Register(ModelDoubleExponential, filter.Registration[*DoubleExponentialConfig]{
		Constructor: newDoubleExponential,
	})
}

// DoubleExponentialConfig holds the parameters of the joint position smoother.
type DoubleExponentialConfig struct {
	Smoothing          float64 `json:"smoothing"`
	Correction         float64 `json:"correction"`
	Prediction         float64 `json:"prediction"`
	JitterRadius       float64 `json:"jitter_radius"`
	MaxDeviationRadius float64 `json:"max_deviation_radius"`
}

// SetDefaults applies the parameters used when an attribute is omitted.
func (cfg *DoubleExponentialConfig) SetDefaults() {
	cfg.Smoothing = 0.25
	cfg.Correction = 0.25
	cfg.Prediction = 0.25
	cfg.JitterRadius = 0.03
	cfg.MaxDeviationRadius = 0.05
}

// Validate ensures all parts of the config are valid.
func (cfg *DoubleExponentialConfig) Validate(path string) error {
	return multierr.Combine(
		validateUnit(path, "smoothing", cfg.Smoothing),
		validateUnit(path, "correction", cfg.Correction),
		validateUnit(path, "prediction", cfg.Prediction),
		validatePositive(path, "jitter_radius", cfg.JitterRadius),
		validatePositive(path, "max_deviation_radius", cfg.MaxDeviationRadius),
	)
}

// DoubleExponential smooths every joint position. Its rolling state is rebuilt on each call
// by replaying its own earlier outputs still held in the capture cache followed by the current
// frame, so the output is a pure function of the cache contents.
type DoubleExponential struct {
	filter.Base
	cfg    DoubleExponentialConfig
	logger logging.Logger
}

func newDoubleExponential(conf filter.Config, logger logging.Logger) (filter.Filter, error) {
	cfg, err := filter.NativeConfig[*DoubleExponentialConfig](conf)
	if err != nil {
		return nil, err
	}
	return NewDoubleExponential(conf, *cfg, logger), nil
}

// NewDoubleExponential returns a joint position smoother.
func NewDoubleExponential(conf filter.Config, cfg DoubleExponentialConfig, logger logging.Logger) *DoubleExponential {
	return &DoubleExponential{Base: filter.NewBase(conf), cfg: cfg, logger: logger}
}

// Apply treats f as the first sample of a replay, which passes it through.
func (de *DoubleExponential) Apply(f *frame.Frame) *frame.Frame {
	return de.replay([]*frame.Frame{f})
}

// ApplyCache smooths the cache's current frame against this filter's retained history.
func (de *DoubleExponential) ApplyCache(c *cache.CaptureCache) (*frame.Frame, error) {
	cur, err := c.Current()
	if err != nil {
		return nil, err
	}
	history := c.StagesAfter(de.Name())
	de.logger.Debugw("replaying history", "frames", len(history))
	return de.replay(append(history, cur)), nil
}

// replay runs the smoother over samples in order and returns the last sample with its
// positions replaced by the smoothed ones.
func (de *DoubleExponential) replay(samples []*frame.Frame) *frame.Frame {
	last := samples[len(samples)-1]
	out := last.Clone()
	states := make(map[frame.ChannelID]*smoothingState, len(last.Channels))
	for i, sample := range samples {
		for id, ch := range sample.Channels {
			st, ok := states[id]
			if !ok {
				st = &smoothingState{}
				states[id] = st
			}
			predicted := st.update(ch.Position, ch.Tracking, de.cfg)
			if i == len(samples)-1 {
				ch.Position = predicted
				out.Channels[id] = ch
			}
		}
	}
	return out
}

// smoothingState is the per channel state of one replay.
type smoothingState struct {
	rawPrev      r3.Vector
	filteredPrev r3.Vector
	trendPrev    r3.Vector
	count        int
}

func (st *smoothingState) update(raw r3.Vector, tracking frame.TrackingState, cfg DoubleExponentialConfig) r3.Vector {
	if tracking == frame.NotTracked {
		*st = smoothingState{}
		return raw
	}

	jitterRadius := utils.AtLeast(cfg.JitterRadius, minRadius)
	maxDeviation := utils.AtLeast(cfg.MaxDeviationRadius, minRadius)
	if tracking == frame.Inferred {
		jitterRadius *= 2
		maxDeviation *= 2
	}

	var filtered, trend r3.Vector
	switch st.count {
	case 0:
		filtered = raw
	case 1:
		filtered = raw.Add(st.rawPrev).Mul(0.5)
		trend = st.nextTrend(filtered, cfg.Correction)
	default:
		blended := raw
		if d := raw.Sub(st.filteredPrev).Norm(); d <= jitterRadius {
			w := d / jitterRadius
			blended = raw.Mul(w).Add(st.filteredPrev.Mul(1 - w))
		}
		filtered = blended.Mul(1 - cfg.Smoothing).Add(st.filteredPrev.Add(st.trendPrev).Mul(cfg.Smoothing))
		trend = st.nextTrend(filtered, cfg.Correction)
	}

	predicted := filtered.Add(trend.Mul(cfg.Prediction))
	if dev := predicted.Sub(raw).Norm(); dev > maxDeviation {
		w := maxDeviation / dev
		predicted = predicted.Mul(w).Add(raw.Mul(1 - w))
	}

	st.rawPrev = raw
	st.filteredPrev = filtered
	st.trendPrev = trend
	st.count++
	return predicted
}

func (st *smoothingState) nextTrend(filtered r3.Vector, correction float64) r3.Vector {
	return filtered.Sub(st.filteredPrev).Mul(correction).Add(st.trendPrev.Mul(1 - correction))
}
