package pipeline

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"go.viam.com/posecap/frame"
)

// Stats collects per frame processing latency and how much the raw and resulting frames move
// between consecutive frames. Comparing the two jitter series shows what the filter chain
// removes.
type Stats struct {
	latencyMs    []float64
	rawJitter    []float64
	resultJitter []float64
	prevRaw      *frame.Frame
	prevResult   *frame.Frame
}

// Summary condenses the collected samples.
type Summary struct {
	Frames             int     `json:"frames"`
	MeanLatencyMs      float64 `json:"mean_latency_ms"`
	P95LatencyMs       float64 `json:"p95_latency_ms"`
	MeanRawJitter      float64 `json:"mean_raw_jitter"`
	MeanResultJitter   float64 `json:"mean_result_jitter"`
	StdDevRawJitter    float64 `json:"stddev_raw_jitter"`
	StdDevResultJitter float64 `json:"stddev_result_jitter"`
}

// ErrNoSamples is returned when summarizing before any frame was observed.
var ErrNoSamples = errors.New("no frames observed")

// Observe records one processed frame.
func (s *Stats) Observe(raw, result *frame.Frame, latency time.Duration) {
	s.latencyMs = append(s.latencyMs, float64(latency)/float64(time.Millisecond))
	if s.prevRaw != nil {
		s.rawJitter = append(s.rawJitter, Movement(s.prevRaw, raw))
		s.resultJitter = append(s.resultJitter, Movement(s.prevResult, result))
	}
	s.prevRaw = raw
	s.prevResult = result
}

// Frames returns the number of observed frames.
func (s *Stats) Frames() int {
	return len(s.latencyMs)
}

// Reset drops every sample.
func (s *Stats) Reset() {
	*s = Stats{}
}

// Summary summarizes the observed frames. Jitter figures are zero until two frames were seen.
func (s *Stats) Summary() (Summary, error) {
	if len(s.latencyMs) == 0 {
		return Summary{}, ErrNoSamples
	}
	sum := Summary{Frames: len(s.latencyMs)}
	var err error
	if sum.MeanLatencyMs, err = stats.Mean(s.latencyMs); err != nil {
		return Summary{}, err
	}
	if sum.P95LatencyMs, err = stats.Percentile(s.latencyMs, 95); err != nil {
		return Summary{}, err
	}
	if len(s.rawJitter) == 0 {
		return sum, nil
	}
	if sum.MeanRawJitter, err = stats.Mean(s.rawJitter); err != nil {
		return Summary{}, err
	}
	if sum.MeanResultJitter, err = stats.Mean(s.resultJitter); err != nil {
		return Summary{}, err
	}
	if sum.StdDevRawJitter, err = stats.StandardDeviation(s.rawJitter); err != nil {
		return Summary{}, err
	}
	if sum.StdDevResultJitter, err = stats.StandardDeviation(s.resultJitter); err != nil {
		return Summary{}, err
	}
	return sum, nil
}

// Movement is the mean per channel change between two frames: the distance moved plus the
// absolute change in value. Channels missing from either frame are skipped.
func Movement(a, b *frame.Frame) float64 {
	var total float64
	var n int
	for id, ca := range a.Channels {
		cb, ok := b.Channels[id]
		if !ok {
			continue
		}
		total += ca.Position.Sub(cb.Position).Norm() + math.Abs(ca.Value-cb.Value)
		n++
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}
