package builtin

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/posecap/cache"
	"go.viam.com/posecap/filter"
	"go.viam.com/posecap/frame"
	"go.viam.com/posecap/logging"
	"go.viam.com/posecap/spatialmath"
	"go.viam.com/posecap/utils"
)

// step pushes raw through a single filter the way the pipeline does and records its output.
func step(t *testing.T, c *cache.CaptureCache, f filter.Filter, raw *frame.Frame) *frame.Frame {
	t.Helper()
	c.Push(raw, raw.ElapsedMs)
	out, err := f.ApplyCache(c)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.RecordFiltered(f.Name(), out), test.ShouldBeNil)
	return out
}

func handAt(x float64, tracking frame.TrackingState) *frame.Frame {
	f := frame.SkeletonTopology.NewFrame()
	f.Set(frame.HandLeft, frame.Channel{
		Position:    r3.Vector{X: x},
		Orientation: spatialmath.NewIdentityQuaternion(),
		Tracking:    tracking,
	})
	return f
}

func jawAt(v float64) *frame.Frame {
	f := frame.FaceTopology.NewFrame()
	f.SetValue(frame.JawOpen, v)
	return f
}

func TestRegisteredModels(t *testing.T) {
	for _, model := range []string{
		ModelDoubleExponential, ModelOrientationExponential, ModelUnitSmoothing,
		ModelMirror, ModelAmplifier, ModelTiltCorrection,
	} {
		test.That(t, filter.IsRegistered(model), test.ShouldBeTrue)
	}

	logger := logging.NewTestLogger(t)
	f, err := filter.New(filter.Config{Name: "smooth", Model: ModelDoubleExponential}, logger)
	test.That(t, err, test.ShouldBeNil)
	de, ok := f.(*DoubleExponential)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, de.cfg.Smoothing, test.ShouldEqual, 0.25)
	test.That(t, de.cfg.MaxDeviationRadius, test.ShouldEqual, 0.05)

	f, err = filter.New(filter.Config{
		Name:       "jaw",
		Model:      ModelUnitSmoothing,
		Attributes: utils.AttributeMap{"smoothing": 0.9},
	}, logger)
	test.That(t, err, test.ShouldBeNil)
	us := f.(*UnitSmoothing)
	test.That(t, us.cfg.Smoothing, test.ShouldEqual, 0.9)
	test.That(t, us.cfg.JitterValue, test.ShouldEqual, 0.1)

	_, err = filter.New(filter.Config{
		Name:       "bad",
		Model:      ModelDoubleExponential,
		Attributes: utils.AttributeMap{"smoothing": 2, "jitter_radius": 0},
	}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "smoothing")
	test.That(t, err.Error(), test.ShouldContainSubstring, "jitter_radius")

	f, err = filter.New(filter.Config{Name: "tilt", Model: ModelTiltCorrection}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.(*TiltCorrection).root, test.ShouldEqual, frame.SpineBase)
}

func TestDoubleExponentialConstantInput(t *testing.T) {
	var cfg DoubleExponentialConfig
	cfg.SetDefaults()
	de := NewDoubleExponential(filter.Config{Name: "smooth"}, cfg, logging.NewTestLogger(t))
	c := cache.New(10)

	for i := 0; i < 5; i++ {
		out := step(t, c, de, handAt(0.4, frame.Tracked))
		test.That(t, out.Channels[frame.HandLeft].Position.X, test.ShouldAlmostEqual, 0.4, 1e-12)
	}
}

func TestDoubleExponentialConvergence(t *testing.T) {
	var cfg DoubleExponentialConfig
	cfg.SetDefaults()
	de := NewDoubleExponential(filter.Config{Name: "smooth"}, cfg, logging.NewTestLogger(t))
	c := cache.New(10)

	for i := 0; i < 3; i++ {
		step(t, c, de, handAt(0, frame.Tracked))
	}
	var outputs []float64
	for i := 0; i < 30; i++ {
		out := step(t, c, de, handAt(1, frame.Tracked))
		x := out.Channels[frame.HandLeft].Position.X
		test.That(t, math.IsNaN(x), test.ShouldBeFalse)
		// the prediction never strays beyond the deviation radius from the raw sample.
		test.That(t, math.Abs(x-1), test.ShouldBeLessThanOrEqualTo, cfg.MaxDeviationRadius+1e-9)
		outputs = append(outputs, x)
	}
	for _, x := range outputs[len(outputs)-10:] {
		test.That(t, x, test.ShouldAlmostEqual, 1, 0.01)
	}
	test.That(t, c.StagesAfter("smooth"), test.ShouldHaveLength, 10)
}

func TestDoubleExponentialStep(t *testing.T) {
	cfg := DoubleExponentialConfig{
		Smoothing: 0.5, Correction: 0.5, Prediction: 0, JitterRadius: 0.01, MaxDeviationRadius: 10,
	}
	var st smoothingState

	out := st.update(r3.Vector{X: 1}, frame.Tracked, cfg)
	test.That(t, out.X, test.ShouldEqual, 1.0)

	// second sample averages with the previous raw sample.
	out = st.update(r3.Vector{X: 3}, frame.Tracked, cfg)
	test.That(t, out.X, test.ShouldEqual, 2.0)
	test.That(t, st.trendPrev.X, test.ShouldEqual, 0.5)

	// beyond the jitter radius the raw sample is used unblended.
	out = st.update(r3.Vector{X: 3}, frame.Tracked, cfg)
	test.That(t, out.X, test.ShouldEqual, 0.5*3+0.5*(2+0.5))

	// untracked samples reset the replay.
	out = st.update(r3.Vector{X: -4}, frame.NotTracked, cfg)
	test.That(t, out.X, test.ShouldEqual, -4.0)
	test.That(t, st.count, test.ShouldEqual, 0)
}

func TestDoubleExponentialInferredWidensRadii(t *testing.T) {
	cfg := DoubleExponentialConfig{
		Smoothing: 0, Correction: 0, Prediction: 1, JitterRadius: 0.01, MaxDeviationRadius: 0.1,
	}
	tracked := smoothingState{count: 2, trendPrev: r3.Vector{X: 1}}
	out := tracked.update(r3.Vector{X: 0.5}, frame.Tracked, cfg)
	test.That(t, out.X, test.ShouldAlmostEqual, 0.6, 1e-12)

	inferred := smoothingState{count: 2, trendPrev: r3.Vector{X: 1}}
	out = inferred.update(r3.Vector{X: 0.5}, frame.Inferred, cfg)
	test.That(t, out.X, test.ShouldAlmostEqual, 0.7, 1e-12)
}

func TestUnitSmoothing(t *testing.T) {
	us := NewUnitSmoothing(filter.Config{Name: "jaw"}, UnitSmoothingConfig{Smoothing: 0.5, JitterValue: 0.1})
	c := cache.New(10)

	_, err := us.ApplyCache(c)
	test.That(t, err, test.ShouldBeError, cache.ErrEmptyCache)

	test.That(t, step(t, c, us, jawAt(0)).Value(frame.JawOpen), test.ShouldEqual, 0.0)
	test.That(t, step(t, c, us, jawAt(1)).Value(frame.JawOpen), test.ShouldEqual, 0.5)
	test.That(t, step(t, c, us, jawAt(1)).Value(frame.JawOpen), test.ShouldEqual, 0.75)

	// inside the jitter band the sample is pulled toward the previous output.
	out := step(t, c, us, jawAt(0.8))
	test.That(t, out.Value(frame.JawOpen), test.ShouldAlmostEqual, 0.5*(0.8*0.5+0.75*0.5)+0.5*0.75, 1e-12)
}

func TestUnitSmoothingJitterClamp(t *testing.T) {
	us := NewUnitSmoothing(filter.Config{Name: "jaw"}, UnitSmoothingConfig{Smoothing: 0, JitterValue: 0.1})
	c := cache.New(10)
	step(t, c, us, jawAt(0.2))
	out := step(t, c, us, jawAt(0.9))
	test.That(t, out.Value(frame.JawOpen), test.ShouldEqual, 0.9)

	zero := NewUnitSmoothing(filter.Config{Name: "zero"}, UnitSmoothingConfig{Smoothing: 0, JitterValue: 0})
	c = cache.New(10)
	step(t, c, zero, jawAt(0.2))
	out = step(t, c, zero, jawAt(0.2))
	test.That(t, math.IsNaN(out.Value(frame.JawOpen)), test.ShouldBeFalse)
	test.That(t, out.Value(frame.JawOpen), test.ShouldEqual, 0.2)
}

func TestOrientationSmoothing(t *testing.T) {
	yAxis := r3.Vector{Y: 1}
	rotated := func(theta float64) *frame.Frame {
		f := frame.SkeletonTopology.NewFrame()
		ch := f.Channels[frame.Head]
		ch.Orientation = spatialmath.NewQuaternionFromAxisAngle(yAxis, theta)
		ch.Tracking = frame.Tracked
		f.Channels[frame.Head] = ch
		f.Orientation = ch.Orientation
		return f
	}

	t.Run("no history passes through", func(t *testing.T) {
		o := NewOrientationSmoothing(filter.Config{Name: "rot"}, OrientationSmoothingConfig{Smoothing: 0.5, JitterRadius: 0.1})
		c := cache.New(10)
		in := rotated(0.3)
		out := step(t, c, o, in)
		test.That(t, out.AlmostEqual(in, 1e-12), test.ShouldBeTrue)
	})

	t.Run("jitter clamp", func(t *testing.T) {
		o := NewOrientationSmoothing(filter.Config{Name: "rot"}, OrientationSmoothingConfig{Smoothing: 0, JitterRadius: 0.1})
		c := cache.New(10)
		step(t, c, o, rotated(0))
		in := rotated(0.5)
		out := step(t, c, o, in)
		test.That(t, spatialmath.QuaternionAlmostEqual(out.Channels[frame.Head].Orientation, in.Channels[frame.Head].Orientation, 1e-12),
			test.ShouldBeTrue)
	})

	t.Run("smoothing halves the step", func(t *testing.T) {
		o := NewOrientationSmoothing(filter.Config{Name: "rot"}, OrientationSmoothingConfig{Smoothing: 0.5, JitterRadius: 0.1})
		c := cache.New(10)
		step(t, c, o, rotated(0))
		out := step(t, c, o, rotated(0.5))
		test.That(t, spatialmath.AngleBetween(spatialmath.NewIdentityQuaternion(), out.Channels[frame.Head].Orientation),
			test.ShouldAlmostEqual, 0.25, 1e-6)
		test.That(t, spatialmath.AngleBetween(spatialmath.NewIdentityQuaternion(), out.Orientation),
			test.ShouldAlmostEqual, 0.25, 1e-6)
	})

	t.Run("inside the jitter radius", func(t *testing.T) {
		o := NewOrientationSmoothing(filter.Config{Name: "rot"}, OrientationSmoothingConfig{Smoothing: 0, JitterRadius: 0.1})
		c := cache.New(10)
		step(t, c, o, rotated(0))
		out := step(t, c, o, rotated(0.05))
		// slerp by delta/jitter = 0.5 of the way.
		test.That(t, spatialmath.AngleBetween(spatialmath.NewIdentityQuaternion(), out.Channels[frame.Head].Orientation),
			test.ShouldAlmostEqual, 0.025, 1e-6)
	})
}

func TestMirror(t *testing.T) {
	m := NewMirror(filter.Config{Name: "mirror"})

	f := frame.SkeletonTopology.NewFrame()
	f.Set(frame.HandLeft, frame.Channel{
		Position:    r3.Vector{X: 0.3, Y: 1.2, Z: 2},
		Orientation: spatialmath.NewQuaternionFromAxisAngle(r3.Vector{X: 1, Y: 2, Z: 3}, 0.7),
		Tracking:    frame.Tracked,
	})
	f.Set(frame.HandRight, frame.Channel{
		Position:    r3.Vector{X: -0.2, Y: 1.1, Z: 2.1},
		Orientation: spatialmath.NewIdentityQuaternion(),
		Tracking:    frame.Inferred,
	})
	f.Set(frame.Head, frame.Channel{
		Position:    r3.Vector{X: 0.05, Y: 1.6, Z: 2},
		Orientation: spatialmath.NewQuaternionFromAxisAngle(r3.Vector{Y: 1}, 0.4),
		Tracking:    frame.Tracked,
	})
	f.Orientation = spatialmath.NewQuaternionFromAxisAngle(r3.Vector{Y: 1}, 0.2)

	mirrored := m.Apply(f)
	right := mirrored.Channels[frame.HandRight]
	test.That(t, right.Position, test.ShouldResemble, r3.Vector{X: -0.3, Y: 1.2, Z: 2})
	test.That(t, right.Tracking, test.ShouldEqual, frame.Tracked)
	test.That(t, mirrored.Channels[frame.HandLeft].Tracking, test.ShouldEqual, frame.Inferred)
	test.That(t, mirrored.Channels[frame.Head].Position.X, test.ShouldEqual, -0.05)
	test.That(t, f.Channels[frame.HandLeft].Position.X, test.ShouldEqual, 0.3)

	test.That(t, m.Apply(mirrored).AlmostEqual(f, 1e-12), test.ShouldBeTrue)

	face := frame.FaceTopology.NewFrame()
	face.SetValue(frame.LeftEyeClosed, 0.9)
	face.SetValue(frame.JawOpen, 0.4)
	mirroredFace := m.Apply(face)
	test.That(t, mirroredFace.Value(frame.RightEyeClosed), test.ShouldEqual, 0.9)
	test.That(t, mirroredFace.Value(frame.LeftEyeClosed), test.ShouldEqual, 0.0)
	test.That(t, mirroredFace.Value(frame.JawOpen), test.ShouldEqual, 0.4)
	test.That(t, m.Apply(mirroredFace).AlmostEqual(face, 1e-12), test.ShouldBeTrue)
}

func TestAmplifier(t *testing.T) {
	face := frame.FaceTopology.NewFrame()
	face.SetValue(frame.JawOpen, 0.4)
	face.SetValue(frame.LipPucker, 0.3)

	identity := NewAmplifier(filter.Config{Name: "amp"}, AmplifierConfig{
		Multipliers: map[string]float64{"JawOpen": 1, "LipPucker": 1, "NotAChannel": 1},
	})
	test.That(t, identity.Apply(face).AlmostEqual(face, 0), test.ShouldBeTrue)

	amp := NewAmplifier(filter.Config{Name: "amp"}, AmplifierConfig{
		Multipliers: map[string]float64{"JawOpen": 2},
	})
	out := amp.Apply(face)
	test.That(t, out.Value(frame.JawOpen), test.ShouldEqual, 0.8)
	test.That(t, out.Value(frame.LipPucker), test.ShouldEqual, 0.3)
	test.That(t, face.Value(frame.JawOpen), test.ShouldEqual, 0.4)
	_, added := out.Channel("NotAChannel")
	test.That(t, added, test.ShouldBeFalse)

	cfg := AmplifierConfig{Multipliers: map[string]float64{"JawOpen": math.Inf(1)}}
	test.That(t, cfg.Validate("filters.amp"), test.ShouldNotBeNil)
}

func TestTiltCorrection(t *testing.T) {
	tilt := NewTiltCorrection(filter.Config{Name: "tilt"}, TiltCorrectionConfig{TiltDegrees: 90, Root: string(frame.SpineBase)})

	f := frame.SkeletonTopology.NewFrame()
	root := r3.Vector{X: 0.1, Y: 1, Z: 2}
	f.Set(frame.SpineBase, frame.Channel{Position: root, Orientation: spatialmath.NewIdentityQuaternion(), Tracking: frame.Tracked})
	f.Set(frame.Head, frame.Channel{Position: root.Add(r3.Vector{Y: 0.6}), Orientation: spatialmath.NewIdentityQuaternion(), Tracking: frame.Tracked})

	out := tilt.Apply(f)
	test.That(t, out.Channels[frame.SpineBase].Position, test.ShouldResemble, root)

	head := out.Channels[frame.Head].Position.Sub(root)
	test.That(t, head.X, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, head.Y, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, head.Z, test.ShouldAlmostEqual, 0.6, 1e-9)
	test.That(t, head.Norm(), test.ShouldAlmostEqual, 0.6, 1e-9)

	level := NewTiltCorrection(filter.Config{Name: "level"}, TiltCorrectionConfig{Root: string(frame.SpineBase)})
	test.That(t, level.Apply(f).AlmostEqual(f, 1e-12), test.ShouldBeTrue)

	cfg := TiltCorrectionConfig{TiltDegrees: 270, Root: "SpineBase"}
	test.That(t, cfg.Validate("filters.tilt"), test.ShouldNotBeNil)
}
