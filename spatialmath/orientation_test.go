package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

// represent a 45 degree rotation around the x axis
var (
	th   = math.Pi / 4.
	q45x = quat.Number{Real: math.Cos(th / 2.), Imag: math.Sin(th / 2.)}
	q90y = NewQuaternionFromAxisAngle(r3.Vector{Y: 1}, math.Pi/2)
)

func TestIdentity(t *testing.T) {
	test.That(t, NewIdentityQuaternion(), test.ShouldResemble, quat.Number{Real: 1})
	test.That(t, Normalize(quat.Number{}), test.ShouldResemble, quat.Number{Real: 1})
}

func TestNormalizeIsIdempotent(t *testing.T) {
	q := Normalize(quat.Number{Real: 0.3, Imag: -1.7, Jmag: 0.2, Kmag: 2.9})
	test.That(t, quat.Abs(q), test.ShouldAlmostEqual, 1.0)
	test.That(t, Normalize(q), test.ShouldResemble, q)
	test.That(t, Normalize(q45x), test.ShouldResemble, q45x)

	long := quat.Scale(2, q45x)
	test.That(t, Normalize(long).Real, test.ShouldAlmostEqual, q45x.Real)
}

func TestSlerp(t *testing.T) {
	q1 := q45x
	q2 := quat.Conj(q45x)
	s1 := Slerp(q1, q2, 0.25)
	s2 := Slerp(q1, q2, 0.5)

	expect1 := quat.Number{Real: 0.9808, Imag: 0.1951}
	expect2 := quat.Number{Real: 1}

	test.That(t, s1.Real, test.ShouldAlmostEqual, expect1.Real, 0.001)
	test.That(t, s1.Imag, test.ShouldAlmostEqual, expect1.Imag, 0.001)
	test.That(t, s1.Jmag, test.ShouldAlmostEqual, expect1.Jmag, 0.001)
	test.That(t, s1.Kmag, test.ShouldAlmostEqual, expect1.Kmag, 0.001)
	test.That(t, s2.Real, test.ShouldAlmostEqual, expect2.Real)
	test.That(t, s2.Imag, test.ShouldAlmostEqual, expect2.Imag)
	test.That(t, s2.Jmag, test.ShouldAlmostEqual, expect2.Jmag)
	test.That(t, s2.Kmag, test.ShouldAlmostEqual, expect2.Kmag)

	t.Run("endpoints", func(t *testing.T) {
		test.That(t, QuaternionAlmostEqual(Slerp(q45x, q90y, 0), q45x, 1e-9), test.ShouldBeTrue)
		test.That(t, QuaternionAlmostEqual(Slerp(q45x, q90y, 1), q90y, 1e-9), test.ShouldBeTrue)
	})

	t.Run("shortest arc", func(t *testing.T) {
		s := Slerp(q45x, Flip(q45x), 0.5)
		test.That(t, QuaternionAlmostEqual(s, q45x, 1e-9), test.ShouldBeTrue)
	})
}

func TestAngleBetween(t *testing.T) {
	test.That(t, AngleBetween(NewIdentityQuaternion(), q45x), test.ShouldAlmostEqual, th, 1e-6)
	test.That(t, AngleBetween(q45x, Flip(q45x)), test.ShouldAlmostEqual, 0, 1e-6)
	test.That(t, AngleBetween(NewIdentityQuaternion(), q90y), test.ShouldAlmostEqual, math.Pi/2, 1e-6)
}

func TestOrientationBetween(t *testing.T) {
	btw := OrientationBetween(q45x, q90y)
	test.That(t, QuaternionAlmostEqual(quat.Mul(btw, q45x), q90y, 1e-9), test.ShouldBeTrue)
}

func TestInvertYaw(t *testing.T) {
	inv := InvertYaw(q90y)
	test.That(t, QuaternionAlmostEqual(inv, quat.Conj(q90y), 1e-9), test.ShouldBeTrue)

	// pure pitch has no yaw to invert
	test.That(t, QuaternionAlmostEqual(InvertYaw(q45x), q45x, 1e-9), test.ShouldBeTrue)

	mixed := quat.Mul(q90y, q45x)
	test.That(t, QuaternionAlmostEqual(InvertYaw(InvertYaw(mixed)), mixed, 1e-9), test.ShouldBeTrue)
}

func TestMirrorX(t *testing.T) {
	v := r3.Vector{X: 0.3, Y: -1.2, Z: 2}
	q := quat.Mul(q90y, q45x)
	mirrored := RotateVector(MirrorX(q), MirrorPositionX(v))
	test.That(t, mirrored.X, test.ShouldAlmostEqual, -RotateVector(q, v).X)
	test.That(t, mirrored.Y, test.ShouldAlmostEqual, RotateVector(q, v).Y)
	test.That(t, mirrored.Z, test.ShouldAlmostEqual, RotateVector(q, v).Z)
	test.That(t, MirrorX(MirrorX(q)), test.ShouldResemble, q)
}
