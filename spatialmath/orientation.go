package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// OrientationBetween returns the rotation taking q1 to q2.
func OrientationBetween(q1, q2 quat.Number) quat.Number {
	return quat.Mul(q2, quat.Conj(q1))
}

// NewQuaternionFromAxisAngle returns the unit quaternion rotating theta radians about axis.
// A zero axis yields the identity.
func NewQuaternionFromAxisAngle(axis r3.Vector, theta float64) quat.Number {
	if axis.Norm() == 0 {
		return NewIdentityQuaternion()
	}
	axis = axis.Normalize()
	s := math.Sin(theta / 2)
	return quat.Number{Real: math.Cos(theta / 2), Imag: axis.X * s, Jmag: axis.Y * s, Kmag: axis.Z * s}
}

// Yaw returns the twist component of q about the vertical (Y) axis.
func Yaw(q quat.Number) quat.Number {
	twist := quat.Number{Real: q.Real, Jmag: q.Jmag}
	if quat.Abs(twist) < 1e-9 {
		return NewIdentityQuaternion()
	}
	return Normalize(twist)
}

// InvertYaw returns q with its rotation about the vertical axis reversed while the swing
// component is kept. Applying it twice returns the original rotation.
func InvertYaw(q quat.Number) quat.Number {
	inv := quat.Conj(Yaw(q))
	return quat.Mul(quat.Mul(inv, inv), q)
}

// MirrorX reflects the rotation q through the YZ plane, the rotation counterpart of negating
// the X component of a position.
func MirrorX(q quat.Number) quat.Number {
	return quat.Number{Real: q.Real, Imag: q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}
