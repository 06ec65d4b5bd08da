// Package spatialmath defines the small set of vector and quaternion operations the capture
// pipeline needs: unit quaternions, slerp, angle between rotations and rotation of points.
package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// If the dot product of two unit quaternions is closer to 1 than this, they are treated as
// the same rotation and interpolated linearly.
const slerpEpsilon = 1e-6

// NewIdentityQuaternion returns the quaternion which signifies no rotation.
func NewIdentityQuaternion() quat.Number {
	return quat.Number{Real: 1}
}

// Norm returns the norm of the quaternion, i.e. the sqrt of the squares of the imaginary parts.
func Norm(q quat.Number) float64 {
	return math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

// Flip will multiply a quaternion by -1, returning a quaternion representing the same orientation but in the opposing octant.
func Flip(q quat.Number) quat.Number {
	return quat.Number{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}

// Dot returns the four dimensional dot product of two quaternions.
func Dot(q1, q2 quat.Number) float64 {
	return q1.Real*q2.Real + q1.Imag*q2.Imag + q1.Jmag*q2.Jmag + q1.Kmag*q2.Kmag
}

// unitTolerance is how far from unit length a quaternion may be and still count as normalized.
const unitTolerance = 1e-12

// Normalize scales q to unit length. The zero quaternion, as reported by untracked channels,
// normalizes to the identity. A quaternion already of unit length is returned as is, so
// normalizing twice gives bit-identical results.
func Normalize(q quat.Number) quat.Number {
	length := quat.Abs(q)
	if length < unitTolerance {
		return NewIdentityQuaternion()
	}
	if math.Abs(length-1) < unitTolerance {
		return q
	}
	return quat.Scale(1/length, q)
}

// QuaternionAlmostEqual returns whether two quaternions describe the same rotation within tol
// on every component, accounting for q and -q being the same rotation.
func QuaternionAlmostEqual(q1, q2 quat.Number, tol float64) bool {
	if Dot(q1, q2) < 0 {
		q2 = Flip(q2)
	}
	return math.Abs(q1.Real-q2.Real) <= tol &&
		math.Abs(q1.Imag-q2.Imag) <= tol &&
		math.Abs(q1.Jmag-q2.Jmag) <= tol &&
		math.Abs(q1.Kmag-q2.Kmag) <= tol
}

// AngleBetween returns the angle in radians of the smallest rotation taking q1 to q2.
func AngleBetween(q1, q2 quat.Number) float64 {
	d := math.Abs(Dot(Normalize(q1), Normalize(q2)))
	if d > 1 {
		d = 1
	}
	return 2 * math.Acos(d)
}

// Slerp spherically interpolates from q1 (t=0) to q2 (t=1) along the shortest arc.
func Slerp(q1, q2 quat.Number, t float64) quat.Number {
	q1 = Normalize(q1)
	q2 = Normalize(q2)
	cosTheta := Dot(q1, q2)
	if cosTheta < 0 {
		q2 = Flip(q2)
		cosTheta = -cosTheta
	}
	if cosTheta > 1-slerpEpsilon {
		return Normalize(quat.Add(quat.Scale(1-t, q1), quat.Scale(t, q2)))
	}
	theta := math.Acos(cosTheta)
	sinTheta := math.Sin(theta)
	a := math.Sin((1-t)*theta) / sinTheta
	b := math.Sin(t*theta) / sinTheta
	return quat.Add(quat.Scale(a, q1), quat.Scale(b, q2))
}
