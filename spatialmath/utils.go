package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

const degToRad = math.Pi / 180

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * degToRad
}

// RotateVector rotates v by the unit quaternion q.
func RotateVector(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// RotateAbout rotates v by q around pivot rather than the origin.
func RotateAbout(q quat.Number, v, pivot r3.Vector) r3.Vector {
	return RotateVector(q, v.Sub(pivot)).Add(pivot)
}

// MirrorPositionX negates the X component of v.
func MirrorPositionX(v r3.Vector) r3.Vector {
	return r3.Vector{X: -v.X, Y: v.Y, Z: v.Z}
}

// Lerp linearly blends from a (t=0) to b (t=1).
func Lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

// LerpVector linearly blends from a (t=0) to b (t=1).
func LerpVector(a, b r3.Vector, t float64) r3.Vector {
	return a.Mul(1 - t).Add(b.Mul(t))
}
