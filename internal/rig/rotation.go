package rig

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Identity is the no-rotation quaternion.
var Identity = quat.Number{Real: 1}

// normalize returns q scaled to unit length. A degenerate zero quaternion
// becomes the identity.
func normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n < 1e-12 {
		return Identity
	}
	return quat.Scale(1/n, q)
}

// anyOrthogonal returns a unit vector orthogonal to v, picking the axis pair
// least aligned with v for numerical stability.
func anyOrthogonal(v r3.Vec) r3.Vec {
	ref := r3.Vec{X: 1}
	if math.Abs(v.X) > math.Abs(v.Y) {
		ref = r3.Vec{Y: 1}
	}
	return r3.Unit(r3.Cross(v, ref))
}

// RotationBetween returns the unit quaternion carrying direction a onto
// direction b. Inputs need not be normalised; zero-length inputs yield the
// identity. The antiparallel case (dot ≈ -1) has no unique shortest arc, so
// any axis orthogonal to a gives a valid 180-degree rotation.
func RotationBetween(a, b r3.Vec) quat.Number {
	if r3.Norm(a) < 1e-12 || r3.Norm(b) < 1e-12 {
		return Identity
	}
	a = r3.Unit(a)
	b = r3.Unit(b)

	d := r3.Dot(a, b)
	if d < -1+1e-9 {
		axis := anyOrthogonal(a)
		return quat.Number{Imag: axis.X, Jmag: axis.Y, Kmag: axis.Z}
	}

	axis := r3.Cross(a, b)
	return normalize(quat.Number{
		Real: 1 + d,
		Imag: axis.X,
		Jmag: axis.Y,
		Kmag: axis.Z,
	})
}

// clamp bounds v to [-1, 1] to tolerate floating-point overshoot near the
// poles before feeding asin.
func clamp(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// EulerZXY extracts Euler angles in degrees from a unit quaternion for the
// rotation composition Rz*Rx*Ry. The Z,X,Y order is a convention fixed by
// the BVH channel order (Zrotation Xrotation Yrotation) and must stay in
// lockstep with it.
func EulerZXY(q quat.Number) (zDeg, xDeg, yDeg float64) {
	q = normalize(q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	// Rotation matrix elements needed for the closed-form extraction.
	m01 := 2 * (x*y - w*z)
	m11 := 1 - 2*(x*x+z*z)
	m20 := 2 * (x*z - w*y)
	m21 := 2 * (y*z + w*x)
	m22 := 1 - 2*(x*x+y*y)

	xRad := math.Asin(clamp(m21))
	zRad := math.Atan2(-m01, m11)
	yRad := math.Atan2(-m20, m22)

	const degPerRad = 180 / math.Pi
	return zRad * degPerRad, xRad * degPerRad, yRad * degPerRad
}
