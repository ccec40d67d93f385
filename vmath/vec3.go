package vmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 is the float64 world-space vector used by steering and physics
// X and Z span the ground plane, Y is height
type Vec3 = mgl64.Vec3

// Zero is the zero vector
var Zero = Vec3{}

// V3IsZero reports whether every component is exactly zero
func V3IsZero(v Vec3) bool {
	return v[0] == 0 && v[1] == 0 && v[2] == 0
}

// V3Normalize returns the unit vector of v, zero-safe
// mgl64 Normalize divides by length and yields NaN for the zero vector
func V3Normalize(v Vec3) Vec3 {
	mag := v.Len()
	if mag == 0 || math.IsNaN(mag) {
		return Vec3{}
	}
	inv := 1.0 / mag
	return Vec3{v[0] * inv, v[1] * inv, v[2] * inv}
}

// V3ClampMagnitude limits vector magnitude, no-op at or below the limit
func V3ClampMagnitude(v Vec3, maxMag float64) Vec3 {
	if maxMag <= 0 {
		return Vec3{}
	}
	if v.LenSqr() <= maxMag*maxMag {
		return v
	}
	return V3Normalize(v).Mul(maxMag)
}

// V3Planar drops the vertical component
func V3Planar(v Vec3) Vec3 {
	return Vec3{v[0], 0, v[2]}
}

// V3Right returns the ground-plane right vector for a heading
// (z, y, -x) is a clockwise quarter turn about the Y axis
func V3Right(forward Vec3) Vec3 {
	return V3Normalize(Vec3{forward[2], forward[1], -forward[0]})
}

// V3Distance returns the euclidean distance between two points
func V3Distance(a, b Vec3) float64 {
	return a.Sub(b).Len()
}

// V3DistanceSq returns squared distance without sqrt
func V3DistanceSq(a, b Vec3) float64 {
	return a.Sub(b).LenSqr()
}

// V3OnCircle returns the ground-plane offset at angle on a circle of radius
func V3OnCircle(angle, radius float64) Vec3 {
	return Vec3{math.Cos(angle) * radius, 0, math.Sin(angle) * radius}
}

// V3WithY returns v with its vertical component replaced
func V3WithY(v Vec3, y float64) Vec3 {
	return Vec3{v[0], y, v[2]}
}

// V3Finite reports whether no component is NaN or infinite
func V3Finite(v Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
