// Package geom provides the 2D primitives the simulation is built on:
// axis-aligned boxes, line segments, and ray intersection routines.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// epsilon is the tolerance used by the ray intersection routines.
const epsilon = 1e-9

// MinVec returns the elementwise minimum of a and b.
func MinVec(a, b r2.Vec) r2.Vec {
	return r2.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)}
}

// MaxVec returns the elementwise maximum of a and b.
func MaxVec(a, b r2.Vec) r2.Vec {
	return r2.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)}
}

// FromAngle returns the unit vector at the given angle (radians,
// counter-clockwise from +X).
func FromAngle(angle float64) r2.Vec {
	return r2.Vec{X: math.Cos(angle), Y: math.Sin(angle)}
}

// RotateBy rotates v by the rotation that maps +X onto the unit vector
// heading (complex multiplication).
func RotateBy(heading, v r2.Vec) r2.Vec {
	return r2.Vec{
		X: heading.X*v.X - heading.Y*v.Y,
		Y: heading.Y*v.X + heading.X*v.Y,
	}
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b r2.Vec) r2.Vec {
	return r2.Vec{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}
