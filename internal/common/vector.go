package common

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vector represents a point or direction in 3D world space.
// Y is the vertical (rendering) axis; X and Z span the ground plane.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// NewVector creates a vector from its components.
func NewVector(x, y, z float64) Vector {
	return Vector{X: x, Y: y, Z: z}
}

func (v Vector) r3() r3.Vec { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }

func fromR3(p r3.Vec) Vector { return Vector{X: p.X, Y: p.Y, Z: p.Z} }

// Add adds another vector to this vector.
func (v Vector) Add(other Vector) Vector {
	return fromR3(r3.Add(v.r3(), other.r3()))
}

// Subtract subtracts another vector from this vector.
func (v Vector) Subtract(other Vector) Vector {
	return fromR3(r3.Sub(v.r3(), other.r3()))
}

// MultiplyByScalar multiplies the vector by a scalar value.
func (v Vector) MultiplyByScalar(scalar float64) Vector {
	return fromR3(r3.Scale(scalar, v.r3()))
}

// Norm returns the Euclidean length of the vector.
func (v Vector) Norm() float64 {
	return r3.Norm(v.r3())
}

// Distance calculates the Euclidean distance between two vectors.
func (v Vector) Distance(other Vector) float64 {
	return r3.Norm(r3.Sub(v.r3(), other.r3()))
}

// IsZero reports whether every component is exactly zero.
func (v Vector) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// Unit returns the vector scaled to length 1. The zero vector has no
// direction, so Unit returns false for it instead of producing NaNs.
func (v Vector) Unit() (Vector, bool) {
	if v.IsZero() {
		return Vector{}, false
	}
	return fromR3(r3.Unit(v.r3())), true
}

// Lerp linearly interpolates between a and b. f=0 yields a and f=1 yields b
// exactly.
func Lerp(a, b Vector, f float64) Vector {
	switch f {
	case 0:
		return a
	case 1:
		return b
	}
	return a.Add(b.Subtract(a).MultiplyByScalar(f))
}

// Yaw returns the heading of the vector on the ground plane in radians,
// measured from +Z towards +X.
func (v Vector) Yaw() float64 {
	return math.Atan2(v.X, v.Z)
}

// String returns a string representation of the vector.
func (v Vector) String() string {
	return fmt.Sprintf("[%.3f, %.3f, %.3f]", v.X, v.Y, v.Z)
}
