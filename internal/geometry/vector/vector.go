// Package vector provides 3D vector operations
package vector

import (
	"math"

	"github.com/pkg/errors"
)

// Epsilon is the length below which a vector is treated as zero-length
const Epsilon = 1e-9

// ErrDegenerateVector is returned when a zero-length vector has no direction
var ErrDegenerateVector = errors.New("vector: degenerate (zero-length) vector")

// NewVec3 creates a new 3D vector with the given components
func NewVec3(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// Vec3 represents a 3D vector in world units with Y pointing up
type Vec3 struct {
	X float64 `json:"x" yaml:"x" mapstructure:"x"`
	Y float64 `json:"y" yaml:"y" mapstructure:"y"`
	Z float64 `json:"z" yaml:"z" mapstructure:"z"`
}

var (
	// Zero is the origin
	Zero = Vec3{}
	// Up is the world-up axis
	Up = Vec3{Y: 1}
)

// Add returns the sum of two vectors
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns the difference between two vectors
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Mul scales a vector by a scalar
func (v Vec3) Mul(k float64) Vec3 { return Vec3{v.X * k, v.Y * k, v.Z * k} }

// Dot returns the dot product of two vectors
func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

// Cross returns the cross product of two vectors
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

// LengthSq returns the squared magnitude
func (v Vec3) LengthSq() float64 { return v.Dot(v) }

// Length returns the vector's magnitude (Euclidean norm)
func (v Vec3) Length() float64 { return math.Sqrt(v.LengthSq()) }

// DistanceSq returns the squared distance between two points
func (v Vec3) DistanceSq(o Vec3) float64 { return v.Sub(o).LengthSq() }

// Distance returns the distance between two points
func (v Vec3) Distance(o Vec3) float64 { return v.Sub(o).Length() }

// IsZero reports whether the vector is shorter than Epsilon
func (v Vec3) IsZero() bool { return v.Length() < Epsilon }

// IsFinite reports whether every component is a finite number
func (v Vec3) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

// Horizontal returns the projection onto the XZ plane
func (v Vec3) Horizontal() Vec3 { return Vec3{X: v.X, Z: v.Z} }

// Normalize returns a unit vector in the same direction.
// Zero-length vectors normalize to the zero vector.
func (v Vec3) Normalize() Vec3 {
	n := v.Length()
	if n < Epsilon {
		return Vec3{}
	}
	return v.Mul(1 / n)
}

// Unit is the strict form of Normalize: it fails on zero-length input
func (v Vec3) Unit() (Vec3, error) {
	n := v.Length()
	if n < Epsilon {
		return Vec3{}, ErrDegenerateVector
	}
	return v.Mul(1 / n), nil
}

// Lerp interpolates from a to b. t is clamped to [0,1].
func Lerp(a, b Vec3, t float64) Vec3 {
	switch {
	case t <= 0:
		return a
	case t >= 1:
		return b
	}
	return a.Add(b.Sub(a).Mul(t))
}

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
