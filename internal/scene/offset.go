package scene

import (
	"math"

	"gallery3d/internal/geometry/vector"
)

// Offset shifts every item by a constant displacement, e.g. to lift the
// whole gallery above the floor grid.
type Offset struct {
	Delta vector.Vec3
}

func (o Offset) Adjust(p vector.Vec3) vector.Vec3 { return p.Add(o.Delta) }

// Rotate spins the layout around the vertical axis by Degrees.
type Rotate struct {
	Degrees float64
}

func (r Rotate) Adjust(p vector.Vec3) vector.Vec3 {
	rad := r.Degrees * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	return vector.Vec3{
		X: p.X*cos + p.Z*sin,
		Y: p.Y,
		Z: -p.X*sin + p.Z*cos,
	}
}
