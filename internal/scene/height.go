package scene

import (
	"math"

	"gallery3d/internal/geometry/vector"
)

// HeightClamp keeps item planes within a vertical band around the floor grid
// so none float out of the initial view.
type HeightClamp struct {
	// Limit is the maximum absolute height. Zero disables the clamp.
	Limit float64
}

// Adjust clamps Y to [-Limit, Limit].
func (h HeightClamp) Adjust(p vector.Vec3) vector.Vec3 {
	if h.Limit <= 0 {
		return p
	}
	p.Y = math.Max(math.Min(p.Y, h.Limit), -h.Limit)
	return p
}

// DefaultHeightClamp returns the ±50 band the gallery renders within.
func DefaultHeightClamp() HeightClamp {
	return HeightClamp{Limit: 50}
}
