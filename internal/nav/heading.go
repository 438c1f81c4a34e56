package nav

import (
	"math"

	"gallery3d/internal/geometry/vector"
)

// HeadingDeg is the compass heading of a view direction in the XZ plane.
// 0 looks down -Z, 90 looks down +X.
func HeadingDeg(v vector.Vec3) float64 {
	if math.Abs(v.X) < 1e-9 && math.Abs(v.Z) < 1e-9 {
		return 0
	}
	deg := math.Atan2(v.X, -v.Z) * 180.0 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}
