package scene

import (
	"gallery3d/internal/geometry/vector"
)

// Adjuster post-processes a generated position before it is handed to the
// renderer. Implementations must be pure.
type Adjuster interface {
	// Adjust returns the rendered position for a generated one.
	Adjust(p vector.Vec3) vector.Vec3
}

// Chain is a composite adjuster that applies multiple adjusters in sequence.
type Chain struct {
	Adjusters []Adjuster
}

// Adjust applies all adjusters in the chain, in order.
// The output of one adjuster becomes the input to the next.
func (c *Chain) Adjust(p vector.Vec3) vector.Vec3 {
	for _, a := range c.Adjusters {
		p = a.Adjust(p)
	}
	return p
}

// NoOp is an adjuster that does nothing.
var NoOp Adjuster = noOpAdjuster{}

type noOpAdjuster struct{}

func (noOpAdjuster) Adjust(p vector.Vec3) vector.Vec3 { return p }
