// Package layout scatters items on a ring-shaped band of 3D space so that no two
// items sit closer than a minimum separation.
package layout

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gallery3d/internal/geometry/vector"
)

// AttemptsPerItem is the share of the global attempt budget each item adds.
const AttemptsPerItem = 100

// MaxItemCount is the largest ItemCount whose attempt budget fits in an int.
const MaxItemCount = math.MaxInt / AttemptsPerItem

// preallocLimit caps the up-front capacity of Result.Positions; larger
// results grow through append as positions are accepted.
const preallocLimit = 1024

// ErrInvalidRequest is matched by every ValidationError.
var ErrInvalidRequest = errors.New("layout: invalid request")

// RandomSource yields uniform samples in [0,1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// Request describes the band items are scattered in.
type Request struct {
	ItemCount    int     `json:"itemCount" yaml:"itemCount" mapstructure:"itemCount"`
	RadiusMin    float64 `json:"radiusMin" yaml:"radiusMin" mapstructure:"radiusMin"`
	RadiusMax    float64 `json:"radiusMax" yaml:"radiusMax" mapstructure:"radiusMax"`
	MinDistance  float64 `json:"minDistance" yaml:"minDistance" mapstructure:"minDistance"`
	HeightRange  float64 `json:"heightRange" yaml:"heightRange" mapstructure:"heightRange"`
	HeightCenter float64 `json:"heightCenter" yaml:"heightCenter" mapstructure:"heightCenter"`
}

// Result holds accepted positions in acceptance order. The order is paired
// index-by-index with the caller's items and must not be changed.
type Result struct {
	Positions []vector.Vec3 `json:"positions" yaml:"positions"`
	Unplaced  int           `json:"unplaced" yaml:"unplaced"`
	Attempts  int           `json:"attempts" yaml:"attempts"`
}

// Placed returns the number of accepted positions.
func (r Result) Placed() int { return len(r.Positions) }

// ValidationError reports a malformed Request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("layout: invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidRequest) hold for any ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidRequest }

// Validate checks the request before any sampling happens.
func (r Request) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"radiusMin", r.RadiusMin},
		{"radiusMax", r.RadiusMax},
		{"minDistance", r.MinDistance},
		{"heightRange", r.HeightRange},
		{"heightCenter", r.HeightCenter},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &ValidationError{Field: f.name, Reason: "must be finite"}
		}
	}

	switch {
	case r.ItemCount < 0:
		return &ValidationError{Field: "itemCount", Reason: "must not be negative"}
	case r.ItemCount > MaxItemCount:
		return &ValidationError{Field: "itemCount", Reason: fmt.Sprintf("must not exceed %d", MaxItemCount)}
	case r.RadiusMin < 0:
		return &ValidationError{Field: "radiusMin", Reason: "must not be negative"}
	case r.RadiusMin >= r.RadiusMax:
		return &ValidationError{Field: "radiusMax", Reason: "must be greater than radiusMin"}
	case r.MinDistance <= 0:
		return &ValidationError{Field: "minDistance", Reason: "must be positive"}
	case r.HeightRange <= 0:
		return &ValidationError{Field: "heightRange", Reason: "must be positive"}
	}
	return nil
}

// Generate places up to req.ItemCount positions by rejection sampling.
//
// Each attempt draws an angle, a radius and a height, in that order. A
// candidate is kept only if it is at least MinDistance from every position
// accepted so far. The attempt budget is shared by all items; when it runs
// out the positions found so far are returned and the shortfall is reported
// in Unplaced.
//
// A zero ItemCount returns an empty result without touching rng or the
// other fields.
func Generate(req Request, rng RandomSource) (Result, error) {
	if req.ItemCount == 0 {
		return Result{Positions: []vector.Vec3{}}, nil
	}
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	if rng == nil {
		return Result{}, errors.New("layout: nil random source")
	}

	positions := make([]vector.Vec3, 0, min(req.ItemCount, preallocLimit))
	minDistSq := req.MinDistance * req.MinDistance
	maxAttempts := req.ItemCount * AttemptsPerItem

	attempts := 0
	for len(positions) < req.ItemCount && attempts < maxAttempts {
		candidate := sample(req, rng)
		if !tooClose(candidate, positions, minDistSq) {
			positions = append(positions, candidate)
		}
		attempts++
	}

	return Result{
		Positions: positions,
		Unplaced:  req.ItemCount - len(positions),
		Attempts:  attempts,
	}, nil
}

// sample draws one candidate on the ring. The radius is drawn uniformly
// without area correction, so density is higher toward RadiusMin.
func sample(req Request, rng RandomSource) vector.Vec3 {
	angle := rng.Float64() * 2 * math.Pi
	radius := req.RadiusMin + rng.Float64()*(req.RadiusMax-req.RadiusMin)
	y := req.HeightCenter + rng.Float64()*req.HeightRange - req.HeightRange/2

	return vector.Vec3{
		X: math.Cos(angle) * radius,
		Y: y,
		Z: math.Sin(angle) * radius,
	}
}

func tooClose(p vector.Vec3, accepted []vector.Vec3, minDistSq float64) bool {
	for _, q := range accepted {
		if p.DistanceSq(q) < minDistSq {
			return true
		}
	}
	return false
}

// NewRand returns a seeded source. Seed 0 seeds from the clock.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Generator is Generate with logging.
type Generator struct {
	logger *zap.Logger
}

// NewGenerator creates a Generator. A nil logger discards output.
func NewGenerator(logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{logger: logger.Named("layout")}
}

// Generate runs Generate and warns when not every item could be placed.
func (g *Generator) Generate(req Request, rng RandomSource) (Result, error) {
	res, err := Generate(req, rng)
	if err != nil {
		g.logger.Debug("layout request rejected", zap.Error(err))
		return res, err
	}

	if res.Unplaced > 0 {
		g.logger.Warn("could not place every item; try a wider radius or a smaller minDistance",
			zap.Int("placed", res.Placed()),
			zap.Int("requested", req.ItemCount),
			zap.Int("attempts", res.Attempts),
		)
	} else {
		g.logger.Debug("layout generated",
			zap.Int("placed", res.Placed()),
			zap.Int("attempts", res.Attempts),
		)
	}
	return res, nil
}
