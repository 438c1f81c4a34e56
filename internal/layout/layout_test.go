package layout_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"gallery3d/internal/layout"
)

// countingSource counts draws so tests can assert none happened.
type countingSource struct {
	r     *rand.Rand
	draws int
}

func (c *countingSource) Float64() float64 {
	c.draws++
	return c.r.Float64()
}

func defaultRequest(n int) layout.Request {
	return layout.Request{
		ItemCount:    n,
		RadiusMin:    30,
		RadiusMax:    120,
		MinDistance:  12,
		HeightRange:  100,
		HeightCenter: 0,
	}
}

func TestGenerateRespectsMinDistance(t *testing.T) {
	req := defaultRequest(60)
	res, err := layout.Generate(req, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	minSq := req.MinDistance * req.MinDistance
	for i := range res.Positions {
		for j := i + 1; j < len(res.Positions); j++ {
			assert.GreaterOrEqual(t, res.Positions[i].DistanceSq(res.Positions[j]), minSq, "pair %d,%d", i, j)
		}
	}
	assert.Equal(t, req.ItemCount, res.Placed()+res.Unplaced)
}

func TestGenerateStaysInsideBand(t *testing.T) {
	req := defaultRequest(40)
	req.HeightCenter = 5
	res, err := layout.Generate(req, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	require.NotEmpty(t, res.Positions)

	const tol = 1e-9
	for _, p := range res.Positions {
		radial := math.Hypot(p.X, p.Z)
		assert.GreaterOrEqual(t, radial, req.RadiusMin-tol)
		assert.Less(t, radial, req.RadiusMax+tol)
		assert.GreaterOrEqual(t, p.Y, req.HeightCenter-req.HeightRange/2)
		assert.LessOrEqual(t, p.Y, req.HeightCenter+req.HeightRange/2)
	}
}

func TestGenerateZeroItems(t *testing.T) {
	src := &countingSource{r: rand.New(rand.NewSource(1))}
	res, err := layout.Generate(layout.Request{ItemCount: 0, RadiusMin: 50, RadiusMax: 1, MinDistance: -3}, src)
	require.NoError(t, err)
	assert.Empty(t, res.Positions)
	assert.Zero(t, res.Unplaced)
	assert.Zero(t, src.draws)
}

func TestGenerateInfeasibleTerminates(t *testing.T) {
	req := layout.Request{ItemCount: 5, RadiusMin: 10, RadiusMax: 100, MinDistance: 1000, HeightRange: 10}
	res, err := layout.Generate(req, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	// Only the first candidate can ever be accepted.
	assert.Equal(t, 1, res.Placed())
	assert.Equal(t, 4, res.Unplaced)
	assert.Equal(t, req.ItemCount*layout.AttemptsPerItem, res.Attempts)
}

func TestGenerateLargeCountGrowsLazily(t *testing.T) {
	req := layout.Request{ItemCount: 5000, RadiusMin: 10, RadiusMax: 100, MinDistance: 1000, HeightRange: 10}
	res, err := layout.Generate(req, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Placed())
	assert.Equal(t, 4999, res.Unplaced)
	assert.Equal(t, req.ItemCount*layout.AttemptsPerItem, res.Attempts)
	assert.LessOrEqual(t, cap(res.Positions), 1024)
}

func TestValidateMaxItemCount(t *testing.T) {
	req := layout.Request{ItemCount: layout.MaxItemCount, RadiusMin: 1, RadiusMax: 2, MinDistance: 1, HeightRange: 1}
	require.NoError(t, req.Validate())

	req.ItemCount++
	var verr *layout.ValidationError
	require.True(t, errors.As(req.Validate(), &verr))
	assert.Equal(t, "itemCount", verr.Field)
}

func TestGenerateDeterministic(t *testing.T) {
	req := defaultRequest(25)
	a, err := layout.Generate(req, rand.New(rand.NewSource(99)))
	require.NoError(t, err)
	b, err := layout.Generate(req, rand.New(rand.NewSource(99)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerateDrawOrder(t *testing.T) {
	// Fixed draws: angle 0, radius midpoint, height top quarter.
	src := &fixedSource{values: []float64{0, 0.5, 0.75}}
	req := layout.Request{ItemCount: 1, RadiusMin: 10, RadiusMax: 20, MinDistance: 1, HeightRange: 8, HeightCenter: 1}
	res, err := layout.Generate(req, src)
	require.NoError(t, err)
	require.Len(t, res.Positions, 1)

	p := res.Positions[0]
	assert.InDelta(t, 15.0, p.X, 1e-12)
	assert.InDelta(t, 0.0, p.Z, 1e-12)
	assert.InDelta(t, 3.0, p.Y, 1e-12)
}

type fixedSource struct {
	values []float64
	i      int
}

func (f *fixedSource) Float64() float64 {
	v := f.values[f.i%len(f.values)]
	f.i++
	return v
}

func TestValidate(t *testing.T) {
	cases := map[string]layout.Request{
		"negative count":      {ItemCount: -1, RadiusMin: 1, RadiusMax: 2, MinDistance: 1, HeightRange: 1},
		"negative radius":     {ItemCount: 1, RadiusMin: -1, RadiusMax: 2, MinDistance: 1, HeightRange: 1},
		"inverted radii":      {ItemCount: 1, RadiusMin: 5, RadiusMax: 5, MinDistance: 1, HeightRange: 1},
		"zero min distance":   {ItemCount: 1, RadiusMin: 1, RadiusMax: 2, MinDistance: 0, HeightRange: 1},
		"zero height range":   {ItemCount: 1, RadiusMin: 1, RadiusMax: 2, MinDistance: 1, HeightRange: 0},
		"non-finite center":   {ItemCount: 1, RadiusMin: 1, RadiusMax: 2, MinDistance: 1, HeightRange: 1, HeightCenter: math.NaN()},
		"infinite max radius": {ItemCount: 1, RadiusMin: 1, RadiusMax: math.Inf(1), MinDistance: 1, HeightRange: 1},
		"budget overflow":     {ItemCount: layout.MaxItemCount + 1, RadiusMin: 1, RadiusMax: 2, MinDistance: 1, HeightRange: 1},
		"max int count":       {ItemCount: math.MaxInt, RadiusMin: 1, RadiusMax: 2, MinDistance: 1, HeightRange: 1},
	}

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			src := &countingSource{r: rand.New(rand.NewSource(1))}
			_, err := layout.Generate(req, src)
			require.Error(t, err)
			assert.True(t, errors.Is(err, layout.ErrInvalidRequest))

			var verr *layout.ValidationError
			assert.True(t, errors.As(err, &verr))
			assert.Zero(t, src.draws)
		})
	}
}

func TestGeneratorWarnsOnShortfall(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	g := layout.NewGenerator(zap.New(core))

	req := layout.Request{ItemCount: 3, RadiusMin: 1, RadiusMax: 2, MinDistance: 500, HeightRange: 1}
	res, err := g.Generate(req, rand.New(rand.NewSource(5)))
	require.NoError(t, err)
	assert.Positive(t, res.Unplaced)

	warnings := logs.FilterLevelExact(zap.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Equal(t, int64(3), warnings[0].ContextMap()["requested"])
}
