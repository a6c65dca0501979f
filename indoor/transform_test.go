package indoor

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransform_Scenario(t *testing.T) {
	shape := DecodeShape(scenarioFeature().Geometry)
	got, ok := Transform(shape, 1000).(PolygonShape)
	require.True(t, ok)

	want := orb.Ring{{350, 280}, {450, 280}, {450, 320}, {350, 320}, {350, 280}}
	assert.Equal(t, want, got.Polygon[0])
}

func TestTransform_DoesNotMutateInput(t *testing.T) {
	shape := DecodeShape(scenarioFeature().Geometry).(PolygonShape)
	before := shape.Polygon.Clone()

	_ = Transform(shape, 1000)
	assert.Equal(t, before, shape.Polygon)
}

func TestTransform_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 50; i++ {
		ring := make([][2]float64, 0, 6)
		for j := 0; j < 5; j++ {
			ring = append(ring, [2]float64{rng.Float64() * 1e6, rng.Float64() * 1e6})
		}
		ring = append(ring, ring[0])
		shape := DecodeShape(MultiPolygonGeometry([][][][2]float64{{ring}, {ring}}))

		a := Transform(shape, 1000).(MultiPolygonShape)
		b := Transform(shape, 1000).(MultiPolygonShape)
		for p := range a.MultiPolygon {
			for k, pt := range a.MultiPolygon[p][0] {
				other := b.MultiPolygon[p][0][k]
				assert.Equal(t, math.Float64bits(pt[0]), math.Float64bits(other[0]))
				assert.Equal(t, math.Float64bits(pt[1]), math.Float64bits(other[1]))
			}
		}
	}
}

func TestTransform_ScaleRoundTrip(t *testing.T) {
	ring := [][2]float64{{123000, -4000}, {999000, 0}, {5000, 77000}, {123000, -4000}}
	shape := DecodeShape(PolygonGeometry([][][2]float64{ring}))

	scaled := Transform(shape, DefaultScaleFactor).(PolygonShape)
	for i, p := range scaled.Polygon[0] {
		assert.Equal(t, ring[i][0], p[0]*DefaultScaleFactor)
		assert.Equal(t, ring[i][1], p[1]*DefaultScaleFactor)
	}

	back := Untransform(scaled, DefaultScaleFactor).(PolygonShape)
	for i, p := range back.Polygon[0] {
		assert.InDelta(t, ring[i][0], p[0], 1e-6)
		assert.InDelta(t, ring[i][1], p[1], 1e-6)
	}
}

func TestTransform_Passthrough(t *testing.T) {
	point := DecodeShape(PointGeometry(5000, 6000))
	assert.Equal(t, point, Transform(point, 1000))

	poly := DecodeShape(scenarioFeature().Geometry)
	assert.Equal(t, poly, Transform(poly, 0), "non-positive scale leaves shapes as is")
	assert.Equal(t, poly, Transform(poly, -5))
}

func TestTransform_FractionalResult(t *testing.T) {
	shape := DecodeShape(PolygonGeometry([][][2]float64{{{1, 3}, {2, 3}, {2, 4}, {1, 3}}}))
	got := Transform(shape, 1000).(PolygonShape)
	assert.Equal(t, orb.Point{0.001, 0.003}, got.Polygon[0][0])
}
