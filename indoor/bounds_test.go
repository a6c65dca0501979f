package indoor

import (
	"math/rand/v2"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transformed(features ...*Feature) []Shape {
	shapes := make([]Shape, len(features))
	for i, f := range features {
		shapes[i] = Transform(DecodeShape(f.Geometry), DefaultScaleFactor)
	}
	return shapes
}

func TestComputeBounds_Scenario(t *testing.T) {
	b, ok := ComputeBounds(transformed(scenarioFeature()))
	require.True(t, ok)

	assert.Equal(t, orb.Bound{Min: orb.Point{350, 280}, Max: orb.Point{450, 320}}, b.Bound())
	// lat is y, lng is x
	assert.Equal(t, LatLng{280, 350}, b.SouthWest())
	assert.Equal(t, LatLng{320, 450}, b.NorthEast())
}

func TestComputeBounds_Empty(t *testing.T) {
	_, ok := ComputeBounds(nil)
	assert.False(t, ok)

	_, ok = ComputeBounds(transformed(pointFeature("X", 1, 1)))
	assert.False(t, ok, "unsupported geometry alone yields no bounds")
}

func TestComputeBounds_SkipsUnsupported(t *testing.T) {
	alone, ok := ComputeBounds(transformed(scenarioFeature()))
	require.True(t, ok)

	broken := NewFeature(&Geometry{Type: GeometryPolygon}, nil)
	mixed, ok := ComputeBounds(transformed(
		pointFeature("X", 9e9, 9e9),
		scenarioFeature(),
		broken,
		NewFeature(nil, nil),
	))
	require.True(t, ok)
	assert.Equal(t, alone, mixed)
}

func TestComputeBounds_IgnoresHoles(t *testing.T) {
	// hole pokes outside the outer ring
	f := polygonFeature("KT1", rectRing(0, 0, 10000, 10000), rectRing(-5000, -5000, 20000, 20000))
	b, ok := ComputeBounds(transformed(f))
	require.True(t, ok)
	assert.Equal(t, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}}, b.Bound())
}

func TestComputeBounds_OrderIndependent(t *testing.T) {
	features := []*Feature{
		scenarioFeature(),
		polygonFeature("KT1", rectRing(-1000, 5000, 3000, 9000)),
		multiPolygonFeature("WC2",
			[][][2]float64{rectRing(100000, 100000, 110000, 120000)},
			[][][2]float64{rectRing(-50000, 400000, -40000, 410000)},
		),
		pointFeature("X", 0, 0),
	}
	want, ok := ComputeBounds(transformed(features...))
	require.True(t, ok)

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 20; i++ {
		shuffled := append([]*Feature(nil), features...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got, ok := ComputeBounds(transformed(shuffled...))
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestBounds_Merge(t *testing.T) {
	var empty Bounds
	a := NewBounds(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}})
	b := NewBounds(orb.Bound{Min: orb.Point{5, -2}, Max: orb.Point{6, 0}})

	assert.Equal(t, a, a.Merge(empty))
	assert.Equal(t, a, empty.Merge(a))
	assert.True(t, empty.Merge(empty).Empty())

	m := a.Merge(b)
	assert.Equal(t, orb.Bound{Min: orb.Point{0, -2}, Max: orb.Point{6, 1}}, m.Bound())
	assert.Equal(t, m, b.Merge(a))
}

func TestBounds_Degenerate(t *testing.T) {
	var b Bounds
	b.ExtendPoint(orb.Point{3, 4})
	b.ExtendPoint(orb.Point{3, 4})
	assert.False(t, b.Empty())
	assert.Equal(t, orb.Point{3, 4}, b.Bound().Min)
	assert.Equal(t, orb.Point{3, 4}, b.Bound().Max)
}

func TestBounds_Queries(t *testing.T) {
	a := NewBounds(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 4}})
	assert.True(t, a.Contains(orb.Point{5, 2}))
	assert.False(t, a.Contains(orb.Point{11, 2}))
	assert.Equal(t, LatLng{2, 5}, a.Center())

	var empty Bounds
	assert.False(t, empty.Intersects(a))
	assert.True(t, a.Intersects(NewBounds(orb.Bound{Min: orb.Point{9, 3}, Max: orb.Point{20, 20}})))
}
