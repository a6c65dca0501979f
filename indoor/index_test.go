package indoor

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// indexFixture ids: 0 background, 1 WC1, 2 KT1, 3 NHAHANG1 overlapping
// WC1, 4 unsupported point, 5 WC2 with a hole.
func indexFixture() *Dataset {
	return mustDataset(collection(
		polygonFeature("DRAWDEMO", rectRing(0, 0, 100000, 100000)),
		polygonFeature("WC1", rectRing(10000, 10000, 20000, 20000)),
		polygonFeature("KT1", rectRing(15000, 15000, 30000, 30000)),
		polygonFeature("NHAHANG1", rectRing(15000, 15000, 18000, 18000)),
		pointFeature("TC1", 50000, 50000),
		polygonFeature("WC2", rectRing(60000, 60000, 70000, 70000), rectRing(62000, 62000, 68000, 68000)),
	))
}

func TestSpatialIndex_Size(t *testing.T) {
	ds := indexFixture()
	assert.Equal(t, 5, ds.Index().Size(), "unsupported geometry is not indexed")
}

func TestSpatialIndex_FeatureAt(t *testing.T) {
	ds := indexFixture()

	tests := []struct {
		name   string
		p      orb.Point
		want   FeatureID
		wantOK bool
	}{
		{"background only", orb.Point{5, 5}, 0, true},
		{"room over background", orb.Point{12, 12}, 1, true},
		{"technical under room", orb.Point{25, 25}, 2, true},
		{"later room wins on tie", orb.Point{16, 16}, 3, true},
		{"room beats technical", orb.Point{19, 19}, 1, true},
		{"inside hole still hits outer ring", orb.Point{65, 65}, 5, true},
		{"outside everything", orb.Point{500, 500}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ds.Index().FeatureAt(tt.p)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSpatialIndex_FeaturesIn(t *testing.T) {
	ds := indexFixture()

	got := ds.Index().FeaturesIn(NewBounds(orb.Bound{Min: orb.Point{11, 11}, Max: orb.Point{16, 16}}))
	assert.Equal(t, []FeatureID{0, 1, 2, 3}, got)

	assert.Nil(t, ds.Index().FeaturesIn(Bounds{}))
	assert.Empty(t, ds.Index().FeaturesIn(NewBounds(orb.Bound{Min: orb.Point{200, 200}, Max: orb.Point{300, 300}})))
}

func TestSpatialIndex_Empty(t *testing.T) {
	idx := NewSpatialIndex(nil)
	_, ok := idx.FeatureAt(orb.Point{0, 0})
	assert.False(t, ok)

	var nilIdx *SpatialIndex
	_, ok = nilIdx.FeatureAt(orb.Point{0, 0})
	assert.False(t, ok)
}

func TestSpatialIndex_DegenerateFeature(t *testing.T) {
	// zero-area sliver still indexes
	ds := mustDataset(collection(
		polygonFeature("WC1", [][2]float64{{1000, 1000}, {2000, 1000}, {1000, 1000}}),
	))
	require.Equal(t, 1, ds.Index().Size())
	got := ds.Index().FeaturesIn(NewBounds(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{5, 5}}))
	assert.Equal(t, []FeatureID{0}, got)
}
