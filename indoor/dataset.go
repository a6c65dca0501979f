package indoor

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// FeatureID is a feature's position in its collection.
type FeatureID int

// Entry is one normalized feature of a dataset.
type Entry struct {
	ID      FeatureID
	Feature *Feature
	Shape   Shape
	Key     string
	Layer   LayerInfo
	Bounds  Bounds
}

// Supported reports whether the entry has a polygon geometry.
func (e *Entry) Supported() bool {
	return e.Shape.Kind() != KindUnsupported
}

// Area returns the planar area of the entry's outer rings.
func (e *Entry) Area() float64 {
	var area float64
	for _, r := range OuterRings(e.Shape) {
		a := planar.Area(r)
		if a < 0 {
			a = -a
		}
		area += a
	}
	return area
}

// Centroid returns the area-weighted centroid of the entry's outer rings.
func (e *Entry) Centroid() orb.Point {
	rings := OuterRings(e.Shape)
	if len(rings) == 0 {
		return orb.Point{}
	}
	var mp orb.MultiPolygon
	for _, r := range rings {
		mp = append(mp, orb.Polygon{r})
	}
	c, _ := planar.CentroidArea(mp)
	return c
}

// SkippedFeature records a feature whose geometry was not transformed.
type SkippedFeature struct {
	ID     FeatureID `json:"id"`
	Layer  string    `json:"layer"`
	Type   string    `json:"type"`
	Reason string    `json:"reason"`
}

// Dataset is an immutable, normalized FeatureCollection. A new Dataset is
// built for every load and gets a fresh Version.
type Dataset struct {
	Version     string
	LoadedAt    time.Time
	ScaleFactor float64
	Entries     []*Entry
	Bounds      Bounds
	Skipped     []SkippedFeature
	UnknownKeys []string

	index *SpatialIndex
	byKey map[string][]FeatureID
}

// NewDataset transforms every feature of fc into rendering units, then
// computes the dataset bounds and spatial index. Unsupported geometries are
// kept but recorded as skipped.
func NewDataset(fc *FeatureCollection, catalog *LayerCatalog, scale float64) (*Dataset, error) {
	if fc == nil {
		return nil, fmt.Errorf("new dataset: %w", ErrNoDataset)
	}
	if scale <= 0 {
		return nil, fmt.Errorf("new dataset: %w (got %v)", ErrInvalidScale, scale)
	}
	if catalog == nil {
		catalog = DefaultLayerCatalog()
	}

	ds := &Dataset{
		Version:     uuid.NewString(),
		LoadedAt:    time.Now(),
		ScaleFactor: scale,
		Entries:     make([]*Entry, 0, len(fc.Features)),
		byKey:       make(map[string][]FeatureID),
	}

	// transform the whole collection before any bounds work
	unknown := make(map[string]bool)
	for i, f := range fc.Features {
		if f == nil {
			f = NewFeature(nil, nil)
		}
		id := FeatureID(i)
		key := f.LayerKey()
		shape := Transform(f.shape(), scale)

		if u, ok := shape.(UnsupportedShape); ok {
			ds.Skipped = append(ds.Skipped, SkippedFeature{
				ID:     id,
				Layer:  key,
				Type:   string(u.Type),
				Reason: u.Reason,
			})
		}
		if !catalog.Has(key) && !unknown[key] {
			unknown[key] = true
			ds.UnknownKeys = append(ds.UnknownKeys, key)
		}

		ds.Entries = append(ds.Entries, &Entry{
			ID:      id,
			Feature: f,
			Shape:   shape,
			Key:     key,
			Layer:   catalog.Lookup(key),
		})
		ds.byKey[key] = append(ds.byKey[key], id)
	}

	for _, e := range ds.Entries {
		e.Bounds = ShapeBounds(e.Shape)
	}
	ds.Bounds, _ = ComputeBounds(ds.Shapes())
	ds.index = NewSpatialIndex(ds.Entries)

	if len(ds.Skipped) > 0 {
		log.Printf("Dataset %s: skipped %d unsupported geometries", ds.Version, len(ds.Skipped))
	}
	if len(ds.UnknownKeys) > 0 {
		log.Printf("Dataset %s: %d layer keys not in catalog, using defaults", ds.Version, len(ds.UnknownKeys))
	}
	return ds, nil
}

// Shapes returns the transformed shape of every entry, in order.
func (d *Dataset) Shapes() []Shape {
	shapes := make([]Shape, len(d.Entries))
	for i, e := range d.Entries {
		shapes[i] = e.Shape
	}
	return shapes
}

// Entry returns the entry with the given id.
func (d *Dataset) Entry(id FeatureID) (*Entry, error) {
	if id < 0 || int(id) >= len(d.Entries) {
		return nil, fmt.Errorf("feature %d: %w", id, ErrFeatureNotFound)
	}
	return d.Entries[id], nil
}

// EntriesForLayer returns every entry carrying the layer key.
func (d *Dataset) EntriesForLayer(key string) []*Entry {
	ids := d.byKey[key]
	out := make([]*Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, d.Entries[id])
	}
	return out
}

// LayerBounds merges the bounds of every entry carrying the layer key.
func (d *Dataset) LayerBounds(key string) (Bounds, error) {
	var b Bounds
	for _, e := range d.EntriesForLayer(key) {
		b = b.Merge(e.Bounds)
	}
	if b.Empty() {
		return b, fmt.Errorf("layer %q: %w", key, ErrFeatureNotFound)
	}
	return b, nil
}

// Index returns the dataset's spatial index.
func (d *Dataset) Index() *SpatialIndex { return d.index }

// FeatureAt hit-tests a point in rendering units.
func (d *Dataset) FeatureAt(p orb.Point) (*Entry, bool) {
	id, ok := d.index.FeatureAt(p)
	if !ok {
		return nil, false
	}
	return d.Entries[id], true
}

// DrawOrder returns the entries sorted by render priority, stable within
// a priority.
func (d *Dataset) DrawOrder() []*Entry {
	out := make([]*Entry, len(d.Entries))
	copy(out, d.Entries)
	sortByPriority(out)
	return out
}

func sortByPriority(entries []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Layer.Priority() < entries[j].Layer.Priority()
	})
}
