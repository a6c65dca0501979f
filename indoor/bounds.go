package indoor

import "github.com/paulmach/orb"

// LatLng is a [lat, lng] pair in rendering units. The renderer's simple
// planar CRS treats y as latitude and x as longitude.
type LatLng [2]float64

// Bounds accumulates the minimal rectangle enclosing the points it has
// seen. The zero value is empty.
type Bounds struct {
	bound orb.Bound
	set   bool
}

// NewBounds wraps an orb.Bound.
func NewBounds(b orb.Bound) Bounds {
	return Bounds{bound: b, set: true}
}

// Empty reports whether no point has been added yet.
func (b Bounds) Empty() bool { return !b.set }

// Bound returns the rectangle. It is the zero orb.Bound when empty.
func (b Bounds) Bound() orb.Bound { return b.bound }

// ExtendPoint grows the rectangle to include p.
func (b *Bounds) ExtendPoint(p orb.Point) {
	if !b.set {
		b.bound = orb.Bound{Min: p, Max: p}
		b.set = true
		return
	}
	b.bound = b.bound.Extend(p)
}

// ExtendRing grows the rectangle to include every point of r.
func (b *Bounds) ExtendRing(r orb.Ring) {
	for _, p := range r {
		b.ExtendPoint(p)
	}
}

// Merge returns the smallest Bounds containing both b and o.
func (b Bounds) Merge(o Bounds) Bounds {
	switch {
	case !o.set:
		return b
	case !b.set:
		return o
	}
	return Bounds{bound: b.bound.Union(o.bound), set: true}
}

// Intersects reports whether the two rectangles overlap. Empty bounds
// intersect nothing.
func (b Bounds) Intersects(o Bounds) bool {
	return b.set && o.set && b.bound.Intersects(o.bound)
}

// Contains reports whether p lies inside the rectangle.
func (b Bounds) Contains(p orb.Point) bool {
	return b.set && b.bound.Contains(p)
}

// Center returns the rectangle's centre as a LatLng.
func (b Bounds) Center() LatLng {
	c := b.bound.Center()
	return LatLng{c[1], c[0]}
}

// SouthWest returns the [minY, minX] corner.
func (b Bounds) SouthWest() LatLng {
	return LatLng{b.bound.Min[1], b.bound.Min[0]}
}

// NorthEast returns the [maxY, maxX] corner.
func (b Bounds) NorthEast() LatLng {
	return LatLng{b.bound.Max[1], b.bound.Max[0]}
}

// ShapeBounds returns the bounds of a shape's outer rings. Unsupported
// shapes and shapes without points yield empty bounds.
func ShapeBounds(s Shape) Bounds {
	var b Bounds
	for _, r := range OuterRings(s) {
		b.ExtendRing(r)
	}
	return b
}

// ComputeBounds merges the outer-ring bounds of every shape. The second
// return value is false when no shape contributed a point.
func ComputeBounds(shapes []Shape) (Bounds, bool) {
	var b Bounds
	for _, s := range shapes {
		b = b.Merge(ShapeBounds(s))
	}
	return b, !b.Empty()
}
