package indoor

import "github.com/paulmach/orb"

// DefaultScaleFactor maps raw drawing units (millimetres in the terminal
// exports) to rendering units.
const DefaultScaleFactor = 1000.0

// ScalePoint divides both ordinates by scale.
func ScalePoint(p orb.Point, scale float64) orb.Point {
	return orb.Point{p[0] / scale, p[1] / scale}
}

// ScaleRing returns a new ring with every point divided by scale.
func ScaleRing(r orb.Ring, scale float64) orb.Ring {
	if r == nil {
		return nil
	}
	out := make(orb.Ring, len(r))
	for i, p := range r {
		out[i] = ScalePoint(p, scale)
	}
	return out
}

// ScalePolygon scales every ring of a polygon, holes included.
func ScalePolygon(poly orb.Polygon, scale float64) orb.Polygon {
	if poly == nil {
		return nil
	}
	out := make(orb.Polygon, len(poly))
	for i, r := range poly {
		out[i] = ScaleRing(r, scale)
	}
	return out
}

// Transform converts a shape into rendering units. The input is never
// modified. Unsupported shapes and non-positive scales pass through as is.
func Transform(s Shape, scale float64) Shape {
	if scale <= 0 {
		return s
	}
	switch v := s.(type) {
	case PolygonShape:
		return PolygonShape{Polygon: ScalePolygon(v.Polygon, scale)}
	case MultiPolygonShape:
		if v.MultiPolygon == nil {
			return v
		}
		mp := make(orb.MultiPolygon, len(v.MultiPolygon))
		for i, poly := range v.MultiPolygon {
			mp[i] = ScalePolygon(poly, scale)
		}
		return MultiPolygonShape{MultiPolygon: mp}
	}
	return s
}

// Untransform is the inverse of Transform, mapping rendering units back to
// drawing units.
func Untransform(s Shape, scale float64) Shape {
	if scale <= 0 {
		return s
	}
	return Transform(s, 1/scale)
}
