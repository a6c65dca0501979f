package indoor

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
)

// ShapeKind enumerates the geometry kinds the engine understands.
type ShapeKind int

const (
	KindUnsupported ShapeKind = iota
	KindPolygon
	KindMultiPolygon
)

func (k ShapeKind) String() string {
	switch k {
	case KindPolygon:
		return "Polygon"
	case KindMultiPolygon:
		return "MultiPolygon"
	default:
		return "Unsupported"
	}
}

// Shape is a decoded feature geometry. It is one of PolygonShape,
// MultiPolygonShape or UnsupportedShape.
type Shape interface {
	Kind() ShapeKind
	shape()
}

// PolygonShape holds a polygon; ring 0 is the outer ring.
type PolygonShape struct {
	Polygon orb.Polygon
}

// MultiPolygonShape holds a list of polygons.
type MultiPolygonShape struct {
	MultiPolygon orb.MultiPolygon
}

// UnsupportedShape carries any geometry the engine does not transform or
// bound: points, lines, and polygons whose coordinates failed to decode.
type UnsupportedShape struct {
	Type   GeometryType
	Reason string
	Raw    *Geometry
}

func (PolygonShape) Kind() ShapeKind      { return KindPolygon }
func (MultiPolygonShape) Kind() ShapeKind { return KindMultiPolygon }
func (UnsupportedShape) Kind() ShapeKind  { return KindUnsupported }

func (PolygonShape) shape()      {}
func (MultiPolygonShape) shape() {}
func (UnsupportedShape) shape()  {}

// DecodeShape converts a raw GeoJSON geometry into a Shape. It never fails:
// anything it cannot read becomes an UnsupportedShape with a reason.
func DecodeShape(geom *Geometry) Shape {
	if geom == nil {
		return UnsupportedShape{Reason: "missing geometry"}
	}

	switch geom.Type {
	case GeometryPolygon:
		var rings [][][]float64
		if err := json.Unmarshal(geom.Coordinates, &rings); err != nil {
			return unsupported(geom, fmt.Sprintf("invalid polygon coordinates: %v", err))
		}
		poly, err := toOrbPolygon(rings)
		if err != nil {
			return unsupported(geom, err.Error())
		}
		return PolygonShape{Polygon: poly}

	case GeometryMultiPolygon:
		var polys [][][][]float64
		if err := json.Unmarshal(geom.Coordinates, &polys); err != nil {
			return unsupported(geom, fmt.Sprintf("invalid multipolygon coordinates: %v", err))
		}
		mp := make(orb.MultiPolygon, 0, len(polys))
		for i, rings := range polys {
			poly, err := toOrbPolygon(rings)
			if err != nil {
				return unsupported(geom, fmt.Sprintf("polygon %d: %v", i, err))
			}
			mp = append(mp, poly)
		}
		return MultiPolygonShape{MultiPolygon: mp}
	}

	return unsupported(geom, fmt.Sprintf("geometry type %q not supported", geom.Type))
}

func unsupported(geom *Geometry, reason string) UnsupportedShape {
	return UnsupportedShape{Type: geom.Type, Reason: reason, Raw: geom}
}

// toOrbPolygon converts decoded rings. Positions need at least x and y;
// extra ordinates (elevation) are dropped.
func toOrbPolygon(rings [][][]float64) (orb.Polygon, error) {
	if rings == nil {
		return nil, fmt.Errorf("missing coordinates")
	}
	poly := make(orb.Polygon, len(rings))
	for i, ring := range rings {
		r := make(orb.Ring, len(ring))
		for j, c := range ring {
			if len(c) < 2 {
				return nil, fmt.Errorf("ring %d position %d has %d ordinates", i, j, len(c))
			}
			r[j] = orb.Point{c[0], c[1]}
		}
		poly[i] = r
	}
	return poly, nil
}

// OuterRings returns the outer ring of every polygon in the shape. Holes
// are left out on purpose; unsupported shapes have none.
func OuterRings(s Shape) []orb.Ring {
	switch v := s.(type) {
	case PolygonShape:
		if len(v.Polygon) == 0 {
			return nil
		}
		return []orb.Ring{v.Polygon[0]}
	case MultiPolygonShape:
		rings := make([]orb.Ring, 0, len(v.MultiPolygon))
		for _, poly := range v.MultiPolygon {
			if len(poly) > 0 {
				rings = append(rings, poly[0])
			}
		}
		return rings
	case UnsupportedShape:
		return nil
	}
	return nil
}
