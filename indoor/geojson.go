package indoor

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// GeometryType represents the GeoJSON geometry type
type GeometryType string

const (
	GeometryPoint           GeometryType = "Point"
	GeometryLineString      GeometryType = "LineString"
	GeometryPolygon         GeometryType = "Polygon"
	GeometryMultiPoint      GeometryType = "MultiPoint"
	GeometryMultiLineString GeometryType = "MultiLineString"
	GeometryMultiPolygon    GeometryType = "MultiPolygon"
)

// LayerProperty is the property key joining a feature to the LayerCatalog.
const LayerProperty = "layer"

// Geometry represents a GeoJSON geometry object. Coordinates are kept raw
// so one malformed feature cannot fail decoding of the whole document.
type Geometry struct {
	Type        GeometryType    `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Feature represents a GeoJSON feature with geometry and properties
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   *Geometry              `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
	ID         interface{}            `json:"id,omitempty"`

	// set by ParseFeatureCollection when the feature could not be read
	malformed string
}

// FeatureCollection represents a GeoJSON FeatureCollection
type FeatureCollection struct {
	Type     string     `json:"type"`
	Features []*Feature `json:"features"`
}

// NewFeatureCollection creates a new empty FeatureCollection
func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]*Feature, 0),
	}
}

// AddFeature appends a feature to the collection
func (fc *FeatureCollection) AddFeature(f *Feature) {
	fc.Features = append(fc.Features, f)
}

// NewFeature creates a Feature with the given geometry and properties
func NewFeature(geom *Geometry, props map[string]interface{}) *Feature {
	if props == nil {
		props = make(map[string]interface{})
	}
	return &Feature{
		Type:       "Feature",
		Geometry:   geom,
		Properties: props,
	}
}

// LayerKey returns the feature's layer identifier, or "" when the property
// is missing or not a string.
func (f *Feature) LayerKey() string {
	if f == nil || f.Properties == nil {
		return ""
	}
	key, _ := f.Properties[LayerProperty].(string)
	return key
}

// ParseFeatureCollection decodes a GeoJSON FeatureCollection document.
// Features are decoded one at a time: a feature that cannot be read is kept
// with its reason and later resolves to an UnsupportedShape.
func ParseFeatureCollection(data []byte) (*FeatureCollection, error) {
	var doc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing feature collection: %w", err)
	}
	if doc.Type != "" && doc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("parsing feature collection: unexpected type %q", doc.Type)
	}
	if doc.Features == nil {
		return nil, fmt.Errorf("parsing feature collection: missing features array")
	}

	fc := &FeatureCollection{Type: "FeatureCollection", Features: make([]*Feature, 0, len(doc.Features))}
	for _, raw := range doc.Features {
		fc.AddFeature(decodeFeature(raw))
	}
	return fc, nil
}

func decodeFeature(raw json.RawMessage) *Feature {
	var parts struct {
		Type       interface{}     `json:"type"`
		Geometry   json.RawMessage `json:"geometry"`
		Properties json.RawMessage `json:"properties"`
		ID         interface{}     `json:"id"`
	}
	f := NewFeature(nil, nil)
	if err := json.Unmarshal(raw, &parts); err != nil {
		f.malformed = fmt.Sprintf("malformed feature: %v", err)
		return f
	}
	f.ID = parts.ID
	if t, ok := parts.Type.(string); ok {
		f.Type = t
	}

	if present(parts.Properties) {
		var props map[string]interface{}
		if err := json.Unmarshal(parts.Properties, &props); err != nil {
			f.malformed = fmt.Sprintf("malformed properties: %v", err)
		} else {
			f.Properties = props
		}
	}
	if present(parts.Geometry) {
		var geom Geometry
		if err := json.Unmarshal(parts.Geometry, &geom); err != nil {
			if f.malformed == "" {
				f.malformed = fmt.Sprintf("malformed geometry: %v", err)
			}
		} else {
			f.Geometry = &geom
		}
	}
	return f
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// shape decodes the feature's geometry, or reports why the feature itself
// could not be read.
func (f *Feature) shape() Shape {
	if f.malformed != "" {
		return UnsupportedShape{Reason: f.malformed, Raw: f.Geometry}
	}
	return DecodeShape(f.Geometry)
}

// PolygonGeometry builds a Polygon geometry from rings of [x, y] pairs.
func PolygonGeometry(rings [][][2]float64) *Geometry {
	coordsJSON, _ := json.Marshal(rings)
	return &Geometry{
		Type:        GeometryPolygon,
		Coordinates: coordsJSON,
	}
}

// MultiPolygonGeometry builds a MultiPolygon geometry.
func MultiPolygonGeometry(polys [][][][2]float64) *Geometry {
	coordsJSON, _ := json.Marshal(polys)
	return &Geometry{
		Type:        GeometryMultiPolygon,
		Coordinates: coordsJSON,
	}
}

// PointGeometry builds a Point geometry.
func PointGeometry(x, y float64) *Geometry {
	coordsJSON, _ := json.Marshal([2]float64{x, y})
	return &Geometry{
		Type:        GeometryPoint,
		Coordinates: coordsJSON,
	}
}

// ToGeoJSON exports the dataset's normalized features as an orb GeoJSON
// collection. Unsupported geometries are passed through as decoded by orb;
// entries orb cannot decode either are left out.
func (d *Dataset) ToGeoJSON() *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	for _, e := range d.Entries {
		var g orb.Geometry
		switch s := e.Shape.(type) {
		case PolygonShape:
			g = s.Polygon
		case MultiPolygonShape:
			g = s.MultiPolygon
		case UnsupportedShape:
			g = passthroughGeometry(s.Raw)
		}
		if g == nil {
			continue
		}

		f := geojson.NewFeature(g)
		for k, v := range e.Feature.Properties {
			f.Properties[k] = v
		}
		if e.Feature.ID != nil {
			f.ID = e.Feature.ID
		}
		out.Append(f)
	}
	return out
}

// passthroughGeometry decodes a raw geometry with orb's GeoJSON codec.
func passthroughGeometry(raw *Geometry) orb.Geometry {
	if raw == nil || len(raw.Coordinates) == 0 {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil
	}
	return g.Geometry()
}
