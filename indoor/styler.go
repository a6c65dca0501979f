package indoor

// FilterState is the transient filter selection supplied per render.
// Empty strings mean "unset".
type FilterState struct {
	SelectedCategory string `json:"selectedCategory,omitempty"`
	HighlightedLayer string `json:"highlightedLayer,omitempty"`
}

// PaintParams is the resolved style of one feature.
type PaintParams struct {
	FillColor     string  `json:"fillColor"`
	FillOpacity   float64 `json:"fillOpacity"`
	StrokeColor   string  `json:"strokeColor"`
	StrokeOpacity float64 `json:"strokeOpacity"`
	StrokeWeight  float64 `json:"strokeWeight"`
}

// Style constants.
const (
	StructureFillOpacity  = 0.3
	BaseFillOpacity       = 0.7
	BaseStrokeColor       = "#ffffff"
	BaseStrokeWeight      = 2.0
	SuppressedFillOpacity = 0.1
	SuppressedStroke      = 0.3
	HighlightFillOpacity  = 0.9
	HighlightStrokeWeight = 4.0
	HighlightStrokeColor  = "#ef4444"
	HoverFillOpacity      = 0.9
)

// FeatureStyler derives paint parameters from catalog metadata and the
// current filter state.
type FeatureStyler struct {
	catalog *LayerCatalog
}

// NewFeatureStyler creates a styler over the catalog.
func NewFeatureStyler(catalog *LayerCatalog) *FeatureStyler {
	return &FeatureStyler{catalog: catalog}
}

// StyleOf resolves the style of a feature by its layer key.
func (s *FeatureStyler) StyleOf(layerKey string, filter FilterState) PaintParams {
	info := s.catalog.Lookup(layerKey)

	p := PaintParams{
		FillColor:     info.Color,
		FillOpacity:   BaseFillOpacity,
		StrokeColor:   BaseStrokeColor,
		StrokeOpacity: 1,
		StrokeWeight:  BaseStrokeWeight,
	}
	if info.Type == TypeStructure {
		p.FillOpacity = StructureFillOpacity
	}

	if filter.SelectedCategory != "" && s.catalog.CategoryOf(info.Type) != filter.SelectedCategory {
		p.FillOpacity = SuppressedFillOpacity
		p.StrokeOpacity = SuppressedStroke
	}

	// highlight wins over suppression
	if filter.HighlightedLayer != "" && layerKey == filter.HighlightedLayer {
		p.FillOpacity = HighlightFillOpacity
		p.StrokeOpacity = 1
		p.StrokeWeight = HighlightStrokeWeight
		p.StrokeColor = HighlightStrokeColor
	}
	return p
}

// HoverStyle boosts a computed style while the pointer is over a feature.
// Pointer exit simply goes back to the base returned by StyleOf.
func HoverStyle(base PaintParams) PaintParams {
	h := base
	h.StrokeWeight = base.StrokeWeight + 1
	if h.FillOpacity < HoverFillOpacity {
		h.FillOpacity = HoverFillOpacity
	}
	return h
}
