package indoor

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

// SessionOptions configures a viewer session.
type SessionOptions struct {
	Fit          FitOptions
	FocusPadding float64
	LocateZoom   float64
	Scheduler    Scheduler
}

// Session defaults.
const (
	DefaultFocusPadding = 50.0
	DefaultLocateZoom   = 3.0
)

// DefaultSessionOptions returns the viewer defaults.
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		Fit:          DefaultFitOptions(),
		FocusPadding: DefaultFocusPadding,
		LocateZoom:   DefaultLocateZoom,
	}
}

// FeatureInfo is the metadata surfaced for a clicked or queried feature.
type FeatureInfo struct {
	ID       FeatureID `json:"id"`
	Layer    string    `json:"layer"`
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	Category string    `json:"category"`
	Color    string    `json:"color"`
	Area     float64   `json:"area"`
	Center   LatLng    `json:"center"`

	// extent in the dataset's own drawing units
	SourceSouthWest LatLng `json:"sourceSouthWest"`
	SourceNorthEast LatLng `json:"sourceNorthEast"`
}

// MultiViewport fans viewport commands out to several sinks.
type MultiViewport []Viewport

func (m MultiViewport) FitBounds(cmd FitCommand) error {
	var errs []error
	for _, vp := range m {
		if err := vp.FitBounds(cmd); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiViewport) SetView(cmd ViewCommand) error {
	var errs []error
	for _, vp := range m {
		if err := vp.SetView(cmd); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// viewportSet is the session's sink list; sinks may be attached after the
// session exists.
type viewportSet struct {
	mu    sync.RWMutex
	sinks MultiViewport
}

func (v *viewportSet) add(vp Viewport) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sinks = append(v.sinks, vp)
}

func (v *viewportSet) current() MultiViewport {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.sinks
}

func (v *viewportSet) FitBounds(cmd FitCommand) error { return v.current().FitBounds(cmd) }

func (v *viewportSet) SetView(cmd ViewCommand) error { return v.current().SetView(cmd) }

// Session is one viewer's state: the active dataset, filter, hover and
// user position, plus the one-shot fitter for the dataset.
type Session struct {
	catalog  *LayerCatalog
	styler   *FeatureStyler
	fitter   *ViewportFitter
	viewport *viewportSet
	opts     SessionOptions

	mu      sync.RWMutex
	dataset *Dataset
	filter  FilterState
	hovered map[FeatureID]bool
	user    *Position
}

// NewSession creates a session issuing commands to vp.
func NewSession(catalog *LayerCatalog, vp Viewport, opts SessionOptions) *Session {
	if catalog == nil {
		catalog = DefaultLayerCatalog()
	}
	sinks := &viewportSet{}
	if vp != nil {
		sinks.add(vp)
	}
	fitter := NewViewportFitter(sinks, opts.Fit, opts.Scheduler)
	fitter.OnFit = func(string) { ViewportFits.Inc() }
	fitter.OnCancel = func(string) { ViewportFitsCancelled.Inc() }

	return &Session{
		catalog:  catalog,
		styler:   NewFeatureStyler(catalog),
		fitter:   fitter,
		viewport: sinks,
		opts:     opts,
		hovered:  make(map[FeatureID]bool),
	}
}

// AddViewport attaches another sink. Commands already issued are not
// replayed.
func (s *Session) AddViewport(vp Viewport) {
	if vp != nil {
		s.viewport.add(vp)
	}
}

// Catalog returns the session's layer catalog.
func (s *Session) Catalog() *LayerCatalog { return s.catalog }

// Load replaces the active dataset and requests its one-time fit. Any fit
// still pending for the previous dataset is cancelled.
func (s *Session) Load(ds *Dataset) error {
	if ds == nil {
		return ErrNoDataset
	}

	s.mu.Lock()
	s.dataset = ds
	s.hovered = make(map[FeatureID]bool)
	s.mu.Unlock()

	DatasetFeatures.Set(float64(len(ds.Entries)))
	SkippedGeometries.Add(float64(len(ds.Skipped)))

	s.fitter.Reset(ds.Version)
	if !s.fitter.MaybeFit(ds.Version, ds.Bounds) {
		log.Printf("Dataset %s has no bounds, viewport left as is", ds.Version)
	}
	return nil
}

// Refresh is called on every re-render. Once the dataset is fitted it does
// nothing.
func (s *Session) Refresh() bool {
	s.mu.RLock()
	ds := s.dataset
	s.mu.RUnlock()
	if ds == nil {
		return false
	}
	return s.fitter.MaybeFit(ds.Version, ds.Bounds)
}

// Dataset returns the active dataset.
func (s *Session) Dataset() (*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dataset == nil {
		return nil, ErrNoDataset
	}
	return s.dataset, nil
}

// FitState returns the fitter state of the active dataset.
func (s *Session) FitState() FitState { return s.fitter.State() }

// SetFilter replaces the filter state.
func (s *Session) SetFilter(f FilterState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
}

// Filter returns the current filter state.
func (s *Session) Filter() FilterState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// Style returns the paint parameters of a feature under the current filter
// and hover state.
func (s *Session) Style(id FeatureID) (PaintParams, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dataset == nil {
		return PaintParams{}, ErrNoDataset
	}
	e, err := s.dataset.Entry(id)
	if err != nil {
		return PaintParams{}, err
	}
	return s.styleLocked(e, s.filter), nil
}

// StyleWith styles an entry with an explicit filter, ignoring the session
// filter. Hover still applies.
func (s *Session) StyleWith(e *Entry, f FilterState) PaintParams {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.styleLocked(e, f)
}

func (s *Session) styleLocked(e *Entry, f FilterState) PaintParams {
	p := s.styler.StyleOf(e.Key, f)
	if s.hovered[e.ID] {
		p = HoverStyle(p)
	}
	return p
}

// PointerEnter marks a feature as hovered.
func (s *Session) PointerEnter(id FeatureID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(id); err != nil {
		return err
	}
	s.hovered[id] = true
	return nil
}

// PointerExit clears the hover mark; the feature goes back to its computed
// style.
func (s *Session) PointerExit(id FeatureID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(id); err != nil {
		return err
	}
	delete(s.hovered, id)
	return nil
}

func (s *Session) checkLocked(id FeatureID) error {
	if s.dataset == nil {
		return ErrNoDataset
	}
	_, err := s.dataset.Entry(id)
	return err
}

// Click returns the metadata of a feature.
func (s *Session) Click(id FeatureID) (FeatureInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dataset == nil {
		return FeatureInfo{}, ErrNoDataset
	}
	e, err := s.dataset.Entry(id)
	if err != nil {
		return FeatureInfo{}, err
	}
	return s.infoOf(s.dataset, e), nil
}

func (s *Session) infoOf(ds *Dataset, e *Entry) FeatureInfo {
	c := e.Centroid()
	src := ShapeBounds(Untransform(e.Shape, ds.ScaleFactor))
	return FeatureInfo{
		ID:       e.ID,
		Layer:    e.Key,
		Name:     e.Layer.Name,
		Type:     e.Layer.Type,
		Category: s.catalog.CategoryOf(e.Layer.Type),
		Color:    e.Layer.Color,
		Area:     e.Area(),
		Center:   LatLng{c[1], c[0]},

		SourceSouthWest: src.SouthWest(),
		SourceNorthEast: src.NorthEast(),
	}
}

// Focus highlights a layer and moves the viewport onto it. Unlike the load
// fit this is user driven and always issued.
func (s *Session) Focus(layerKey string) error {
	s.mu.Lock()
	if s.dataset == nil {
		s.mu.Unlock()
		return ErrNoDataset
	}
	b, err := s.dataset.LayerBounds(layerKey)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.filter.HighlightedLayer = layerKey
	s.mu.Unlock()

	cmd := FitCommand{
		SouthWest: b.SouthWest(),
		NorthEast: b.NorthEast(),
		Padding:   [2]float64{s.opts.FocusPadding, s.opts.FocusPadding},
	}
	if err := s.viewport.FitBounds(cmd); err != nil {
		return fmt.Errorf("focus %s: %w", layerKey, err)
	}
	return nil
}

// ClearFocus removes the highlight.
func (s *Session) ClearFocus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter.HighlightedLayer = ""
}

// Locate records the user's position and centres the viewport on it.
func (s *Session) Locate(pos Position) error {
	s.mu.Lock()
	p := pos
	s.user = &p
	s.mu.Unlock()

	LocatorEvents.WithLabelValues(string(pos.Source)).Inc()

	cmd := ViewCommand{Center: pos.LatLng(), Zoom: s.opts.LocateZoom}
	if err := s.viewport.SetView(cmd); err != nil {
		return fmt.Errorf("locate: %w", err)
	}
	return nil
}

// UserPosition returns the last located position.
func (s *Session) UserPosition() (Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return Position{}, false
	}
	return *s.user, true
}
