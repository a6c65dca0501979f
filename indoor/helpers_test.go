package indoor

import (
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

// ---------------------------------------------------------------------------
// fixtures
// ---------------------------------------------------------------------------

// rectRing returns a closed rectangle ring in raw units.
func rectRing(x0, y0, x1, y1 float64) [][2]float64 {
	return [][2]float64{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}
}

func polygonFeature(layer string, rings ...[][2]float64) *Feature {
	return NewFeature(PolygonGeometry(rings), map[string]interface{}{LayerProperty: layer})
}

func multiPolygonFeature(layer string, polys ...[][][2]float64) *Feature {
	return NewFeature(MultiPolygonGeometry(polys), map[string]interface{}{LayerProperty: layer})
}

func pointFeature(layer string, x, y float64) *Feature {
	return NewFeature(PointGeometry(x, y), map[string]interface{}{LayerProperty: layer})
}

func collection(features ...*Feature) *FeatureCollection {
	fc := NewFeatureCollection()
	for _, f := range features {
		fc.AddFeature(f)
	}
	return fc
}

// scenarioFeature is the 100x40 hall used across tests.
func scenarioFeature() *Feature {
	return polygonFeature("WC1", rectRing(350000, 280000, 450000, 320000))
}

const scenarioJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"layer": "WC1"},
      "geometry": {
        "type": "Polygon",
        "coordinates": [[[350000,280000],[450000,280000],[450000,320000],[350000,320000],[350000,280000]]]
      }
    }
  ]
}`

func mustDataset(fc *FeatureCollection) *Dataset {
	ds, err := NewDataset(fc, DefaultLayerCatalog(), DefaultScaleFactor)
	if err != nil {
		panic(err)
	}
	return ds
}

// ---------------------------------------------------------------------------
// scheduling
// ---------------------------------------------------------------------------

// manualScheduler queues deferred funcs until Run is called.
type manualScheduler struct {
	mu      sync.Mutex
	pending []*scheduledFunc
}

type scheduledFunc struct {
	fn        func()
	delay     time.Duration
	cancelled bool
}

func (s *manualScheduler) Schedule(d time.Duration, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	sf := &scheduledFunc{fn: fn, delay: d}
	s.pending = append(s.pending, sf)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		sf.cancelled = true
	}
}

// Run executes every queued, uncancelled func and returns how many ran.
func (s *manualScheduler) Run() int {
	s.mu.Lock()
	queue := s.pending
	s.pending = nil
	s.mu.Unlock()

	ran := 0
	for _, sf := range queue {
		s.mu.Lock()
		cancelled := sf.cancelled
		s.mu.Unlock()
		if cancelled {
			continue
		}
		sf.fn()
		ran++
	}
	return ran
}

func (s *manualScheduler) Queued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// ---------------------------------------------------------------------------
// viewports
// ---------------------------------------------------------------------------

// mockViewport is a testify mock of Viewport.
type mockViewport struct {
	mock.Mock
}

func (m *mockViewport) FitBounds(cmd FitCommand) error {
	args := m.Called(cmd)
	return args.Error(0)
}

func (m *mockViewport) SetView(cmd ViewCommand) error {
	args := m.Called(cmd)
	return args.Error(0)
}

// recordingViewport records every command.
type recordingViewport struct {
	mu    sync.Mutex
	fits  []FitCommand
	views []ViewCommand
	err   error
}

func (r *recordingViewport) FitBounds(cmd FitCommand) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fits = append(r.fits, cmd)
	return r.err
}

func (r *recordingViewport) SetView(cmd ViewCommand) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, cmd)
	return r.err
}

func (r *recordingViewport) Fits() []FitCommand {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FitCommand(nil), r.fits...)
}

func (r *recordingViewport) Views() []ViewCommand {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ViewCommand(nil), r.views...)
}
