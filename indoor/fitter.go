package indoor

import (
	"log"
	"sync"
	"time"
)

// FitState is the one-shot fit state of a dataset load.
type FitState int

const (
	Unfitted FitState = iota
	Fitted
)

func (s FitState) String() string {
	if s == Fitted {
		return "fitted"
	}
	return "unfitted"
}

// FitCommand asks the rendering surface to show a rectangle.
type FitCommand struct {
	Version   string     `json:"version,omitempty"`
	SouthWest LatLng     `json:"southWest"`
	NorthEast LatLng     `json:"northEast"`
	Padding   [2]float64 `json:"padding"`
	MaxZoom   float64    `json:"maxZoom,omitempty"`
}

// ViewCommand centres the viewport on a point at a zoom level.
type ViewCommand struct {
	Center LatLng  `json:"center"`
	Zoom   float64 `json:"zoom"`
}

// Viewport is the command sink of a rendering surface. The engine only
// issues commands; it never reads camera state.
type Viewport interface {
	FitBounds(cmd FitCommand) error
	SetView(cmd ViewCommand) error
}

// Scheduler runs fn after d and returns a func that cancels it. fn must
// not be invoked before the Scheduler returns.
type Scheduler func(d time.Duration, fn func()) (cancel func())

// AfterFuncScheduler schedules with time.AfterFunc.
func AfterFuncScheduler(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// FitOptions holds the padding, zoom ceiling and deferral of the load fit.
type FitOptions struct {
	Padding float64
	MaxZoom float64
	Delay   time.Duration
}

// Default fit options.
const (
	DefaultFitPadding = 20.0
	DefaultFitMaxZoom = 1.0
	DefaultFitDelay   = 100 * time.Millisecond
)

// DefaultFitOptions returns the load-time fit defaults.
func DefaultFitOptions() FitOptions {
	return FitOptions{
		Padding: DefaultFitPadding,
		MaxZoom: DefaultFitMaxZoom,
		Delay:   DefaultFitDelay,
	}
}

// ViewportFitter issues at most one deferred fit per dataset version.
type ViewportFitter struct {
	mu       sync.Mutex
	viewport Viewport
	schedule Scheduler
	opts     FitOptions

	version string
	state   FitState
	pending bool
	cancel  func()

	// OnFit is called after a fit command has been handed to the viewport.
	OnFit func(version string)
	// OnCancel is called when a pending fit is dropped by Reset.
	OnCancel func(version string)
}

// NewViewportFitter creates a fitter. A nil scheduler uses time.AfterFunc.
func NewViewportFitter(vp Viewport, opts FitOptions, schedule Scheduler) *ViewportFitter {
	if schedule == nil {
		schedule = AfterFuncScheduler
	}
	return &ViewportFitter{
		viewport: vp,
		schedule: schedule,
		opts:     opts,
	}
}

// Reset starts a new dataset version in the Unfitted state and cancels any
// fit still pending for the previous one.
func (f *ViewportFitter) Reset(version string) {
	f.mu.Lock()
	old := f.version
	wasPending := f.pending
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.version = version
	f.state = Unfitted
	f.pending = false
	onCancel := f.OnCancel
	f.mu.Unlock()

	if wasPending && onCancel != nil {
		onCancel(old)
	}
}

// MaybeFit schedules the one-shot fit for version. It returns true only
// when a fit was scheduled; repeated calls for the same version, stale
// versions and empty bounds are no-ops.
func (f *ViewportFitter) MaybeFit(version string, b Bounds) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if version != f.version || f.state == Fitted || f.pending || b.Empty() {
		return false
	}

	cmd := FitCommand{
		Version:   version,
		SouthWest: b.SouthWest(),
		NorthEast: b.NorthEast(),
		Padding:   [2]float64{f.opts.Padding, f.opts.Padding},
		MaxZoom:   f.opts.MaxZoom,
	}
	f.pending = true
	f.cancel = f.schedule(f.opts.Delay, func() { f.fire(cmd) })
	return true
}

func (f *ViewportFitter) fire(cmd FitCommand) {
	f.mu.Lock()
	if cmd.Version != f.version || !f.pending {
		f.mu.Unlock()
		return
	}
	f.pending = false
	f.cancel = nil
	f.state = Fitted
	vp := f.viewport
	onFit := f.OnFit
	f.mu.Unlock()

	if vp != nil {
		if err := vp.FitBounds(cmd); err != nil {
			log.Printf("Viewport fit for dataset %s failed: %v", cmd.Version, err)
		}
	}
	if onFit != nil {
		onFit(cmd.Version)
	}
}

// State returns the current fit state.
func (f *ViewportFitter) State() FitState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Pending reports whether a deferred fit is scheduled.
func (f *ViewportFitter) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

// Version returns the dataset version the fitter is tracking.
func (f *ViewportFitter) Version() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.version
}
