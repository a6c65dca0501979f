package indoor

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"sync"

	"github.com/paulmach/orb"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Renderer defaults.
const (
	DefaultRenderScale   = 4.0  // canvas units per rendering unit
	DefaultRenderPadding = 20.0 // canvas units around the frame
)

// canvasRenderer is an interface that both svg and rasterizer renderers implement
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// Renderer is a reference rendering surface. It draws the session's
// dataset with the session's styles and acts as a Viewport: fit and view
// commands move the frame it renders.
type Renderer struct {
	session *Session

	Scale      float64
	Padding    float64
	Resolution canvas.Resolution
	Labels     bool

	mu    sync.RWMutex
	frame *orb.Bound
}

// NewRenderer creates a renderer over a session.
func NewRenderer(session *Session) *Renderer {
	return &Renderer{
		session:    session,
		Scale:      DefaultRenderScale,
		Padding:    DefaultRenderPadding,
		Resolution: canvas.DPMM(1),
		Labels:     true,
	}
}

// FitBounds moves the frame onto the commanded rectangle.
func (r *Renderer) FitBounds(cmd FitCommand) error {
	b := orb.Bound{
		Min: orb.Point{cmd.SouthWest[1], cmd.SouthWest[0]},
		Max: orb.Point{cmd.NorthEast[1], cmd.NorthEast[0]},
	}
	if b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] {
		return fmt.Errorf("fit bounds: south-west corner is not below north-east corner")
	}
	r.mu.Lock()
	r.frame = &b
	r.mu.Unlock()
	return nil
}

// SetView recentres the current frame, keeping its size.
func (r *Renderer) SetView(cmd ViewCommand) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frame == nil {
		return nil
	}
	half := orb.Point{(r.frame.Max[0] - r.frame.Min[0]) / 2, (r.frame.Max[1] - r.frame.Min[1]) / 2}
	c := orb.Point{cmd.Center[1], cmd.Center[0]}
	r.frame = &orb.Bound{
		Min: orb.Point{c[0] - half[0], c[1] - half[1]},
		Max: orb.Point{c[0] + half[0], c[1] + half[1]},
	}
	return nil
}

// Frame returns the rectangle being rendered: the last commanded frame,
// else the dataset bounds.
func (r *Renderer) Frame() (orb.Bound, error) {
	r.mu.RLock()
	frame := r.frame
	r.mu.RUnlock()
	if frame != nil {
		return *frame, nil
	}
	ds, err := r.session.Dataset()
	if err != nil {
		return orb.Bound{}, err
	}
	if ds.Bounds.Empty() {
		return orb.Bound{}, fmt.Errorf("dataset %s has no bounds", ds.Version)
	}
	return ds.Bounds.Bound(), nil
}

// ResetFrame drops the commanded frame so the whole dataset is shown again.
func (r *Renderer) ResetFrame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frame = nil
}

// view maps rendering units to canvas units for one frame.
type view struct {
	frame   orb.Bound
	scale   float64
	padding float64
}

func (v view) size() (float64, float64) {
	w := (v.frame.Max[0]-v.frame.Min[0])*v.scale + 2*v.padding
	h := (v.frame.Max[1]-v.frame.Min[1])*v.scale + 2*v.padding
	return math.Max(w, 1), math.Max(h, 1)
}

func (v view) toCanvas(p orb.Point) (float64, float64) {
	return (p[0]-v.frame.Min[0])*v.scale + v.padding, (p[1]-v.frame.Min[1])*v.scale + v.padding
}

func (r *Renderer) newView() (view, error) {
	frame, err := r.Frame()
	if err != nil {
		return view{}, err
	}
	scale, padding := r.Scale, r.Padding
	if scale <= 0 {
		scale = DefaultRenderScale
	}
	if padding < 0 {
		padding = 0
	}
	return view{frame: frame, scale: scale, padding: padding}, nil
}

// RenderSVG writes the map as SVG using the session filter.
func (r *Renderer) RenderSVG(w io.Writer) error {
	return r.RenderSVGWith(w, r.session.Filter())
}

// RenderSVGWith writes the map as SVG using an explicit filter.
func (r *Renderer) RenderSVGWith(w io.Writer, filter FilterState) error {
	r.session.Refresh()
	v, err := r.newView()
	if err != nil {
		return err
	}
	width, height := v.size()

	svgRenderer := svg.New(w, width, height, nil)
	if err := r.renderToCanvas(svgRenderer, v, filter); err != nil {
		return err
	}
	return svgRenderer.Close()
}

// RenderPNG writes the map as PNG using the session filter.
func (r *Renderer) RenderPNG(w io.Writer) error {
	return r.RenderPNGWith(w, r.session.Filter())
}

// RenderPNGWith writes the map as PNG using an explicit filter. Layer keys
// are drawn as labels when Labels is set.
func (r *Renderer) RenderPNGWith(w io.Writer, filter FilterState) error {
	r.session.Refresh()
	v, err := r.newView()
	if err != nil {
		return err
	}
	width, height := v.size()

	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)
	if err := r.renderToCanvas(rast, v, filter); err != nil {
		return err
	}
	if !r.Labels {
		return png.Encode(w, rast)
	}

	img := image.NewRGBA(rast.Bounds())
	draw.Draw(img, img.Bounds(), rast, rast.Bounds().Min, draw.Src)
	r.drawLabels(img, v)
	return png.Encode(w, img)
}

func (r *Renderer) renderToCanvas(renderer canvasRenderer, v view, filter FilterState) error {
	ds, err := r.session.Dataset()
	if err != nil {
		return err
	}
	width, height := v.size()

	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	visible := make(map[FeatureID]bool)
	for _, id := range ds.Index().FeaturesIn(NewBounds(v.frame)) {
		visible[id] = true
	}
	for _, e := range ds.DrawOrder() {
		if !e.Supported() || !visible[e.ID] {
			continue
		}
		p := r.session.StyleWith(e, filter)

		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: paintColor(p.FillColor, p.FillOpacity)}
		style.Stroke = canvas.Paint{Color: paintColor(p.StrokeColor, p.StrokeOpacity)}
		style.StrokeWidth = p.StrokeWeight

		for _, ring := range OuterRings(e.Shape) {
			if len(ring) < 3 {
				continue
			}
			cp := &canvas.Path{}
			for i, pt := range ring {
				cx, cy := v.toCanvas(pt)
				if i == 0 {
					cp.MoveTo(cx, cy)
				} else {
					cp.LineTo(cx, cy)
				}
			}
			cp.Close()
			renderer.RenderPath(cp, style, canvas.Identity)
		}
	}

	if pos, ok := r.session.UserPosition(); ok {
		cx, cy := v.toCanvas(orb.Point{pos.Lng, pos.Lat})

		accStyle := canvas.DefaultStyle
		accStyle.Fill = canvas.Paint{Color: paintColor("#3b82f6", 0.2)}
		accStyle.Stroke = canvas.Paint{Color: paintColor("#3b82f6", 0.6)}
		accStyle.StrokeWidth = 1
		renderer.RenderPath(canvas.Circle(pos.MarkerRadius()).Translate(cx, cy), accStyle, canvas.Identity)

		dotStyle := canvas.DefaultStyle
		dotStyle.Fill = canvas.Paint{Color: paintColor("#2563eb", 1)}
		dotStyle.Stroke = canvas.Paint{Color: canvas.White}
		dotStyle.StrokeWidth = 2
		renderer.RenderPath(canvas.Circle(6).Translate(cx, cy), dotStyle, canvas.Identity)
	}
	return nil
}

// drawLabels writes each labelled feature's layer key at its centroid.
func (r *Renderer) drawLabels(img *image.RGBA, v view) {
	ds, err := r.session.Dataset()
	if err != nil {
		return
	}
	dpmm := r.Resolution.DPMM()
	imgH := img.Bounds().Dy()
	labelColor := color.RGBA{31, 41, 55, 255}

	for _, e := range ds.Entries {
		if !e.Supported() || !labelled(e.Layer.Type) {
			continue
		}
		cx, cy := v.toCanvas(e.Centroid())
		px := int(cx*dpmm) - len(e.Key)*7/2
		py := imgH - int(cy*dpmm) + 4
		drawText(img, px, py, e.Key, labelColor)
	}
}

func labelled(semanticType string) bool {
	switch semanticType {
	case TypeStructure, TypeDoor, TypeDefault:
		return false
	}
	return true
}

func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// paintColor converts a hex colour and opacity to premultiplied RGBA.
func paintColor(hex string, opacity float64) color.RGBA {
	c := parseHexColor(hex)
	a := math.Max(0, math.Min(1, opacity))
	return color.RGBA{
		R: uint8(float64(c.R) * a),
		G: uint8(float64(c.G) * a),
		B: uint8(float64(c.B) * a),
		A: uint8(255 * a),
	}
}

// parseHexColor parses #rrggbb. Unparseable input yields the neutral layer
// gray.
func parseHexColor(hex string) color.RGBA {
	fallback := color.RGBA{0x6b, 0x72, 0x80, 255}

	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return fallback
	}

	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return fallback
	}
	return color.RGBA{r, g, b, 255}
}
