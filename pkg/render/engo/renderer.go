// pkg/render/engo/renderer.go
package engo

import (
	"image/color"
	"math"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-spacetravel/pkg/geometry"
	"github.com/opd-ai/go-spacetravel/pkg/render"
)

const (
	// Fans with more vertices than this are drawn as their screen-space
	// ellipse; smaller fans are fitted with a triangle.
	fanOutlineLimit = 32

	lineWidth = 1.5
)

var transparent = color.RGBA{}

// Sink receives pooled shapes once, when they are created. The engo
// render system satisfies it.
type Sink interface {
	Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent)
}

// shape is one pooled drawable. Shapes are reused from frame to frame and
// hidden when a frame needs fewer of them.
type shape struct {
	basic  ecs.BasicEntity
	render common.RenderComponent
	space  common.SpaceComponent
}

// Renderer implements render.Renderer on top of engo's 2D render system.
// Each submitted range is projected with projection·view·model and turned
// into a circle, a triangle or thin rectangles in screen space.
type Renderer struct {
	sink   Sink
	width  float32
	height float32

	points   []mgl64.Vec3
	vp       render.Viewport
	proj     mgl64.Mat4
	viewProj mgl64.Mat4
	mvp      mgl64.Mat4
	color    color.RGBA

	pool []*shape
	used int

	hud *HUD
}

// NewRenderer creates a renderer drawing a width×height game area through
// sink.
func NewRenderer(sink Sink, width, height float32) *Renderer {
	return &Renderer{
		sink:   sink,
		width:  width,
		height: height,
		hud:    NewHUD(nil),
	}
}

// Resize changes the game area used for the next frame.
func (r *Renderer) Resize(width, height float32) {
	r.width, r.height = width, height
}

// Size implements render.Sizer.
func (r *Renderer) Size() (int, int) {
	return int(r.width), int(r.height)
}

// HUD returns the status line collector.
func (r *Renderer) HUD() *HUD {
	return r.hud
}

// Upload implements render.Renderer.
func (r *Renderer) Upload(buf *geometry.Buffer) error {
	if buf == nil {
		return render.ErrNoBuffer
	}
	src := buf.Points()
	r.points = make([]mgl64.Vec3, len(src))
	for i, p := range src {
		r.points[i] = mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])}
	}
	return nil
}

// BeginFrame implements render.Renderer.
func (r *Renderer) BeginFrame() {
	r.used = 0
	r.hud.Begin()
}

// SetViewport implements render.Renderer.
func (r *Renderer) SetViewport(vp render.Viewport, projection, view mgl64.Mat4) {
	r.vp = vp
	r.proj = projection
	r.SetView(view)
	r.hud.Viewport()
}

// SetView implements render.Renderer.
func (r *Renderer) SetView(view mgl64.Mat4) {
	r.viewProj = r.proj.Mul4(view)
	r.mvp = r.viewProj
}

// SetModel implements render.Renderer.
func (r *Renderer) SetModel(model mgl64.Mat4) {
	r.mvp = r.viewProj.Mul4(model)
}

// SetColor implements render.Renderer.
func (r *Renderer) SetColor(c color.RGBA) {
	r.color = c
}

// Annotate implements render.Annotator.
func (r *Renderer) Annotate(viewport int, lines ...string) {
	r.hud.Annotate(viewport, lines...)
}

// SubmitDrawRange implements render.Renderer.
func (r *Renderer) SubmitDrawRange(offset, count int, kind geometry.Primitive) {
	if offset < 0 || count <= 0 || offset+count > len(r.points) {
		return
	}
	pts := r.points[offset : offset+count]

	if kind == geometry.LineStrip {
		for i := 1; i < len(pts); i++ {
			a, okA := r.project(pts[i-1])
			b, okB := r.project(pts[i])
			if okA && okB {
				r.segment(a, b)
			}
		}
		return
	}

	screen := make([]engo.Point, 0, len(pts))
	for _, p := range pts {
		s, ok := r.project(p)
		if !ok {
			return
		}
		screen = append(screen, s)
	}
	if len(screen) > fanOutlineLimit {
		r.ellipse(screen)
		return
	}
	r.triangle(screen)
}

// PresentFrame implements render.Renderer. Shapes left over from larger
// frames are hidden and the status lines are published.
func (r *Renderer) PresentFrame() error {
	for _, s := range r.pool[r.used:] {
		s.render.Hidden = true
	}
	r.hud.Present()
	return nil
}

// Shapes returns the number of shapes drawn in the current frame.
func (r *Renderer) Shapes() int {
	return r.used
}

// project maps a model-space point to engo's screen space, where the
// origin is the top-left corner and y grows downwards.
func (r *Renderer) project(p mgl64.Vec3) (engo.Point, bool) {
	clip := r.mvp.Mul4x1(p.Vec4(1))
	w := clip.W()
	if w <= 0 {
		return engo.Point{}, false
	}
	ndc := clip.Vec3().Mul(1 / w)
	if ndc.Z() < -1 || ndc.Z() > 1 {
		return engo.Point{}, false
	}
	x := float64(r.vp.X) + (ndc.X()+1)/2*float64(r.vp.Width)
	y := float64(r.vp.Y) + (ndc.Y()+1)/2*float64(r.vp.Height)
	return engo.Point{X: float32(x), Y: r.height - float32(y)}, true
}

// bounds returns the current viewport in screen space.
func (r *Renderer) bounds() (minX, minY, maxX, maxY float32) {
	minX = float32(r.vp.X)
	maxX = float32(r.vp.X + r.vp.Width)
	maxY = r.height - float32(r.vp.Y)
	minY = maxY - float32(r.vp.Height)
	return minX, minY, maxX, maxY
}

func (r *Renderer) next() *shape {
	if r.used == len(r.pool) {
		s := &shape{basic: ecs.NewBasic()}
		r.pool = append(r.pool, s)
		if r.sink != nil {
			r.sink.Add(&s.basic, &s.render, &s.space)
		}
	}
	s := r.pool[r.used]
	r.used++
	s.render.Hidden = false
	return s
}

// segment draws a thin rectangle from a to b, clipped to the viewport.
func (r *Renderer) segment(a, b engo.Point) {
	minX, minY, maxX, maxY := r.bounds()
	a, b, ok := clipSegment(a, b, minX, minY, maxX, maxY)
	if !ok {
		return
	}
	dx, dy := b.X-a.X, b.Y-a.Y
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		return
	}

	s := r.next()
	s.render.Drawable = common.Rectangle{}
	s.render.Color = r.color
	s.space = common.SpaceComponent{
		Position: a,
		Width:    length,
		Height:   lineWidth,
		Rotation: float32(mgl64.RadToDeg(math.Atan2(float64(dy), float64(dx)))),
	}
}

// ellipse outlines the screen-space bounding box of pts, clamped to the
// viewport.
func (r *Renderer) ellipse(pts []engo.Point) {
	lo, hi := boundingBox(pts)
	minX, minY, maxX, maxY := r.bounds()
	lo.X, lo.Y = max(lo.X, minX), max(lo.Y, minY)
	hi.X, hi.Y = min(hi.X, maxX), min(hi.Y, maxY)
	if hi.X <= lo.X || hi.Y <= lo.Y {
		return
	}

	s := r.next()
	s.render.Drawable = common.Circle{BorderWidth: 1, BorderColor: r.color}
	s.render.Color = transparent
	s.space = common.SpaceComponent{
		Position: lo,
		Width:    hi.X - lo.X,
		Height:   hi.Y - lo.Y,
	}
}

// triangle fits an isosceles triangle to a cone fan: the apex is the first
// point and the base spans the remaining ones. A fan seen along its axis
// is drawn as an ellipse instead.
func (r *Renderer) triangle(pts []engo.Point) {
	if len(pts) < 3 {
		return
	}
	apex := pts[0]
	var center engo.Point
	for _, p := range pts[1:] {
		center.X += p.X
		center.Y += p.Y
	}
	n := float32(len(pts) - 1)
	center.X /= n
	center.Y /= n

	axis := mgl64.Vec2{float64(center.X - apex.X), float64(center.Y - apex.Y)}
	height := axis.Len()
	if height < 1 {
		r.ellipse(pts)
		return
	}
	u := axis.Mul(1 / height)

	var halfWidth float64
	for _, p := range pts[1:] {
		d := mgl64.Vec2{float64(p.X - apex.X), float64(p.Y - apex.Y)}
		halfWidth = math.Max(halfWidth, math.Abs(d.X()*u.Y()-d.Y()*u.X()))
	}

	minX, minY, maxX, maxY := r.bounds()
	if !insideBox(apex, minX, minY, maxX, maxY) || !insideBox(center, minX, minY, maxX, maxY) {
		return
	}

	// The unrotated triangle has its apex at the top centre of its box and
	// the base along the bottom edge; rotate it so the apex-to-base axis
	// follows u and move it so the apex lands on the projected apex.
	theta := math.Atan2(-u.X(), u.Y())
	width := 2 * halfWidth
	pos := engo.Point{
		X: apex.X - float32(width/2*math.Cos(theta)),
		Y: apex.Y - float32(width/2*math.Sin(theta)),
	}

	s := r.next()
	s.render.Drawable = common.Triangle{}
	s.render.Color = r.color
	s.space = common.SpaceComponent{
		Position: pos,
		Width:    float32(width),
		Height:   float32(height),
		Rotation: float32(mgl64.RadToDeg(theta)),
	}
}

func boundingBox(pts []engo.Point) (lo, hi engo.Point) {
	lo, hi = pts[0], pts[0]
	for _, p := range pts[1:] {
		lo.X, lo.Y = min(lo.X, p.X), min(lo.Y, p.Y)
		hi.X, hi.Y = max(hi.X, p.X), max(hi.Y, p.Y)
	}
	return lo, hi
}

func insideBox(p engo.Point, minX, minY, maxX, maxY float32) bool {
	return p.X >= minX && p.X <= maxX && p.Y >= minY && p.Y <= maxY
}

// clipSegment clips a–b to the box with the Liang–Barsky algorithm.
func clipSegment(a, b engo.Point, minX, minY, maxX, maxY float32) (engo.Point, engo.Point, bool) {
	dx, dy := b.X-a.X, b.Y-a.Y
	t0, t1 := float32(0), float32(1)

	edges := [4][2]float32{
		{-dx, a.X - minX},
		{dx, maxX - a.X},
		{-dy, a.Y - minY},
		{dy, maxY - a.Y},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return a, b, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return a, b, false
			}
			t0 = max(t0, t)
		} else {
			if t < t0 {
				return a, b, false
			}
			t1 = min(t1, t)
		}
	}

	return engo.Point{X: a.X + t0*dx, Y: a.Y + t0*dy},
		engo.Point{X: a.X + t1*dx, Y: a.Y + t1*dy}, true
}
