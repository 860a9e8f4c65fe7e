package render

import (
	"image/color"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-spacetravel/pkg/geometry"
)

// TerminalRenderer draws wireframes as colored characters. Each submitted
// range is projected with projection·view·model into the current viewport
// and its edges are traced cell by cell.
type TerminalRenderer struct {
	out    io.Writer
	width  int
	height int

	cells  []rune
	colors []color.RGBA

	points   []mgl64.Vec3 // uploaded vertices, widened once
	vp       Viewport
	proj     mgl64.Mat4
	viewProj mgl64.Mat4
	mvp      mgl64.Mat4
	color    color.RGBA

	viewports []Viewport
	notes     [][]string
	frame     strings.Builder
	numBuf    [8]byte

	mu      sync.Mutex
	pending *[2]int
}

// NewTerminalRenderer creates a terminal renderer with the given size in
// character cells. Frames are written to out.
func NewTerminalRenderer(out io.Writer, width, height int) *TerminalRenderer {
	r := &TerminalRenderer{out: out}
	r.Resize(width, height)
	return r
}

// Resize changes the drawing area, for example after a terminal window
// change. It takes effect with the next frame.
func (r *TerminalRenderer) Resize(width, height int) {
	r.width = max(width, 1)
	r.height = max(height, 1)
	r.cells = make([]rune, r.width*r.height)
	r.colors = make([]color.RGBA, r.width*r.height)
}

// RequestResize records a new size from another goroutine, such as a
// window-change handler. It is applied when the frame loop next asks for
// the size.
func (r *TerminalRenderer) RequestResize(width, height int) {
	r.mu.Lock()
	r.pending = &[2]int{width, height}
	r.mu.Unlock()
}

// Size implements Sizer. A pending resize request is applied first.
func (r *TerminalRenderer) Size() (int, int) {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()
	if pending != nil {
		r.Resize(pending[0], pending[1])
	}
	return r.width, r.height
}

// Upload implements Renderer.
func (r *TerminalRenderer) Upload(buf *geometry.Buffer) error {
	if buf == nil {
		return ErrNoBuffer
	}
	src := buf.Points()
	r.points = make([]mgl64.Vec3, len(src))
	for i, p := range src {
		r.points[i] = mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])}
	}
	return nil
}

// BeginFrame implements Renderer.
func (r *TerminalRenderer) BeginFrame() {
	for i := range r.cells {
		r.cells[i] = ' '
	}
	r.viewports = r.viewports[:0]
	r.notes = r.notes[:0]
}

// SetViewport implements Renderer.
func (r *TerminalRenderer) SetViewport(vp Viewport, projection, view mgl64.Mat4) {
	r.vp = vp
	r.proj = projection
	r.SetView(view)
	r.viewports = append(r.viewports, vp)
	r.notes = append(r.notes, nil)
}

// SetView implements Renderer.
func (r *TerminalRenderer) SetView(view mgl64.Mat4) {
	r.viewProj = r.proj.Mul4(view)
	r.mvp = r.viewProj
}

// SetModel implements Renderer.
func (r *TerminalRenderer) SetModel(model mgl64.Mat4) {
	r.mvp = r.viewProj.Mul4(model)
}

// SetColor implements Renderer.
func (r *TerminalRenderer) SetColor(c color.RGBA) {
	r.color = c
}

// Annotate implements Annotator.
func (r *TerminalRenderer) Annotate(viewport int, lines ...string) {
	if viewport < 0 || viewport >= len(r.notes) {
		return
	}
	r.notes[viewport] = append(r.notes[viewport], lines...)
}

// SubmitDrawRange implements Renderer. Triangle fans are traced as
// wireframes: spokes from the first point plus the outline.
func (r *TerminalRenderer) SubmitDrawRange(offset, count int, kind geometry.Primitive) {
	if offset < 0 || count <= 0 || offset+count > len(r.points) {
		return
	}
	pts := r.points[offset : offset+count]

	glyph := '*'
	if kind == geometry.LineStrip {
		glyph = '|'
	}

	switch kind {
	case geometry.LineStrip:
		for i := 1; i < len(pts); i++ {
			r.line(pts[i-1], pts[i], glyph)
		}
	default:
		for i := 1; i < len(pts); i++ {
			r.line(pts[0], pts[i], glyph)
			if i > 1 {
				r.line(pts[i-1], pts[i], glyph)
			}
		}
	}
}

// project maps a model-space point to a cell, reporting false when it is
// outside the clip volume.
func (r *TerminalRenderer) project(p mgl64.Vec3) (x, y float64, ok bool) {
	clip := r.mvp.Mul4x1(p.Vec4(1))
	w := clip.W()
	if w <= 0 {
		return 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / w)
	if ndc.Z() < -1 || ndc.Z() > 1 {
		return 0, 0, false
	}
	x = float64(r.vp.X) + (ndc.X()+1)/2*float64(r.vp.Width)
	y = float64(r.vp.Y) + (ndc.Y()+1)/2*float64(r.vp.Height)
	return x, y, true
}

// line traces a segment with Bresenham's algorithm, clipped to the
// current viewport.
func (r *TerminalRenderer) line(a, b mgl64.Vec3, glyph rune) {
	ax, ay, okA := r.project(a)
	bx, by, okB := r.project(b)
	if !okA || !okB {
		return
	}

	x1, y1 := int(ax), int(ay)
	x2, y2 := int(bx), int(by)
	dx, dy := abs(x2-x1), abs(y2-y1)
	// Endpoints far outside the viewport are not worth tracing.
	if dx > 4*r.width || dy > 4*r.height {
		return
	}
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}

	err := dx - dy
	for {
		r.plot(x1, y1, glyph)
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func (r *TerminalRenderer) plot(x, y int, glyph rune) {
	if x < r.vp.X || x >= r.vp.X+r.vp.Width || y < r.vp.Y || y >= r.vp.Y+r.vp.Height {
		return
	}
	if x < 0 || x >= r.width || y < 0 || y >= r.height {
		return
	}
	i := (r.height-1-y)*r.width + x
	r.cells[i] = glyph
	r.colors[i] = r.color
}

// PresentFrame implements Renderer. The whole frame goes out in a single
// write so a slow client sees whole frames.
func (r *TerminalRenderer) PresentFrame() error {
	r.placeNotes()

	b := &r.frame
	b.Reset()
	b.WriteString("\033[H")
	var last color.RGBA
	for row := 0; row < r.height; row++ {
		last = color.RGBA{}
		for col := 0; col < r.width; col++ {
			i := row*r.width + col
			if c := r.colors[i]; r.cells[i] != ' ' && c != last {
				r.writeColor(c)
				last = c
			}
			b.WriteRune(r.cells[i])
		}
		b.WriteString("\033[0m")
		if row < r.height-1 {
			b.WriteString("\r\n")
		}
	}

	_, err := io.WriteString(r.out, b.String())
	return err
}

// placeNotes writes status lines into the top rows of their viewport.
func (r *TerminalRenderer) placeNotes() {
	for v, lines := range r.notes {
		vp := r.viewports[v]
		for n, line := range lines {
			row := r.height - vp.Y - vp.Height + n
			if row < 0 || row >= r.height {
				continue
			}
			col := vp.X + 1
			for _, ch := range line {
				if col >= vp.X+vp.Width || col >= r.width {
					break
				}
				i := row*r.width + col
				r.cells[i] = ch
				r.colors[i] = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
				col++
			}
		}
	}
}

func (r *TerminalRenderer) writeColor(c color.RGBA) {
	b := &r.frame
	b.WriteString("\033[38;2;")
	b.Write(strconv.AppendInt(r.numBuf[:0], int64(c.R), 10))
	b.WriteByte(';')
	b.Write(strconv.AppendInt(r.numBuf[:0], int64(c.G), 10))
	b.WriteByte(';')
	b.Write(strconv.AppendInt(r.numBuf[:0], int64(c.B), 10))
	b.WriteByte('m')
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
