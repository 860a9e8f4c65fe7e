// pkg/render/renderer.go
package render

import (
	"context"
	"errors"
	"image/color"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-spacetravel/pkg/geometry"
	"github.com/opd-ai/go-spacetravel/pkg/logging"
)

// ErrClosed is returned from PresentFrame once the output is gone: the
// window was closed or the terminal stopped accepting writes.
var ErrClosed = errors.New("render: output closed")

// ErrNoBuffer is returned when Upload receives no vertex buffer.
var ErrNoBuffer = errors.New("render: no vertex buffer")

// Viewport is a rectangle of the output surface in output units, with the
// origin at the bottom-left corner.
type Viewport struct {
	X, Y          int
	Width, Height int
}

// Renderer draws ranges of the shared vertex buffer. The buffer is uploaded
// once; each frame sets a viewport with its matrices and submits ranges.
// SetViewport resets the model matrix to identity; SetView replaces the view
// matrix without starting a new viewport.
type Renderer interface {
	Upload(buf *geometry.Buffer) error
	BeginFrame()
	SetViewport(vp Viewport, projection, view mgl64.Mat4)
	SetView(view mgl64.Mat4)
	SetModel(model mgl64.Mat4)
	SetColor(c color.RGBA)
	SubmitDrawRange(offset, count int, kind geometry.Primitive)
	PresentFrame() error
}

// Annotator is implemented by renderers that can show status text in a
// viewport. Viewports are numbered in the order they were set this frame.
type Annotator interface {
	Annotate(viewport int, lines ...string)
}

// Sizer is implemented by renderers whose output size is not the
// configured window size, such as a terminal.
type Sizer interface {
	Size() (width, height int)
}

// DrawCall records one submitted range.
type DrawCall struct {
	Viewport int
	Offset   int
	Count    int
	Kind     geometry.Primitive
	View     mgl64.Mat4
	Model    mgl64.Mat4
	Color    color.RGBA
}

// NullRenderer draws nothing. It logs at debug level and keeps the calls of
// the last presented frame, which makes it the renderer for headless runs
// and tests.
type NullRenderer struct {
	logger *logging.Logger

	buf         *geometry.Buffer
	viewport    int
	view        mgl64.Mat4
	model       mgl64.Mat4
	color       color.RGBA
	current     []DrawCall
	last        []DrawCall
	annotations map[int][]string
	lastNotes   map[int][]string
	frames      int
}

// NewNullRenderer creates a new NullRenderer with structured logging.
func NewNullRenderer(logger *logging.Logger) *NullRenderer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &NullRenderer{
		logger:      logger,
		viewport:    -1,
		view:        mgl64.Ident4(),
		model:       mgl64.Ident4(),
		annotations: make(map[int][]string),
	}
}

// Upload implements Renderer.
func (d *NullRenderer) Upload(buf *geometry.Buffer) error {
	if buf == nil {
		return ErrNoBuffer
	}
	d.buf = buf
	d.logger.Debug(context.Background(), "vertex buffer uploaded", "vertices", buf.Len())
	return nil
}

// BeginFrame implements Renderer.
func (d *NullRenderer) BeginFrame() {
	d.viewport = -1
	d.current = d.current[:0]
	d.annotations = make(map[int][]string)
}

// SetViewport implements Renderer.
func (d *NullRenderer) SetViewport(vp Viewport, projection, view mgl64.Mat4) {
	d.viewport++
	d.view = view
	d.model = mgl64.Ident4()
}

// SetView implements Renderer.
func (d *NullRenderer) SetView(view mgl64.Mat4) {
	d.view = view
}

// SetModel implements Renderer.
func (d *NullRenderer) SetModel(model mgl64.Mat4) {
	d.model = model
}

// SetColor implements Renderer.
func (d *NullRenderer) SetColor(c color.RGBA) {
	d.color = c
}

// SubmitDrawRange implements Renderer.
func (d *NullRenderer) SubmitDrawRange(offset, count int, kind geometry.Primitive) {
	if d.buf != nil {
		// Out-of-range submissions are programming errors.
		d.buf.Range(offset, count)
	}
	d.current = append(d.current, DrawCall{
		Viewport: d.viewport,
		Offset:   offset,
		Count:    count,
		Kind:     kind,
		View:     d.view,
		Model:    d.model,
		Color:    d.color,
	})
}

// Annotate implements Annotator.
func (d *NullRenderer) Annotate(viewport int, lines ...string) {
	d.annotations[viewport] = append(d.annotations[viewport], lines...)
}

// PresentFrame implements Renderer.
func (d *NullRenderer) PresentFrame() error {
	d.frames++
	d.last = append(d.last[:0], d.current...)
	d.lastNotes = d.annotations
	d.logger.Debug(context.Background(), "frame presented",
		"frame", d.frames,
		"draw_calls", len(d.last),
	)
	return nil
}

// Frames returns the number of presented frames.
func (d *NullRenderer) Frames() int {
	return d.frames
}

// LastFrame returns the draw calls of the most recently presented frame.
func (d *NullRenderer) LastFrame() []DrawCall {
	return d.last
}

// LastAnnotations returns the status lines of the most recent frame.
func (d *NullRenderer) LastAnnotations(viewport int) []string {
	return d.lastNotes[viewport]
}
