// Package opengl draws the simulation in a glfw window with the OpenGL 2.1
// fixed-function pipeline.
package opengl

import (
	"context"
	"fmt"
	"image/color"
	"strings"

	"github.com/go-gl/gl/v2.1/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-spacetravel/pkg/geometry"
	"github.com/opd-ai/go-spacetravel/pkg/logging"
	"github.com/opd-ai/go-spacetravel/pkg/render"
)

// Window is a render.Renderer backed by a glfw window. The vertex buffer
// lives in a single VBO; every submitted range is one glDrawArrays call
// in wireframe mode. All methods must be called from the goroutine that
// created the window, which must be locked to the main OS thread.
type Window struct {
	win      *glfw.Window
	keyboard *Keyboard
	logger   *logging.Logger
	title    string

	vbo   uint32
	view  mgl64.Mat4
	notes [][]string
	shown string
}

// NewWindow opens a width×height window titled title.
func NewWindow(title string, width, height int, logger *logging.Logger) (*Window, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize glfw: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 2)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	win.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		win.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	glfw.SwapInterval(1)

	w := &Window{
		win:      win,
		keyboard: NewKeyboard(),
		logger:   logger,
		title:    title,
		view:     mgl64.Ident4(),
	}
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		w.keyboard.HandleKey(key, action)
	})
	win.SetCloseCallback(func(_ *glfw.Window) {
		w.keyboard.Quit()
	})

	logger.Info(context.Background(), "window opened",
		"width", width,
		"height", height,
		"gl_version", gl.GoStr(gl.GetString(gl.VERSION)),
	)
	return w, nil
}

// Source returns the window's keyboard as an input source.
func (w *Window) Source() *Keyboard {
	return w.keyboard
}

// Size implements render.Sizer with the framebuffer size, which differs
// from the window size on high-DPI displays.
func (w *Window) Size() (int, int) {
	return w.win.GetFramebufferSize()
}

// Upload implements render.Renderer.
func (w *Window) Upload(buf *geometry.Buffer) error {
	if buf == nil {
		return render.ErrNoBuffer
	}
	points := buf.Points()

	gl.GenBuffers(1, &w.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, w.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(points)*3*4, gl.Ptr(points), gl.STATIC_DRAW)
	gl.EnableClientState(gl.VERTEX_ARRAY)
	gl.VertexPointer(3, gl.FLOAT, 0, nil)

	gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	gl.Enable(gl.SCISSOR_TEST)
	gl.ClearColor(0, 0, 0, 1)
	return nil
}

// BeginFrame implements render.Renderer.
func (w *Window) BeginFrame() {
	gl.Disable(gl.SCISSOR_TEST)
	gl.Clear(gl.COLOR_BUFFER_BIT)
	gl.Enable(gl.SCISSOR_TEST)
	w.notes = w.notes[:0]
}

// SetViewport implements render.Renderer.
func (w *Window) SetViewport(vp render.Viewport, projection, view mgl64.Mat4) {
	gl.Viewport(int32(vp.X), int32(vp.Y), int32(vp.Width), int32(vp.Height))
	gl.Scissor(int32(vp.X), int32(vp.Y), int32(vp.Width), int32(vp.Height))

	gl.MatrixMode(gl.PROJECTION)
	gl.LoadMatrixd(&projection[0])
	gl.MatrixMode(gl.MODELVIEW)
	w.SetView(view)

	w.notes = append(w.notes, nil)
}

// SetView implements render.Renderer.
func (w *Window) SetView(view mgl64.Mat4) {
	w.view = view
	gl.LoadMatrixd(&w.view[0])
}

// SetModel implements render.Renderer.
func (w *Window) SetModel(model mgl64.Mat4) {
	mv := w.view.Mul4(model)
	gl.LoadMatrixd(&mv[0])
}

// SetColor implements render.Renderer.
func (w *Window) SetColor(c color.RGBA) {
	gl.Color4ub(c.R, c.G, c.B, c.A)
}

// SubmitDrawRange implements render.Renderer.
func (w *Window) SubmitDrawRange(offset, count int, kind geometry.Primitive) {
	mode := uint32(gl.TRIANGLE_FAN)
	if kind == geometry.LineStrip {
		mode = gl.LINE_STRIP
	}
	gl.DrawArrays(mode, int32(offset), int32(count))
}

// Annotate implements render.Annotator. Status lines are shown in the
// window title.
func (w *Window) Annotate(viewport int, lines ...string) {
	if viewport < 0 || viewport >= len(w.notes) {
		return
	}
	w.notes[viewport] = append(w.notes[viewport], lines...)
}

// PresentFrame implements render.Renderer. It returns render.ErrClosed
// once the window was asked to close.
func (w *Window) PresentFrame() error {
	if title := statusTitle(w.title, w.notes); title != w.shown {
		w.win.SetTitle(title)
		w.shown = title
	}
	w.win.SwapBuffers()
	glfw.PollEvents()
	if w.win.ShouldClose() {
		return render.ErrClosed
	}
	return nil
}

// Close releases the buffer and the window.
func (w *Window) Close() {
	if w.vbo != 0 {
		gl.DeleteBuffers(1, &w.vbo)
	}
	w.win.Destroy()
	glfw.Terminate()
}

func statusTitle(base string, notes [][]string) string {
	parts := []string{base}
	for _, lines := range notes {
		parts = append(parts, lines...)
	}
	return strings.Join(parts, " | ")
}
