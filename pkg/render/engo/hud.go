// pkg/render/engo/hud.go
package engo

import (
	"strings"

	"github.com/EngoEngine/engo"
)

// HUD collects the status lines of a frame and shows them in the window
// title. The title is only touched when the text changes.
type HUD struct {
	setTitle func(string)
	base     string

	viewport int
	lines    [][]string
	shown    string
}

// NewHUD creates a HUD that publishes through setTitle, engo.SetTitle when
// nil.
func NewHUD(setTitle func(string)) *HUD {
	if setTitle == nil {
		setTitle = engo.SetTitle
	}
	return &HUD{setTitle: setTitle, viewport: -1}
}

// SetBase sets the text shown before the status lines, usually the
// application name.
func (h *HUD) SetBase(base string) {
	h.base = base
}

// Begin starts a frame.
func (h *HUD) Begin() {
	h.viewport = -1
	h.lines = h.lines[:0]
}

// Viewport marks the start of the next viewport.
func (h *HUD) Viewport() {
	h.viewport++
	h.lines = append(h.lines, nil)
}

// Annotate adds lines to a viewport set earlier in the frame.
func (h *HUD) Annotate(viewport int, lines ...string) {
	if viewport < 0 || viewport >= len(h.lines) {
		return
	}
	h.lines[viewport] = append(h.lines[viewport], lines...)
}

// Text returns the title the current frame would show.
func (h *HUD) Text() string {
	parts := make([]string, 0, 4)
	if h.base != "" {
		parts = append(parts, h.base)
	}
	for _, lines := range h.lines {
		parts = append(parts, lines...)
	}
	return strings.Join(parts, " | ")
}

// Present publishes the frame's status lines.
func (h *HUD) Present() {
	text := h.Text()
	if text == h.shown {
		return
	}
	h.shown = text
	h.setTitle(text)
}
