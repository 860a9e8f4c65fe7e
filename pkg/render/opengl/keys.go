package opengl

import (
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/opd-ai/go-spacetravel/pkg/input"
)

var keyDirections = map[glfw.Key]input.Direction{
	glfw.KeyUp:    input.Forward,
	glfw.KeyW:     input.Forward,
	glfw.KeyDown:  input.Back,
	glfw.KeyS:     input.Back,
	glfw.KeyLeft:  input.TurnLeft,
	glfw.KeyA:     input.TurnLeft,
	glfw.KeyRight: input.TurnRight,
	glfw.KeyD:     input.TurnRight,
}

// Keyboard turns glfw key events into per-tick input. Navigation keys
// stay active from press to release; space and the quit keys latch until
// the next Sample.
type Keyboard struct {
	mu      sync.Mutex
	held    map[glfw.Key]bool
	culling bool
	quit    bool
}

// NewKeyboard creates an idle keyboard.
func NewKeyboard() *Keyboard {
	return &Keyboard{held: make(map[glfw.Key]bool)}
}

// HandleKey records one key event.
func (k *Keyboard) HandleKey(key glfw.Key, action glfw.Action) {
	k.mu.Lock()
	defer k.mu.Unlock()

	switch action {
	case glfw.Press:
		switch key {
		case glfw.KeySpace:
			k.culling = true
		case glfw.KeyEscape, glfw.KeyQ:
			k.quit = true
		}
		if _, ok := keyDirections[key]; ok {
			k.held[key] = true
		}
	case glfw.Release:
		delete(k.held, key)
	}
}

// Quit latches a quit request, for example from the window's close
// button.
func (k *Keyboard) Quit() {
	k.mu.Lock()
	k.quit = true
	k.mu.Unlock()
}

// Sample implements input.Source.
func (k *Keyboard) Sample() input.State {
	k.mu.Lock()
	defer k.mu.Unlock()

	var st input.State
	for key := range k.held {
		st.Set(keyDirections[key], true)
	}
	st.ToggleCulling = k.culling
	st.Quit = k.quit
	k.culling = false
	return st
}
