package opengl

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"

	"github.com/opd-ai/go-spacetravel/pkg/input"
)

func TestKeyboard_HeldDirections(t *testing.T) {
	tests := []struct {
		name string
		key  glfw.Key
		dir  input.Direction
	}{
		{"arrow_up", glfw.KeyUp, input.Forward},
		{"w", glfw.KeyW, input.Forward},
		{"arrow_down", glfw.KeyDown, input.Back},
		{"a", glfw.KeyA, input.TurnLeft},
		{"arrow_right", glfw.KeyRight, input.TurnRight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := NewKeyboard()
			k.HandleKey(tt.key, glfw.Press)

			assert.True(t, k.Sample().IsDirectionActive(tt.dir))
			// Held keys stay active across ticks.
			assert.True(t, k.Sample().IsDirectionActive(tt.dir))

			k.HandleKey(tt.key, glfw.Release)
			assert.False(t, k.Sample().IsDirectionActive(tt.dir))
		})
	}
}

func TestKeyboard_CullingFiresOnce(t *testing.T) {
	k := NewKeyboard()
	k.HandleKey(glfw.KeySpace, glfw.Press)
	k.HandleKey(glfw.KeySpace, glfw.Repeat)

	assert.True(t, k.Sample().ToggleCulling)
	assert.False(t, k.Sample().ToggleCulling)
}

func TestKeyboard_Quit(t *testing.T) {
	for _, key := range []glfw.Key{glfw.KeyEscape, glfw.KeyQ} {
		k := NewKeyboard()
		k.HandleKey(key, glfw.Press)
		assert.True(t, k.Sample().Quit)
		assert.True(t, k.Sample().Quit, "quit stays latched")
	}

	k := NewKeyboard()
	k.Quit()
	assert.True(t, k.Sample().Quit)
}

func TestKeyboard_UnboundKeysIgnored(t *testing.T) {
	k := NewKeyboard()
	k.HandleKey(glfw.KeyZ, glfw.Press)

	assert.Equal(t, input.State{}, k.Sample())
}

func TestStatusTitle(t *testing.T) {
	got := statusTitle("Space Travel", [][]string{{"Frustum culling on!", "Cannot - will crash!"}, nil})
	assert.Equal(t, "Space Travel | Frustum culling on! | Cannot - will crash!", got)
}
