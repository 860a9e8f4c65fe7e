// pkg/render/engo/input.go
package engo

import (
	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-spacetravel/pkg/input"
)

// Button names registered with engo.
const (
	ButtonForward   = "forward"
	ButtonBack      = "back"
	ButtonTurnLeft  = "turnLeft"
	ButtonTurnRight = "turnRight"
	ButtonCulling   = "culling"
	ButtonQuit      = "quit"
)

var directionButtons = [...]struct {
	name string
	dir  input.Direction
}{
	{ButtonForward, input.Forward},
	{ButtonBack, input.Back},
	{ButtonTurnLeft, input.TurnLeft},
	{ButtonTurnRight, input.TurnRight},
}

// Buttons reports the state of named buttons.
type Buttons interface {
	Down(name string) bool
	JustPressed(name string) bool
}

type engoButtons struct{}

func (engoButtons) Down(name string) bool {
	return engo.Input.Button(name).Down()
}

func (engoButtons) JustPressed(name string) bool {
	return engo.Input.Button(name).JustPressed()
}

// InputSource samples engo's buttons once per tick. Navigation buttons
// count while held; culling and quit fire once per press.
type InputSource struct {
	buttons Buttons
}

// NewInputSource reads buttons, engo's global input when nil.
func NewInputSource(buttons Buttons) *InputSource {
	if buttons == nil {
		buttons = engoButtons{}
	}
	return &InputSource{buttons: buttons}
}

// Sample implements input.Source.
func (s *InputSource) Sample() input.State {
	var st input.State
	for _, b := range directionButtons {
		st.Set(b.dir, s.buttons.Down(b.name))
	}
	st.ToggleCulling = s.buttons.JustPressed(ButtonCulling)
	st.Quit = s.buttons.JustPressed(ButtonQuit)
	return st
}

// SetupInputBindings registers arrow keys and WASD for steering, space for
// culling, and Escape or Q to quit.
func SetupInputBindings() {
	engo.Input.RegisterButton(ButtonForward, engo.KeyW, engo.KeyArrowUp)
	engo.Input.RegisterButton(ButtonBack, engo.KeyS, engo.KeyArrowDown)
	engo.Input.RegisterButton(ButtonTurnLeft, engo.KeyA, engo.KeyArrowLeft)
	engo.Input.RegisterButton(ButtonTurnRight, engo.KeyD, engo.KeyArrowRight)
	engo.Input.RegisterButton(ButtonCulling, engo.KeySpace)
	engo.Input.RegisterButton(ButtonQuit, engo.KeyEscape, engo.KeyQ)
}
