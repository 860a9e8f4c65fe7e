// Package input turns keyboards of every front end into one per-tick
// navigation state.
package input

// Direction is one of the four navigation signals.
type Direction int

const (
	Forward Direction = iota
	Back
	TurnLeft
	TurnRight

	directionCount
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Back:
		return "back"
	case TurnLeft:
		return "turn_left"
	case TurnRight:
		return "turn_right"
	default:
		return "unknown"
	}
}

// Directions answers whether a navigation signal is active this tick.
type Directions interface {
	IsDirectionActive(d Direction) bool
}

// State is one tick's worth of input.
type State struct {
	active [directionCount]bool

	// ToggleCulling is set on the tick the culling key was pressed.
	ToggleCulling bool
	// Quit is set once the operator asked to leave.
	Quit bool
}

// IsDirectionActive implements Directions.
func (s State) IsDirectionActive(d Direction) bool {
	if d < 0 || d >= directionCount {
		return false
	}
	return s.active[d]
}

// Set marks a direction active or inactive.
func (s *State) Set(d Direction, active bool) {
	if d < 0 || d >= directionCount {
		return
	}
	s.active[d] = active
}

// Press returns a state with the given directions active.
func Press(ds ...Direction) State {
	var s State
	for _, d := range ds {
		s.Set(d, true)
	}
	return s
}

// Source is sampled once per tick by the frame loop.
type Source interface {
	Sample() State
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func() State

// Sample implements Source.
func (f SourceFunc) Sample() State {
	return f()
}

// Script replays a fixed sequence of states, then reports Quit. It drives
// headless runs and tests.
type Script struct {
	States []State
	next   int
}

// Sample implements Source.
func (s *Script) Sample() State {
	if s.next >= len(s.States) {
		return State{Quit: true}
	}
	st := s.States[s.next]
	s.next++
	return st
}
