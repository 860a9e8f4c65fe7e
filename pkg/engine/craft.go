package engine

import (
	"github.com/opd-ai/go-spacetravel/pkg/input"
	"github.com/opd-ai/go-spacetravel/pkg/physics"
)

// CraftState is the craft's pose and the speeds that produced it. Heading
// is in degrees within [0, 360); heading 0 faces down -Z.
type CraftState struct {
	Position     physics.Vec2
	Heading      float64
	Speed        float64
	AngularSpeed float64
}

// Forward returns the unit vector the craft is facing.
func (c CraftState) Forward() physics.Vec2 {
	return physics.Heading(c.Heading)
}

// propose computes the state that in would lead to. Speeds do not carry
// over between ticks: each one is the net of the held keys.
func (c CraftState) propose(in input.Directions, turnRate, moveRate float64) CraftState {
	var speed, angular float64
	if in.IsDirectionActive(input.Forward) {
		speed++
	}
	if in.IsDirectionActive(input.Back) {
		speed--
	}
	if in.IsDirectionActive(input.TurnLeft) {
		angular++
	}
	if in.IsDirectionActive(input.TurnRight) {
		angular--
	}

	heading := physics.WrapDegrees(c.Heading + angular*turnRate)
	return CraftState{
		Position:     c.Position.Add(physics.Heading(heading).Scale(speed * moveRate)),
		Heading:      heading,
		Speed:        speed,
		AngularSpeed: angular,
	}
}
