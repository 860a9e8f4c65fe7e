// pkg/engine/simulation.go
package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/opd-ai/go-spacetravel/pkg/entity"
	"github.com/opd-ai/go-spacetravel/pkg/event"
	"github.com/opd-ai/go-spacetravel/pkg/input"
	"github.com/opd-ai/go-spacetravel/pkg/logging"
	"github.com/opd-ai/go-spacetravel/pkg/physics"
)

// StepResult describes what one tick did.
type StepResult struct {
	Previous  CraftState
	Candidate CraftState
	State     CraftState // equals Previous when the move was rejected
	Collision bool
	Culling   bool // culling state after the tick
}

// Simulation is one craft flying through a shared World. It is driven from
// a single goroutine; only LastFrame may be read concurrently.
type Simulation struct {
	world  *World
	bus    *event.Bus
	logger *logging.Logger
	ctx    context.Context

	state     CraftState
	previous  CraftState
	collision bool
	culling   bool
	ticks     uint64

	candidates []*entity.Obstacle
	visible    []*entity.Obstacle
	lastFrame  atomic.Int64
}

// NewSimulation places a craft at the origin facing down -Z. bus and
// logger may be nil.
func NewSimulation(world *World, bus *event.Bus, logger *logging.Logger) *Simulation {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Simulation{
		world:   world,
		bus:     bus,
		logger:  logger,
		ctx:     context.Background(),
		culling: world.Config.View.Culling,
	}
}

// WithContext sets the context carried into log entries, typically one
// holding a session correlation ID.
func (s *Simulation) WithContext(ctx context.Context) *Simulation {
	s.ctx = ctx
	return s
}

// World returns the shared world.
func (s *Simulation) World() *World { return s.world }

// State returns the committed craft state.
func (s *Simulation) State() CraftState { return s.state }

// SetState places the craft, for example at a scenario's start pose. The
// heading is wrapped into [0, 360).
func (s *Simulation) SetState(c CraftState) {
	c.Heading = physics.WrapDegrees(c.Heading)
	s.state = c
	s.previous = c
	s.collision = false
}

// Collision reports whether the last step was rejected.
func (s *Simulation) Collision() bool { return s.collision }

// Culling reports whether viewports draw only what their frustum sees.
func (s *Simulation) Culling() bool { return s.culling }

// Ticks returns the number of steps taken.
func (s *Simulation) Ticks() uint64 { return s.ticks }

// LastFrame returns when a frame was last presented, or the zero time.
func (s *Simulation) LastFrame() time.Time {
	ns := s.lastFrame.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// ToggleCulling flips frustum culling and returns the new state.
func (s *Simulation) ToggleCulling() bool {
	s.culling = !s.culling
	cullingTogglesTotal.Inc()
	s.logger.Debug(s.ctx, "frustum culling toggled", "enabled", s.culling)
	if s.bus != nil {
		s.bus.Publish(event.NewCullingEvent(s, s.culling))
	}
	return s.culling
}

// Step advances the craft by one tick. The candidate pose is tested against
// nearby obstacles; on a hit the committed state is left exactly as it was
// and Collision reports true until a later step succeeds.
func (s *Simulation) Step(in input.Directions) StepResult {
	s.ticks++
	ticksTotal.Inc()

	craft := s.world.Config.Craft
	candidate := s.state.propose(in, craft.TurnRate, craft.MoveRate)

	s.previous = s.state
	s.state = candidate
	if s.collides(candidate) {
		s.state = s.previous
		s.collision = true
		movesRejectedTotal.Inc()
		s.logger.Debug(s.ctx, "move rejected",
			"x", candidate.Position.X,
			"z", candidate.Position.Z,
			"heading", candidate.Heading,
		)
		if s.bus != nil {
			s.bus.Publish(event.NewMoveRejectedEvent(s, s.previous.Position, s.previous.Heading,
				candidate.Position, candidate.Heading))
		}
	} else {
		s.collision = false
	}

	return StepResult{
		Previous:  s.previous,
		Candidate: candidate,
		State:     s.state,
		Collision: s.collision,
		Culling:   s.culling,
	}
}

// collides tests the craft's bounding sphere at c against the obstacles
// within reach of it.
func (s *Simulation) collides(c CraftState) bool {
	craft := s.world.Config.Craft
	sphere := physics.CraftSphere(c.Position, c.Heading, craft.BoundingOffset, craft.BoundingRadius)
	reach := craft.BoundingOffset + craft.BoundingRadius + s.world.Field.MaxRadius()

	s.candidates = s.world.AppendNearby(s.candidates[:0], c.Position, reach)
	return physics.CheckCraftCollision(sphere, s.candidates)
}
