package engine

import (
	"context"
	"image/color"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-spacetravel/pkg/config"
	"github.com/opd-ai/go-spacetravel/pkg/entity"
	"github.com/opd-ai/go-spacetravel/pkg/event"
	"github.com/opd-ai/go-spacetravel/pkg/geometry"
	"github.com/opd-ai/go-spacetravel/pkg/input"
	"github.com/opd-ai/go-spacetravel/pkg/physics"
	"github.com/opd-ai/go-spacetravel/pkg/render"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Field.Rows = 10
	cfg.Field.Columns = 10
	cfg.Field.Seed = 7
	cfg.View.TickRate = 1000
	return cfg
}

var obstacleColor = color.RGBA{R: 10, G: 20, B: 30, A: 0xff}

// scenarioWorld builds a 2×2 field whose only obstacle sits at (0,0,-40)
// with radius 3, plus any extra slots given.
func scenarioWorld(t testing.TB, cfg *config.Config, extra ...entity.Obstacle) *World {
	t.Helper()
	slots := append([]entity.Obstacle{{Position: mgl64.Vec3{0, 0, -40}, Radius: 3, Color: obstacleColor}}, extra...)
	field, err := entity.FieldFromObstacles(2, 2, slots)
	require.NoError(t, err)
	w, err := NewWorldWithField(cfg, field, nil, nil)
	require.NoError(t, err)
	return w
}

func TestNewWorld(t *testing.T) {
	bus := event.NewEventBus()
	var built *event.WorldEvent
	bus.Subscribe(event.WorldBuilt, func(e event.Event) { built = e.(*event.WorldEvent) })

	w, err := NewWorld(testConfig(), nil, bus)
	require.NoError(t, err)

	assert.True(t, w.Buffer.Frozen())
	assert.Equal(t, w.Layout.Size(), w.Buffer.Len())
	require.NotNil(t, w.Index)
	assert.Equal(t, 100, w.Index.Len())
	assert.Len(t, w.Obstacles(), 100)
	assert.Equal(t, 5.0, w.Projection.Near)

	require.NotNil(t, built)
	assert.Equal(t, 100, built.Obstacles)
	assert.Equal(t, 100, built.Occupied)
	assert.Equal(t, w.Index.Depth(), built.IndexDepth)
}

func TestNewWorld_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Field.Rows = 0

	_, err := NewWorld(cfg, nil, nil)
	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "field.rows", cfgErr.Key)

	_, err = NewWorldWithField(testConfig(), nil, nil, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestFieldParams_SeedSelection(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, uint64(7), FieldParams(cfg).Seed)

	cfg.Field.Seed = 0
	assert.NotZero(t, FieldParams(cfg).Seed)
}

func TestWorld_WithoutIndex(t *testing.T) {
	cfg := testConfig()
	cfg.Index.Enabled = false
	w := scenarioWorld(t, cfg, entity.Obstacle{Position: mgl64.Vec3{500, 0, 500}, Radius: 3})

	assert.Nil(t, w.Index)

	visible := w.AppendVisible(nil, w.OverviewFrustum())
	require.Len(t, visible, 1)
	assert.Equal(t, mgl64.Vec3{0, 0, -40}, visible[0].Position)

	// Degraded mode hands every obstacle to collision detection.
	nearby := w.AppendNearby(nil, physics.Vec2{}, 1)
	assert.Len(t, nearby, 2)
}

func TestStep_Movement(t *testing.T) {
	cfg := testConfig()
	cfg.Field.FillProbability = 0
	cfg.Craft.TurnRate = 2
	cfg.Craft.MoveRate = 1.5

	tests := []struct {
		name    string
		start   CraftState
		in      input.State
		pos     physics.Vec2
		heading float64
		speed   float64
		angular float64
	}{
		{"idle", CraftState{}, input.State{}, physics.Vec2{}, 0, 0, 0},
		{"forward", CraftState{}, input.Press(input.Forward), physics.Vec2{X: 0, Z: -1.5}, 0, 1, 0},
		{"back", CraftState{}, input.Press(input.Back), physics.Vec2{X: 0, Z: 1.5}, 0, -1, 0},
		{"forward_and_back_cancel", CraftState{}, input.Press(input.Forward, input.Back), physics.Vec2{}, 0, 0, 0},
		{"turn_left", CraftState{}, input.Press(input.TurnLeft), physics.Vec2{}, 2, 0, 1},
		{"turn_right_wraps", CraftState{}, input.Press(input.TurnRight), physics.Vec2{}, 358, 0, -1},
		{"turn_left_wraps", CraftState{Heading: 359}, input.Press(input.TurnLeft), physics.Vec2{}, 1, 0, 1},
		{"both_turns_cancel", CraftState{Heading: 45}, input.Press(input.TurnLeft, input.TurnRight), physics.Vec2{}, 45, 0, 0},
		{"forward_at_90", CraftState{Heading: 90}, input.Press(input.Forward), physics.Vec2{X: -1.5, Z: 0}, 90, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWorld(cfg, nil, nil)
			require.NoError(t, err)
			sim := NewSimulation(w, nil, nil)
			sim.SetState(tt.start)

			res := sim.Step(tt.in)

			assert.False(t, res.Collision)
			assert.InDelta(t, tt.pos.X, res.State.Position.X, 1e-9)
			assert.InDelta(t, tt.pos.Z, res.State.Position.Z, 1e-9)
			assert.InDelta(t, tt.heading, res.State.Heading, 1e-9)
			assert.Equal(t, tt.speed, res.State.Speed)
			assert.Equal(t, tt.angular, res.State.AngularSpeed)
			assert.Equal(t, res.State, sim.State())
			assert.Equal(t, tt.start, res.Previous)
		})
	}
}

func TestStep_HeadingStaysInRange(t *testing.T) {
	for _, fill := range []int{0, 100} {
		cfg := testConfig()
		cfg.Field.FillProbability = fill
		cfg.Craft.TurnRate = 7.3
		w, err := NewWorld(cfg, nil, nil)
		require.NoError(t, err)
		sim := NewSimulation(w, nil, nil)

		rng := rand.New(rand.NewPCG(1, 2))
		for i := 0; i < 5000; i++ {
			var in input.State
			for d := input.Forward; d <= input.TurnRight; d++ {
				in.Set(d, rng.IntN(2) == 0)
			}
			res := sim.Step(in)
			require.GreaterOrEqual(t, res.State.Heading, 0.0, "step %d", i)
			require.Less(t, res.State.Heading, 360.0, "step %d", i)
			require.GreaterOrEqual(t, res.Candidate.Heading, 0.0)
			require.Less(t, res.Candidate.Heading, 360.0)
		}
	}
}

func TestStep_RejectedMoveLeavesStateUntouched(t *testing.T) {
	cfg := testConfig()
	w := scenarioWorld(t, cfg)

	bus := event.NewEventBus()
	var rejected []*event.MoveEvent
	bus.Subscribe(event.MoveRejected, func(e event.Event) { rejected = append(rejected, e.(*event.MoveEvent)) })

	sim := NewSimulation(w, bus, nil)
	// Bounding sphere centre at z = -29.5, 10.5 from the obstacle: clear.
	start := CraftState{Position: physics.Vec2{X: 0, Z: -24.5}, Heading: 0.1, Speed: 1}
	sim.SetState(start)
	before := sim.State()

	// One more unit forward brings the centre within 10 of it.
	res := sim.Step(input.Press(input.Forward, input.TurnRight))

	assert.True(t, res.Collision)
	assert.True(t, sim.Collision())
	assert.Equal(t, before, sim.State())
	assert.Equal(t, before, res.State)
	assert.Equal(t, before.Position.Z, sim.State().Position.Z)
	assert.NotEqual(t, before, res.Candidate)

	require.Len(t, rejected, 1)
	assert.Equal(t, before.Position, rejected[0].Position)
	assert.Equal(t, res.Candidate.Position, rejected[0].CandidatePosition)

	// Backing away is accepted and clears the flag.
	res = sim.Step(input.Press(input.Back))
	assert.False(t, res.Collision)
	assert.False(t, sim.Collision())
	assert.Greater(t, sim.State().Position.Z, before.Position.Z)
}

func TestStep_FarFromObstacleIsAccepted(t *testing.T) {
	w := scenarioWorld(t, testConfig())
	sim := NewSimulation(w, nil, nil)
	sim.SetState(CraftState{Position: physics.Vec2{X: 100, Z: -40}})

	res := sim.Step(input.Press(input.Forward))
	assert.False(t, res.Collision)
	assert.Equal(t, -41.0, sim.State().Position.Z)
}

func TestStep_CollisionWithoutIndex(t *testing.T) {
	cfg := testConfig()
	cfg.Index.Enabled = false
	w := scenarioWorld(t, cfg)
	sim := NewSimulation(w, nil, nil)
	sim.SetState(CraftState{Position: physics.Vec2{X: 0, Z: -24.5}})

	assert.True(t, sim.Step(input.Press(input.Forward)).Collision)
}

func TestToggleCulling(t *testing.T) {
	bus := event.NewEventBus()
	var states []bool
	bus.Subscribe(event.CullingToggled, func(e event.Event) { states = append(states, e.(*event.CullingEvent).Enabled) })

	w := scenarioWorld(t, testConfig())
	sim := NewSimulation(w, bus, nil)
	require.True(t, sim.Culling())

	r := render.NewNullRenderer(nil)
	require.NoError(t, r.Upload(w.Buffer))

	more, err := sim.Tick(input.State{ToggleCulling: true}, r, 800, 400)
	require.NoError(t, err)
	assert.True(t, more)
	assert.False(t, sim.Culling())
	assert.Equal(t, []string{StatusCullingOff}, r.LastAnnotations(0))

	sim.ToggleCulling()
	assert.Equal(t, []bool{false, true}, states)
}

func callsIn(calls []render.DrawCall, viewport int, kind geometry.Primitive, count int) []render.DrawCall {
	var out []render.DrawCall
	for _, c := range calls {
		if c.Viewport == viewport && c.Kind == kind && c.Count == count {
			out = append(out, c)
		}
	}
	return out
}

func TestRender_Frame(t *testing.T) {
	w := scenarioWorld(t, testConfig())
	sim := NewSimulation(w, nil, nil)
	r := render.NewNullRenderer(nil)
	require.NoError(t, r.Upload(w.Buffer))

	require.NoError(t, sim.Render(r, 1600, 800))

	calls := r.LastFrame()
	require.Len(t, calls, 4)
	layout := w.Layout

	spheres := callsIn(calls, 0, geometry.TriangleFan, layout.Sphere.Count)
	require.Len(t, spheres, 1)
	assert.Equal(t, layout.Sphere.Offset, spheres[0].Offset)
	assert.Equal(t, obstacleColor, spheres[0].Color)
	// The unit mesh is scaled to the obstacle's radius.
	rim := spheres[0].Model.Mul4x1(mgl64.Vec4{layout.SphereRadius, 0, 0, 1})
	assert.InDelta(t, 3.0, rim.X(), 1e-9)
	assert.InDelta(t, -40.0, rim.Z(), 1e-9)

	cone := callsIn(calls, 0, geometry.TriangleFan, layout.Cone.Count)
	require.Len(t, cone, 1)
	assert.Equal(t, craftColor, cone[0].Color)
	assert.Equal(t, CraftModel(sim.State()), cone[0].Model)

	divider := callsIn(calls, 1, geometry.LineStrip, layout.Divider.Count)
	require.Len(t, divider, 1)
	assert.Equal(t, mgl64.Ident4(), divider[0].View)
	assert.Equal(t, dividerModel, divider[0].Model)

	chase := callsIn(calls, 1, geometry.TriangleFan, layout.Sphere.Count)
	require.Len(t, chase, 1)
	assert.NotEqual(t, mgl64.Ident4(), chase[0].View)

	assert.Equal(t, []string{StatusCullingOn}, r.LastAnnotations(0))
	assert.False(t, sim.LastFrame().IsZero())
}

func TestRender_CullingSkipsHiddenObstacles(t *testing.T) {
	// A second obstacle far behind both cameras. Without the index every
	// obstacle is tested against the outline individually.
	cfg := testConfig()
	cfg.Index.Enabled = false
	w := scenarioWorld(t, cfg, entity.Obstacle{Position: mgl64.Vec3{0, 0, 600}, Radius: 3})
	sim := NewSimulation(w, nil, nil)
	r := render.NewNullRenderer(nil)
	require.NoError(t, r.Upload(w.Buffer))

	require.NoError(t, sim.Render(r, 1600, 800))
	assert.Len(t, callsIn(r.LastFrame(), 0, geometry.TriangleFan, w.Layout.Sphere.Count), 1)

	sim.ToggleCulling()
	require.NoError(t, sim.Render(r, 1600, 800))
	assert.Len(t, callsIn(r.LastFrame(), 0, geometry.TriangleFan, w.Layout.Sphere.Count), 2)
	assert.Len(t, callsIn(r.LastFrame(), 1, geometry.TriangleFan, w.Layout.Sphere.Count), 2)
}

func TestRender_CollisionColor(t *testing.T) {
	w := scenarioWorld(t, testConfig())
	sim := NewSimulation(w, nil, nil)
	sim.SetState(CraftState{Position: physics.Vec2{X: 0, Z: -24.5}})
	require.True(t, sim.Step(input.Press(input.Forward)).Collision)

	r := render.NewNullRenderer(nil)
	require.NoError(t, r.Upload(w.Buffer))
	require.NoError(t, sim.Render(r, 1600, 800))

	cone := callsIn(r.LastFrame(), 0, geometry.TriangleFan, w.Layout.Cone.Count)
	require.Len(t, cone, 1)
	assert.Equal(t, collisionColor, cone[0].Color)
	assert.Equal(t, []string{StatusCullingOn, StatusCrash}, r.LastAnnotations(0))
}

func TestViewports(t *testing.T) {
	left, right := Viewports(1601, 800)
	assert.Equal(t, render.Viewport{X: 0, Y: 0, Width: 800, Height: 800}, left)
	assert.Equal(t, render.Viewport{X: 800, Y: 0, Width: 801, Height: 800}, right)
}

func TestCraftModel_PointsConeAlongHeading(t *testing.T) {
	tests := []struct {
		name    string
		state   CraftState
		wantTip mgl64.Vec3
	}{
		{"heading_0", CraftState{}, mgl64.Vec3{0, 0, -10}},
		{"heading_90", CraftState{Heading: 90}, mgl64.Vec3{-10, 0, 0}},
		{"heading_180_offset", CraftState{Position: physics.Vec2{X: 3, Z: 4}, Heading: 180}, mgl64.Vec3{3, 0, 14}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tip := mgl64.TransformCoordinate(mgl64.Vec3{0, 10, 0}, CraftModel(tt.state))
			assert.True(t, tip.ApproxEqualThreshold(tt.wantTip, 1e-9), "tip %v", tip)

			base := mgl64.TransformCoordinate(mgl64.Vec3{}, CraftModel(tt.state))
			assert.True(t, base.ApproxEqualThreshold(tt.state.Position.Vec3(0), 1e-9))
		})
	}
}

func TestRun_ScriptedInput(t *testing.T) {
	cfg := testConfig()
	cfg.Field.FillProbability = 0
	w, err := NewWorld(cfg, nil, nil)
	require.NoError(t, err)

	sim := NewSimulation(w, nil, nil)
	r := render.NewNullRenderer(nil)
	script := &input.Script{States: []input.State{
		input.Press(input.Forward),
		input.Press(input.Forward),
		input.Press(input.TurnLeft),
	}}

	require.NoError(t, sim.Run(context.Background(), r, script))
	assert.Equal(t, 3, r.Frames())
	assert.Equal(t, uint64(3), sim.Ticks())
	assert.InDelta(t, -2.0, sim.State().Position.Z, 1e-9)
	assert.Equal(t, 2.0, sim.State().Heading)
}

func TestRun_ContextCancel(t *testing.T) {
	w := scenarioWorld(t, testConfig())
	sim := NewSimulation(w, nil, nil)
	r := render.NewNullRenderer(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := sim.Run(ctx, r, input.SourceFunc(func() input.State { return input.State{} }))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Positive(t, r.Frames())
}

// closingRenderer reports its output closed after a number of frames.
type closingRenderer struct {
	*render.NullRenderer
	remaining int
}

func (c *closingRenderer) PresentFrame() error {
	if c.remaining == 0 {
		return render.ErrClosed
	}
	c.remaining--
	return c.NullRenderer.PresentFrame()
}

func TestRun_StopsWhenOutputCloses(t *testing.T) {
	w := scenarioWorld(t, testConfig())
	sim := NewSimulation(w, nil, nil)
	r := &closingRenderer{NullRenderer: render.NewNullRenderer(nil), remaining: 2}

	err := sim.Run(context.Background(), r, input.SourceFunc(func() input.State { return input.State{} }))
	require.NoError(t, err)
	assert.Equal(t, 2, r.Frames())
}

func TestRun_UploadFailure(t *testing.T) {
	w := scenarioWorld(t, testConfig())
	w.Buffer = nil
	sim := NewSimulation(w, nil, nil)

	err := sim.Run(context.Background(), render.NewNullRenderer(nil), &input.Script{})
	assert.ErrorIs(t, err, render.ErrNoBuffer)
}

func BenchmarkStep(b *testing.B) {
	w, err := NewWorld(config.DefaultConfig(), nil, nil)
	if err != nil {
		b.Fatal(err)
	}
	sim := NewSimulation(w, nil, nil)
	in := input.Press(input.Forward, input.TurnLeft)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sim.Step(in)
	}
}

func BenchmarkRender(b *testing.B) {
	w, err := NewWorld(config.DefaultConfig(), nil, nil)
	if err != nil {
		b.Fatal(err)
	}
	sim := NewSimulation(w, nil, nil)
	r := render.NewNullRenderer(nil)
	if err := r.Upload(w.Buffer); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := sim.Render(r, 1600, 800); err != nil {
			b.Fatal(err)
		}
	}
}
