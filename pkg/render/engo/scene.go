// pkg/render/engo/scene.go
package engo

import (
	"context"
	"image/color"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-spacetravel/pkg/engine"
	"github.com/opd-ai/go-spacetravel/pkg/input"
	"github.com/opd-ai/go-spacetravel/pkg/logging"
)

// Options configures the engo window.
type Options struct {
	Title      string
	Width      int
	Height     int
	Fullscreen bool
	TickRate   int
}

// Scene is the engo scene flying one simulation.
type Scene struct {
	sim    *engine.Simulation
	logger *logging.Logger
	title  string

	renderer *Renderer
	flight   *FlightSystem
}

// NewScene creates a scene for sim.
func NewScene(sim *engine.Simulation, title string, logger *logging.Logger) *Scene {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scene{sim: sim, logger: logger, title: title}
}

// Type returns the scene type (required by Engo)
func (scene *Scene) Type() string {
	return "SpaceTravelScene"
}

// Preload is called before the scene starts (required by Engo)
func (scene *Scene) Preload() {}

// Setup adds the render system and the flight system to the world
// (required by Engo)
func (scene *Scene) Setup(u engo.Updater) {
	world, _ := u.(*ecs.World)
	SetupInputBindings()
	common.SetBackground(color.Black)

	renderSystem := &common.RenderSystem{}
	world.AddSystem(renderSystem)

	scene.renderer = NewRenderer(renderSystem, engo.GameWidth(), engo.GameHeight())
	scene.renderer.HUD().SetBase(scene.title)
	if err := scene.renderer.Upload(scene.sim.World().Buffer); err != nil {
		scene.logger.Error(context.Background(), "failed to upload geometry", err)
		engo.Exit()
		return
	}

	scene.flight = NewFlightSystem(scene.sim, scene.renderer, NewInputSource(nil), scene.logger)
	world.AddSystem(scene.flight)
}

// Err returns the error that stopped the flight, if any.
func (scene *Scene) Err() error {
	if scene.flight == nil {
		return nil
	}
	return scene.flight.Err()
}

// Exit is called when the scene is exiting (required by Engo)
func (scene *Scene) Exit() {
	scene.logger.Info(context.Background(), "engo scene exiting", "ticks", scene.sim.Ticks())
}

// FlightSystem drives the simulation from engo's frame loop: every
// Update samples input, steps the craft and redraws.
type FlightSystem struct {
	sim      *engine.Simulation
	renderer *Renderer
	src      input.Source
	logger   *logging.Logger

	size func() (float32, float32)
	exit func()

	done bool
	err  error
}

// NewFlightSystem creates the system. It calls engo.Exit once the
// simulation stops.
func NewFlightSystem(sim *engine.Simulation, r *Renderer, src input.Source, logger *logging.Logger) *FlightSystem {
	if logger == nil {
		logger = logging.Discard()
	}
	return &FlightSystem{
		sim:      sim,
		renderer: r,
		src:      src,
		logger:   logger,
		size:     func() (float32, float32) { return engo.GameWidth(), engo.GameHeight() },
		exit:     engo.Exit,
	}
}

// Update satisfies the ecs.System interface
func (fs *FlightSystem) Update(dt float32) {
	if fs.done {
		return
	}
	fs.renderer.Resize(fs.size())
	w, h := fs.renderer.Size()

	more, err := fs.sim.Tick(fs.src.Sample(), fs.renderer, w, h)
	if err != nil {
		fs.err = err
		fs.logger.Error(context.Background(), "frame failed", err)
	}
	if !more {
		fs.done = true
		fs.exit()
	}
}

// Remove satisfies the ecs.System interface
func (fs *FlightSystem) Remove(basic ecs.BasicEntity) {}

// Done reports whether the simulation has stopped.
func (fs *FlightSystem) Done() bool {
	return fs.done
}

// Err returns the error that stopped the simulation, if any.
func (fs *FlightSystem) Err() error {
	return fs.err
}

// Run opens the window and flies sim until the operator quits or closes
// the window. It blocks on the calling goroutine, which must be the main
// one.
func Run(sim *engine.Simulation, opts Options, logger *logging.Logger) error {
	scene := NewScene(sim, opts.Title, logger)
	engo.Run(engo.RunOptions{
		Title:      opts.Title,
		Width:      opts.Width,
		Height:     opts.Height,
		Fullscreen: opts.Fullscreen,
		VSync:      true,
		FPSLimit:   opts.TickRate,
	}, scene)
	return scene.Err()
}
