// cmd/client/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/opd-ai/go-spacetravel/pkg/config"
	"github.com/opd-ai/go-spacetravel/pkg/engine"
	"github.com/opd-ai/go-spacetravel/pkg/event"
	"github.com/opd-ai/go-spacetravel/pkg/input"
	"github.com/opd-ai/go-spacetravel/pkg/logging"
	"github.com/opd-ai/go-spacetravel/pkg/render"
	engorender "github.com/opd-ai/go-spacetravel/pkg/render/engo"
	"github.com/opd-ai/go-spacetravel/pkg/render/opengl"
)

const (
	appTitle = "Space Travel"

	helpText = `Space Travel
  arrow keys / WASD  fly (up/W forward, down/S back, left/A and right/D turn)
  space              toggle frustum culling
  q / Esc            quit
`
)

var (
	cfgFile      string
	rendererName string
	fullscreen   bool
)

func init() {
	// glfw and engo need the main OS thread.
	runtime.LockOSThread()
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "spacetravel",
		Short: "Fly a craft through an obstacle field",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Open a window or the terminal and fly",
		RunE:  runFlight,
	}
	runCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "Path to config file (default: ./spacetravel.{json,yaml})")
	runCmd.Flags().StringVarP(&rendererName, "renderer", "r", "opengl", "Renderer: 'opengl' | 'engo' | 'terminal'")
	runCmd.Flags().BoolVar(&fullscreen, "fullscreen", false, "Run in fullscreen mode (engo only)")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}
	configInitCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConfigInit,
	}
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(runCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := "spacetravel.json"
	if len(args) == 1 {
		path = args[0]
	}
	if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote default configuration to %s\n", path)
	return nil
}

func runFlight(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}

	logger := newLogger()
	ctx := logging.WithCorrelationID(context.Background(), logging.GenerateCorrelationID())

	bus := event.NewEventBus()
	bus.Subscribe(event.MoveRejected, func(e event.Event) {
		if me, ok := e.(*event.MoveEvent); ok {
			logger.Debug(ctx, "move rejected",
				"x", me.CandidatePosition.X,
				"z", me.CandidatePosition.Z,
			)
		}
	})

	world, err := engine.NewWorld(cfg, logger, bus)
	if err != nil {
		return err
	}
	sim := engine.NewSimulation(world, bus, logger).WithContext(ctx)

	fmt.Fprint(cmd.OutOrStdout(), helpText)

	switch rendererName {
	case "opengl":
		return runOpenGL(ctx, sim, cfg, logger)
	case "engo":
		return engorender.Run(sim, engorender.Options{
			Title:      appTitle,
			Width:      cfg.View.Width,
			Height:     cfg.View.Height,
			Fullscreen: fullscreen,
			TickRate:   cfg.View.TickRate,
		}, logger)
	case "terminal":
		return runTerminal(ctx, sim)
	default:
		return fmt.Errorf("unknown renderer: %s (use 'opengl', 'engo' or 'terminal')", rendererName)
	}
}

// newLogger writes to stderr unless stderr is the terminal the frames go
// to.
func newLogger() *logging.Logger {
	if rendererName == "terminal" && term.IsTerminal(int(os.Stderr.Fd())) {
		return logging.Discard()
	}
	return logging.NewLoggerWithWriter(os.Stderr)
}

func runOpenGL(ctx context.Context, sim *engine.Simulation, cfg *config.Config, logger *logging.Logger) error {
	win, err := opengl.NewWindow(appTitle, cfg.View.Width, cfg.View.Height, logger)
	if err != nil {
		return err
	}
	defer win.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = sim.Run(ctx, win, win.Source())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runTerminal(ctx context.Context, sim *engine.Simulation) error {
	inFd, outFd := int(os.Stdin.Fd()), int(os.Stdout.Fd())
	if !term.IsTerminal(inFd) || !term.IsTerminal(outFd) {
		return errors.New("the terminal renderer needs an interactive terminal")
	}
	width, height, err := term.GetSize(outFd)
	if err != nil {
		return fmt.Errorf("failed to get terminal size: %w", err)
	}

	oldState, err := term.MakeRaw(inFd)
	if err != nil {
		return fmt.Errorf("failed to enable raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(inFd, oldState)
	}()

	hideCursor(os.Stdout)
	defer showCursor(os.Stdout)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := render.NewTerminalRenderer(os.Stdout, width, height)
	go watchResize(ctx, outFd, r)

	err = sim.Run(ctx, r, input.NewStream(os.Stdin))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// watchResize follows SIGWINCH until ctx ends.
func watchResize(ctx context.Context, fd int, r *render.TerminalRenderer) {
	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	defer signal.Stop(winch)

	for {
		select {
		case <-ctx.Done():
			return
		case <-winch:
			if w, h, err := term.GetSize(fd); err == nil {
				r.RequestResize(w, h)
			}
		}
	}
}

func hideCursor(w io.Writer) {
	fmt.Fprint(w, "\033[?25l\033[2J")
}

func showCursor(w io.Writer) {
	fmt.Fprint(w, "\033[0m\033[2J\033[H\033[?25h")
}
