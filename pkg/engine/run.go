package engine

import (
	"context"
	"errors"
	"time"

	"github.com/opd-ai/go-spacetravel/pkg/input"
	"github.com/opd-ai/go-spacetravel/pkg/render"
)

// nowFunc is replaced in tests.
var nowFunc = time.Now

// Tick applies one sampled input: the culling toggle, a step and a frame.
// It reports false when in asks to quit or the renderer's output is gone.
func (s *Simulation) Tick(in input.State, r render.Renderer, width, height int) (bool, error) {
	if in.Quit {
		return false, nil
	}
	start := nowFunc()
	defer instrumentFrame(start)

	if in.ToggleCulling {
		s.ToggleCulling()
	}
	s.Step(in)

	if err := s.Render(r, width, height); err != nil {
		if errors.Is(err, render.ErrClosed) {
			s.logger.Info(s.ctx, "renderer closed")
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Run uploads the world's buffer to r and then samples src, steps and
// renders at the configured tick rate. It returns nil when src asks to
// quit or r's output closes, and ctx.Err() when ctx ends first.
func (s *Simulation) Run(ctx context.Context, r render.Renderer, src input.Source) error {
	if err := r.Upload(s.world.Buffer); err != nil {
		return err
	}

	simulationsRunning.Inc()
	defer simulationsRunning.Dec()

	view := s.world.Config.View
	ticker := time.NewTicker(time.Second / time.Duration(view.TickRate))
	defer ticker.Stop()

	s.logger.Info(s.ctx, "frame loop started", "tick_rate", view.TickRate)
	defer func() {
		s.logger.Info(s.ctx, "frame loop stopped", "ticks", s.ticks)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		more, err := s.Tick(src.Sample(), r, view.Width, view.Height)
		if err != nil || !more {
			return err
		}
	}
}
