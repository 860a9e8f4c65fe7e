// pkg/network/server.go
package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	wishlogging "github.com/charmbracelet/wish/logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/opd-ai/go-spacetravel/pkg/config"
	"github.com/opd-ai/go-spacetravel/pkg/engine"
	"github.com/opd-ai/go-spacetravel/pkg/event"
	"github.com/opd-ai/go-spacetravel/pkg/health"
	"github.com/opd-ai/go-spacetravel/pkg/input"
	"github.com/opd-ai/go-spacetravel/pkg/logging"
	"github.com/opd-ai/go-spacetravel/pkg/render"
	"github.com/opd-ai/go-spacetravel/pkg/validation"
)

const (
	shutdownTimeout = 5 * time.Second
	// FrameMaxAge is how long a running session may go without presenting
	// before the host reports itself unready.
	FrameMaxAge = 10 * time.Second
)

// Window is a terminal size in character cells.
type Window struct {
	Width, Height int
}

// Server hosts one simulation per SSH session over a shared world, plus an
// HTTP listener for health probes and metrics.
type Server struct {
	cfg      config.ServerConfig
	world    *engine.World
	bus      *event.Bus
	logger   *logging.Logger
	registry *Registry
	health   *health.HealthChecker
	breaker  render.BreakerSettings
	limiter  *validation.RateLimiter // nil when unlimited

	sshAddr  atomic.Value // string
	httpAddr atomic.Value // string
}

// NewServer creates a host for world. The world, session, frame and
// listener checks are registered on the returned server's health checker.
func NewServer(world *engine.World, bus *event.Bus, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{
		cfg:      world.Config.Server,
		world:    world,
		bus:      bus,
		logger:   logger,
		registry: NewRegistry(world.Config.Server.MaxSessions),
		health:   health.NewHealthChecker(),
		breaker:  render.DefaultBreakerSettings(),
	}
	if rate := world.Config.Server.ConnectRate; rate > 0 {
		s.limiter = validation.NewRateLimiter(rate, time.Minute)
	}
	s.sshAddr.Store("")
	s.httpAddr.Store("")

	s.health.AddCheck(health.NewWorldHealthCheck(func() int {
		if world.Buffer == nil {
			return 0
		}
		return world.Buffer.Len()
	}))
	s.health.AddCheck(health.NewSessionCapacityCheck(s.registry.Active, s.registry.Max()))
	s.health.AddCheck(health.NewFrameFreshnessCheck(s.registry.LastFrame, FrameMaxAge))
	s.health.AddCheck(health.NewListenerHealthCheck(s.Addr))
	return s
}

// Registry returns the open sessions.
func (s *Server) Registry() *Registry { return s.registry }

// Health returns the checker served on /health and /ready.
func (s *Server) Health() *health.HealthChecker { return s.health }

// Addr returns the bound SSH address, or "" while not listening.
func (s *Server) Addr() string { return s.sshAddr.Load().(string) }

// HealthAddr returns the bound HTTP address, or "" while not listening.
func (s *Server) HealthAddr() string { return s.httpAddr.Load().(string) }

// RunSession flies one craft for user. Frames are written to out, keys are
// read from in and window changes arrive on resize, which may be nil. It
// returns nil when the pilot quits or disconnects and ErrServerFull when
// no slot is free.
func (s *Server) RunSession(ctx context.Context, user string, in io.Reader, out io.Writer, win Window, resize <-chan Window) error {
	sess, err := s.registry.Open(user)
	if err != nil {
		instrumentRejected(reasonFull)
		return err
	}
	defer s.registry.Close(sess.ID)

	ctx = logging.WithCorrelationID(ctx, sess.ID)
	logger := s.logger.With("user", user)

	instrumentSessionStart()
	defer instrumentSessionEnd()
	s.publish(event.SessionStarted, sess)
	defer s.publish(event.SessionEnded, sess)

	logger.Info(ctx, "session started", "width", win.Width, "height", win.Height)
	defer func() {
		logger.Info(ctx, "session ended", "duration", time.Since(sess.Started))
	}()

	sim := engine.NewSimulation(s.world, s.bus, logger).WithContext(ctx)
	sess.attach(sim)

	r := render.NewTerminalRenderer(render.NewBreakerWriter(out, s.breaker, logger), win.Width, win.Height)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if resize != nil {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case w, ok := <-resize:
					if !ok {
						return
					}
					r.RequestResize(w.Width, w.Height)
				}
			}
		}()
	}

	err = sim.Run(ctx, r, input.NewStream(in))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Server) publish(t event.Type, sess *Session) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.NewSessionEvent(t, s, sess.ID, sess.User))
}

// sessionMiddleware runs a flight for every session that holds a PTY.
func (s *Server) sessionMiddleware(next ssh.Handler) ssh.Handler {
	return func(sess ssh.Session) {
		if !s.admit(sess.RemoteAddr()) {
			instrumentRejected(reasonRateLimited)
			wish.Fatalln(sess, "too many connections, try again later")
			return
		}

		pty, winCh, ok := sess.Pty()
		if !ok {
			instrumentRejected(reasonNoPty)
			wish.Fatalln(sess, "a PTY is required; connect with ssh -t")
			return
		}
		width, height, err := validation.ClampWindow(pty.Window.Width, pty.Window.Height)
		if err != nil {
			instrumentRejected(reasonSmallWindow)
			wish.Fatalln(sess, err)
			return
		}

		resize := make(chan Window, 1)
		go forwardResizes(winCh, resize)

		user := validation.UserNameOrDefault(sess.User())
		fmt.Fprint(sess, "\033[?25l\033[2J")
		err = s.RunSession(sess.Context(), user, sess, sess, Window{Width: width, Height: height}, resize)
		fmt.Fprint(sess, "\033[0m\033[2J\033[H\033[?25h")

		switch {
		case errors.Is(err, ErrServerFull):
			wish.Fatalln(sess, "the server is full, try again later")
			return
		case err != nil:
			s.logger.Error(sess.Context(), "session failed", err, "user", user)
			_ = sess.Exit(1)
			return
		}
		next(sess)
	}
}

// admit applies the per-host connection rate.
func (s *Server) admit(addr net.Addr) bool {
	if s.limiter == nil || addr == nil {
		return true
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		host = addr.String()
	}
	return s.limiter.Allow(host)
}

// forwardResizes passes window changes on, keeping only the newest when the
// session falls behind. Sizes too small to draw in are skipped.
func forwardResizes(winCh <-chan ssh.Window, resize chan Window) {
	defer close(resize)
	for w := range winCh {
		width, height, err := validation.ClampWindow(w.Width, w.Height)
		if err != nil {
			continue
		}
		next := Window{Width: width, Height: height}
		select {
		case resize <- next:
		default:
			select {
			case <-resize:
			default:
			}
			resize <- next
		}
	}
}

// printfLogger feeds the wish connection log into the structured logger.
type printfLogger struct {
	logger *logging.Logger
}

func (p printfLogger) Printf(format string, v ...interface{}) {
	p.logger.Info(context.Background(), fmt.Sprintf(format, v...))
}

// NewSSHServer builds the wish server with the session, active terminal
// and connection logging middleware.
func (s *Server) NewSSHServer() (*ssh.Server, error) {
	opts := []ssh.Option{
		wish.WithAddress(s.cfg.Address),
		wish.WithMiddleware(
			s.sessionMiddleware,
			activeterm.Middleware(),
			wishlogging.MiddlewareWithLogger(printfLogger{logger: s.logger}),
		),
		ssh.WrapConn(func(ctx ssh.Context, conn net.Conn) net.Conn {
			if tcp, ok := conn.(*net.TCPConn); ok {
				_ = tcp.SetNoDelay(true)
			}
			return conn
		}),
	}
	if s.cfg.HostKeyPath != "" {
		opts = append(opts, wish.WithHostKeyPath(s.cfg.HostKeyPath))
	}

	srv, err := wish.NewServer(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ssh server: %w", err)
	}
	return srv, nil
}

// NewHTTPHandler serves /health, /ready and /metrics.
func (s *Server) NewHTTPHandler() http.Handler {
	mux := http.NewServeMux()
	s.health.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Serve listens on the configured SSH and health addresses until ctx ends,
// then shuts both down. An empty health address disables the HTTP
// listener.
func (s *Server) Serve(ctx context.Context) error {
	sshSrv, err := s.NewSSHServer()
	if err != nil {
		return err
	}
	sshLn, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	var httpSrv *http.Server
	var httpLn net.Listener
	if s.cfg.HealthAddress != "" {
		httpLn, err = net.Listen("tcp", s.cfg.HealthAddress)
		if err != nil {
			sshLn.Close()
			return fmt.Errorf("failed to start health server: %w", err)
		}
		httpSrv = &http.Server{
			Handler:           s.NewHTTPHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	s.sshAddr.Store(sshLn.Addr().String())
	s.logger.Info(ctx, "ssh server listening", "address", s.Addr())
	g.Go(func() error {
		defer s.sshAddr.Store("")
		if err := sshSrv.Serve(sshLn); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			return fmt.Errorf("ssh server: %w", err)
		}
		return nil
	})

	if httpSrv != nil {
		s.httpAddr.Store(httpLn.Addr().String())
		s.logger.Info(ctx, "health server listening", "address", s.HealthAddr())
		g.Go(func() error {
			defer s.httpAddr.Store("")
			if err := httpSrv.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("health server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info(ctx, "shutting down", "sessions", s.registry.Active())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := sshSrv.Shutdown(shutdownCtx); err != nil {
			// Sessions still flying are cut off.
			errs = append(errs, sshSrv.Close())
		}
		if httpSrv != nil {
			errs = append(errs, httpSrv.Shutdown(shutdownCtx))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
