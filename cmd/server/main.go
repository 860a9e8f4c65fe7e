// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/opd-ai/go-spacetravel/pkg/config"
	"github.com/opd-ai/go-spacetravel/pkg/engine"
	"github.com/opd-ai/go-spacetravel/pkg/event"
	"github.com/opd-ai/go-spacetravel/pkg/logging"
	"github.com/opd-ai/go-spacetravel/pkg/network"
	"github.com/opd-ai/go-spacetravel/pkg/resource"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "spacetravel-server",
		Short: "Host Space Travel flights over SSH",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept SSH sessions and serve health probes and metrics",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "Path to config file (default: ./spacetravel.{json,yaml})")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "spacetravel.json"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote default configuration to %s\n", path)
			return nil
		},
	})

	rootCmd.AddCommand(serveCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := logging.NewLogger()
	ctx := context.Background()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		logger.Error(ctx, "Failed to load configuration", err, "config_path", cfgFile)
		return err
	}

	bus := event.NewEventBus()
	bus.Subscribe(event.WorldBuilt, func(e event.Event) {
		if we, ok := e.(*event.WorldEvent); ok {
			logger.Info(ctx, "World built",
				"obstacles", we.Obstacles,
				"occupied", we.Occupied,
				"index_depth", we.IndexDepth,
				"build_time", we.BuildTime,
			)
		}
	})

	world, err := engine.NewWorld(cfg, logger, bus)
	if err != nil {
		logger.Error(ctx, "Failed to build world", err)
		return err
	}

	server := network.NewServer(world, bus, logger)
	monitor := resource.NewMonitor(resource.DefaultLimits(), logger)
	monitor.Sample()
	server.Health().AddCheck(resource.NewHealthCheck(monitor))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "Starting server",
		"address", cfg.Server.Address,
		"health_address", cfg.Server.HealthAddress,
		"max_sessions", cfg.Server.MaxSessions,
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return monitor.Run(gctx) })
	g.Go(func() error { return server.Serve(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(ctx, "Server failed", err)
		return err
	}
	logger.Info(ctx, "Server stopped")
	return nil
}
