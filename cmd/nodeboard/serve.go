package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/nodeboard"
	"github.com/jpalmerr/nodeboard/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// newLogger creates a JSON logger for CLI use.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// serveCmd starts the watcher and its dashboard.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch a collector and serve the dashboard",
	Long: `Start watching a collection service and serve the dashboard.

The server will:
  - Load configuration from the specified YAML file
  - Poll the collector's v1/collect/status endpoint
  - Serve the dashboard UI on the configured port

With --with-collector the collection registry from the config's collector
section runs in the same process.

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  nodeboard serve -c config.yaml
  nodeboard serve --config /etc/nodeboard/config.yaml --with-collector`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	serveCmd.Flags().Bool("with-collector", false, "also run the collection registry service")
	serveCmd.Flags().Bool("debug", false, "log every poll cycle")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	debug, _ := cmd.Flags().GetBool("debug")
	logger := newLogger(debug)

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	withCollector, _ := cmd.Flags().GetBool("with-collector")
	if withCollector && cfg.Collector == nil {
		return errors.New("--with-collector requires a collector section in the config")
	}

	opts, err := config.BuildOptions(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build options: %w", err)
	}

	w, err := nodeboard.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	logger.Info("starting server",
		"port", cfg.Port,
		"status_url", w.Endpoint().URL(),
		"poll_interval", cfg.PollInterval.Duration().String(),
	)

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if withCollector {
		if err := startCollector(ctx, cfg.Collector, logger); err != nil {
			return err
		}
	}

	// start watcher - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- w.Start(ctx)
	}()

	return awaitShutdown(ctx, errChan, logger)
}

// awaitShutdown waits for the running service to return, bounding the
// wait once a signal has been received.
func awaitShutdown(ctx context.Context, errChan <-chan error, logger *slog.Logger) error {
	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
