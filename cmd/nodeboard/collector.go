package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/nodeboard/config"
	"github.com/jpalmerr/nodeboard/internal/collect"
)

// collectorCmd runs the collection registry service.
var collectorCmd = &cobra.Command{
	Use:   "collector",
	Short: "Run the collection registry service",
	Long: `Run the collection registry service described by the config's
collector section.

The service starts with the configured tasks and subscriptions and serves:
  GET  /v1/collect/status              running jobs
  GET  /v1/collect/add|remove|update   manage pull tasks
  POST|PUT|DELETE /v1/collect          manage pull tasks
  GET|POST /v1/ws/subscribe            start a streaming job
  GET|POST /v1/ws/unsubscribe          stop a streaming job

Example:
  nodeboard collector -c config.yaml`,
	RunE: runCollector,
}

func init() {
	rootCmd.AddCommand(collectorCmd)

	collectorCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	collectorCmd.Flags().Bool("debug", false, "log every request")
	_ = collectorCmd.MarkFlagRequired("config")
}

func runCollector(cmd *cobra.Command, args []string) error {
	debug, _ := cmd.Flags().GetBool("debug")
	logger := newLogger(debug)

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Collector == nil {
		return errors.New("config has no collector section")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := startCollector(ctx, cfg.Collector, logger); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("shutdown complete")
	return nil
}

// startCollector seeds a registry from cc and serves it until ctx is
// cancelled.
func startCollector(ctx context.Context, cc *config.CollectorConfig, logger *slog.Logger) error {
	gin.SetMode(gin.ReleaseMode)

	reg, err := config.BuildRegistry(cc)
	if err != nil {
		return fmt.Errorf("failed to seed registry: %w", err)
	}

	srv, err := collect.NewServer(reg, cc.Port, logger)
	if err != nil {
		return fmt.Errorf("failed to create collector: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start collector: %w", err)
	}

	logger.Info("collector started",
		"symbols", len(reg.Symbols().List()),
		"tasks", len(reg.ListTasks()),
		"subscriptions", len(reg.ListSubscriptions()),
	)
	return nil
}
