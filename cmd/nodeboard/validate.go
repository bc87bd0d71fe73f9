package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/nodeboard/config"
)

// validateCmd validates a config file without starting anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a nodeboard configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  nodeboard validate -c config.yaml
  nodeboard validate --config /etc/nodeboard/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")

	if cfg.Status.BaseURL != "" {
		ep, err := config.BuildEndpoint(cfg)
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		fmt.Fprintf(out, "  Port:          %d\n", cfg.Port)
		fmt.Fprintf(out, "  Poll interval: %s\n", cfg.PollInterval.Duration())
		fmt.Fprintf(out, "  Status URL:    %s\n", ep.URL())
		fmt.Fprintf(out, "  Theme:         %s\n", cfg.Theme())
	}

	if cfg.Collector != nil {
		reg, err := config.BuildRegistry(cfg.Collector)
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		fmt.Fprintf(out, "  Collector:     port %d, %d tasks, %d subscriptions\n",
			cfg.Collector.Port, len(reg.ListTasks()), len(reg.ListSubscriptions()))
	}

	return nil
}
