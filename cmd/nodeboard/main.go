// Package main is the entry point for the nodeboard CLI.
//
// nodeboard can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	nodeboard serve -c config.yaml     # Watch a collector and serve the dashboard
//	nodeboard collector -c config.yaml # Run the collection registry service
//	nodeboard validate -c config.yaml  # Validate configuration
//	nodeboard render status.json       # Render a status document once
//	nodeboard version                  # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "nodeboard",
	Short: "A live view of running data collection jobs",
	Long: `nodeboard watches a data collection service and shows which currency
pairs it is collecting.

It polls v1/collect/status every few seconds and renders the running jobs
into a web page, pushing updates to browsers over WebSocket or
Server-Sent Events.

Quick start:
  1. Create a config file (nodeboard.yaml)
  2. Run: nodeboard serve -c nodeboard.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  port: 8080
  poll_interval: 5s
  status:
    base_url: http://localhost:8081/`,
	SilenceUsage:      true,
	PersistentPreRunE: loadEnvFile,
}

// loadEnvFile loads the --env-file dotenv file, if given, before any
// config is read. Variables already set in the environment win.
func loadEnvFile(cmd *cobra.Command, args []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this nodeboard binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "nodeboard %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().String("env-file", "", "dotenv file to load before reading config")
	rootCmd.AddCommand(versionCmd)
}
