package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/nodeboard"
)

func main() {
	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start mock collector (see mock_collector.go)
	if _, err := StartMockCollector(ctx, 8081); err != nil {
		slog.Error("failed to start mock collector", "error", err)
		os.Exit(1)
	}

	ep, err := nodeboard.NewEndpoint("http://localhost:8081/",
		nodeboard.WithTimeout(3*time.Second),
	)
	if err != nil {
		slog.Error("failed to create endpoint", "error", err)
		os.Exit(1)
	}

	// start the dashboard
	w, err := nodeboard.New(
		nodeboard.WithEndpoint(ep),
		nodeboard.WithPollingInterval(5*time.Second),
		nodeboard.WithPort(8080),
		nodeboard.WithTitle("Nodeboard Demo"),
		nodeboard.WithThemeNotifier(nodeboard.ThemeNotifierFunc(func(theme nodeboard.Theme) {
			slog.Info("theme changed", "theme", theme)
		})),
		nodeboard.WithCycleCallback(func(r nodeboard.CycleResult) {
			if r.Err != nil {
				slog.Warn("poll failed", "seq", r.Seq, "error", r.Err)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create watcher", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  Nodeboard Demo")
	fmt.Println()
	fmt.Println("  Dashboard:  http://localhost:8080")
	fmt.Println("  Collector:  http://localhost:8081/v1/collect/status")
	fmt.Println()
	fmt.Println("  Jobs start and stop every 10-30 seconds.")
	fmt.Println("  Try: curl 'http://localhost:8081/v1/collect/add?fsym=DOT&tsym=USD'")
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	if err := w.Start(ctx); err != nil {
		slog.Error("watcher error", "error", err)
		os.Exit(1)
	}
}
