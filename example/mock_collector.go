package main

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/jpalmerr/nodeboard/internal/collect"
)

var (
	demoFrom = []string{"BTC", "ETH", "XRP", "ADA"}
	demoTo   = []string{"USD", "EUR", "JPY"}
)

// StartMockCollector runs a collection registry on port whose jobs change
// every 10-30 seconds, so the dashboard has something to show.
func StartMockCollector(ctx context.Context, port int) (*collect.Registry, error) {
	reg := collect.NewRegistry()
	reg.AddTask("BTC", "USD", 60)
	reg.AddTask("BTC", "EUR", 30)
	reg.Subscribe("ETH", "USD")

	srv, err := collect.NewServer(reg, port, slog.Default())
	if err != nil {
		return nil, err
	}
	if err := srv.Start(ctx); err != nil {
		return nil, err
	}

	go churn(ctx, reg)
	return reg, nil
}

// churn toggles a random pair between pulled, streamed and stopped.
func churn(ctx context.Context, reg *collect.Registry) {
	for {
		wait := time.Duration(10+rand.Intn(21)) * time.Second
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		from := demoFrom[rand.Intn(len(demoFrom))]
		to := demoTo[rand.Intn(len(demoTo))]

		switch {
		case reg.RemoveTask(from, to):
			slog.Info("task stopped", "from", from, "to", to)
		case reg.Unsubscribe(from, to) == nil:
			slog.Info("subscription stopped", "from", from, "to", to)
		case rand.Intn(2) == 0:
			reg.AddTask(from, to, int64(15*(1+rand.Intn(4))))
			slog.Info("task started", "from", from, "to", to)
		default:
			reg.Subscribe(from, to)
			slog.Info("subscription started", "from", from, "to", to)
		}
	}
}
