// File: main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sevren0x/cartpilot/cmd"
	"github.com/sevren0x/cartpilot/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Interrupted runs exit cleanly.
			os.Exit(0)
		}
		os.Exit(1)
	}
}
