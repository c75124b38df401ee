// Command server runs the canvas backend: the REST API, the websocket
// collaboration endpoint, and the room liveness monitor, all in one process.
//
// Configuration comes from the environment (see internal/config). The process
// shuts down gracefully on SIGINT or SIGTERM.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/taskmaster-io/backend/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
