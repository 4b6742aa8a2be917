// Command amour scores love-letter artifacts with an LLM critic and prints
// the fitness record consumed by the evolutionary search loop.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ahrav/go-amour/internal/application"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(application.Dependencies{}).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
