// Command winfault triages Windows crashes: it extracts crash facts from dump
// files, decodes event logs, correlates events around the crash instant, and
// optionally asks an LLM for a root-cause report.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/crimson-sun/winfault/internal/model"
)

// Exit codes: input problems (missing or malformed files) are distinguished
// from environment problems (no debugger, timeouts) so scripts can react.
const (
	exitInternal    = 1
	exitInput       = 2
	exitEnvironment = 3
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "\nreceived %v, shutting down...\n", sig)
		cancel()
	}()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "winfault: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case model.IsInputError(err):
		return exitInput
	case model.IsEnvironmentError(err):
		return exitEnvironment
	default:
		return exitInternal
	}
}
