// Package shutdown turns SIGINT/SIGTERM into a halt of the running
// evaluation.
package shutdown

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Halter is anything that can be asked to stop its current run.
type Halter interface {
	Halt()
}

// RunWithGracefulShutdown runs runner until it returns. On SIGINT or SIGTERM
// it halts h and gives the runner timeout to unwind before cancelling its
// context. The runner's own error is returned unchanged.
func RunWithGracefulShutdown(
	ctx context.Context,
	logger *slog.Logger,
	timeout time.Duration,
	h Halter,
	runner func(ctx context.Context) error,
) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	return runWithSignals(ctx, logger, timeout, sigChan, h, runner)
}

func runWithSignals(
	ctx context.Context,
	logger *slog.Logger,
	timeout time.Duration,
	sigChan <-chan os.Signal,
	h Halter,
	runner func(ctx context.Context) error,
) error {
	if logger == nil {
		logger = slog.Default()
	}

	// Create cancellable context for the runner
	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()

	runDone := make(chan error, 1)
	go func() {
		runDone <- runner(runCtx)
	}()

	select {
	case err := <-runDone:
		return err
	case sig := <-sigChan:
		logger.Info("received signal, halting run", "signal", sig)
		if h != nil {
			h.Halt()
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-runDone:
		return err
	case <-timer.C:
		logger.Warn("halt timeout exceeded, cancelling")
		runCancel()
	}

	err := <-runDone
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
