// Package shutdown stops long-running commands cleanly on SIGINT or SIGTERM.
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

// ErrTimeout is returned when the runner outlives the shutdown timeout.
var ErrTimeout = errors.New("shutdown timeout exceeded")

// Run calls runner and blocks until it returns or SIGINT/SIGTERM arrives.
// On a signal the runner's context is cancelled, cleanup (if non-nil) is
// called, and Run waits up to timeout for the runner to return. A runner
// that stops with context.Canceled after a signal has exited cleanly.
func Run(
	ctx context.Context,
	logger *slog.Logger,
	timeout time.Duration,
	runner func(ctx context.Context) error,
	cleanup func(ctx context.Context) error,
) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	return run(ctx, logger, timeout, sigChan, runner, cleanup)
}

func run(
	ctx context.Context,
	logger *slog.Logger,
	timeout time.Duration,
	signals <-chan os.Signal,
	runner func(ctx context.Context) error,
	cleanup func(ctx context.Context) error,
) error {
	if logger == nil {
		logger = slog.Default()
	}
	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()

	runDone := make(chan error, 1)
	go func() {
		runDone <- runner(runCtx)
	}()

	select {
	case err := <-runDone:
		return err

	case sig := <-signals:
		logger.Info("received signal, shutting down", "signal", sig)
		runCancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			if err := cleanup(shutdownCtx); err != nil {
				logger.Error("shutdown cleanup failed", "error", err)
			}
		}

		select {
		case err := <-runDone:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
		case <-shutdownCtx.Done():
			logger.Warn("shutdown timeout exceeded", "timeout", timeout)
			return ErrTimeout
		}
		logger.Info("shutdown complete")
		return nil
	}
}
