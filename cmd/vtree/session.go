package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/npratt/vtree/internal/bridge"
	"github.com/npratt/vtree/internal/config"
	"github.com/npratt/vtree/internal/controller"
	"github.com/npratt/vtree/internal/events"
	"github.com/npratt/vtree/internal/source"
	"github.com/npratt/vtree/internal/tree"
)

// settleTimeout bounds how long a one-shot command waits for the worker.
const settleTimeout = 30 * time.Second

// session is a controller with its router, for the lifetime of a command.
type session struct {
	cfg    *config.Config
	router *events.Router
	ctrl   *controller.Controller
	logger *slog.Logger
}

// spawnerFor returns the worker spawner cfg asks for, or nil when the
// worker is disabled.
func spawnerFor(cfg *config.Config, logger *slog.Logger) bridge.Spawner {
	if !cfg.Worker.Enabled {
		return nil
	}
	if cfg.Worker.Mode != config.WorkerProcess {
		return bridge.InProcess(bridge.NewWorker(logger.With("component", "worker")))
	}

	command := cfg.Worker.Command
	if len(command) == 0 {
		exe, err := os.Executable()
		if err != nil {
			return bridge.Unavailable(fmt.Errorf("locate executable: %w", err))
		}
		command = []string{exe, "worker"}
	}
	return bridge.Process{Command: command, Logger: logger.With("component", "worker")}
}

// openSession starts a controller and waits for its worker to settle. A
// worker that fails to start is logged; computation then stays in process.
func openSession(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*session, error) {
	router := events.NewRouter(events.DefaultBufferSize).WithLogger(logger)
	ctrl := controller.New(cfg, spawnerFor(cfg, logger), router, logger)

	if err := ctrl.Start(ctx); err != nil {
		router.Close()
		return nil, fmt.Errorf("start worker: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, cfg.Worker.InitTimeout+time.Second)
	defer cancel()
	state, err := ctrl.WaitReady(waitCtx)
	if err != nil {
		logger.Warn("worker did not settle", "state", state, "error", err)
	} else if cfg.Worker.Enabled && state != bridge.StateReady {
		logger.Warn("worker unavailable, computing in process", "state", state)
	} else {
		logger.Debug("worker settled", "state", state)
	}

	return &session{cfg: cfg, router: router, ctrl: ctrl, logger: logger}, nil
}

// load reads path, or stdin for "-", installs it as the tree, and waits for
// the worker to flatten it.
func (s *session) load(ctx context.Context, path string, stdin io.Reader) error {
	var roots []tree.TreeNode
	var err error
	if path == source.Stdin && stdin != nil {
		roots, err = source.LoadReader(stdin, tree.FormatJSON)
	} else {
		roots, err = source.Load(path)
	}
	if err != nil {
		return err
	}
	if err := s.ctrl.SetTree(roots); err != nil {
		return err
	}
	return s.settle(ctx)
}

// settle waits for outstanding worker results.
func (s *session) settle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	if err := s.ctrl.Settle(ctx); err != nil {
		return fmt.Errorf("wait for worker: %w", err)
	}
	return nil
}

func (s *session) Close() {
	if err := s.ctrl.Close(); err != nil {
		s.logger.Warn("close worker", "error", err)
	}
	s.router.Close()
	if dropped := s.router.Dropped(); dropped > 0 {
		s.logger.Warn("events dropped by slow subscribers", "count", dropped)
	}
	s.logger.Debug("session closed", "stats", s.ctrl.BridgeStats())
}
