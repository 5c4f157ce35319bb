package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/npratt/vtree/internal/bridge"
	"github.com/npratt/vtree/internal/events"
	"github.com/npratt/vtree/internal/shutdown"
	"github.com/npratt/vtree/internal/source"
	"github.com/npratt/vtree/internal/tree"
	"github.com/npratt/vtree/internal/tui"
)

// workerShutdownTimeout bounds how long the worker drains after a signal.
const workerShutdownTimeout = 5 * time.Second

const fileArgHelp = `FILE is a JSON or YAML tree (".yaml"/".yml" select YAML), or "-" for
JSON on stdin.`

func newFlattenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flatten FILE",
		Short: "Print the flattened, pre-order node sequence",
		Long:  "Print every node of the tree in pre-order with its level and path key.\n\n" + fileArgHelp,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			s, err := a.open(cmd, args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			flat := s.ctrl.Index().Flat()
			switch format {
			case FormatText:
				return writeNodes(a.stdout, flat)
			default:
				return writeStructured(a.stdout, format, flat)
			}
		},
	}
	addFormatFlag(cmd)
	return cmd
}

func newVisibleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visible FILE",
		Short: "Print the rows a viewport renders",
		Long: `Expand the requested nodes, scroll, and print the render window.

` + fileArgHelp,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			s, err := a.open(cmd, args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			if err := applyViewFlags(cmd, s); err != nil {
				return err
			}
			if err := s.settle(cmd.Context()); err != nil {
				return err
			}

			slice := s.ctrl.View()
			switch format {
			case FormatText:
				return writeSlice(a.stdout, slice)
			default:
				return writeStructured(a.stdout, format, slice)
			}
		},
	}
	addFormatFlag(cmd)
	cmd.Flags().StringSlice(FlagExpand, nil, "Node ids to expand (comma-separated)")
	cmd.Flags().Bool(FlagExpandAll, false, "Expand every node")
	cmd.Flags().Float64(FlagScroll, 0, "Scroll position")
	cmd.Flags().String(FlagScrollTo, "", "Scroll the least distance that shows this node")
	return cmd
}

// applyViewFlags expands and scrolls as the visible command's flags ask.
func applyViewFlags(cmd *cobra.Command, s *session) error {
	flags := cmd.Flags()
	expandAll, _ := flags.GetBool(FlagExpandAll)
	expand, _ := flags.GetStringSlice(FlagExpand)
	scroll, _ := flags.GetFloat64(FlagScroll)
	scrollTo, _ := flags.GetString(FlagScrollTo)

	if expandAll {
		s.ctrl.ExpandAll()
	}
	for _, id := range expand {
		if err := s.ctrl.SetExpanded(tree.NodeID(id), true); err != nil {
			return err
		}
	}
	if flags.Changed(FlagScroll) {
		s.ctrl.Scroll(scroll)
	}
	if scrollTo != "" {
		if err := s.ctrl.ScrollTo(tree.NodeID(scrollTo)); err != nil {
			return err
		}
	}
	return nil
}

func newSearchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search FILE QUERY",
		Short: "Print the nodes whose names match a query",
		Long: `Match QUERY against node names, case-insensitively and ignoring Unicode
normalization differences. With --fuzzy, QUERY's characters need only appear
in order.

` + fileArgHelp,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			s, err := a.open(cmd, args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			s.ctrl.Search(args[1])
			if err := s.settle(cmd.Context()); err != nil {
				return err
			}

			idx := s.ctrl.Index()
			matched := s.ctrl.Snapshot().Matched
			nodes := make([]tree.FlattenedNode, 0, len(matched))
			for _, id := range matched {
				if n, ok := idx.Node(id); ok {
					nodes = append(nodes, n)
				}
			}

			switch format {
			case FormatText:
				return writeNodes(a.stdout, nodes)
			default:
				return writeStructured(a.stdout, format, nodes)
			}
		},
	}
	addFormatFlag(cmd)
	return cmd
}

func newBrowseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse FILE",
		Short: "Browse a tree interactively",
		Long: `Open the tree in a terminal browser. Without a terminal the visible rows
are printed once instead.

With --watch the file is reloaded whenever it changes on disk.

` + fileArgHelp,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.browse(cmd, args[0])
		},
	}
	cmd.Flags().Bool(FlagWatch, false, "Reload the tree when the file changes")
	cmd.Flags().Bool(FlagExpandAll, false, "Start with every node expanded")
	return cmd
}

func (a *app) browse(cmd *cobra.Command, path string) error {
	ctx := cmd.Context()
	watch, _ := cmd.Flags().GetBool(FlagWatch)
	expandAll, _ := cmd.Flags().GetBool(FlagExpandAll)

	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}

	// Log to a file while the TUI owns the terminal.
	logger := a.logger
	if isTerminal() {
		logResult, err := SetupTUILogger(filepath.Dir(cfg.Paths.Log), a.logLevel, cfg.LogRotation)
		if err != nil {
			return err
		}
		defer func() { _ = logResult.Close() }()
		logger = logResult.Logger
		slog.SetDefault(logger)
	}

	s, err := openSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	sinkCtx, sinkCancel := context.WithCancel(ctx)
	defer sinkCancel()
	logSink := events.NewLogSink(cfg.Paths.Log, logger)
	if err := logSink.Start(sinkCtx, s.router.SubscribeTypes(events.LoggedTypes()...)); err != nil {
		return fmt.Errorf("start log sink: %w", err)
	}
	defer func() {
		sinkCancel()
		_ = logSink.Stop()
	}()

	tuiEvents := s.router.SubscribeBuffered(1000)
	defer s.router.Unsubscribe(tuiEvents)

	if err := s.load(ctx, path, a.stdin); err != nil {
		return err
	}
	if expandAll {
		s.ctrl.ExpandAll()
	}

	if watch {
		w := source.NewWatcher(path, s.ctrl.Reload, s.router, logger)
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		defer func() { _ = w.Stop() }()
	}

	logger.Info("browse starting", "version", version, "file", path, "watch", watch, "worker", cfg.Worker.Enabled)
	if err := s.settle(ctx); err != nil {
		return err
	}

	title := "vtree"
	if path != source.Stdin {
		title = filepath.Base(path)
	}
	return tui.New(s.ctrl, tuiEvents,
		tui.WithTitle(title),
		tui.WithOutput(a.stdout),
	).Run()
}

func newWorkerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:    "worker",
		Short:  "Serve compute requests on stdin and stdout",
		Long:   "Run the compute worker that the process worker mode spawns. Requests and\nresponses are JSON lines.",
		Args:   cobra.NoArgs,
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.v.GetBool(FlagVerbose) {
				a.logLevel.Set(slog.LevelDebug)
			}
			w := bridge.NewWorker(a.logger)
			return shutdown.Run(
				cmd.Context(),
				a.logger,
				workerShutdownTimeout,
				func(ctx context.Context) error {
					return w.ServeStream(ctx, a.stdin, a.stdout)
				},
				nil,
			)
		},
	}
}

// open loads configuration, starts a session, and installs the tree at path.
func (a *app) open(cmd *cobra.Command, path string) (*session, error) {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	s, err := openSession(cmd.Context(), cfg, a.logger)
	if err != nil {
		return nil, err
	}
	if err := s.load(cmd.Context(), path, a.stdin); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func addFormatFlag(cmd *cobra.Command) {
	cmd.Flags().StringP(FlagFormat, "o", FormatText, "Output format (text/json/yaml)")
}

var errUnknownFormat = errors.New("unknown output format")

func outputFormat(cmd *cobra.Command) (string, error) {
	format, _ := cmd.Flags().GetString(FlagFormat)
	switch format {
	case FormatText, FormatJSON, FormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("%w %q (want text, json, or yaml)", errUnknownFormat, format)
	}
}
