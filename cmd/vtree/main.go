package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/npratt/vtree/internal/config"
)

var version = "dev"

// app holds what every command shares: the logger, its level, and the
// viper instance flags are bound to.
type app struct {
	logLevel *slog.LevelVar
	logger   *slog.Logger
	v        *viper.Viper
	stdin    io.Reader
	stdout   io.Writer
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	logLevel := &slog.LevelVar{}
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	return &app{
		logLevel: logLevel,
		logger:   SetupLoggerWithWriter(stderr, logLevel),
		v:        v,
		stdin:    stdin,
		stdout:   stdout,
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vtree",
		Short: "Virtualized tree engine",
		Long: `vtree flattens nested tree data, resolves which nodes are visible under the
current expansion, and cuts the rows that intersect a scrolling viewport.

Large trees are computed by a worker, in-process or as a "vtree worker"
subprocess, and the newest answer for each kind of request wins.`,
		SilenceUsage: true,
	}

	// Persistent flags available to all commands
	pf := rootCmd.PersistentFlags()
	pf.Bool(FlagVerbose, false, "Enable verbose (debug) logging")
	pf.String(FlagConfig, "", "Config file path (default: .vtree/config.yaml)")
	pf.String(FlagLogFile, "", "Event log file path")
	pf.Bool(FlagNoWorker, false, "Compute everything on the calling goroutine")
	pf.String(FlagWorkerMode, config.WorkerInProcess, "Worker mode (inprocess/process)")
	pf.Bool(FlagFuzzy, false, "Rank search results by fuzzy match")
	pf.Bool(FlagReveal, false, "Expand the ancestors of search matches")
	pf.Bool(FlagCascade, false, "Cascade checks to descendants and ancestors")
	pf.Bool(FlagMultiple, false, "Toggle clicked nodes in a multiple selection")
	pf.Float64(FlagRowHeight, 0, "Row height")
	pf.Float64(FlagViewport, 0, "Viewport height")
	pf.Int(FlagBuffer, -1, "Overscan rows (negative: half a viewport)")

	// Bind all flags to viper
	pf.VisitAll(func(f *pflag.Flag) {
		_ = a.v.BindPFlag(f.Name, f)
	})

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(a.stdout, "vtree %s\n", version)
		},
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newFlattenCmd(a))
	rootCmd.AddCommand(newVisibleCmd(a))
	rootCmd.AddCommand(newSearchCmd(a))
	rootCmd.AddCommand(newBrowseCmd(a))
	rootCmd.AddCommand(newWorkerCmd(a))
	return rootCmd
}

// loadConfig loads configuration files and applies the flags set on cmd.
func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if a.v.GetBool(FlagVerbose) {
		a.logLevel.Set(slog.LevelDebug)
		a.logger.Debug("verbose logging enabled")
	}

	cfg, err := config.LoadConfig(a.v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// Apply CLI flag overrides (only if explicitly set)
	flags := cmd.Flags()
	if flags.Changed(FlagLogFile) {
		cfg.Paths.Log = a.v.GetString(FlagLogFile)
	}
	if flags.Changed(FlagNoWorker) {
		cfg.Worker.Enabled = !a.v.GetBool(FlagNoWorker)
	}
	if flags.Changed(FlagWorkerMode) {
		cfg.Worker.Mode = a.v.GetString(FlagWorkerMode)
	}
	if flags.Changed(FlagFuzzy) {
		cfg.Search.Fuzzy = a.v.GetBool(FlagFuzzy)
	}
	if flags.Changed(FlagReveal) {
		cfg.Search.Reveal = a.v.GetBool(FlagReveal)
	}
	if flags.Changed(FlagCascade) {
		cfg.Check.Cascade = a.v.GetBool(FlagCascade)
	}
	if flags.Changed(FlagMultiple) {
		cfg.Selection.Multiple = a.v.GetBool(FlagMultiple)
	}
	if flags.Changed(FlagRowHeight) {
		cfg.View.RowHeight = a.v.GetFloat64(FlagRowHeight)
	}
	if flags.Changed(FlagViewport) {
		cfg.View.ViewportHeight = a.v.GetFloat64(FlagViewport)
	}
	if flags.Changed(FlagBuffer) {
		cfg.View.Buffer = a.v.GetInt(FlagBuffer)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	rootCmd := newRootCmd(a)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		a.logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
