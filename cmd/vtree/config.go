package main

// Flag names for Viper binding
const (
	// Global flags
	FlagVerbose = "verbose"
	FlagConfig  = "config"
	FlagLogFile = "log-file"

	// Worker flags
	FlagNoWorker   = "no-worker"
	FlagWorkerMode = "worker-mode"

	// Behavior flags
	FlagFuzzy    = "fuzzy"
	FlagReveal   = "reveal"
	FlagCascade  = "cascade"
	FlagMultiple = "multiple"

	// Geometry flags
	FlagRowHeight = "row-height"
	FlagViewport  = "viewport"
	FlagBuffer    = "buffer"

	// Command flags, read from the command's own flag set
	FlagFormat    = "format"
	FlagExpand    = "expand"
	FlagExpandAll = "expand-all"
	FlagScroll    = "scroll"
	FlagScrollTo  = "scroll-to"
	FlagWatch     = "watch"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)
