// Package config provides configuration types and defaults for vtree.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all configuration for vtree.
type Config struct {
	View        ViewConfig        `yaml:"view" mapstructure:"view"`
	Selection   SelectionConfig   `yaml:"selection" mapstructure:"selection"`
	Check       CheckConfig       `yaml:"check" mapstructure:"check"`
	Search      SearchConfig      `yaml:"search" mapstructure:"search"`
	Worker      WorkerConfig      `yaml:"worker" mapstructure:"worker"`
	Paths       PathsConfig       `yaml:"paths" mapstructure:"paths"`
	LogRotation LogRotationConfig `yaml:"log_rotation" mapstructure:"log_rotation"`
}

// ViewConfig holds viewport geometry. Heights are in abstract units; the
// terminal host measures in lines and overrides them.
type ViewConfig struct {
	RowHeight      float64 `yaml:"row_height" mapstructure:"row_height"`
	ViewportHeight float64 `yaml:"viewport_height" mapstructure:"viewport_height"`
	Buffer         int     `yaml:"buffer" mapstructure:"buffer"` // Overscan rows; negative = half a viewport
}

// SelectionConfig holds click selection behavior.
type SelectionConfig struct {
	Multiple bool `yaml:"multiple" mapstructure:"multiple"`
}

// CheckConfig holds checkbox behavior.
type CheckConfig struct {
	Cascade bool `yaml:"cascade" mapstructure:"cascade"` // Propagate checks to descendants and ancestors
}

// SearchConfig holds search behavior.
type SearchConfig struct {
	Fuzzy  bool `yaml:"fuzzy" mapstructure:"fuzzy"`
	Reveal bool `yaml:"reveal" mapstructure:"reveal"` // Expand ancestors of matches and scroll to the first
}

// Worker modes.
const (
	WorkerInProcess = "inprocess"
	WorkerProcess   = "process"
)

// WorkerConfig holds compute worker settings.
type WorkerConfig struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	Mode        string        `yaml:"mode" mapstructure:"mode"`           // "inprocess" or "process"
	Threshold   int           `yaml:"threshold" mapstructure:"threshold"` // Minimum node count before requests go to the worker
	InitTimeout time.Duration `yaml:"init_timeout" mapstructure:"init_timeout"`
	Command     []string      `yaml:"command" mapstructure:"command"` // Worker process argv; empty runs "<self> worker"
}

// PathsConfig holds file paths.
type PathsConfig struct {
	Log string `yaml:"log" mapstructure:"log"`
}

// LogRotationConfig holds settings for log file rotation.
type LogRotationConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `yaml:"compress" mapstructure:"compress"`
}

// Default returns a Config with the default settings.
func Default() *Config {
	return &Config{
		View: ViewConfig{
			RowHeight:      30,
			ViewportHeight: 600,
			Buffer:         -1,
		},
		Worker: WorkerConfig{
			Enabled:     true,
			Mode:        WorkerInProcess,
			Threshold:   1000,
			InitTimeout: 5 * time.Second,
			Command:     []string{},
		},
		Paths: PathsConfig{
			Log: ".vtree/vtree.log",
		},
		LogRotation: LogRotationConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

// ErrInvalidConfig is wrapped by every Validate error.
var ErrInvalidConfig = errors.New("invalid config")

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.View.RowHeight <= 0:
		return fmt.Errorf("%w: view.row_height must be positive, got %v", ErrInvalidConfig, c.View.RowHeight)
	case c.View.ViewportHeight < 0:
		return fmt.Errorf("%w: view.viewport_height must not be negative, got %v", ErrInvalidConfig, c.View.ViewportHeight)
	case c.Worker.Threshold < 0:
		return fmt.Errorf("%w: worker.threshold must not be negative, got %d", ErrInvalidConfig, c.Worker.Threshold)
	case c.Worker.InitTimeout < 0:
		return fmt.Errorf("%w: worker.init_timeout must not be negative, got %v", ErrInvalidConfig, c.Worker.InitTimeout)
	}
	switch c.Worker.Mode {
	case WorkerInProcess, WorkerProcess:
	default:
		return fmt.Errorf("%w: worker.mode must be %q or %q, got %q", ErrInvalidConfig, WorkerInProcess, WorkerProcess, c.Worker.Mode)
	}
	return nil
}
