package config

import (
	"errors"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg == nil {
		t.Fatal("Default() returned nil")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() does not validate: %v", err)
	}
}

func TestDefaultViewConfig(t *testing.T) {
	cfg := Default()

	if cfg.View.RowHeight != 30 {
		t.Errorf("View.RowHeight = %v, want 30", cfg.View.RowHeight)
	}
	if cfg.View.ViewportHeight != 600 {
		t.Errorf("View.ViewportHeight = %v, want 600", cfg.View.ViewportHeight)
	}
	if cfg.View.Buffer >= 0 {
		t.Errorf("View.Buffer = %d, want negative (derived from viewport)", cfg.View.Buffer)
	}
}

func TestDefaultPolicies(t *testing.T) {
	cfg := Default()

	if cfg.Selection.Multiple {
		t.Error("Selection.Multiple should default to false")
	}
	if cfg.Check.Cascade {
		t.Error("Check.Cascade should default to false")
	}
	if cfg.Search.Fuzzy || cfg.Search.Reveal {
		t.Errorf("Search = %+v, want both disabled", cfg.Search)
	}
}

func TestDefaultWorkerConfig(t *testing.T) {
	cfg := Default()

	if !cfg.Worker.Enabled {
		t.Error("Worker.Enabled should default to true")
	}
	if cfg.Worker.Mode != WorkerInProcess {
		t.Errorf("Worker.Mode = %q, want %q", cfg.Worker.Mode, WorkerInProcess)
	}
	if cfg.Worker.Threshold != 1000 {
		t.Errorf("Worker.Threshold = %d, want 1000", cfg.Worker.Threshold)
	}
	if cfg.Worker.InitTimeout != 5*time.Second {
		t.Errorf("Worker.InitTimeout = %v, want 5s", cfg.Worker.InitTimeout)
	}
	if cfg.Worker.Command == nil {
		t.Error("Worker.Command is nil, want empty slice")
	}
}

func TestDefaultLogRotation(t *testing.T) {
	cfg := Default()

	if cfg.Paths.Log != ".vtree/vtree.log" {
		t.Errorf("Paths.Log = %q, want %q", cfg.Paths.Log, ".vtree/vtree.log")
	}
	if cfg.LogRotation.MaxSizeMB != 10 {
		t.Errorf("LogRotation.MaxSizeMB = %d, want 10", cfg.LogRotation.MaxSizeMB)
	}
	if cfg.LogRotation.MaxBackups != 3 {
		t.Errorf("LogRotation.MaxBackups = %d, want 3", cfg.LogRotation.MaxBackups)
	}
	if !cfg.LogRotation.Compress {
		t.Error("LogRotation.Compress should default to true")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "process mode", mutate: func(c *Config) { c.Worker.Mode = WorkerProcess }},
		{name: "zero viewport", mutate: func(c *Config) { c.View.ViewportHeight = 0 }},
		{name: "zero row height", mutate: func(c *Config) { c.View.RowHeight = 0 }, wantErr: true},
		{name: "negative row height", mutate: func(c *Config) { c.View.RowHeight = -1 }, wantErr: true},
		{name: "negative viewport", mutate: func(c *Config) { c.View.ViewportHeight = -10 }, wantErr: true},
		{name: "negative threshold", mutate: func(c *Config) { c.Worker.Threshold = -1 }, wantErr: true},
		{name: "negative init timeout", mutate: func(c *Config) { c.Worker.InitTimeout = -time.Second }, wantErr: true},
		{name: "unknown mode", mutate: func(c *Config) { c.Worker.Mode = "thread" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}
