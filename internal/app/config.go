package app

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/xzbuild/internal/env"
	"github.com/specialistvlad/xzbuild/internal/project"
)

// Actions.
const (
	ActionList = "list"
	ActionTest = "test"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	RootDir string
	// Action is list, test, or a build action such as build or rebuildall.
	Action string
	// Selector picks projects for build actions; for list it names the
	// project whose dependency tree is shown.
	Selector string
	Target   string
	Platform string
	Threads  int
	Verbose  bool
	GProf    bool
	// Params are run parameters, key=value.
	Params map[string]string

	LogFormat string
	LogLevel  string
	// Sequential resolves projects one at a time.
	Sequential bool
}

// IsBuild reports whether the action runs the build executor.
func (c *Config) IsBuild() bool {
	_, _, ok := project.ParseMode(c.Action)
	return ok
}

func NewConfig(cfg Config) (*Config, error) {
	switch {
	case cfg.Action == ActionList, cfg.Action == ActionTest:
	case cfg.IsBuild():
		if cfg.Selector == "" {
			return nil, fmt.Errorf("action %q needs a project selector", cfg.Action)
		}
	case cfg.Action == "":
		return nil, errors.New("Action is a required configuration field and cannot be empty")
	default:
		return nil, fmt.Errorf("unknown action %q", cfg.Action)
	}

	switch cfg.Target {
	case "", env.TargetDebug, env.TargetRelease:
	default:
		return nil, fmt.Errorf("unknown target %q, expected Debug or Release", cfg.Target)
	}
	switch cfg.Platform {
	case "", env.PlatformX64, env.PlatformX86, env.PlatformARM64, env.PlatformARM:
	default:
		return nil, fmt.Errorf("unknown platform %q, expected x64, x86, ARM64 or ARM", cfg.Platform)
	}
	if cfg.Threads < 0 {
		return nil, fmt.Errorf("threads must not be negative, got %d", cfg.Threads)
	}
	if cfg.RootDir == "" {
		cfg.RootDir = "."
	}
	return &cfg, nil
}

// params merges the flag-backed facts into the run parameters.
func (c *Config) params() map[string]string {
	out := make(map[string]string, len(c.Params)+2)
	for k, v := range c.Params {
		out[k] = v
	}
	if c.Verbose {
		out[env.KeyVerbose] = "true"
	}
	if c.GProf {
		out[env.KeyGProf] = "true"
	}
	return out
}
