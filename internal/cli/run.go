package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultRuntimesFile is looked up next to the leaves when no runtimes file is given.
const DefaultRuntimesFile = "runtimes.yaml"

// DefaultProfile is the profile used when none is named.
const DefaultProfile = "default"

// RunOptions contains the configuration shared by every command that loads a guidebook.
type RunOptions struct {
	LeavesPath   string
	Profile      string
	Store        StoreOptions
	Assertions   []string // key=value
	NoValidate   []string // provenance regexps
	RuntimesPath string
	Debug        bool
	JSON         bool
	Watch        bool
	Fresh        bool
	MetricsAddr  string
}

// Execute handles the 'run' command logic, dispatching to session or watch mode.
func Execute(ctx context.Context, opts RunOptions) error {
	opts = withDefaults(opts)

	if opts.Watch {
		if opts.JSON {
			return fmt.Errorf("--watch and --json cannot be used together")
		}
		return RunWatch(ctx, opts)
	}
	return RunSession(ctx, opts)
}

// withDefaults fills the profile name and picks up a runtimes file sitting
// next to the leaves.
func withDefaults(opts RunOptions) RunOptions {
	if opts.Profile == "" {
		opts.Profile = DefaultProfile
	}
	if opts.RuntimesPath == "" && opts.LeavesPath != "" {
		candidate := filepath.Join(leavesDir(opts.LeavesPath), DefaultRuntimesFile)
		if _, err := os.Stat(candidate); err == nil {
			opts.RuntimesPath = candidate
		}
	}
	return opts
}

// leavesDir is the directory subprocesses run in: the leaves directory
// itself, or the directory holding the leaves file.
func leavesDir(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return abs
	}
	return filepath.Dir(abs)
}
