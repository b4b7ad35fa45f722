package ports

import (
	"context"

	"github.com/aretw0/guidebook/pkg/domain"
)

// Session is the per-run context an Executor reads and writes.
// It is implemented by memo.Memos.
type Session interface {
	// Environ returns the process environment overlaid with captured variables.
	Environ() []string
	// SetEnv records a variable exported by a leaf.
	SetEnv(key, value string)
	// Track registers a running subprocess for cleanup.
	Track(h ProcessHandle)
	// Untrack removes a finished subprocess from the registry.
	Untrack(h ProcessHandle)
}

// ProcessHandle is a running subprocess.
type ProcessHandle interface {
	ID() string
	// Wait blocks until the process exits.
	Wait() error
	// Terminate asks the process to stop and kills it if it does not.
	// Terminating an exited process is a no-op.
	Terminate(ctx context.Context) error
}

// Executor spawns subprocesses.
type Executor interface {
	// Run executes req to completion. A non-zero exit is reported as a
	// *domain.ExecError alongside the result.
	Run(ctx context.Context, req domain.RunRequest, sess Session) (domain.RunResult, error)

	// Start launches req without waiting for it. The handle is tracked in sess.
	Start(ctx context.Context, req domain.RunRequest, sess Session) (ProcessHandle, error)
}
