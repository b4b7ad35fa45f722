package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrProfileNotFound is returned when a profile name cannot be found in the store.
var ErrProfileNotFound = errors.New("profile not found")

// ErrInterrupted is returned when a run is cancelled (signal or context).
// It is not an execution failure.
var ErrInterrupted = errors.New("interrupted")

// ErrUnresolvedChoice is returned when execution is attempted while a decision is still open.
var ErrUnresolvedChoice = errors.New("unresolved choice")

// ErrExpansionFailed is returned when an expand() command fails twice in a row.
var ErrExpansionFailed = errors.New("expansion failed")

// ExecError describes a subprocess that exited unsuccessfully.
type ExecError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode)
	if line := firstLine(e.Stderr); line != "" {
		msg += ": " + line
	}
	return msg
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
