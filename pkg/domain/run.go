package domain

import "time"

// RunRequest describes a subprocess to spawn.
//
// When Command is set it is run through the shell and Body, if any, is fed
// on stdin. Otherwise Body is run with the runtime configured for Lang.
type RunRequest struct {
	ID         string
	Lang       string
	Body       string
	Command    string
	CaptureEnv bool
}

// RunResult is the outcome of a finished subprocess.
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration

	// Env holds the variables exported by the body when CaptureEnv was requested.
	Env map[string]string
}

// LeafRequest builds the RunRequest of a leaf.
func LeafRequest(l *Leaf) RunRequest {
	return RunRequest{
		ID:         l.ID,
		Lang:       l.Lang,
		Body:       l.Body,
		Command:    l.Exec,
		CaptureEnv: l.CaptureEnv,
	}
}

// ValidationRequest builds the RunRequest of a validation command.
func ValidationRequest(v *Validation) RunRequest {
	return RunRequest{ID: v.Key(), Command: v.Command}
}
