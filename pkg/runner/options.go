package runner

import (
	"io"
	"log/slog"

	"github.com/aretw0/guidebook"
	"github.com/aretw0/guidebook/pkg/ports"
	"github.com/aretw0/guidebook/pkg/session"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithPresenter configures who answers decisions.
func WithPresenter(p ports.Presenter) Option {
	return func(r *Runner) {
		r.Presenter = p
	}
}

// WithProfiles configures profile persistence.
func WithProfiles(m *session.Manager) Option {
	return func(r *Runner) {
		r.Profiles = m
	}
}

// WithProfile sets the profile name.
func WithProfile(name string) Option {
	return func(r *Runner) {
		r.Profile = name
	}
}

// WithAssertions pre-seeds answers. Rejected answers are left alone.
func WithAssertions(assertions map[string]string) Option {
	return func(r *Runner) {
		r.Assertions = assertions
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.Logger = logger
		}
	}
}

// WithOutput sets where status messages go. Nil silences them.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		r.Output = w
	}
}

// WithEngineOptions configures the engine of the run.
func WithEngineOptions(opts ...guidebook.Option) Option {
	return func(r *Runner) {
		r.EngineOptions = append(r.EngineOptions, opts...)
	}
}
