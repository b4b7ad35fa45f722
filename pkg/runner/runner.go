package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/aretw0/guidebook"
	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/ports"
	"github.com/aretw0/guidebook/pkg/session"
)

// Runner drives one guidebook run from a terminal or a host process.
// It binds a profile to the engine, saves every answer as it is given and
// turns OS signals into a clean interruption.
type Runner struct {
	// Presenter answers decisions. Defaults to a TextPresenter on stdin/stdout.
	Presenter ports.Presenter

	// Profiles persists answers. If nil, the run is ephemeral.
	Profiles *session.Manager

	// Profile is the name of the profile to use.
	Profile string

	// Assertions pre-seed answers without overriding rejections.
	Assertions map[string]string

	// Logger is used for internal debug logging.
	Logger *slog.Logger

	// Output receives status messages. Nil in headless mode.
	Output io.Writer

	// EngineOptions are passed to guidebook.New.
	EngineOptions []guidebook.Option
}

// NewRunner creates a new Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Output: os.Stdout,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run loads the profile, runs the guidebook at leavesPath and persists the
// answers. An interrupted run returns domain.ErrInterrupted after cleanup.
func (r *Runner) Run(ctx context.Context, leavesPath string) error {
	signals := NewSignalManagerFrom(ctx)
	defer signals.Stop()
	ctx = signals.Context()

	state, err := r.loadState(ctx)
	if err != nil {
		return err
	}
	r.assert(state)

	// Every answer is saved when given, so an interrupted run keeps them.
	state.OnChange(func(key, _ string) {
		if err := r.save(context.WithoutCancel(ctx), state); err != nil {
			r.Logger.Warn("failed to save profile", "profile", r.Profile, "key", key, "err", err)
		}
	})

	presenter := r.Presenter
	if presenter == nil {
		presenter = NewTextPresenter(os.Stdin, r.Output)
	}

	opts := append([]guidebook.Option{}, r.EngineOptions...)
	opts = append(opts,
		guidebook.WithPresenter(presenter),
		guidebook.WithState(state),
	)
	eng, err := guidebook.New(leavesPath, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Close(context.WithoutCancel(ctx)); err != nil {
			r.Logger.Warn("cleanup failed", "err", err)
		}
	}()

	err = eng.Run(ctx)
	if err != nil && !errors.Is(err, domain.ErrInterrupted) {
		// Ctrl+C may surface as a failed read before the signal is seen.
		signals.CheckRace()
		if signals.Interrupted() {
			err = domain.ErrInterrupted
		}
	}

	if serr := r.save(context.WithoutCancel(ctx), state); serr != nil {
		err = errors.Join(err, fmt.Errorf("critical persistence error: %w", serr))
	}

	if errors.Is(err, domain.ErrInterrupted) {
		r.printf("\nInterrupted. Answers so far are kept in profile %q.\n", r.Profile)
	}
	return err
}

func (r *Runner) loadState(ctx context.Context) (*domain.ChoiceState, error) {
	if r.Profiles == nil {
		return domain.NewChoiceState(r.Profile), nil
	}
	state, err := r.Profiles.LoadOrCreate(ctx, r.Profile)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", r.Profile, err)
	}
	state.Touch()
	return state, nil
}

// assert applies the assertions in key order.
func (r *Runner) assert(state *domain.ChoiceState) {
	keys := make([]string, 0, len(r.Assertions))
	for k := range r.Assertions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !state.Set(k, r.Assertions[k], false) {
			r.Logger.Debug("assertion ignored, answer was rejected", "key", k)
		}
	}
}

func (r *Runner) save(ctx context.Context, state *domain.ChoiceState) error {
	if r.Profiles == nil || r.Profile == "" {
		return nil
	}
	if err := r.Profiles.Save(ctx, r.Profile, state); err != nil {
		return err
	}
	r.Logger.Debug("profile saved", "profile", r.Profile)
	return nil
}

func (r *Runner) printf(format string, args ...any) {
	if r.Output != nil {
		fmt.Fprintf(r.Output, format, args...)
	}
}
