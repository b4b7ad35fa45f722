package guidebook

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/aretw0/guidebook/internal/runtime"
	"github.com/aretw0/guidebook/pkg/adapters/file"
	"github.com/aretw0/guidebook/pkg/adapters/process"
	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/memo"
	"github.com/aretw0/guidebook/pkg/ports"
)

// Engine is the high-level entry point for the Guidebook library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Engine struct {
	runtime   *runtime.Engine
	loader    ports.LeafLoader
	exec      ports.Executor
	presenter ports.Presenter
	state     *domain.ChoiceState
	veto      []*regexp.Regexp
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	Name      string

	loadOnce sync.Once
	leaves   []*domain.Leaf
	loadErr  error
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLoader injects a custom LeafLoader, bypassing the default file loader.
func WithLoader(l ports.LeafLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithExecutor injects the subprocess executor (default: local processes).
func WithExecutor(exec ports.Executor) Option {
	return func(e *Engine) {
		e.exec = exec
	}
}

// WithPresenter sets who answers decisions. Without one, Run fails on the
// first unanswered decision.
func WithPresenter(p ports.Presenter) Option {
	return func(e *Engine) {
		e.presenter = p
	}
}

// WithState starts the engine from a stored profile.
func WithState(state *domain.ChoiceState) Option {
	return func(e *Engine) {
		e.state = state
	}
}

// WithVeto disables validation of nodes whose provenance matches a pattern.
func WithVeto(patterns ...*regexp.Regexp) Option {
	return func(e *Engine) {
		e.veto = append(e.veto, patterns...)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New initializes a new Guidebook Engine.
// By default, it reads leaves from the file or directory at leavesPath.
// If WithLoader option is provided, leavesPath can be empty.
func New(leavesPath string, opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.loader == nil {
		if leavesPath == "" {
			return nil, fmt.Errorf("leavesPath is required when no custom loader is provided")
		}
		absPath, err := filepath.Abs(leavesPath)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		eng.Name = filepath.Base(absPath)
		eng.loader = file.NewLoader(absPath)
	} else if leavesPath != "" {
		eng.Name = filepath.Base(leavesPath)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("guidebook", eng.Name)
	}
	if eng.exec == nil {
		eng.exec = process.NewRunner(process.WithLogger(eng.logger))
	}
	if eng.state == nil {
		eng.state = domain.NewChoiceState(eng.Name)
	}

	eng.runtime = runtime.NewEngine(eng.exec, eng.presenter, eng.state,
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithVeto(eng.veto...),
	)
	return eng, nil
}

// Leaves loads the leaf list once and compiles it.
func (e *Engine) Leaves(ctx context.Context) ([]*domain.Leaf, error) {
	e.loadOnce.Do(func() {
		e.leaves, e.loadErr = e.loader.Load(ctx)
		if e.loadErr != nil {
			e.loadErr = fmt.Errorf("failed to load leaves: %w", e.loadErr)
			return
		}
		e.runtime.Load(e.leaves)
	})
	return e.leaves, e.loadErr
}

// Run asks every pending decision and executes the resolved guidebook.
// It returns domain.ErrInterrupted when ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	leaves, err := e.Leaves(ctx)
	if err != nil {
		return err
	}
	return e.runtime.Run(ctx, leaves)
}

// Plan returns the optimized tree, its frontier and status without running
// any leaf.
func (e *Engine) Plan(ctx context.Context) (*domain.Plan, error) {
	if _, err := e.Leaves(ctx); err != nil {
		return nil, err
	}
	return e.runtime.Plan(ctx)
}

// Status returns the status of the whole guidebook.
func (e *Engine) Status(ctx context.Context) (domain.Status, error) {
	if _, err := e.Leaves(ctx); err != nil {
		return domain.StatusBlank, err
	}
	return e.runtime.Status(ctx)
}

// Choose records an answer for the decision with context key.
func (e *Engine) Choose(ctx context.Context, key string, answer domain.Answer) error {
	if _, err := e.Leaves(ctx); err != nil {
		return err
	}
	return e.runtime.Choose(ctx, key, answer)
}

// Reject forgets the answer for key.
func (e *Engine) Reject(ctx context.Context, key string) error {
	return e.runtime.Reject(ctx, key)
}

// Choices returns the answers of the session.
func (e *Engine) Choices(ctx context.Context) (*domain.ChoiceState, error) {
	return e.runtime.Choices(ctx)
}

// Root returns the compiled, unoptimized tree.
func (e *Engine) Root(ctx context.Context) (*domain.Sequence, error) {
	if _, err := e.Leaves(ctx); err != nil {
		return nil, err
	}
	return e.runtime.Root(), nil
}

// Memos returns the memoization context of the session.
func (e *Engine) Memos() *memo.Memos {
	return e.runtime.Memos()
}

// Close runs pending cleanup tasks and stops background processes.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Loader returns the underlying LeafLoader used by the engine.
func (e *Engine) Loader() ports.LeafLoader {
	return e.loader
}

// State returns the profile the engine records answers in.
func (e *Engine) State() *domain.ChoiceState {
	return e.state
}

var _ ports.Planner = (*Engine)(nil)
