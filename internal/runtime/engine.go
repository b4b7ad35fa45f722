package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/aretw0/guidebook/internal/compiler"
	"github.com/aretw0/guidebook/internal/frontier"
	"github.com/aretw0/guidebook/internal/optimizer"
	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/memo"
	"github.com/aretw0/guidebook/pkg/ports"
)

// Engine drives a guidebook session: it asks for decisions until none is
// left and then executes the resolved tree.
type Engine struct {
	exec      ports.Executor
	presenter ports.Presenter
	state     *domain.ChoiceState
	memos     *memo.Memos
	optimizer *optimizer.Optimizer
	veto      []*regexp.Regexp
	hooks     domain.LifecycleHooks
	logger    *slog.Logger

	mu   sync.RWMutex
	root *domain.Sequence
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithVeto disables validation for nodes whose provenance matches a pattern.
func WithVeto(patterns ...*regexp.Regexp) Option {
	return func(e *Engine) {
		e.veto = append(e.veto, patterns...)
	}
}

// WithMemos shares an existing memoization context.
func WithMemos(m *memo.Memos) Option {
	return func(e *Engine) {
		e.memos = m
	}
}

// NewEngine creates an engine answering decisions with presenter and
// recording them in state. A nil state starts an anonymous profile.
func NewEngine(exec ports.Executor, presenter ports.Presenter, state *domain.ChoiceState, opts ...Option) *Engine {
	e := &Engine{
		exec:      exec,
		presenter: presenter,
		state:     state,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		root:      &domain.Sequence{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.state == nil {
		e.state = domain.NewChoiceState("")
	}
	if e.memos == nil {
		e.memos = memo.New(memo.WithLogger(e.logger))
	}
	e.optimizer = optimizer.New(exec, e.memos,
		optimizer.WithLogger(e.logger),
		optimizer.WithVeto(e.veto...),
		optimizer.WithLifecycleHooks(e.hooks),
	)
	return e
}

// Memos returns the memoization context of the session.
func (e *Engine) Memos() *memo.Memos { return e.memos }

// Load compiles leaves into the tree the engine works on.
func (e *Engine) Load(leaves []*domain.Leaf) *domain.Sequence {
	root := compiler.New(compiler.WithLogger(e.logger)).Compile(leaves)

	e.mu.Lock()
	e.root = root
	e.mu.Unlock()

	e.logger.Debug("compiled leaves", "leaves", len(leaves), "steps", len(root.Steps))
	return root
}

// Root returns the compiled, unoptimized tree.
func (e *Engine) Root() *domain.Sequence {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.root
}

// Run compiles leaves and drives the session to completion.
//
// Each round re-optimizes the compiled tree against the recorded answers and
// asks for the first decision of the frontier. Barrier prerequisites run
// before that decision is asked. Once no decision is left the tree is
// executed. Cancellation runs the pending cleanup and returns
// domain.ErrInterrupted.
func (e *Engine) Run(ctx context.Context, leaves []*domain.Leaf) error {
	e.Load(leaves)
	e.state.Touch()

	for {
		if ctx.Err() != nil {
			return e.interrupt(ctx)
		}

		tree, err := e.optimizer.Optimize(ctx, e.Root(), e.state)
		if err != nil {
			return e.fail(ctx, fmt.Errorf("optimize: %w", err))
		}

		entry, ok := e.next(tree)
		if !ok {
			e.logger.Debug("no decision left, executing")
			err := e.execute(ctx, tree)
			return e.finish(ctx, err)
		}

		if entry.HasBarrier() && pending(e.memos, entry.Prereqs) {
			e.logger.Debug("running barrier prerequisites", "context", entry.Choice.Context)
			for _, p := range entry.Prereqs {
				if err := e.execute(ctx, p); err != nil {
					return e.finish(ctx, err)
				}
			}
			continue
		}

		if err := e.decide(ctx, entry.Choice); err != nil {
			return e.fail(ctx, err)
		}
	}
}

// next returns the first frontier entry that carries a decision.
func (e *Engine) next(tree domain.Node) (domain.FrontierEntry, bool) {
	return frontier.Next(frontier.Find(tree))
}

// decide presents c and records the answer.
func (e *Engine) decide(ctx context.Context, c *domain.Choice) error {
	if e.presenter == nil {
		return fmt.Errorf("%w: %s", domain.ErrUnresolvedChoice, c.Context)
	}

	suggested, _ := e.state.Get(c.Context)
	answer, err := e.presenter.Decide(ctx, domain.NewDecision(c, suggested))
	if err != nil {
		return err
	}
	if err := checkAnswer(c, answer); err != nil {
		return err
	}
	return e.record(ctx, c.Context, answer)
}

func (e *Engine) record(ctx context.Context, key string, answer domain.Answer) error {
	e.state.Set(key, answer.Value, true)
	e.logger.Debug("decision recorded", "context", key, "answer", answer.Value)

	if e.hooks.OnDecision != nil {
		e.hooks.OnDecision(ctx, &domain.DecisionEvent{
			EventBase: e.event(domain.EventDecision),
			Context:   key,
			Answer:    answer.Value,
		})
	}
	return nil
}

// finish runs the pending finally tasks after the tree completed or failed.
func (e *Engine) finish(ctx context.Context, err error) error {
	if err != nil && (ctx.Err() != nil || errors.Is(err, domain.ErrInterrupted)) {
		return e.interrupt(ctx)
	}
	if ferr := e.runFinallies(ctx, e.memos.DrainFinallies()); ferr != nil {
		err = errors.Join(err, ferr)
	}
	return err
}

// fail reports an error raised outside execution, turning cancellation into
// an interruption.
func (e *Engine) fail(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, domain.ErrInterrupted) {
		return e.interrupt(ctx)
	}
	return err
}

func (e *Engine) event(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, Profile: e.state.Name()}
}
