package optimizer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"

	"github.com/aretw0/guidebook/internal/expand"
	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/memo"
	"github.com/aretw0/guidebook/pkg/ports"
)

// Optimizer rewrites a compiled tree against the answers of a profile and the
// memoized state of the session. Every pass returns a new tree.
type Optimizer struct {
	exec     ports.Executor
	memos    *memo.Memos
	expander *expand.Expander
	veto     []*regexp.Regexp
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
}

// Option configures the Optimizer.
type Option func(*Optimizer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Optimizer) { o.logger = l }
}

// WithVeto prevents validation of nodes whose provenance matches any pattern.
func WithVeto(patterns ...*regexp.Regexp) Option {
	return func(o *Optimizer) { o.veto = append(o.veto, patterns...) }
}

// WithLifecycleHooks sets the observability hooks.
func WithLifecycleHooks(h domain.LifecycleHooks) Option {
	return func(o *Optimizer) { o.hooks = h }
}

// New creates an optimizer. exec may be nil, in which case validation
// commands are never run and dynamic expansions yield no options.
func New(exec ports.Executor, memos *memo.Memos, opts ...Option) *Optimizer {
	o := &Optimizer{
		exec:   exec,
		memos:  memos,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if o.memos == nil {
		o.memos = memo.New()
	}
	for _, opt := range opts {
		opt(o)
	}
	if exec != nil {
		o.expander = expand.New(exec, o.memos, expand.WithLogger(o.logger), expand.WithLifecycleHooks(o.hooks))
	}
	return o
}

// CompileVeto compiles --no-validate patterns.
func CompileVeto(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid veto pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Optimize runs the pipeline: prune, hoist, expand, collapse made choices,
// prune, collapse validated, prune, propagate titles.
// The result is nil when nothing is left to do.
func (o *Optimizer) Optimize(ctx context.Context, g domain.Node, state *domain.ChoiceState) (domain.Node, error) {
	n := Prune(g)
	n = Hoist(n)

	n, err := o.Expand(ctx, n)
	if err != nil {
		return nil, err
	}

	n = collapser{state: state, logger: o.logger}.collapse(n)
	n = Prune(n)

	n, err = o.CollapseValidated(ctx, n)
	if err != nil {
		return nil, err
	}
	n = Prune(n)

	return PropagateTitles(n), nil
}

// Expand resolves every expand() choice of the tree.
func (o *Optimizer) Expand(ctx context.Context, n domain.Node) (domain.Node, error) {
	if domain.IsNil(n) {
		return nil, nil
	}
	switch v := n.(type) {
	case *domain.Leaf:
		return v, nil
	case *domain.Sequence:
		steps, err := o.expandAll(ctx, v.Steps)
		if err != nil {
			return nil, err
		}
		return &domain.Sequence{Steps: steps}, nil
	case *domain.Parallel:
		branches, err := o.expandAll(ctx, v.Branches)
		if err != nil {
			return nil, err
		}
		return &domain.Parallel{Branches: branches}, nil
	case *domain.SubTask:
		body, err := o.Expand(ctx, v.Body)
		if err != nil {
			return nil, err
		}
		out := *v
		out.Body = domain.AsSequence(body)
		return &out, nil
	case *domain.TitledSteps:
		out := *v
		out.Steps = make([]domain.TitledStep, len(v.Steps))
		for i, s := range v.Steps {
			body, err := o.Expand(ctx, s.Body)
			if err != nil {
				return nil, err
			}
			s.Body = domain.AsSequence(body)
			out.Steps[i] = s
		}
		return &out, nil
	case *domain.Choice:
		var node domain.Node = v
		if _, ok := expand.Parse(v.Group); ok && !v.Expanded {
			if o.expander == nil {
				return nil, nil
			}
			expanded, err := o.expander.Expand(ctx, v)
			if err != nil {
				return nil, err
			}
			if _, still := expanded.(*domain.Choice); !still {
				return o.Expand(ctx, expanded)
			}
			node = expanded
		}
		ch := node.(*domain.Choice)
		out := *ch
		out.Parts = make([]domain.ChoicePart, len(ch.Parts))
		for i, p := range ch.Parts {
			body, err := o.Expand(ctx, p.Body)
			if err != nil {
				return nil, err
			}
			p.Body = domain.AsSequence(body)
			out.Parts[i] = p
		}
		return &out, nil
	}
	return n, nil
}

func (o *Optimizer) expandAll(ctx context.Context, nodes []domain.Node) ([]domain.Node, error) {
	out := make([]domain.Node, 0, len(nodes))
	for _, n := range nodes {
		r, err := o.Expand(ctx, n)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
