package expand

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/memo"
	"github.com/aretw0/guidebook/pkg/ports"
	"github.com/google/uuid"
)

// Expander resolves the options of expand() choices by running a command.
type Expander struct {
	exec   ports.Executor
	memos  *memo.Memos
	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// Option configures the Expander.
type Option func(*Expander)

func WithLogger(l *slog.Logger) Option {
	return func(e *Expander) { e.logger = l }
}

func WithLifecycleHooks(h domain.LifecycleHooks) Option {
	return func(e *Expander) { e.hooks = h }
}

// New creates an Expander backed by exec and memoized in memos.
func New(exec ports.Executor, memos *memo.Memos, opts ...Option) *Expander {
	e := &Expander{
		exec:   exec,
		memos:  memos,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand replaces the template parts of c with one part per option.
//
// If the expression names an environment key already captured in the
// session, its value is the only option and the choice resolves directly to
// the instantiated body. A failed command yields nil: the choice vanishes
// until a later optimization retries it. Only context errors are returned.
func (e *Expander) Expand(ctx context.Context, c *domain.Choice) (domain.Node, error) {
	expr, ok := Parse(c.Group)
	if !ok || c.Expanded {
		return c, nil
	}

	if expr.EnvKey != "" {
		if v, ok := e.memos.Env(expr.EnvKey); ok {
			id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(c.Group+"="+v)).String()
			part := instantiate(c, v, id)
			e.emit(ctx, expr, 1, false)
			return part.Body, nil
		}
	}

	exp, err := e.memos.Expand(ctx, c.Group, func(ctx context.Context) ([]string, error) {
		return e.run(ctx, expr)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Debug("expansion yielded no options", "group", c.Group, "err", err)
		e.emit(ctx, expr, 0, true)
		return nil, nil
	}

	out := *c
	out.Expanded = true
	if expr.Message != "" {
		out.Title = expr.Message
	}
	out.Parts = make([]domain.ChoicePart, 0, len(exp.Options))
	for i, name := range exp.Options {
		p := instantiate(c, name, exp.UUID)
		p.Member = i + 1
		out.Parts = append(out.Parts, p)
	}
	e.emit(ctx, expr, len(out.Parts), false)
	return &out, nil
}

func (e *Expander) run(ctx context.Context, expr Expression) ([]string, error) {
	res, err := e.exec.Run(ctx, domain.RunRequest{ID: "expand:" + expr.Command, Command: expr.Command}, e.memos)
	if err != nil {
		return nil, err
	}
	var options []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			options = append(options, line)
		}
	}
	return options, nil
}

func (e *Expander) emit(ctx context.Context, expr Expression, n int, failed bool) {
	if e.hooks.OnExpand == nil {
		return
	}
	e.hooks.OnExpand(ctx, &domain.ExpandEvent{
		EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventExpand},
		Expression: expr.Raw,
		Options:    n,
		Failed:     failed,
	})
}

// instantiate clones the template parts of c into a single part titled name.
func instantiate(c *domain.Choice, name, id string) domain.ChoicePart {
	vars := domain.Placeholders(map[string]string{"choice": name, "uuid": id})
	tmpl := domain.ChoicePart{Body: &domain.Sequence{}}
	for i, p := range c.Parts {
		if i == 0 {
			tmpl.Description = p.Description
			tmpl.Field = p.Field
		}
		if p.Body != nil {
			tmpl.Body.Steps = append(tmpl.Body.Steps, p.Body.Steps...)
		}
	}
	part := domain.RewritePart(tmpl, vars)
	part.Title = name
	return part
}
