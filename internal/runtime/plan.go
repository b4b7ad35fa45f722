package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/guidebook/internal/expand"
	"github.com/aretw0/guidebook/internal/frontier"
	"github.com/aretw0/guidebook/internal/progress"
	"github.com/aretw0/guidebook/pkg/domain"
)

// Plan optimizes the compiled tree against the recorded answers without
// executing anything.
func (e *Engine) Plan(ctx context.Context) (*domain.Plan, error) {
	tree, err := e.optimizer.Optimize(ctx, e.Root(), e.state)
	if err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}
	return &domain.Plan{
		Tree:     tree,
		Frontier: frontier.Find(tree),
		Status:   progress.StatusOf(e.Root(), e.memos, e.state),
	}, nil
}

// Status returns the status of the compiled tree. Choices with exactly one
// succeeded part are recorded as answered.
func (e *Engine) Status(ctx context.Context) (domain.Status, error) {
	if err := ctx.Err(); err != nil {
		return domain.StatusBlank, err
	}
	return progress.StatusOf(e.Root(), e.memos, e.state), nil
}

// Choose records answer for the choice with context key. It overrides a
// previous rejection.
func (e *Engine) Choose(ctx context.Context, key string, answer domain.Answer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c := e.find(key); c != nil {
		if err := checkAnswer(c, answer); err != nil {
			return err
		}
	}
	return e.record(ctx, key, answer)
}

// Reject forgets the answer of key and keeps it from being inferred again.
func (e *Engine) Reject(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.state.Remove(key)
	e.logger.Debug("decision rejected", "context", key)
	return nil
}

// Choices returns the answers of the session.
func (e *Engine) Choices(ctx context.Context) (*domain.ChoiceState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.state, nil
}

// find returns the static choice with context key in the compiled tree.
// Options of expand() groups are only known after optimization.
func (e *Engine) find(key string) *domain.Choice {
	var found *domain.Choice
	domain.Walk(e.Root(), func(n domain.Node) bool {
		if found != nil {
			return false
		}
		if c, ok := n.(*domain.Choice); ok && c.Context == key {
			if _, dynamic := expand.Parse(c.Group); !dynamic {
				found = c
			}
		}
		return true
	})
	return found
}
