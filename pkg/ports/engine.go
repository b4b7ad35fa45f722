package ports

import (
	"context"

	"github.com/aretw0/guidebook/pkg/domain"
)

// Planner is the surface adapters (HTTP, MCP) drive.
// It never executes leaves, it only optimizes and records answers.
type Planner interface {
	// Plan optimizes the tree against the current answers.
	Plan(ctx context.Context) (*domain.Plan, error)

	// Choose records an answer for the choice with the given context.
	Choose(ctx context.Context, key string, answer domain.Answer) error

	// Reject removes an answer and prevents it from being written back.
	Reject(ctx context.Context, key string) error

	// Choices returns the answers of the active profile.
	Choices(ctx context.Context) (*domain.ChoiceState, error)
}
