package ports

import (
	"context"

	"github.com/aretw0/guidebook/pkg/domain"
)

// ProfileStore persists ChoiceState profiles.
// Profiles are the durable part of a run: answers survive between invocations.
type ProfileStore interface {
	// Save persists the state under the given profile name.
	Save(ctx context.Context, name string, state *domain.ChoiceState) error

	// Load retrieves a profile.
	// Returns domain.ErrProfileNotFound if the profile does not exist.
	Load(ctx context.Context, name string) (*domain.ChoiceState, error)

	// Delete removes a profile. Deleting a missing profile is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of the stored profiles.
	List(ctx context.Context) ([]string, error)
}
