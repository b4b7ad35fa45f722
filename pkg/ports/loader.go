package ports

import (
	"context"

	"github.com/aretw0/guidebook/pkg/domain"
)

// LeafLoader supplies the leaves of a guidebook, each annotated with its
// nesting path. Parsing documents into leaves happens behind this port.
type LeafLoader interface {
	Load(ctx context.Context) ([]*domain.Leaf, error)
}
