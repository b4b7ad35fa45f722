package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/guidebook/internal/dto"
	"github.com/aretw0/guidebook/pkg/domain"
)

// Loader implements ports.LeafLoader over a fixed list of leaves.
type Loader struct {
	leaves []*domain.Leaf
}

// NewLoader creates a Loader serving the given leaves, in order.
func NewLoader(leaves ...*domain.Leaf) *Loader {
	return &Loader{leaves: leaves}
}

// NewFromJSON creates a Loader from a JSON leaf document.
// This handles decoding automatically, improving DX for tests.
func NewFromJSON(data []byte) (*Loader, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse leaf document: %w", err)
	}
	leaves, err := dto.DecodeDocument(raw)
	if err != nil {
		return nil, err
	}
	return &Loader{leaves: leaves}, nil
}

// Load returns a copy of every leaf so callers cannot alter the loader.
func (l *Loader) Load(ctx context.Context) ([]*domain.Leaf, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]*domain.Leaf, len(l.leaves))
	for i, leaf := range l.leaves {
		c := *leaf
		c.Nesting = append([]domain.Nesting(nil), leaf.Nesting...)
		out[i] = &c
	}
	return out, nil
}
