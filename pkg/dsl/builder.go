package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/guidebook/internal/validator"
	"github.com/aretw0/guidebook/pkg/adapters/memory"
	"github.com/aretw0/guidebook/pkg/domain"
)

// Builder collects leaves in declaration order.
type Builder struct {
	order  []*LeafBuilder
	leaves map[string]*LeafBuilder
}

// New creates a new leaf builder.
func New() *Builder {
	return &Builder{
		leaves: make(map[string]*LeafBuilder),
	}
}

// Leaf adds a top-level leaf.
// If the leaf already exists, it returns the existing builder.
func (b *Builder) Leaf(id string) *LeafBuilder {
	return b.root().Leaf(id)
}

// Choice opens a scope inside one part of a choice group.
func (b *Builder) Choice(group string, member int, title string) *Scope {
	return b.root().Choice(group, member, title)
}

// Multi opens a scope inside one option of a multiselect group.
func (b *Builder) Multi(group string, member int, title string) *Scope {
	return b.root().Multi(group, member, title)
}

// Field opens a scope inside one field of a form.
func (b *Builder) Field(group string, member int, name string, field domain.FormField) *Scope {
	return b.root().Field(group, member, name, field)
}

// Import opens a scope inside an imported document.
func (b *Builder) Import(key, title string) *Scope {
	return b.root().Import(key, title)
}

// Finally opens a scope for cleanup that runs after the import with the given key.
func (b *Builder) Finally(key, forKey string) *Scope {
	return b.root().Finally(key, forKey)
}

// Wizard opens a scope inside one step of a wizard.
func (b *Builder) Wizard(group string, member int, title string) *Scope {
	return b.root().Wizard(group, member, title)
}

// In opens a scope with arbitrary nesting descriptors, outermost first.
func (b *Builder) In(nesting ...domain.Nesting) *Scope {
	return b.root().In(nesting...)
}

func (b *Builder) root() *Scope {
	return &Scope{builder: b}
}

// Leaves returns the built leaves in declaration order.
func (b *Builder) Leaves() []*domain.Leaf {
	out := make([]*domain.Leaf, 0, len(b.order))
	for _, lb := range b.order {
		out = append(out, lb.Build())
	}
	return out
}

// Build lints the leaves and compiles them into a memory Loader.
// Lint warnings are not fatal.
func (b *Builder) Build() (*memory.Loader, error) {
	leaves := b.Leaves()
	if err := validator.Validate(leaves); err != nil {
		return nil, fmt.Errorf("failed to build leaves: %w", err)
	}
	if len(leaves) == 0 {
		return nil, errors.New("failed to build leaves: no leaves declared")
	}
	return memory.NewLoader(leaves...), nil
}

// Scope adds leaves under a fixed nesting path.
type Scope struct {
	builder *Builder
	path    []domain.Nesting
}

func (s *Scope) with(n domain.Nesting) *Scope {
	path := make([]domain.Nesting, 0, len(s.path)+1)
	path = append(path, s.path...)
	return &Scope{builder: s.builder, path: append(path, n)}
}

// Choice nests a part of a single-choice group.
func (s *Scope) Choice(group string, member int, title string) *Scope {
	return s.with(domain.ChoiceMembership{Group: group, Member: member, Title: title})
}

// Multi nests a part of a multiselect group.
func (s *Scope) Multi(group string, member int, title string) *Scope {
	return s.with(domain.ChoiceMembership{Group: group, Member: member, Title: title, Mode: domain.ChoiceMulti})
}

// Field nests a field of a form group.
func (s *Scope) Field(group string, member int, name string, field domain.FormField) *Scope {
	return s.with(domain.ChoiceMembership{Group: group, Member: member, Title: name, Mode: domain.ChoiceForm, Field: &field})
}

// Import nests an imported document.
func (s *Scope) Import(key, title string) *Scope {
	return s.with(domain.Import{Key: key, Title: title})
}

// Finally nests a cleanup task that runs after the import with the given key.
func (s *Scope) Finally(key, forKey string) *Scope {
	return s.with(domain.Import{Key: key, FinallyFor: forKey})
}

// Wizard nests a step of a wizard.
func (s *Scope) Wizard(group string, member int, title string) *Scope {
	return s.with(domain.WizardStep{Group: group, Member: member, Title: title})
}

// In nests arbitrary descriptors.
func (s *Scope) In(nesting ...domain.Nesting) *Scope {
	out := s
	for _, n := range nesting {
		out = out.with(n)
	}
	return out
}

// Leaf adds a leaf under the scope path.
// If the leaf already exists, it returns the existing builder unchanged.
func (s *Scope) Leaf(id string) *LeafBuilder {
	if lb, ok := s.builder.leaves[id]; ok {
		return lb
	}
	lb := &LeafBuilder{
		leaf: domain.Leaf{
			ID:      id,
			Nesting: append([]domain.Nesting(nil), s.path...),
		},
	}
	s.builder.leaves[id] = lb
	s.builder.order = append(s.builder.order, lb)
	return lb
}
