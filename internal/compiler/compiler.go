package compiler

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/guidebook/internal/optimizer"
	"github.com/aretw0/guidebook/pkg/domain"
)

// Compiler assembles the decision tree from leaves annotated with nesting paths.
type Compiler struct {
	logger *slog.Logger
}

// Option configures the Compiler.
type Option func(*Compiler)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// New creates a new compiler instance.
func New(opts ...Option) *Compiler {
	c := &Compiler{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile builds a tree with the default compiler.
func Compile(leaves []*domain.Leaf) *domain.Sequence {
	return New().Compile(leaves)
}

// frame is one materialized ancestor on the current nesting stack.
type frame struct {
	desc domain.Nesting
	node domain.Node      // *Choice, *SubTask or *TitledSteps
	body *domain.Sequence // where deeper nodes and leaves are appended
}

type build struct {
	root     *domain.Sequence
	stack    []frame
	contexts map[string]int
}

// Compile places every leaf, in order, under its nesting path.
//
// Each leaf path is compared to the stack left by the previous leaf. Frames
// are shared up to the first differing depth. At that depth a Choice or a
// TitledSteps of the same group gains a part (if it is still the last child
// of its parent), otherwise a new node is appended. The tree is pruned before
// it is returned, and the root is always a Sequence.
func (c *Compiler) Compile(leaves []*domain.Leaf) *domain.Sequence {
	b := &build{root: &domain.Sequence{}, contexts: make(map[string]int)}
	for _, l := range leaves {
		if l == nil {
			continue
		}
		b.place(l)
	}
	c.logger.Debug("compiled leaves", "leaves", len(leaves), "choices", len(b.contexts))
	return domain.AsSequence(optimizer.Prune(b.root))
}

func (b *build) place(l *domain.Leaf) {
	path := descriptors(l.Nesting)
	d := 0
	for d < len(path) && d < len(b.stack) && sameFrame(b.stack[d].desc, path[d]) {
		d++
	}

	next := append([]frame(nil), b.stack[:d]...)
	for i := d; i < len(path); i++ {
		parent := b.root
		if i > 0 {
			parent = next[i-1].body
		}

		if i == d && i < len(b.stack) && sameGroup(b.stack[i].desc, path[i]) && isTail(parent, b.stack[i].node) {
			next = append(next, b.extend(b.stack[i].node, path[i]))
			continue
		}
		f, ok := b.open(path[i])
		if !ok {
			continue
		}
		parent.Steps = append(parent.Steps, f.node)
		next = append(next, f)
	}

	target := b.root
	if len(next) > 0 {
		target = next[len(next)-1].body
	}
	target.Steps = append(target.Steps, l)
	b.stack = next
}

// open materializes a new ancestor node for desc.
func (b *build) open(desc domain.Nesting) (frame, bool) {
	switch d := desc.(type) {
	case domain.ChoiceMembership:
		mode := d.Mode
		if mode == "" {
			mode = domain.ChoiceSingle
		}
		ch := &domain.Choice{
			Group:       d.Group,
			Context:     b.context(d.Group),
			Title:       d.ChoiceTitle,
			Description: d.ChoiceDescription,
			Origin:      append([]string(nil), d.Origin...),
			Mode:        mode,
		}
		return b.extend(ch, desc), true
	case domain.WizardStep:
		ts := &domain.TitledSteps{Group: d.Group, Title: d.WizardTitle}
		return b.extend(ts, desc), true
	case domain.Import:
		st := &domain.SubTask{
			Key:              d.Key,
			Group:            d.Group,
			Title:            d.Title,
			Description:      d.Description,
			Filepath:         d.Filepath,
			Barrier:          d.Barrier,
			Validate:         d.Validate,
			IdempotencyGroup: d.IdempotencyGroup,
			FinallyFor:       d.FinallyFor,
			Body:             &domain.Sequence{},
		}
		return frame{desc: desc, node: st, body: st.Body}, true
	}
	return frame{}, false
}

// extend adds (or reuses) the part or step of node selected by desc.
func (b *build) extend(node domain.Node, desc domain.Nesting) frame {
	switch n := node.(type) {
	case *domain.Choice:
		d, _ := desc.(domain.ChoiceMembership)
		if n.Title == "" {
			n.Title = d.ChoiceTitle
		}
		if n.Description == "" {
			n.Description = d.ChoiceDescription
		}
		n.Origin = mergeOrigin(n.Origin, d.Origin)
		for _, p := range n.Parts {
			if p.Member == d.Member {
				return frame{desc: desc, node: n, body: p.Body}
			}
		}
		body := &domain.Sequence{}
		n.Parts = append(n.Parts, domain.ChoicePart{
			Title:       d.Title,
			Description: d.Description,
			Member:      d.Member,
			Body:        body,
			Field:       d.Field,
		})
		return frame{desc: desc, node: n, body: body}
	case *domain.TitledSteps:
		d, _ := desc.(domain.WizardStep)
		if n.Title == "" {
			n.Title = d.WizardTitle
		}
		for _, s := range n.Steps {
			if s.Member == d.Member {
				return frame{desc: desc, node: n, body: s.Body}
			}
		}
		body := &domain.Sequence{}
		n.Steps = append(n.Steps, domain.TitledStep{Title: d.Title, Member: d.Member, Body: body})
		return frame{desc: desc, node: n, body: body}
	}
	return frame{desc: desc, node: node, body: &domain.Sequence{}}
}

// descriptors returns path with pointer descriptors dereferenced. Nil and
// unknown entries are skipped.
func descriptors(path []domain.Nesting) []domain.Nesting {
	out := make([]domain.Nesting, 0, len(path))
	for _, n := range path {
		switch d := n.(type) {
		case domain.ChoiceMembership, domain.WizardStep, domain.Import:
			out = append(out, d)
		case *domain.ChoiceMembership:
			if d != nil {
				out = append(out, *d)
			}
		case *domain.WizardStep:
			if d != nil {
				out = append(out, *d)
			}
		case *domain.Import:
			if d != nil {
				out = append(out, *d)
			}
		}
	}
	return out
}

// context disambiguates repeated occurrences of a group: g, g#2, g#3...
func (b *build) context(group string) string {
	b.contexts[group]++
	if n := b.contexts[group]; n > 1 {
		return fmt.Sprintf("%s#%d", group, n)
	}
	return group
}

// sameFrame reports whether two descriptors select the same materialized node part.
func sameFrame(a, b domain.Nesting) bool {
	switch x := a.(type) {
	case domain.ChoiceMembership:
		y, ok := b.(domain.ChoiceMembership)
		return ok && x.Group == y.Group && x.Member == y.Member
	case domain.WizardStep:
		y, ok := b.(domain.WizardStep)
		return ok && x.Group == y.Group && x.Member == y.Member
	case domain.Import:
		y, ok := b.(domain.Import)
		return ok && x.Key == y.Key
	}
	return false
}

// sameGroup reports whether b can be added as a sibling part of a's node.
func sameGroup(a, b domain.Nesting) bool {
	switch x := a.(type) {
	case domain.ChoiceMembership:
		y, ok := b.(domain.ChoiceMembership)
		return ok && x.Group == y.Group
	case domain.WizardStep:
		y, ok := b.(domain.WizardStep)
		return ok && x.Group == y.Group
	}
	return false
}

func isTail(parent *domain.Sequence, n domain.Node) bool {
	return len(parent.Steps) > 0 && parent.Steps[len(parent.Steps)-1] == n
}

func mergeOrigin(have, add []string) []string {
	seen := make(map[string]bool, len(have))
	for _, o := range have {
		seen[o] = true
	}
	for _, o := range add {
		if !seen[o] {
			seen[o] = true
			have = append(have, o)
		}
	}
	return have
}
