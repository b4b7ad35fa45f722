package dsl

import "github.com/aretw0/guidebook/pkg/domain"

// LeafBuilder provides a fluent API for configuring a leaf.
type LeafBuilder struct {
	leaf domain.Leaf
}

// Code sets the language and body of the leaf.
func (l *LeafBuilder) Code(lang, body string) *LeafBuilder {
	l.leaf.Lang = lang
	l.leaf.Body = body
	return l
}

// Shell sets a shell body.
func (l *LeafBuilder) Shell(body string) *LeafBuilder {
	return l.Code("sh", body)
}

// Exec runs the body through a custom command, fed on stdin.
func (l *LeafBuilder) Exec(command string) *LeafBuilder {
	l.leaf.Exec = command
	return l
}

// Validate skips the leaf when command succeeds.
func (l *LeafBuilder) Validate(command string) *LeafBuilder {
	l.leaf.Validate = &domain.Validation{Command: command}
	return l
}

// AlwaysValid marks the leaf as satisfied without running anything.
func (l *LeafBuilder) AlwaysValid() *LeafBuilder {
	l.leaf.Validate = &domain.Validation{Always: true}
	return l
}

// Optional degrades a failure of the leaf to a warning.
func (l *LeafBuilder) Optional() *LeafBuilder {
	l.leaf.Optional = true
	return l
}

// Async starts the leaf in the background.
func (l *LeafBuilder) Async() *LeafBuilder {
	l.leaf.Async = true
	return l
}

// CaptureEnv exports the variables set by the body to later leaves.
func (l *LeafBuilder) CaptureEnv() *LeafBuilder {
	l.leaf.CaptureEnv = true
	return l
}

// Build returns a copy of the underlying leaf.
func (l *LeafBuilder) Build() *domain.Leaf {
	c := l.leaf
	c.Nesting = append([]domain.Nesting(nil), l.leaf.Nesting...)
	if l.leaf.Validate != nil {
		v := *l.leaf.Validate
		c.Validate = &v
	}
	return &c
}
