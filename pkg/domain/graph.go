package domain

import (
	"sort"
	"strings"
)

// Node is a vertex of the decision tree.
// The set of implementations is closed: *Leaf, *Sequence, *Parallel, *Choice,
// *SubTask and *TitledSteps. A nil Node is the empty subtree.
//
// Nodes are treated as immutable once built. Passes that rewrite the tree
// return new nodes instead of mutating their input.
type Node interface {
	node()
}

// Leaf is an executable unit of work (a code block of a guidebook).
type Leaf struct {
	ID   string `json:"id" yaml:"id"`
	Lang string `json:"lang,omitempty" yaml:"lang,omitempty"`
	Body string `json:"body,omitempty" yaml:"body,omitempty"`

	// Exec overrides how the body is executed. The body is fed on stdin.
	Exec string `json:"exec,omitempty" yaml:"exec,omitempty"`

	Validate *Validation `json:"validate,omitempty" yaml:"validate,omitempty"`

	// Optional leaves are non-blocking: a failure degrades to a warning.
	Optional bool `json:"optional,omitempty" yaml:"optional,omitempty"`
	// Async leaves are started and left running (fire-and-forget).
	Async bool `json:"async,omitempty" yaml:"async,omitempty"`
	// CaptureEnv exports variables assigned by the body into the session environment.
	CaptureEnv bool `json:"captureEnv,omitempty" yaml:"captureEnv,omitempty"`

	// Nesting lists the enclosing ancestor descriptors, outermost first.
	Nesting []Nesting `json:"-" yaml:"-"`
}

// Sequence runs its steps in order. All must succeed.
type Sequence struct {
	Steps []Node `json:"steps"`
}

// Parallel holds branches with no ordering guarantee. All must succeed.
type Parallel struct {
	Branches []Node `json:"branches"`
}

// ChoiceMode describes how a Choice is answered.
type ChoiceMode string

const (
	ChoiceSingle ChoiceMode = "single"
	ChoiceMulti  ChoiceMode = "multi"
	ChoiceForm   ChoiceMode = "form"
)

// Choice is a decision point. Only the chosen part(s) will run.
type Choice struct {
	Group       string       `json:"group"`
	Context     string       `json:"context"` // unique per occurrence of Group in one tree
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Origin      []string     `json:"origin,omitempty"`
	Mode        ChoiceMode   `json:"mode,omitempty"`
	Parts       []ChoicePart `json:"parts"`

	// Expanded is set once the parts of an expand() group were generated.
	Expanded bool `json:"expanded,omitempty"`
}

// ChoicePart is one option of a Choice.
type ChoicePart struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Member      int        `json:"member"`
	Body        *Sequence  `json:"body"`
	Field       *FormField `json:"field,omitempty"`
}

// FormField carries the prompt metadata of a form part.
type FormField struct {
	Label   string `json:"label,omitempty" yaml:"label,omitempty" mapstructure:"label"`
	Default string `json:"default,omitempty" yaml:"default,omitempty" mapstructure:"default"`
	Secret  bool   `json:"secret,omitempty" yaml:"secret,omitempty" mapstructure:"secret"`
}

// SubTask is a titled wrapper, usually an imported document.
type SubTask struct {
	Key         string `json:"key"`
	Group       string `json:"group,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	// Filepath is empty for wrappers synthesized by the optimizer and
	// non-empty for imported documents.
	Filepath string `json:"filepath,omitempty"`

	// Barrier subtasks must complete before any later decision is considered.
	Barrier          bool        `json:"barrier,omitempty"`
	Validate         *Validation `json:"validate,omitempty"`
	IdempotencyGroup string      `json:"idempotencyGroup,omitempty"`

	// FinallyFor marks a cleanup task for the context with the given key.
	FinallyFor string `json:"finallyFor,omitempty"`

	Body *Sequence `json:"body"`
}

// TitledSteps is a linear wizard with fixed step titles.
type TitledSteps struct {
	Group string       `json:"group"`
	Title string       `json:"title,omitempty"`
	Steps []TitledStep `json:"steps"`
}

// TitledStep is one page of a TitledSteps wizard.
type TitledStep struct {
	Title  string    `json:"title"`
	Member int       `json:"member"`
	Body   *Sequence `json:"body"`
}

// Validation is an "already done" check.
// Always is the literal boolean true. A nil *Validation never elides.
type Validation struct {
	Command string `json:"command,omitempty" yaml:"command,omitempty" mapstructure:"command"`
	Always  bool   `json:"always,omitempty" yaml:"always,omitempty" mapstructure:"always"`
}

// Key identifies the validation in the session status memo.
func (v *Validation) Key() string {
	if v == nil {
		return ""
	}
	return KeyValidatePrefix + v.Command
}

func (*Leaf) node()        {}
func (*Sequence) node()    {}
func (*Parallel) node()    {}
func (*Choice) node()      {}
func (*SubTask) node()     {}
func (*TitledSteps) node() {}

func IsLeaf(n Node) bool        { _, ok := n.(*Leaf); return ok }
func IsSequence(n Node) bool    { _, ok := n.(*Sequence); return ok }
func IsParallel(n Node) bool    { _, ok := n.(*Parallel); return ok }
func IsChoice(n Node) bool      { _, ok := n.(*Choice); return ok }
func IsSubTask(n Node) bool     { _, ok := n.(*SubTask); return ok }
func IsTitledSteps(n Node) bool { _, ok := n.(*TitledSteps); return ok }

// Seq builds a Sequence from the non-nil nodes given.
func Seq(nodes ...Node) *Sequence {
	s := &Sequence{}
	for _, n := range nodes {
		if !isNil(n) {
			s.Steps = append(s.Steps, n)
		}
	}
	return s
}

// AsSequence wraps n into a Sequence unless it already is one.
func AsSequence(n Node) *Sequence {
	switch v := n.(type) {
	case nil:
		return &Sequence{}
	case *Sequence:
		if v == nil {
			return &Sequence{}
		}
		return v
	default:
		return &Sequence{Steps: []Node{n}}
	}
}

// Title returns the display title of titled nodes, or "".
func Title(n Node) string {
	switch v := n.(type) {
	case *SubTask:
		return v.Title
	case *Choice:
		return v.Title
	case *TitledSteps:
		return v.Title
	}
	return ""
}

// Children returns the direct subtrees of n in order.
func Children(n Node) []Node {
	switch v := n.(type) {
	case *Sequence:
		if v == nil {
			return nil
		}
		return v.Steps
	case *Parallel:
		return v.Branches
	case *Choice:
		out := make([]Node, 0, len(v.Parts))
		for _, p := range v.Parts {
			out = append(out, p.Body)
		}
		return out
	case *SubTask:
		return []Node{v.Body}
	case *TitledSteps:
		out := make([]Node, 0, len(v.Steps))
		for _, s := range v.Steps {
			out = append(out, s.Body)
		}
		return out
	}
	return nil
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of the visited node.
func Walk(n Node, fn func(Node) bool) {
	if isNil(n) {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}

// Leaves flattens n into its leaves, in order.
func Leaves(n Node) []*Leaf {
	var out []*Leaf
	Walk(n, func(v Node) bool {
		if l, ok := v.(*Leaf); ok {
			out = append(out, l)
		}
		return true
	})
	return out
}

// IsEmpty reports whether n contains no leaf.
func IsEmpty(n Node) bool {
	return len(Leaves(n)) == 0
}

// ContainsChoice reports whether an unresolved Choice exists under n.
func ContainsChoice(n Node) bool {
	found := false
	Walk(n, func(v Node) bool {
		if found {
			return false
		}
		if IsChoice(v) {
			found = true
			return false
		}
		return true
	})
	return found
}

// Rewrite deep-copies n, applying fn to every user-visible string
// (titles, descriptions, bodies, exec and validation commands).
func Rewrite(n Node, fn func(string) string) Node {
	switch v := n.(type) {
	case nil:
		return nil
	case *Leaf:
		if v == nil {
			return nil
		}
		c := *v
		c.Body = fn(v.Body)
		c.Exec = fn(v.Exec)
		c.Validate = rewriteValidation(v.Validate, fn)
		return &c
	case *Sequence:
		if v == nil {
			return nil
		}
		return rewriteSeq(v, fn)
	case *Parallel:
		c := &Parallel{Branches: make([]Node, 0, len(v.Branches))}
		for _, b := range v.Branches {
			c.Branches = append(c.Branches, Rewrite(b, fn))
		}
		return c
	case *Choice:
		c := *v
		c.Title = fn(v.Title)
		c.Description = fn(v.Description)
		c.Parts = make([]ChoicePart, len(v.Parts))
		for i, p := range v.Parts {
			c.Parts[i] = RewritePart(p, fn)
		}
		return &c
	case *SubTask:
		c := *v
		c.Title = fn(v.Title)
		c.Description = fn(v.Description)
		c.Validate = rewriteValidation(v.Validate, fn)
		c.Body = rewriteSeq(v.Body, fn)
		return &c
	case *TitledSteps:
		c := *v
		c.Title = fn(v.Title)
		c.Steps = make([]TitledStep, len(v.Steps))
		for i, s := range v.Steps {
			c.Steps[i] = TitledStep{Title: fn(s.Title), Member: s.Member, Body: rewriteSeq(s.Body, fn)}
		}
		return &c
	}
	return n
}

// RewritePart deep-copies a ChoicePart applying fn like Rewrite.
func RewritePart(p ChoicePart, fn func(string) string) ChoicePart {
	c := p
	c.Title = fn(p.Title)
	c.Description = fn(p.Description)
	c.Body = rewriteSeq(p.Body, fn)
	if p.Field != nil {
		f := *p.Field
		f.Label = fn(f.Label)
		c.Field = &f
	}
	return c
}

// Substitute replaces ${name} placeholders using vars.
func Substitute(n Node, vars map[string]string) Node {
	return Rewrite(n, Placeholders(vars))
}

// Placeholders returns a string transform replacing ${name} with vars[name].
func Placeholders(vars map[string]string) func(string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "${"+k+"}", vars[k])
	}
	r := strings.NewReplacer(pairs...)
	return r.Replace
}

func rewriteSeq(s *Sequence, fn func(string) string) *Sequence {
	if s == nil {
		return nil
	}
	c := &Sequence{Steps: make([]Node, 0, len(s.Steps))}
	for _, n := range s.Steps {
		c.Steps = append(c.Steps, Rewrite(n, fn))
	}
	return c
}

func rewriteValidation(v *Validation, fn func(string) string) *Validation {
	if v == nil {
		return nil
	}
	return &Validation{Command: fn(v.Command), Always: v.Always}
}

// isNil catches typed nil pointers stored in the interface.
func isNil(n Node) bool {
	switch v := n.(type) {
	case nil:
		return true
	case *Leaf:
		return v == nil
	case *Sequence:
		return v == nil
	case *Parallel:
		return v == nil
	case *Choice:
		return v == nil
	case *SubTask:
		return v == nil
	case *TitledSteps:
		return v == nil
	}
	return false
}

// IsNil reports whether n is the empty subtree (nil or a typed nil pointer).
func IsNil(n Node) bool { return isNil(n) }
