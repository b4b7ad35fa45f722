package domain

import "encoding/json"

// NodeKind names the variant of a Node in its JSON view.
type NodeKind string

const (
	KindLeaf        NodeKind = "leaf"
	KindSequence    NodeKind = "sequence"
	KindParallel    NodeKind = "parallel"
	KindChoice      NodeKind = "choice"
	KindSubTask     NodeKind = "subtask"
	KindTitledSteps NodeKind = "titled_steps"
)

// NodeView is the tagged JSON rendering of a Node, used by the HTTP and MCP
// adapters. Bodies are omitted.
type NodeView struct {
	Kind        NodeKind    `json:"kind"`
	ID          string      `json:"id,omitempty"`
	Lang        string      `json:"lang,omitempty"`
	Async       bool        `json:"async,omitempty"`
	Optional    bool        `json:"optional,omitempty"`
	Key         string      `json:"key,omitempty"`
	Group       string      `json:"group,omitempty"`
	Context     string      `json:"context,omitempty"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Mode        ChoiceMode  `json:"mode,omitempty"`
	Filepath    string      `json:"filepath,omitempty"`
	Barrier     bool        `json:"barrier,omitempty"`
	FinallyFor  string      `json:"finallyFor,omitempty"`
	Validate    *Validation `json:"validate,omitempty"`
	Children    []NodeView  `json:"children,omitempty"`
	Parts       []PartView  `json:"parts,omitempty"`
}

// PartView is a titled child of a Choice or TitledSteps.
type PartView struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Member      int        `json:"member"`
	Field       *FormField `json:"field,omitempty"`
	Body        []NodeView `json:"body,omitempty"`
}

// View renders n. A nil node renders as an empty sequence.
func View(n Node) NodeView {
	if isNil(n) {
		return NodeView{Kind: KindSequence}
	}
	switch v := n.(type) {
	case *Leaf:
		return NodeView{Kind: KindLeaf, ID: v.ID, Lang: v.Lang, Async: v.Async, Optional: v.Optional, Validate: v.Validate}
	case *Sequence:
		return NodeView{Kind: KindSequence, Children: views(v.Steps)}
	case *Parallel:
		return NodeView{Kind: KindParallel, Children: views(v.Branches)}
	case *Choice:
		out := NodeView{Kind: KindChoice, Group: v.Group, Context: v.Context, Title: v.Title, Description: v.Description, Mode: v.Mode}
		for _, p := range v.Parts {
			out.Parts = append(out.Parts, PartView{
				Title:       p.Title,
				Description: p.Description,
				Member:      p.Member,
				Field:       p.Field,
				Body:        seqViews(p.Body),
			})
		}
		return out
	case *SubTask:
		return NodeView{
			Kind: KindSubTask, Key: v.Key, Group: v.Group, Title: v.Title, Description: v.Description,
			Filepath: v.Filepath, Barrier: v.Barrier, FinallyFor: v.FinallyFor, Validate: v.Validate,
			Children: seqViews(v.Body),
		}
	case *TitledSteps:
		out := NodeView{Kind: KindTitledSteps, Group: v.Group, Title: v.Title}
		for _, s := range v.Steps {
			out.Parts = append(out.Parts, PartView{Title: s.Title, Member: s.Member, Body: seqViews(s.Body)})
		}
		return out
	}
	return NodeView{}
}

func views(nodes []Node) []NodeView {
	out := make([]NodeView, 0, len(nodes))
	for _, n := range nodes {
		if !isNil(n) {
			out = append(out, View(n))
		}
	}
	return out
}

func seqViews(s *Sequence) []NodeView {
	if s == nil {
		return nil
	}
	return views(s.Steps)
}

type frontierView struct {
	Prereqs   []NodeView `json:"prereqs,omitempty"`
	Choice    *NodeView  `json:"choice,omitempty"`
	Finallies []NodeView `json:"finallies,omitempty"`
	Title     string     `json:"title,omitempty"`
	Barrier   bool       `json:"barrier,omitempty"`
}

// MarshalJSON renders the tree and frontier through View.
func (p *Plan) MarshalJSON() ([]byte, error) {
	out := struct {
		Tree     NodeView       `json:"tree"`
		Frontier []frontierView `json:"frontier"`
		Status   Status         `json:"status"`
	}{
		Tree:     View(p.Tree),
		Frontier: make([]frontierView, 0, len(p.Frontier)),
		Status:   p.Status,
	}
	for _, e := range p.Frontier {
		fv := frontierView{Prereqs: views(e.Prereqs), Title: e.Title, Barrier: e.Barrier}
		if e.Choice != nil {
			c := View(e.Choice)
			fv.Choice = &c
		}
		for _, f := range e.Finallies {
			fv.Finallies = append(fv.Finallies, View(f))
		}
		out.Frontier = append(out.Frontier, fv)
	}
	return json.Marshal(out)
}
