package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/guidebook/pkg/domain"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	// Status resolves the execution status of a node. Nil disables status styling.
	Status func(domain.Node) domain.Status
	// Current is the context of the next choice to answer.
	Current string
}

// GenerateMermaid produces a Mermaid flowchart of a decision tree.
// It applies semantic styling:
// - Leaf: [Rectangle], labeled with its id and language
// - Choice: {Rhombus}, edges labeled with part titles
// - SubTask: ([Stadium])
// - TitledSteps: {{Hexagon}}, edges labeled with step titles
// Sequences chain their steps; parallel branches fan out from the same node.
func GenerateMermaid(tree domain.Node, overlay *GraphOverlay) string {
	g := &mermaid{overlay: overlay, classes: map[string][]string{}}
	g.sb.WriteString("graph TD\n")
	g.emit(tree)

	if overlay != nil {
		g.sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		g.sb.WriteString("    classDef success fill:#c8e6c9,stroke:#2e7d32,color:#000;\n")
		g.sb.WriteString("    classDef warning fill:#fff3e0,stroke:#ef6c00,color:#000;\n")
		g.sb.WriteString("    classDef error fill:#ffcdd2,stroke:#c62828,color:#000;\n")
		g.sb.WriteString("    classDef running fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		g.sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		for _, class := range []string{"success", "warning", "error", "running", "current"} {
			if ids := g.classes[class]; len(ids) > 0 {
				fmt.Fprintf(&g.sb, "    class %s %s;\n", strings.Join(ids, ","), class)
			}
		}
	}
	return g.sb.String()
}

type mermaid struct {
	sb      strings.Builder
	seq     int
	overlay *GraphOverlay
	classes map[string][]string
}

// vertex declares a node and returns its id.
func (g *mermaid) vertex(n domain.Node, opener, label, closer string) string {
	g.seq++
	id := fmt.Sprintf("n%d", g.seq)
	fmt.Fprintf(&g.sb, "    %s%s\"%s\"%s\n", id, opener, escape(label), closer)
	g.style(n, id)
	return id
}

func (g *mermaid) style(n domain.Node, id string) {
	if g.overlay == nil {
		return
	}
	if c, ok := n.(*domain.Choice); ok && g.overlay.Current != "" && c.Context == g.overlay.Current {
		g.classes["current"] = append(g.classes["current"], id)
		return
	}
	if g.overlay.Status == nil {
		return
	}
	var class string
	switch g.overlay.Status(n) {
	case domain.StatusSuccess:
		class = "success"
	case domain.StatusWarning:
		class = "warning"
	case domain.StatusError:
		class = "error"
	case domain.StatusInProgress:
		class = "running"
	default:
		return
	}
	g.classes[class] = append(g.classes[class], id)
}

func (g *mermaid) edge(from []string, label string, to []string) {
	arrow := "-->"
	if label != "" {
		arrow = fmt.Sprintf("-- \"%s\" -->", escape(label))
	}
	for _, f := range from {
		for _, t := range to {
			fmt.Fprintf(&g.sb, "    %s %s %s\n", f, arrow, t)
		}
	}
}

// emit writes n and returns the ids entering and leaving it.
func (g *mermaid) emit(n domain.Node) (entries, exits []string) {
	if domain.IsNil(n) {
		return nil, nil
	}
	switch v := n.(type) {
	case *domain.Leaf:
		label := v.ID
		if v.Lang != "" {
			label += " <br/> " + v.Lang
		}
		if v.Async {
			label += " <br/> async"
		}
		id := g.vertex(v, "[", label, "]")
		return []string{id}, []string{id}
	case *domain.Sequence:
		return g.chain(v.Steps)
	case *domain.Parallel:
		for _, b := range v.Branches {
			in, out := g.emit(b)
			entries = append(entries, in...)
			exits = append(exits, out...)
		}
		return entries, exits
	case *domain.Choice:
		title := v.Title
		if title == "" {
			title = v.Context
		}
		if v.Mode != "" && v.Mode != domain.ChoiceSingle {
			title += " <br/> " + string(v.Mode)
		}
		id := g.vertex(v, "{", title, "}")
		for _, p := range v.Parts {
			in, out := g.emit(p.Body)
			if len(in) == 0 {
				continue
			}
			g.edge([]string{id}, p.Title, in)
			exits = append(exits, out...)
		}
		if len(exits) == 0 {
			exits = []string{id}
		}
		return []string{id}, exits
	case *domain.SubTask:
		title := v.Title
		if title == "" {
			title = v.Key
		}
		if v.FinallyFor != "" {
			title += " <br/> finally " + v.FinallyFor
		}
		id := g.vertex(v, "([", title, "])")
		in, out := g.emit(v.Body)
		if len(in) == 0 {
			return []string{id}, []string{id}
		}
		g.edge([]string{id}, "", in)
		return []string{id}, out
	case *domain.TitledSteps:
		title := v.Title
		if title == "" {
			title = v.Group
		}
		id := g.vertex(v, "{{", title, "}}")
		exits = []string{id}
		for _, s := range v.Steps {
			in, out := g.emit(s.Body)
			if len(in) == 0 {
				continue
			}
			g.edge(exits, s.Title, in)
			exits = out
		}
		return []string{id}, exits
	}
	return nil, nil
}

func (g *mermaid) chain(steps []domain.Node) (entries, exits []string) {
	for _, s := range steps {
		in, out := g.emit(s)
		if len(in) == 0 {
			continue
		}
		if entries == nil {
			entries = in
		} else {
			g.edge(exits, "", in)
		}
		exits = out
	}
	return entries, exits
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.ReplaceAll(s, "\n", " ")
}
