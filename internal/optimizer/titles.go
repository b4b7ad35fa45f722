package optimizer

import (
	"strings"

	"github.com/aretw0/guidebook/pkg/domain"
)

// PropagateTitles normalizes titles for presentation.
//
// A SubTask whose only child is a SubTask with the same title renames the
// child to Main Tasks. Adjacent Prerequisites wrappers merge, and a sequence
// that starts with Prerequisites followed by other work becomes the pair
// (Prerequisites, Main Tasks).
func PropagateTitles(n domain.Node) domain.Node {
	if domain.IsNil(n) {
		return nil
	}
	switch v := n.(type) {
	case *domain.Sequence:
		return normalize(v)
	case *domain.Parallel:
		out := &domain.Parallel{Branches: make([]domain.Node, 0, len(v.Branches))}
		for _, b := range v.Branches {
			out.Branches = append(out.Branches, PropagateTitles(b))
		}
		return out
	case *domain.SubTask:
		out := *v
		out.Body = normalize(v.Body)
		if len(out.Body.Steps) == 1 {
			if child, ok := out.Body.Steps[0].(*domain.SubTask); ok && child.Title != "" && child.Title == v.Title {
				renamed := *child
				renamed.Title = domain.TitleMainTasks
				out.Body = domain.Seq(&renamed)
			}
		}
		return &out
	case *domain.Choice:
		out := *v
		out.Parts = make([]domain.ChoicePart, len(v.Parts))
		for i, p := range v.Parts {
			p.Body = normalize(p.Body)
			out.Parts[i] = p
		}
		return &out
	case *domain.TitledSteps:
		out := *v
		out.Steps = make([]domain.TitledStep, len(v.Steps))
		for i, s := range v.Steps {
			s.Body = normalize(s.Body)
			out.Steps[i] = s
		}
		return &out
	}
	return n
}

func normalize(s *domain.Sequence) *domain.Sequence {
	if s == nil {
		return &domain.Sequence{}
	}

	var steps []domain.Node
	for _, c := range s.Steps {
		c = PropagateTitles(c)
		if c == nil {
			continue
		}
		if isPrerequisites(c) && len(steps) > 0 && isPrerequisites(steps[len(steps)-1]) {
			prev := steps[len(steps)-1].(*domain.SubTask)
			merged := *prev
			merged.Body = domain.Seq(append(append([]domain.Node(nil), prev.Body.Steps...), c.(*domain.SubTask).Body.Steps...)...)
			steps[len(steps)-1] = &merged
			continue
		}
		steps = append(steps, c)
	}

	if len(steps) >= 2 && isPrerequisites(steps[0]) && !(len(steps) == 2 && isMainTasks(steps[1])) {
		pre := steps[0].(*domain.SubTask)
		main := &domain.SubTask{
			Key:   domain.KeyMainPrefix + strings.TrimPrefix(pre.Key, domain.KeyPrerequisitesPrefix),
			Title: domain.TitleMainTasks,
			Body:  domain.Seq(steps[1:]...),
		}
		steps = []domain.Node{pre, main}
	}
	return &domain.Sequence{Steps: steps}
}

func isPrerequisites(n domain.Node) bool {
	st, ok := n.(*domain.SubTask)
	return ok && st.Filepath == "" && st.Title == domain.TitlePrerequisites
}

func isMainTasks(n domain.Node) bool {
	st, ok := n.(*domain.SubTask)
	return ok && st.Filepath == "" && st.Title == domain.TitleMainTasks
}
