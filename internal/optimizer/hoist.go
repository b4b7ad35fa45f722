package optimizer

import "github.com/aretw0/guidebook/pkg/domain"

// Hoist moves imported SubTasks shared by every part of a Choice above it.
//
// A SubTask is dominated by a part when it is reachable from the part body
// without crossing a nested Choice. SubTasks dominated by every part are
// removed from the parts and emitted once, in the order they appear in the
// first part, inside a synthesized Prerequisites SubTask placed before the
// Choice. The rewrite runs bottom-up, so prerequisites shared by nested
// choices keep moving up through their ancestors.
//
// Parts left empty by hoisting are pruned. When every part is emptied the
// Choice is replaced by the Prerequisites SubTask alone.
func Hoist(n domain.Node) domain.Node {
	return Prune(hoist(n))
}

func hoist(n domain.Node) domain.Node {
	if domain.IsNil(n) {
		return nil
	}
	switch v := n.(type) {
	case *domain.Leaf:
		return v
	case *domain.Sequence:
		out := &domain.Sequence{Steps: make([]domain.Node, 0, len(v.Steps))}
		for _, c := range v.Steps {
			out.Steps = append(out.Steps, hoist(c))
		}
		return out
	case *domain.Parallel:
		out := &domain.Parallel{Branches: make([]domain.Node, 0, len(v.Branches))}
		for _, c := range v.Branches {
			out.Branches = append(out.Branches, hoist(c))
		}
		return out
	case *domain.SubTask:
		out := *v
		out.Body = hoistBody(v.Body)
		return &out
	case *domain.TitledSteps:
		out := *v
		out.Steps = make([]domain.TitledStep, len(v.Steps))
		for i, s := range v.Steps {
			s.Body = hoistBody(s.Body)
			out.Steps[i] = s
		}
		return &out
	case *domain.Choice:
		out := *v
		out.Parts = make([]domain.ChoicePart, len(v.Parts))
		for i, p := range v.Parts {
			p.Body = hoistBody(p.Body)
			out.Parts[i] = p
		}
		return hoistChoice(&out)
	}
	return n
}

func hoistBody(s *domain.Sequence) *domain.Sequence {
	if s == nil {
		return nil
	}
	return domain.AsSequence(hoist(s))
}

func hoistChoice(c *domain.Choice) domain.Node {
	if len(c.Parts) < 2 {
		return c
	}

	common := dominated(c.Parts[0].Body)
	for _, p := range c.Parts[1:] {
		keys := dominated(p.Body)
		for k := range common {
			if _, ok := keys[k]; !ok {
				delete(common, k)
			}
		}
	}
	if len(common) == 0 {
		return c
	}

	hoisted := outermost(c.Parts[0].Body, common)
	remove := make(map[string]bool, len(hoisted))
	for _, st := range hoisted {
		remove[st.Key] = true
	}

	out := *c
	out.Parts = make([]domain.ChoicePart, 0, len(c.Parts))
	emptied := 0
	for _, p := range c.Parts {
		p.Body = domain.AsSequence(without(p.Body, remove))
		if domain.IsEmpty(p.Body) {
			emptied++
		}
		out.Parts = append(out.Parts, p)
	}

	prereqs := &domain.SubTask{
		Key:   domain.KeyPrerequisitesPrefix + c.Context,
		Title: domain.TitlePrerequisites,
		Body:  &domain.Sequence{},
	}
	for _, st := range hoisted {
		prereqs.Body.Steps = append(prereqs.Body.Steps, st)
	}
	if emptied == len(c.Parts) {
		return prereqs
	}
	return domain.Seq(prereqs, &out)
}

// dominated collects the keys of imported SubTasks reachable from n without
// crossing a Choice.
func dominated(n domain.Node) map[string]struct{} {
	keys := make(map[string]struct{})
	domain.Walk(n, func(v domain.Node) bool {
		switch x := v.(type) {
		case *domain.Choice:
			return false
		case *domain.SubTask:
			if x.Filepath != "" {
				keys[x.Key] = struct{}{}
			}
		}
		return true
	})
	return keys
}

// outermost returns, in pre-order, the SubTasks of n whose key is in keys and
// that are not nested in another such SubTask.
func outermost(n domain.Node, keys map[string]struct{}) []*domain.SubTask {
	var out []*domain.SubTask
	seen := make(map[string]bool)
	domain.Walk(n, func(v domain.Node) bool {
		switch x := v.(type) {
		case *domain.Choice:
			return false
		case *domain.SubTask:
			if _, ok := keys[x.Key]; ok && x.Filepath != "" {
				if !seen[x.Key] {
					seen[x.Key] = true
					out = append(out, x)
				}
				return false
			}
		}
		return true
	})
	return out
}

// without drops the SubTasks whose key is in keys, without crossing a Choice.
func without(n domain.Node, keys map[string]bool) domain.Node {
	if domain.IsNil(n) {
		return nil
	}
	switch v := n.(type) {
	case *domain.Sequence:
		out := &domain.Sequence{}
		for _, c := range v.Steps {
			if r := without(c, keys); r != nil {
				out.Steps = append(out.Steps, r)
			}
		}
		return out
	case *domain.Parallel:
		out := &domain.Parallel{}
		for _, c := range v.Branches {
			if r := without(c, keys); r != nil {
				out.Branches = append(out.Branches, r)
			}
		}
		return out
	case *domain.SubTask:
		if v.Filepath != "" && keys[v.Key] {
			return nil
		}
		out := *v
		out.Body = domain.AsSequence(without(v.Body, keys))
		return &out
	case *domain.TitledSteps:
		out := *v
		out.Steps = make([]domain.TitledStep, len(v.Steps))
		for i, s := range v.Steps {
			s.Body = domain.AsSequence(without(s.Body, keys))
			out.Steps[i] = s
		}
		return &out
	}
	return n
}
