package optimizer

import "github.com/aretw0/guidebook/pkg/domain"

// Prune removes empty subtrees. Nested Sequences are flattened and singleton
// Sequence/Parallel nodes collapse into their only child. Choice parts and
// wizard steps with empty bodies are dropped; a Choice without parts
// vanishes. It returns nil when the whole tree is empty.
func Prune(n domain.Node) domain.Node {
	if domain.IsNil(n) {
		return nil
	}
	switch v := n.(type) {
	case *domain.Leaf:
		return v
	case *domain.Sequence:
		var steps []domain.Node
		for _, c := range v.Steps {
			p := Prune(c)
			if p == nil {
				continue
			}
			if seq, ok := p.(*domain.Sequence); ok {
				steps = append(steps, seq.Steps...)
				continue
			}
			steps = append(steps, p)
		}
		switch len(steps) {
		case 0:
			return nil
		case 1:
			return steps[0]
		}
		return &domain.Sequence{Steps: steps}
	case *domain.Parallel:
		var branches []domain.Node
		for _, c := range v.Branches {
			if p := Prune(c); p != nil {
				branches = append(branches, p)
			}
		}
		switch len(branches) {
		case 0:
			return nil
		case 1:
			return branches[0]
		}
		return &domain.Parallel{Branches: branches}
	case *domain.Choice:
		out := *v
		out.Parts = nil
		for _, p := range v.Parts {
			body := pruneBody(p.Body)
			if body == nil {
				continue
			}
			p.Body = body
			out.Parts = append(out.Parts, p)
		}
		if len(out.Parts) == 0 {
			return nil
		}
		return &out
	case *domain.SubTask:
		body := pruneBody(v.Body)
		if body == nil {
			return nil
		}
		out := *v
		out.Body = body
		return &out
	case *domain.TitledSteps:
		out := *v
		out.Steps = nil
		for _, s := range v.Steps {
			body := pruneBody(s.Body)
			if body == nil {
				continue
			}
			s.Body = body
			out.Steps = append(out.Steps, s)
		}
		if len(out.Steps) == 0 {
			return nil
		}
		return &out
	}
	return n
}

func pruneBody(s *domain.Sequence) *domain.Sequence {
	p := Prune(s)
	if p == nil {
		return nil
	}
	return domain.AsSequence(p)
}
