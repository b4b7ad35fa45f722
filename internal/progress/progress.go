package progress

import (
	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/memo"
)

// StatusOf computes the status of n from the memoized statuses of the session.
//
// Containers intersect their children and a Choice is the union of its
// parts. When exactly one part of a Choice reads success its title is written
// back into state as the implicit answer, unless that answer was rejected.
func StatusOf(n domain.Node, m *memo.Memos, state *domain.ChoiceState) domain.Status {
	if domain.IsNil(n) {
		return domain.StatusSuccess
	}
	switch v := n.(type) {
	case *domain.Leaf:
		s, ok := m.Status(v.ID)
		if !ok {
			return domain.StatusBlank
		}
		if v.Optional && s == domain.StatusError {
			return domain.StatusWarning
		}
		return s

	case *domain.Sequence:
		return all(v.Steps, m, state)

	case *domain.Parallel:
		return all(v.Branches, m, state)

	case *domain.TitledSteps:
		return all(domain.Children(v), m, state)

	case *domain.SubTask:
		if v.Validate != nil {
			if s, ok := m.Status(v.Validate.Key()); ok && s == domain.StatusSuccess {
				return domain.StatusSuccess
			}
		}
		if v.IdempotencyGroup != "" {
			if s, ok := m.Status(domain.KeyIdempotencyPrefix + v.IdempotencyGroup); ok && s == domain.StatusSuccess {
				return domain.StatusSuccess
			}
		}
		return StatusOf(v.Body, m, state)

	case *domain.Choice:
		statuses := make([]domain.Status, len(v.Parts))
		winner := -1
		wins := 0
		for i, p := range v.Parts {
			statuses[i] = StatusOf(p.Body, m, state)
			if statuses[i] == domain.StatusSuccess {
				winner = i
				wins++
			}
		}
		if wins == 1 && state != nil {
			state.Set(v.Context, v.Parts[winner].Title, false)
		}
		return domain.UnionAll(statuses...)
	}
	return domain.StatusBlank
}

func all(nodes []domain.Node, m *memo.Memos, state *domain.ChoiceState) domain.Status {
	statuses := make([]domain.Status, 0, len(nodes))
	for _, n := range nodes {
		statuses = append(statuses, StatusOf(n, m, state))
	}
	return domain.IntersectAll(statuses...)
}
