package optimizer

import (
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/guidebook/pkg/domain"
)

// CollapseMadeChoices replaces every Choice that has a usable stored answer
// with the selected subgraph.
//
// A single answer matches one part title case-insensitively. A JSON array
// selects several parts, all of which must exist. A JSON object provides a
// non-empty value for every part and unwraps all of them with ${choice} and
// ${<part title>} substituted. Choices without a usable answer keep only the
// parts that still contain something after their own nested choices collapse.
func CollapseMadeChoices(n domain.Node, state *domain.ChoiceState) domain.Node {
	return collapser{state: state, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}.collapse(n)
}

type collapser struct {
	state  *domain.ChoiceState
	logger *slog.Logger
}

func (c collapser) collapse(n domain.Node) domain.Node {
	if domain.IsNil(n) {
		return nil
	}
	switch v := n.(type) {
	case *domain.Leaf:
		return v
	case *domain.Sequence:
		out := &domain.Sequence{Steps: make([]domain.Node, 0, len(v.Steps))}
		for _, s := range v.Steps {
			if r := c.collapse(s); r != nil {
				out.Steps = append(out.Steps, r)
			}
		}
		return out
	case *domain.Parallel:
		out := &domain.Parallel{Branches: make([]domain.Node, 0, len(v.Branches))}
		for _, b := range v.Branches {
			if r := c.collapse(b); r != nil {
				out.Branches = append(out.Branches, r)
			}
		}
		return out
	case *domain.SubTask:
		out := *v
		out.Body = c.body(v.Body)
		return &out
	case *domain.TitledSteps:
		out := *v
		out.Steps = make([]domain.TitledStep, len(v.Steps))
		for i, s := range v.Steps {
			s.Body = c.body(s.Body)
			out.Steps[i] = s
		}
		return &out
	case *domain.Choice:
		if resolved, ok := c.resolve(v); ok {
			return c.collapse(resolved)
		}
		out := *v
		out.Parts = make([]domain.ChoicePart, 0, len(v.Parts))
		for _, p := range v.Parts {
			p.Body = c.body(p.Body)
			if !domain.IsEmpty(p.Body) {
				out.Parts = append(out.Parts, p)
			}
		}
		if len(out.Parts) == 0 {
			return nil
		}
		return &out
	}
	return n
}

func (c collapser) body(s *domain.Sequence) *domain.Sequence {
	if s == nil {
		return nil
	}
	return domain.AsSequence(c.collapse(s))
}

// resolve applies the stored answer of ch, if any is usable.
func (c collapser) resolve(ch *domain.Choice) (domain.Node, bool) {
	if c.state == nil {
		return nil, false
	}
	answer, ok := c.state.Get(ch.Context)
	if !ok {
		return nil, false
	}

	var match *domain.ChoicePart
	matches := 0
	for i := range ch.Parts {
		if strings.EqualFold(ch.Parts[i].Title, answer) {
			match = &ch.Parts[i]
			matches++
		}
	}
	if matches == 1 {
		return rewrap(ch, match.Body), true
	}

	trimmed := strings.TrimSpace(answer)
	switch {
	case strings.HasPrefix(trimmed, "["):
		titles, err := domain.DecodeMulti(trimmed)
		if err != nil {
			c.logger.Debug("ignoring malformed multiselect answer", "choice", ch.Context, "err", err)
			return nil, false
		}
		return selectParts(ch, titles)
	case strings.HasPrefix(trimmed, "{"):
		values, err := domain.DecodeForm(trimmed)
		if err != nil {
			c.logger.Debug("ignoring malformed form answer", "choice", ch.Context, "err", err)
			return nil, false
		}
		return fillForm(ch, values)
	}
	return nil, false
}

// rewrap keeps the choice title on a selected body that has none of its own.
func rewrap(ch *domain.Choice, body *domain.Sequence) domain.Node {
	if ch.Title == "" || titled(body) {
		return body
	}
	return &domain.SubTask{
		Key:         domain.KeyChoicePrefix + ch.Context,
		Group:       ch.Group,
		Title:       ch.Title,
		Description: ch.Description,
		Body:        body,
	}
}

func titled(body *domain.Sequence) bool {
	p := Prune(body)
	return p != nil && domain.Title(p) != ""
}

func selectParts(ch *domain.Choice, titles []string) (domain.Node, bool) {
	want := make(map[string]bool, len(titles))
	for _, t := range titles {
		found := false
		for _, p := range ch.Parts {
			if strings.EqualFold(p.Title, t) {
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
		want[strings.ToLower(t)] = true
	}

	out := &domain.Sequence{}
	for _, p := range ch.Parts {
		if want[strings.ToLower(p.Title)] {
			out.Steps = append(out.Steps, p.Body)
		}
	}
	return out, true
}

func fillForm(ch *domain.Choice, values map[string]string) (domain.Node, bool) {
	vars := make(map[string]string, len(values)+1)
	for _, p := range ch.Parts {
		v := values[p.Title]
		if v == "" {
			return nil, false
		}
		vars[p.Title] = v
	}

	out := &domain.Sequence{}
	for _, p := range ch.Parts {
		local := make(map[string]string, len(vars)+1)
		for k, v := range vars {
			local[k] = v
		}
		local["choice"] = vars[p.Title]
		out.Steps = append(out.Steps, domain.Substitute(p.Body, local))
	}
	return out, true
}
