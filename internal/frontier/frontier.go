package frontier

import "github.com/aretw0/guidebook/pkg/domain"

// Find linearizes g into frontier entries.
//
// The walk is depth-first. Leaves and SubTasks without unresolved choices are
// buffered as prerequisites. SubTasks that contain a choice are entered so
// their title and barrier flag apply to the entries found inside. Finally
// tasks go to a separate buffer. Each Choice closes an entry with the
// buffers accumulated so far, and leftover work becomes a trailing entry with
// a nil Choice.
//
// Concatenating the prereqs of every entry followed by its choice yields a
// valid ordering of the whole tree.
func Find(g domain.Node) []domain.FrontierEntry {
	f := &finder{}
	f.walk(g)
	if len(f.prereqs) > 0 || len(f.finallies) > 0 {
		f.entries = append(f.entries, domain.FrontierEntry{
			Prereqs:   f.prereqs,
			Finallies: f.finallies,
		})
	}
	return f.entries
}

type finder struct {
	entries   []domain.FrontierEntry
	prereqs   []domain.Node
	finallies []*domain.SubTask
	title     string
	barrier   bool
}

func (f *finder) walk(n domain.Node) {
	if domain.IsNil(n) {
		return
	}
	switch v := n.(type) {
	case *domain.Leaf:
		f.prereqs = append(f.prereqs, v)
	case *domain.SubTask:
		if v.FinallyFor != "" {
			f.finallies = append(f.finallies, v)
			return
		}
		if !domain.ContainsChoice(v.Body) {
			f.prereqs = append(f.prereqs, v)
			return
		}
		title, barrier := f.title, f.barrier
		if v.Title != "" {
			f.title = v.Title
		}
		f.barrier = f.barrier || v.Barrier
		f.walk(v.Body)
		f.title, f.barrier = title, barrier
	case *domain.Choice:
		f.entries = append(f.entries, domain.FrontierEntry{
			Prereqs:   f.prereqs,
			Choice:    v,
			Finallies: f.finallies,
			Title:     f.title,
			Barrier:   f.barrier,
		})
		f.prereqs, f.finallies = nil, nil
	default:
		for _, c := range domain.Children(v) {
			f.walk(c)
		}
	}
}

// Next returns the first entry that carries a choice.
func Next(entries []domain.FrontierEntry) (domain.FrontierEntry, bool) {
	for _, e := range entries {
		if e.Choice != nil {
			return e, true
		}
	}
	return domain.FrontierEntry{}, false
}
