package domain

// FrontierEntry is one step of a linearized tree: the work that must happen
// before Choice can be answered. A nil Choice marks the trailing entry.
type FrontierEntry struct {
	Prereqs   []Node     `json:"prereqs,omitempty"`
	Choice    *Choice    `json:"choice,omitempty"`
	Finallies []*SubTask `json:"finallies,omitempty"`
	Title     string     `json:"title,omitempty"`
	Barrier   bool       `json:"barrier,omitempty"`
}

// HasBarrier reports whether the entry sits inside a barrier or carries a
// barrier SubTask among its prerequisites.
func (e FrontierEntry) HasBarrier() bool {
	if e.Barrier {
		return true
	}
	for _, p := range e.Prereqs {
		found := false
		Walk(p, func(n Node) bool {
			if st, ok := n.(*SubTask); ok && st.Barrier {
				found = true
			}
			return !found
		})
		if found {
			return true
		}
	}
	return false
}

// Plan is the optimized tree and its frontier, computed without executing anything.
type Plan struct {
	Tree     Node            `json:"tree"`
	Frontier []FrontierEntry `json:"frontier"`
	Status   Status          `json:"status"`
}

// Next returns the first unanswered choice of the plan, or nil.
func (p *Plan) Next() *Choice {
	for _, e := range p.Frontier {
		if e.Choice != nil {
			return e.Choice
		}
	}
	return nil
}
