package domain

// ChoiceDiff represents the changes between two versions of a profile.
// It is serialized to JSON for partial updates on clients of the HTTP API.
type ChoiceDiff struct {
	// Profile is always present to identify the target.
	Profile string `json:"profile"`

	// Choices contains only changed, added or deleted keys.
	// For deletions, the key is present with a nil value.
	Choices map[string]any `json:"choices,omitempty"`

	// Rejected lists keys newly marked as rejected.
	Rejected []string `json:"rejected,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState.
// It returns nil when nothing changed.
func Diff(oldState, newState *ChoiceState) *ChoiceDiff {
	if newState == nil {
		return nil
	}

	diff := &ChoiceDiff{Profile: newState.Name()}
	diff.Choices = diffChoices(oldState, newState)
	diff.Rejected = diffRejected(oldState, newState)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffChoices(old, new *ChoiceState) map[string]any {
	delta := make(map[string]any)
	next := new.Snapshot()

	if old == nil {
		for k, v := range next {
			delta[k] = v
		}
		return nilIfEmpty(delta)
	}

	prev := old.Snapshot()
	for k, v := range next {
		if ov, ok := prev[k]; !ok || ov != v {
			delta[k] = v
		}
	}
	for k := range prev {
		if _, ok := next[k]; !ok {
			delta[k] = nil
		}
	}
	return nilIfEmpty(delta)
}

func diffRejected(old, new *ChoiceState) []string {
	var out []string
	for _, k := range new.Rejected() {
		if old == nil || !old.IsRejected(k) {
			out = append(out, k)
		}
	}
	return out
}

func nilIfEmpty(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	return m
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *ChoiceDiff) IsEmpty() bool {
	return len(d.Choices) == 0 && len(d.Rejected) == 0
}
