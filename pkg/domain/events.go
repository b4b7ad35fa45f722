package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventLeafStart  EventType = "leaf_start"
	EventLeafFinish EventType = "leaf_finish"
	EventValidate   EventType = "validate"
	EventExpand     EventType = "expand"
	EventDecision   EventType = "decision"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Profile   string    `json:"profile,omitempty"`
}

// LeafEvent represents the start or the end of a leaf execution.
type LeafEvent struct {
	EventBase
	LeafID   string        `json:"leaf_id"`
	Lang     string        `json:"lang,omitempty"`
	Async    bool          `json:"async,omitempty"`
	Status   Status        `json:"status,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// ValidateEvent represents a validation command resolved by the optimizer.
type ValidateEvent struct {
	EventBase
	Key    string `json:"key"`
	Status Status `json:"status"`
	Cached bool   `json:"cached,omitempty"`
}

// ExpandEvent represents a dynamic option expansion.
type ExpandEvent struct {
	EventBase
	Expression string `json:"expression"`
	Options    int    `json:"options"`
	Failed     bool   `json:"failed,omitempty"`
}

// DecisionEvent represents an answered choice.
type DecisionEvent struct {
	EventBase
	Context string `json:"context"`
	Answer  string `json:"answer"`
}

// LifecycleHooks defines callbacks for engine observability.
// Nil callbacks are skipped.
type LifecycleHooks struct {
	OnLeafStart  func(context.Context, *LeafEvent)
	OnLeafFinish func(context.Context, *LeafEvent)
	OnValidate   func(context.Context, *ValidateEvent)
	OnExpand     func(context.Context, *ExpandEvent)
	OnDecision   func(context.Context, *DecisionEvent)
}

// MergeHooks returns hooks that call every non-nil callback of hs in order.
func MergeHooks(hs ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range hs {
		out.OnLeafStart = chain(out.OnLeafStart, h.OnLeafStart)
		out.OnLeafFinish = chain(out.OnLeafFinish, h.OnLeafFinish)
		out.OnValidate = chain(out.OnValidate, h.OnValidate)
		out.OnExpand = chain(out.OnExpand, h.OnExpand)
		out.OnDecision = chain(out.OnDecision, h.OnDecision)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
