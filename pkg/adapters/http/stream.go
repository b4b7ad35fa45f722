package http

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/aretw0/guidebook/pkg/domain"
)

// Event is one server-sent event.
type Event struct {
	Type domain.EventType
	Data string
}

// StreamManager fans lifecycle events out to active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	dropped     atomic.Int64
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[chan Event]struct{}),
	}
}

// Subscribe registers a listener. The returned func unregisters it.
func (sm *StreamManager) Subscribe() (<-chan Event, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Event, 16)
	sm.subscribers[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			delete(sm.subscribers, ch)
			close(ch)
		})
	}
}

// Broadcast sends ev to every subscriber. Slow clients miss events instead of
// blocking the engine.
func (sm *StreamManager) Broadcast(ev Event) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for ch := range sm.subscribers {
		select {
		case ch <- ev:
		default:
			sm.dropped.Add(1)
		}
	}
}

// Dropped returns the number of events slow subscribers missed.
func (sm *StreamManager) Dropped() int64 {
	return sm.dropped.Load()
}

// Subscribers returns the number of active listeners.
func (sm *StreamManager) Subscribers() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers)
}

// Hooks returns lifecycle hooks that broadcast every event as JSON.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	publish := func(t domain.EventType, v any) {
		data, err := json.Marshal(v)
		if err != nil {
			return
		}
		sm.Broadcast(Event{Type: t, Data: string(data)})
	}
	return domain.LifecycleHooks{
		OnLeafStart:  func(_ context.Context, e *domain.LeafEvent) { publish(domain.EventLeafStart, e) },
		OnLeafFinish: func(_ context.Context, e *domain.LeafEvent) { publish(domain.EventLeafFinish, e) },
		OnValidate:   func(_ context.Context, e *domain.ValidateEvent) { publish(domain.EventValidate, e) },
		OnExpand:     func(_ context.Context, e *domain.ExpandEvent) { publish(domain.EventExpand, e) },
		OnDecision:   func(_ context.Context, e *domain.DecisionEvent) { publish(domain.EventDecision, e) },
	}
}
