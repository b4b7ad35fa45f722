package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/ports"
)

type redactMiddleware struct {
	next     ports.ProfileStore
	patterns []*regexp.Regexp
}

// NewRedactMiddleware creates a middleware that keeps sensitive answers out
// of the store. Answers whose key matches a pattern are not persisted, and
// neither are form fields whose name matches. They are asked again on the
// next run.
func NewRedactMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.ProfileStore) ports.ProfileStore {
		return &redactMiddleware{next: next, patterns: patterns}
	}
}

func (m *redactMiddleware) Save(ctx context.Context, name string, state *domain.ChoiceState) error {
	redacted, err := m.redact(state)
	if err != nil {
		return err
	}
	return m.next.Save(ctx, name, redacted)
}

func (m *redactMiddleware) Load(ctx context.Context, name string) (*domain.ChoiceState, error) {
	return m.next.Load(ctx, name)
}

func (m *redactMiddleware) Delete(ctx context.Context, name string) error {
	return m.next.Delete(ctx, name)
}

func (m *redactMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// redact returns a copy of state without the sensitive answers. The copy goes
// through JSON so that timestamps and rejections survive.
func (m *redactMiddleware) redact(state *domain.ChoiceState) (*domain.ChoiceState, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	choices, _ := doc["choices"].(map[string]any)
	for key, v := range choices {
		if m.sensitive(key) {
			delete(choices, key)
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		form, err := domain.DecodeForm(s)
		if err != nil {
			continue
		}
		if m.maskForm(form) {
			choices[key] = domain.EncodeForm(form)
		}
	}

	if data, err = json.Marshal(doc); err != nil {
		return nil, err
	}
	out := domain.NewChoiceState(state.Name())
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("failed to rebuild profile: %w", err)
	}
	return out, nil
}

// maskForm drops sensitive fields and reports whether any was dropped.
func (m *redactMiddleware) maskForm(form map[string]string) bool {
	changed := false
	for field := range form {
		if m.sensitive(field) {
			delete(form, field)
			changed = true
		}
	}
	return changed
}

func (m *redactMiddleware) sensitive(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
