package domain

import (
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// ChoiceState holds the answers of a profile, keyed by choice context.
//
// Single answers are stored as the part title. Multiselect answers are a JSON
// array of titles and form answers a JSON object of part title to value.
// Removing an answer marks the key as rejected so that later non-overriding
// writes (such as status back-writes) cannot bring it back.
//
// ChoiceState is safe for concurrent use.
type ChoiceState struct {
	mu        sync.RWMutex
	name      string
	created   time.Time
	modified  time.Time
	used      time.Time
	choices   map[string]string
	rejected  map[string]struct{}
	listeners []func(key, value string)
}

// NewChoiceState creates an empty state for the given profile name.
func NewChoiceState(name string) *ChoiceState {
	now := time.Now().UTC()
	return &ChoiceState{
		name:     name,
		created:  now,
		modified: now,
		used:     now,
		choices:  make(map[string]string),
		rejected: make(map[string]struct{}),
	}
}

// Name returns the profile name.
func (s *ChoiceState) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// Get returns the stored answer for key.
func (s *ChoiceState) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.choices[key]
	return v, ok
}

// Set stores value under key. A rejected key is only written when
// overrideRejections is true, which also clears the rejection.
// It reports whether the value was stored.
func (s *ChoiceState) Set(key, value string, overrideRejections bool) bool {
	s.mu.Lock()
	s.ensure()
	if _, rejected := s.rejected[key]; rejected {
		if !overrideRejections {
			s.mu.Unlock()
			return false
		}
		delete(s.rejected, key)
	}
	if old, ok := s.choices[key]; ok && old == value {
		s.mu.Unlock()
		return true
	}
	s.choices[key] = value
	s.modified = time.Now().UTC()
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, key, value)
	return true
}

// SetMulti stores a multiselect answer.
func (s *ChoiceState) SetMulti(key string, titles []string, overrideRejections bool) bool {
	return s.Set(key, EncodeMulti(titles), overrideRejections)
}

// SetForm stores a form answer.
func (s *ChoiceState) SetForm(key string, values map[string]string, overrideRejections bool) bool {
	return s.Set(key, EncodeForm(values), overrideRejections)
}

// Remove deletes the answer for key and marks it as rejected.
func (s *ChoiceState) Remove(key string) {
	s.mu.Lock()
	s.ensure()
	delete(s.choices, key)
	s.rejected[key] = struct{}{}
	s.modified = time.Now().UTC()
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, key, "")
}

// IsRejected reports whether key was removed and not overridden since.
func (s *ChoiceState) IsRejected(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rejected[key]
	return ok
}

// Keys returns the answered keys, sorted.
func (s *ChoiceState) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.choices))
	for k := range s.choices {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Rejected returns the rejected keys, sorted.
func (s *ChoiceState) Rejected() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.rejected))
	for k := range s.rejected {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of the answers.
func (s *ChoiceState) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.choices))
	for k, v := range s.choices {
		out[k] = v
	}
	return out
}

// Clone copies answers and rejections into a new state named name.
// Listeners are not copied.
func (s *ChoiceState) Clone(name string) *ChoiceState {
	c := NewChoiceState(name)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, v := range s.choices {
		c.choices[k] = v
	}
	for k := range s.rejected {
		c.rejected[k] = struct{}{}
	}
	return c
}

// OnChange registers fn to be called after every mutation.
// A removal is reported with an empty value.
func (s *ChoiceState) OnChange(fn func(key, value string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Touch records that the profile was used.
func (s *ChoiceState) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.used = time.Now().UTC()
}

func (s *ChoiceState) CreationTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.created
}

func (s *ChoiceState) LastModifiedTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified
}

func (s *ChoiceState) LastUsedTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used
}

type choiceStateJSON struct {
	Name             string                     `json:"name"`
	CreationTime     time.Time                  `json:"creationTime"`
	LastModifiedTime time.Time                  `json:"lastModifiedTime"`
	LastUsedTime     time.Time                  `json:"lastUsedTime"`
	Choices          map[string]json.RawMessage `json:"choices"`
	Rejected         []string                   `json:"rejected,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (s *ChoiceState) MarshalJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := choiceStateJSON{
		Name:             s.name,
		CreationTime:     s.created,
		LastModifiedTime: s.modified,
		LastUsedTime:     s.used,
		Choices:          make(map[string]json.RawMessage, len(s.choices)),
	}
	for k, v := range s.choices {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out.Choices[k] = raw
	}
	for k := range s.rejected {
		out.Rejected = append(out.Rejected, k)
	}
	sort.Strings(out.Rejected)
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
// Entries whose value is not a string are dropped.
func (s *ChoiceState) UnmarshalJSON(data []byte) error {
	var in choiceStateJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = in.Name
	s.created = in.CreationTime
	s.modified = in.LastModifiedTime
	s.used = in.LastUsedTime
	s.choices = make(map[string]string, len(in.Choices))
	for k, raw := range in.Choices {
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		s.choices[k] = v
	}
	s.rejected = make(map[string]struct{}, len(in.Rejected))
	for _, k := range in.Rejected {
		s.rejected[k] = struct{}{}
	}
	return nil
}

// ensure makes the zero value usable. Callers hold the write lock.
func (s *ChoiceState) ensure() {
	if s.choices == nil {
		s.choices = make(map[string]string)
	}
	if s.rejected == nil {
		s.rejected = make(map[string]struct{})
	}
}

func notify(listeners []func(key, value string), key, value string) {
	for _, fn := range listeners {
		fn(key, value)
	}
}

// EncodeMulti encodes a multiselect answer.
func EncodeMulti(titles []string) string {
	if titles == nil {
		titles = []string{}
	}
	b, _ := json.Marshal(titles)
	return string(b)
}

// EncodeForm encodes a form answer.
func EncodeForm(values map[string]string) string {
	if values == nil {
		values = map[string]string{}
	}
	b, _ := json.Marshal(values)
	return string(b)
}

// DecodeMulti parses a multiselect answer.
func DecodeMulti(value string) ([]string, error) {
	var titles []string
	if err := json.Unmarshal([]byte(value), &titles); err != nil {
		return nil, err
	}
	return titles, nil
}

// DecodeForm parses a form answer.
func DecodeForm(value string) (map[string]string, error) {
	var values map[string]string
	if err := json.Unmarshal([]byte(value), &values); err != nil {
		return nil, err
	}
	return values, nil
}
