package domain

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChoiceState_Rejections(t *testing.T) {
	s := NewChoiceState("default")
	require.True(t, s.Set("os", "Linux", false))

	s.Remove("os")
	_, ok := s.Get("os")
	assert.False(t, ok)
	assert.True(t, s.IsRejected("os"))

	// A back-write does not bring a rejected answer back.
	assert.False(t, s.Set("os", "Linux", false))
	_, ok = s.Get("os")
	assert.False(t, ok)

	// An explicit answer does, and clears the rejection.
	assert.True(t, s.Set("os", "macOS", true))
	v, _ := s.Get("os")
	assert.Equal(t, "macOS", v)
	assert.False(t, s.IsRejected("os"))
}

func TestChoiceState_MultiAndForm(t *testing.T) {
	s := NewChoiceState("default")
	s.SetMulti("tools", []string{"a", "b"}, true)
	s.SetForm("db", map[string]string{"host": "localhost"}, true)

	v, _ := s.Get("tools")
	titles, err := DecodeMulti(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, titles)

	v, _ = s.Get("db")
	form, err := DecodeForm(v)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"host": "localhost"}, form)

	assert.Equal(t, []string{"db", "tools"}, s.Keys())
}

func TestChoiceState_OnChange(t *testing.T) {
	s := NewChoiceState("default")
	var got []string
	s.OnChange(func(key, value string) { got = append(got, key+"="+value) })

	before := s.LastModifiedTime()
	s.Set("a", "1", false)
	s.Set("a", "1", false) // unchanged, no event
	s.Remove("a")

	assert.Equal(t, []string{"a=1", "a="}, got)
	assert.False(t, s.LastModifiedTime().Before(before))
}

func TestChoiceState_Clone(t *testing.T) {
	s := NewChoiceState("a")
	s.Set("os", "Linux", false)
	s.Remove("db")

	c := s.Clone("b")
	assert.Equal(t, "b", c.Name())
	v, _ := c.Get("os")
	assert.Equal(t, "Linux", v)
	assert.True(t, c.IsRejected("db"))

	c.Set("os", "macOS", true)
	v, _ = s.Get("os")
	assert.Equal(t, "Linux", v, "clone must not share storage")
}

func TestChoiceState_JSON(t *testing.T) {
	s := NewChoiceState("work")
	s.Set("os", "Linux", false)
	s.Remove("db")

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, field := range []string{"name", "creationTime", "lastModifiedTime", "lastUsedTime", "choices"} {
		assert.Contains(t, raw, field)
	}

	loaded := &ChoiceState{}
	require.NoError(t, json.Unmarshal(data, loaded))
	assert.Equal(t, "work", loaded.Name())
	v, _ := loaded.Get("os")
	assert.Equal(t, "Linux", v)
	assert.True(t, loaded.IsRejected("db"))
}

func TestChoiceState_MalformedEntriesDropped(t *testing.T) {
	data := `{"name":"p","choices":{"ok":"yes","bad":42,"worse":{"x":1}}}`

	s := &ChoiceState{}
	require.NoError(t, json.Unmarshal([]byte(data), s))
	assert.Equal(t, []string{"ok"}, s.Keys())
}

func TestChoiceState_Concurrent(t *testing.T) {
	s := NewChoiceState("p")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Set("k", string(rune('a'+i%26)), true)
			_, _ = s.Get("k")
			_ = s.Keys()
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.Keys(), 1)
}
