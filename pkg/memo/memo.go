package memo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/ports"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Expansion is the memoized result of a dynamic option command.
type Expansion struct {
	Options []string
	// UUID is generated once per successful expansion and stays stable
	// across re-optimizations.
	UUID string
}

type expansionEntry struct {
	Expansion
	failed bool
}

// Memos is the memoization context of one session. It is safe for concurrent use.
type Memos struct {
	mu         sync.Mutex
	status     map[string]domain.Status
	expansions map[string]*expansionEntry
	env        map[string]string
	baseEnv    []string
	procs      []ports.ProcessHandle
	finallies  []*domain.SubTask
	flight     singleflight.Group
	logger     *slog.Logger
}

// Option configures Memos.
type Option func(*Memos)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Memos) { m.logger = l }
}

// WithBaseEnv replaces the process environment used as the base of Environ.
func WithBaseEnv(env []string) Option {
	return func(m *Memos) { m.baseEnv = env }
}

// New creates an empty memoization context.
func New(opts ...Option) *Memos {
	m := &Memos{
		status:     make(map[string]domain.Status),
		expansions: make(map[string]*expansionEntry),
		env:        make(map[string]string),
		baseEnv:    os.Environ(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Status returns the memoized status of key.
func (m *Memos) Status(key string) (domain.Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.status[key]
	return s, ok
}

// SetStatus memoizes the status of key.
func (m *Memos) SetStatus(key string, s domain.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[key] = s
}

// Once returns the memoized status of key, computing it with fn on a miss.
// Concurrent callers for the same key share a single fn invocation.
// Errors from fn are returned and not memoized.
func (m *Memos) Once(ctx context.Context, key string, fn func(context.Context) (domain.Status, error)) (domain.Status, bool, error) {
	if s, ok := m.Status(key); ok {
		return s, true, nil
	}

	v, err, _ := m.flight.Do("status:"+key, func() (any, error) {
		if s, ok := m.Status(key); ok {
			return s, nil
		}
		s, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		m.SetStatus(key, s)
		return s, nil
	})
	if err != nil {
		return domain.StatusBlank, false, err
	}
	return v.(domain.Status), false, nil
}

// Expand returns the memoized options of expr, running fn on a miss.
//
// A failed run leaves a failure marker. The next call retries once; if it
// fails again the entry is removed and the call reports zero options, so a
// later call starts from scratch.
func (m *Memos) Expand(ctx context.Context, expr string, fn func(context.Context) ([]string, error)) (Expansion, error) {
	if e, ok := m.expansion(expr); ok && !e.failed {
		return e.Expansion, nil
	}

	v, err, _ := m.flight.Do("expand:"+expr, func() (any, error) {
		e, ok := m.expansion(expr)
		if ok && !e.failed {
			return e.Expansion, nil
		}
		retry := ok && e.failed

		options, err := fn(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			m.mu.Lock()
			if retry {
				delete(m.expansions, expr)
			} else {
				m.expansions[expr] = &expansionEntry{failed: true}
			}
			m.mu.Unlock()
			m.logger.Debug("expansion failed", "expr", expr, "retry", retry, "err", err)
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrExpansionFailed, expr, err)
		}

		exp := Expansion{Options: options, UUID: uuid.NewString()}
		m.mu.Lock()
		m.expansions[expr] = &expansionEntry{Expansion: exp}
		m.mu.Unlock()
		return exp, nil
	})
	if err != nil {
		return Expansion{}, err
	}
	return v.(Expansion), nil
}

// HasFailureMarker reports whether the last expansion of expr failed once.
func (m *Memos) HasFailureMarker(expr string) bool {
	e, ok := m.expansion(expr)
	return ok && e.failed
}

func (m *Memos) expansion(expr string) (*expansionEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.expansions[expr]
	return e, ok
}

// SetEnv records a captured variable and invalidates every memo key that
// references it.
func (m *Memos) SetEnv(key, value string) {
	m.mu.Lock()
	m.env[key] = value
	m.mu.Unlock()
	m.Invalidate(key)
}

// Env returns a captured variable.
func (m *Memos) Env(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.env[key]
	return v, ok
}

// Environ returns the base environment overlaid with the captured variables.
func (m *Memos) Environ() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.baseEnv)+len(m.env))
	for _, kv := range m.baseEnv {
		k, _, _ := strings.Cut(kv, "=")
		if _, overridden := m.env[k]; overridden {
			continue
		}
		out = append(out, kv)
	}
	keys := make([]string, 0, len(m.env))
	for k := range m.env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+m.env[k])
	}
	return out
}

// Invalidate purges status and expansion entries whose key references
// $name or ${name}.
func (m *Memos) Invalidate(name string) {
	q := regexp.QuoteMeta(name)
	re := regexp.MustCompile(`\$(\{` + q + `\}|` + q + `\b)`)

	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.status {
		if re.MatchString(k) {
			delete(m.status, k)
		}
	}
	for k := range m.expansions {
		if re.MatchString(k) {
			delete(m.expansions, k)
		}
	}
}

// Track registers a running subprocess.
func (m *Memos) Track(h ports.ProcessHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.procs = append(m.procs, h)
}

// Untrack removes a subprocess from the registry.
func (m *Memos) Untrack(h ports.ProcessHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.procs {
		if p.ID() == h.ID() {
			m.procs = append(m.procs[:i], m.procs[i+1:]...)
			return
		}
	}
}

// Running returns the number of tracked subprocesses.
func (m *Memos) Running() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.procs)
}

// Cleanup terminates every tracked subprocess in reverse spawn order.
// Calling it again is a no-op.
func (m *Memos) Cleanup(ctx context.Context) error {
	m.mu.Lock()
	procs := m.procs
	m.procs = nil
	m.mu.Unlock()

	var errs []error
	for i := len(procs) - 1; i >= 0; i-- {
		m.logger.Debug("terminating process", "id", procs[i].ID())
		if err := procs[i].Terminate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("terminate %s: %w", procs[i].ID(), err))
		}
	}
	return errors.Join(errs...)
}

// PushFinally registers a cleanup task.
func (m *Memos) PushFinally(st *domain.SubTask) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finallies = append(m.finallies, st)
}

// PopFinally removes and returns the cleanup tasks registered for the
// context key, most recent first.
func (m *Memos) PopFinally(key string) []*domain.SubTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.SubTask
	kept := m.finallies[:0]
	for _, st := range m.finallies {
		if st.FinallyFor == key {
			out = append(out, st)
		} else {
			kept = append(kept, st)
		}
	}
	m.finallies = kept
	reverse(out)
	return out
}

// DrainFinallies removes and returns every pending cleanup task, most recent first.
func (m *Memos) DrainFinallies() []*domain.SubTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.finallies
	m.finallies = nil
	reverse(out)
	return out
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
