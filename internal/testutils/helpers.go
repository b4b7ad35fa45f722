package testutils

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/ports"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// WriteFile creates name with content in a fresh temporary directory and
// returns its absolute path. It fails the test immediately on error.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()

	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644), "Failed to write %s", name)
	return path
}

// MockExecutor is a testify mock of ports.Executor.
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Run(ctx context.Context, req domain.RunRequest, sess ports.Session) (domain.RunResult, error) {
	args := m.Called(ctx, req, sess)
	return args.Get(0).(domain.RunResult), args.Error(1)
}

func (m *MockExecutor) Start(ctx context.Context, req domain.RunRequest, sess ports.Session) (ports.ProcessHandle, error) {
	args := m.Called(ctx, req, sess)
	h, _ := args.Get(0).(ports.ProcessHandle)
	if h != nil && sess != nil {
		sess.Track(h)
	}
	return h, args.Error(1)
}

// MockPresenter is a testify mock of ports.Presenter.
type MockPresenter struct {
	mock.Mock
}

func (m *MockPresenter) Decide(ctx context.Context, d domain.Decision) (domain.Answer, error) {
	args := m.Called(ctx, d)
	return args.Get(0).(domain.Answer), args.Error(1)
}

// Command matches a RunRequest by its command line.
func Command(cmd string) any {
	return mock.MatchedBy(func(r domain.RunRequest) bool { return r.Command == cmd })
}

// LeafID matches a RunRequest by the id of the leaf it runs.
func LeafID(id string) any {
	return mock.MatchedBy(func(r domain.RunRequest) bool { return r.ID == id })
}

// Handle is a ProcessHandle that records termination.
type Handle struct {
	Name string
	Log  *Terminations
}

func (h *Handle) ID() string  { return h.Name }
func (h *Handle) Wait() error { return nil }
func (h *Handle) Terminate(context.Context) error {
	h.Log.add(h.Name)
	return nil
}

// Terminations records the order in which handles were terminated.
type Terminations struct {
	mu    sync.Mutex
	names []string
}

func (t *Terminations) add(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.names = append(t.names, name)
}

// Names returns the terminated handles in order.
func (t *Terminations) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.names...)
}
