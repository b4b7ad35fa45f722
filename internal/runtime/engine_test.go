package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aretw0/guidebook/internal/runtime"
	"github.com/aretw0/guidebook/internal/testutils"
	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func leaf(id string, nesting ...domain.Nesting) *domain.Leaf {
	return &domain.Leaf{ID: id, Lang: "sh", Body: "echo " + id, Nesting: nesting}
}

func db(member int, title string) domain.ChoiceMembership {
	return domain.ChoiceMembership{Group: "db", Member: member, Title: title, ChoiceTitle: "Database"}
}

func dbLeaves() []*domain.Leaf {
	return []*domain.Leaf{
		leaf("a"),
		leaf("b", db(1, "Postgres")),
		leaf("c", db(2, "MySQL")),
		leaf("d"),
	}
}

// trace records the order in which leaves and decisions happen.
type trace struct {
	mu     sync.Mutex
	events []string
}

func (tr *trace) add(s string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.events = append(tr.events, s)
}

func (tr *trace) get() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.events...)
}

func (tr *trace) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnLeafStart: func(_ context.Context, e *domain.LeafEvent) { tr.add("run:" + e.LeafID) },
		OnDecision:  func(_ context.Context, e *domain.DecisionEvent) { tr.add("decide:" + e.Context) },
	}
}

func succeed(exec *testutils.MockExecutor, ids ...string) {
	for _, id := range ids {
		exec.On("Run", mock.Anything, testutils.LeafID(id), mock.Anything).Return(domain.RunResult{}, nil).Once()
	}
}

func TestEngine_Run_DecidesThenExecutes(t *testing.T) {
	exec := new(testutils.MockExecutor)
	succeed(exec, "a", "b", "d")
	presenter := new(testutils.MockPresenter)
	presenter.On("Decide", mock.Anything, mock.Anything).Return(domain.SingleAnswer("postgres"), nil).Once()

	tr := &trace{}
	state := domain.NewChoiceState("dev")
	engine := runtime.NewEngine(exec, presenter, state, runtime.WithLifecycleHooks(tr.hooks()))

	err := engine.Run(context.Background(), dbLeaves())
	require.NoError(t, err)

	assert.Equal(t, []string{"decide:db", "run:a", "run:b", "run:d"}, tr.get())
	exec.AssertExpectations(t)
	presenter.AssertExpectations(t)

	d := presenter.Calls[0].Arguments.Get(1).(domain.Decision)
	assert.Equal(t, "db", d.Context)
	assert.Equal(t, "Database", d.Title)
	assert.Equal(t, domain.ChoiceSingle, d.Mode)
	require.Len(t, d.Options, 2)
	assert.Equal(t, "Postgres", d.Options[0].Title)
	assert.Equal(t, "MySQL", d.Options[1].Title)
	assert.Empty(t, d.Suggested)

	answer, ok := state.Get("db")
	require.True(t, ok)
	assert.Equal(t, "postgres", answer)

	status, err := engine.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, status)
}

func TestEngine_Run_StoredAnswerSkipsDecision(t *testing.T) {
	exec := new(testutils.MockExecutor)
	succeed(exec, "a", "c", "d")
	presenter := new(testutils.MockPresenter)

	state := domain.NewChoiceState("dev")
	state.Set("db", "MySQL", false)
	engine := runtime.NewEngine(exec, presenter, state)

	require.NoError(t, engine.Run(context.Background(), dbLeaves()))

	exec.AssertExpectations(t)
	presenter.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything)
}

func TestEngine_Run_SuggestsStaleAnswer(t *testing.T) {
	exec := new(testutils.MockExecutor)
	succeed(exec, "a", "c", "d")
	presenter := new(testutils.MockPresenter)
	presenter.On("Decide", mock.Anything, mock.MatchedBy(func(d domain.Decision) bool {
		return d.Suggested == "Oracle"
	})).Return(domain.SingleAnswer("MySQL"), nil).Once()

	state := domain.NewChoiceState("dev")
	state.Set("db", "Oracle", false)
	engine := runtime.NewEngine(exec, presenter, state)

	require.NoError(t, engine.Run(context.Background(), dbLeaves()))
	presenter.AssertExpectations(t)
	exec.AssertExpectations(t)
}

func TestEngine_Run_InvalidAnswer(t *testing.T) {
	exec := new(testutils.MockExecutor)
	presenter := new(testutils.MockPresenter)
	presenter.On("Decide", mock.Anything, mock.Anything).Return(domain.SingleAnswer("Oracle"), nil).Once()

	state := domain.NewChoiceState("dev")
	engine := runtime.NewEngine(exec, presenter, state)

	err := engine.Run(context.Background(), dbLeaves())
	require.ErrorIs(t, err, domain.ErrUnresolvedChoice)

	exec.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
	_, ok := state.Get("db")
	assert.False(t, ok)
}

func TestEngine_Run_NoPresenter(t *testing.T) {
	engine := runtime.NewEngine(new(testutils.MockExecutor), nil, nil)

	err := engine.Run(context.Background(), dbLeaves())
	assert.ErrorIs(t, err, domain.ErrUnresolvedChoice)
}

func TestEngine_Run_StopsAtFirstFailure(t *testing.T) {
	exec := new(testutils.MockExecutor)
	exec.On("Run", mock.Anything, testutils.LeafID("a"), mock.Anything).
		Return(domain.RunResult{ExitCode: 2}, &domain.ExecError{Command: "sh", ExitCode: 2, Stderr: "boom"}).Once()

	engine := runtime.NewEngine(exec, nil, nil)
	err := engine.Run(context.Background(), []*domain.Leaf{leaf("a"), leaf("b")})

	var execErr *domain.ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 2, execErr.ExitCode)
	exec.AssertNotCalled(t, "Run", mock.Anything, testutils.LeafID("b"), mock.Anything)

	s, ok := engine.Memos().Status("a")
	require.True(t, ok)
	assert.Equal(t, domain.StatusError, s)
}

func TestEngine_Run_OptionalLeafDegrades(t *testing.T) {
	exec := new(testutils.MockExecutor)
	exec.On("Run", mock.Anything, testutils.LeafID("a"), mock.Anything).
		Return(domain.RunResult{ExitCode: 1}, &domain.ExecError{Command: "sh", ExitCode: 1}).Once()
	succeed(exec, "b")

	a := leaf("a")
	a.Optional = true
	engine := runtime.NewEngine(exec, nil, nil)

	require.NoError(t, engine.Run(context.Background(), []*domain.Leaf{a, leaf("b")}))
	exec.AssertExpectations(t)

	s, _ := engine.Memos().Status("a")
	assert.Equal(t, domain.StatusWarning, s)

	status, err := engine.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWarning, status)
}

func TestEngine_Run_BarrierRunsBeforeDecision(t *testing.T) {
	exec := new(testutils.MockExecutor)
	succeed(exec, "setup", "b")
	presenter := new(testutils.MockPresenter)
	presenter.On("Decide", mock.Anything, mock.Anything).Return(domain.SingleAnswer("Postgres"), nil).Once()

	tr := &trace{}
	engine := runtime.NewEngine(exec, presenter, nil, runtime.WithLifecycleHooks(tr.hooks()))

	barrier := domain.Import{Key: "setup", Title: "Setup", Filepath: "setup.md", Barrier: true}
	err := engine.Run(context.Background(), []*domain.Leaf{
		leaf("setup", barrier),
		leaf("b", db(1, "Postgres")),
		leaf("c", db(2, "MySQL")),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"run:setup", "decide:db", "run:b"}, tr.get())
	exec.AssertExpectations(t)
}

func TestEngine_Run_FinallyRunsAfterContext(t *testing.T) {
	exec := new(testutils.MockExecutor)
	succeed(exec, "s1", "s2", "f1", "after")

	tr := &trace{}
	engine := runtime.NewEngine(exec, nil, nil, runtime.WithLifecycleHooks(tr.hooks()))

	setup := domain.Import{Key: "db-setup", Title: "Database", Filepath: "db.md"}
	cleanup := domain.Import{Key: "db-cleanup", Title: "Cleanup", Filepath: "cleanup.md", FinallyFor: "db-setup"}
	err := engine.Run(context.Background(), []*domain.Leaf{
		leaf("s1", setup),
		leaf("f1", setup, cleanup),
		leaf("s2", setup),
		leaf("after"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"run:s1", "run:s2", "run:f1", "run:after"}, tr.get())
}

func TestEngine_Run_FinallyRunsOnFailure(t *testing.T) {
	exec := new(testutils.MockExecutor)
	exec.On("Run", mock.Anything, testutils.LeafID("s1"), mock.Anything).
		Return(domain.RunResult{ExitCode: 1}, &domain.ExecError{Command: "sh", ExitCode: 1}).Once()
	succeed(exec, "f1")

	engine := runtime.NewEngine(exec, nil, nil)

	setup := domain.Import{Key: "db-setup", Title: "Database", Filepath: "db.md"}
	cleanup := domain.Import{Key: "db-cleanup", Title: "Cleanup", Filepath: "cleanup.md", FinallyFor: "db-setup"}
	err := engine.Run(context.Background(), []*domain.Leaf{
		leaf("f1", setup, cleanup),
		leaf("s1", setup),
		leaf("s2", setup),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Database")

	exec.AssertExpectations(t)
	exec.AssertNotCalled(t, "Run", mock.Anything, testutils.LeafID("s2"), mock.Anything)
}

func TestEngine_Run_IdempotencyGroup(t *testing.T) {
	exec := new(testutils.MockExecutor)
	succeed(exec, "x1")

	engine := runtime.NewEngine(exec, nil, nil)
	err := engine.Run(context.Background(), []*domain.Leaf{
		leaf("x1", domain.Import{Key: "a", Title: "Deps", Filepath: "a.md", IdempotencyGroup: "deps"}),
		leaf("x2", domain.Import{Key: "b", Title: "Deps again", Filepath: "b.md", IdempotencyGroup: "deps"}),
	})
	require.NoError(t, err)

	exec.AssertExpectations(t)
	exec.AssertNotCalled(t, "Run", mock.Anything, testutils.LeafID("x2"), mock.Anything)
}

func TestEngine_Run_CapturesEnvironment(t *testing.T) {
	exec := new(testutils.MockExecutor)
	exec.On("Run", mock.Anything, testutils.LeafID("a"), mock.Anything).
		Return(domain.RunResult{Env: map[string]string{"TARGET": "prod"}}, nil).Once()

	a := leaf("a")
	a.CaptureEnv = true
	engine := runtime.NewEngine(exec, nil, nil)

	require.NoError(t, engine.Run(context.Background(), []*domain.Leaf{a}))

	v, ok := engine.Memos().Env("TARGET")
	require.True(t, ok)
	assert.Equal(t, "prod", v)
}

func TestEngine_Run_RecordsValidatedSubtree(t *testing.T) {
	exec := new(testutils.MockExecutor)
	exec.On("Run", mock.Anything, testutils.Command("test -f done"), mock.Anything).
		Return(domain.RunResult{ExitCode: 1}, &domain.ExecError{Command: "test -f done", ExitCode: 1}).Once()
	succeed(exec, "v1")

	engine := runtime.NewEngine(exec, nil, nil)
	check := &domain.Validation{Command: "test -f done"}
	err := engine.Run(context.Background(), []*domain.Leaf{
		leaf("v1", domain.Import{Key: "install", Title: "Install", Filepath: "install.md", Validate: check}),
	})
	require.NoError(t, err)
	exec.AssertExpectations(t)

	s, ok := engine.Memos().Status(check.Key())
	require.True(t, ok)
	assert.Equal(t, domain.StatusSuccess, s)
}

func TestEngine_Run_InterruptCleansUp(t *testing.T) {
	log := &testutils.Terminations{}
	exec := new(testutils.MockExecutor)
	exec.On("Start", mock.Anything, testutils.LeafID("srv"), mock.Anything).
		Return(&testutils.Handle{Name: "srv", Log: log}, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	presenter := new(testutils.MockPresenter)
	presenter.On("Decide", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(domain.Answer{}, context.Canceled).Once()

	srv := leaf("srv", domain.Import{Key: "server", Title: "Server", Filepath: "server.md", Barrier: true})
	srv.Async = true

	engine := runtime.NewEngine(exec, presenter, nil)
	err := engine.Run(ctx, []*domain.Leaf{
		srv,
		leaf("b", db(1, "Postgres")),
		leaf("c", db(2, "MySQL")),
	})

	require.ErrorIs(t, err, domain.ErrInterrupted)
	assert.Equal(t, []string{"srv"}, log.Names())
	assert.Equal(t, 0, engine.Memos().Running())

	require.NoError(t, engine.Close(context.Background()))
	assert.Equal(t, []string{"srv"}, log.Names(), "cleanup must be idempotent")
}

func TestEngine_Run_AlreadyCancelled(t *testing.T) {
	exec := new(testutils.MockExecutor)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := runtime.NewEngine(exec, nil, nil)
	err := engine.Run(ctx, []*domain.Leaf{leaf("a")})

	assert.ErrorIs(t, err, domain.ErrInterrupted)
	assert.False(t, errors.Is(err, context.Canceled))
	exec.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_PlanChooseReject(t *testing.T) {
	ctx := context.Background()
	engine := runtime.NewEngine(nil, nil, domain.NewChoiceState("dev"))
	engine.Load(dbLeaves())

	plan, err := engine.Plan(ctx)
	require.NoError(t, err)
	require.NotNil(t, plan.Next())
	assert.Equal(t, "db", plan.Next().Context)
	assert.Equal(t, domain.StatusBlank, plan.Status)

	err = engine.Choose(ctx, "db", domain.SingleAnswer("Oracle"))
	require.ErrorIs(t, err, domain.ErrUnresolvedChoice)

	require.NoError(t, engine.Choose(ctx, "db", domain.SingleAnswer("MySQL")))
	plan, err = engine.Plan(ctx)
	require.NoError(t, err)
	assert.Nil(t, plan.Next())

	var ids []string
	for _, l := range domain.Leaves(plan.Tree) {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []string{"a", "c", "d"}, ids)

	require.NoError(t, engine.Reject(ctx, "db"))
	choices, err := engine.Choices(ctx)
	require.NoError(t, err)
	assert.True(t, choices.IsRejected("db"))

	plan, err = engine.Plan(ctx)
	require.NoError(t, err)
	assert.NotNil(t, plan.Next())
}
