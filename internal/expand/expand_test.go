package expand

import (
	"context"
	"testing"

	"github.com/aretw0/guidebook/internal/testutils"
	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/memo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		ok   bool
		want Expression
	}{
		{in: "os", ok: false},
		{in: `expand(ls /srv)`, ok: true, want: Expression{Command: "ls /srv"}},
		{in: `expand(ls, "Pick a server", SERVER)`, ok: true, want: Expression{Command: "ls", Message: "Pick a server", EnvKey: "SERVER"}},
		{in: `expand("printf 'a,b'", 'Say, what?')`, ok: true, want: Expression{Command: "printf 'a,b'", Message: "Say, what?"}},
		{in: `expand(echo "a\nb\nc")`, ok: true, want: Expression{Command: `echo "a\nb\nc"`}},
		{in: `expand()`, ok: false},
		{in: `expand(a, b, c, d)`, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Parse(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				tt.want.Raw = tt.in
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func template(group string) *domain.Choice {
	return &domain.Choice{
		Group:   group,
		Context: group,
		Title:   "Servers",
		Parts: []domain.ChoicePart{{
			Title:       "template",
			Description: "deploy to ${choice}",
			Body:        domain.Seq(&domain.Leaf{ID: "deploy", Body: "deploy ${choice} --run ${uuid}"}),
		}},
	}
}

func TestExpand_RunsOnce(t *testing.T) {
	exec := &testutils.MockExecutor{}
	exec.On("Run", mock.Anything, testutils.Command(`echo "a\nb\nc"`), mock.Anything).Return(domain.RunResult{Stdout: "a\nb\n\nc\n"}, nil).Once()

	m := memo.New()
	e := New(exec, m)
	c := template(`expand(echo "a\nb\nc")`)

	for i := 0; i < 2; i++ {
		out, err := e.Expand(context.Background(), c)
		require.NoError(t, err)
		ch, ok := out.(*domain.Choice)
		require.True(t, ok)
		require.Len(t, ch.Parts, 3)
		assert.Equal(t, "a", ch.Parts[0].Title)
		assert.Equal(t, "b", ch.Parts[1].Title)
		assert.Equal(t, "c", ch.Parts[2].Title)
		assert.Equal(t, "deploy to b", ch.Parts[1].Description)
	}
	exec.AssertNumberOfCalls(t, "Run", 1)
}

func TestExpand_UUIDStable(t *testing.T) {
	exec := &testutils.MockExecutor{}
	exec.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(domain.RunResult{Stdout: "x\ny"}, nil)

	e := New(exec, memo.New())
	c := template("expand(ls)")

	first, err := e.Expand(context.Background(), c)
	require.NoError(t, err)
	second, err := e.Expand(context.Background(), c)
	require.NoError(t, err)

	body := func(n domain.Node, i int) string {
		return domain.Leaves(n.(*domain.Choice).Parts[i].Body)[0].Body
	}
	assert.Equal(t, body(first, 0), body(second, 0))
	assert.NotContains(t, body(first, 0), "${uuid}")

	// One uuid per expansion, shared by every part.
	suffix := func(s string) string { return s[len(s)-36:] }
	assert.Equal(t, suffix(body(first, 0)), suffix(body(first, 1)))

	// Template input untouched.
	assert.Equal(t, "deploy ${choice} --run ${uuid}", domain.Leaves(c)[0].Body)
}

func TestExpand_MessageOverridesTitle(t *testing.T) {
	exec := &testutils.MockExecutor{}
	exec.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(domain.RunResult{Stdout: "x"}, nil)

	out, err := New(exec, memo.New()).Expand(context.Background(), template(`expand(ls, "Where to?")`))
	require.NoError(t, err)
	assert.Equal(t, "Where to?", out.(*domain.Choice).Title)
}

func TestExpand_EnvKeyResolves(t *testing.T) {
	exec := &testutils.MockExecutor{}
	m := memo.New()
	m.SetEnv("SERVER", "prod-1")

	out, err := New(exec, m).Expand(context.Background(), template("expand(ls, Pick, SERVER)"))
	require.NoError(t, err)

	seq, ok := out.(*domain.Sequence)
	require.True(t, ok, "env value resolves the choice directly")
	assert.Contains(t, domain.Leaves(seq)[0].Body, "deploy prod-1 --run ")
	exec.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestExpand_FailureProtocol(t *testing.T) {
	exec := &testutils.MockExecutor{}
	exec.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.RunResult{}, &domain.ExecError{Command: "false", ExitCode: 1})

	var events []*domain.ExpandEvent
	hooks := domain.LifecycleHooks{OnExpand: func(_ context.Context, ev *domain.ExpandEvent) { events = append(events, ev) }}
	e := New(exec, memo.New(), WithLifecycleHooks(hooks))
	c := template("expand(false)")

	for i := 0; i < 3; i++ {
		out, err := e.Expand(context.Background(), c)
		require.NoError(t, err)
		assert.Nil(t, out)
	}
	exec.AssertNumberOfCalls(t, "Run", 3)
	require.Len(t, events, 3)
	assert.True(t, events[0].Failed)
}

func TestExpand_NotAnExpression(t *testing.T) {
	c := template("os")
	out, err := New(&testutils.MockExecutor{}, memo.New()).Expand(context.Background(), c)
	require.NoError(t, err)
	assert.Same(t, c, out)
}
