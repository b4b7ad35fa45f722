package compiler

import (
	"testing"

	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(id string, nesting ...domain.Nesting) *domain.Leaf {
	return &domain.Leaf{ID: id, Lang: "sh", Body: "echo " + id, Nesting: nesting}
}

func member(group string, m int, title string) domain.ChoiceMembership {
	return domain.ChoiceMembership{Group: group, Member: m, Title: title, ChoiceTitle: "Pick " + group}
}

func ids(n domain.Node) []string {
	var out []string
	for _, l := range domain.Leaves(n) {
		out = append(out, l.ID)
	}
	return out
}

func TestCompile_RoundTrip(t *testing.T) {
	leaves := []*domain.Leaf{leaf("a"), leaf("b"), leaf("c"), leaf("d")}

	g := Compile(leaves)

	require.NotNil(t, g)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(g))
	assert.Len(t, g.Steps, 4)
}

func TestCompile_EmptyInput(t *testing.T) {
	g := Compile(nil)
	require.NotNil(t, g)
	assert.Empty(t, g.Steps)
}

func TestCompile_ChoiceParts(t *testing.T) {
	g := Compile([]*domain.Leaf{
		leaf("intro"),
		leaf("l1", member("os", 1, "Linux")),
		leaf("l2", member("os", 1, "Linux")),
		leaf("m1", member("os", 2, "macOS")),
		leaf("outro"),
	})

	require.Len(t, g.Steps, 3)
	ch, ok := g.Steps[1].(*domain.Choice)
	require.True(t, ok, "expected a choice, got %T", g.Steps[1])
	assert.Equal(t, "os", ch.Context)
	assert.Equal(t, "Pick os", ch.Title)
	assert.Equal(t, domain.ChoiceSingle, ch.Mode)
	require.Len(t, ch.Parts, 2)
	assert.Equal(t, "Linux", ch.Parts[0].Title)
	assert.Equal(t, []string{"l1", "l2"}, ids(ch.Parts[0].Body))
	assert.Equal(t, "macOS", ch.Parts[1].Title)
	assert.Equal(t, []string{"m1"}, ids(ch.Parts[1].Body))
}

func TestCompile_RepeatedGroupGetsNewContext(t *testing.T) {
	g := Compile([]*domain.Leaf{
		leaf("l1", member("os", 1, "Linux")),
		leaf("mid"),
		leaf("l2", member("os", 1, "Linux")),
		leaf("l3", member("os", 2, "macOS")),
	})

	require.Len(t, g.Steps, 3)
	first := g.Steps[0].(*domain.Choice)
	second := g.Steps[2].(*domain.Choice)
	assert.Equal(t, "os", first.Context)
	assert.Equal(t, "os#2", second.Context)
	assert.Len(t, second.Parts, 2)
}

func TestCompile_NestedImportAndChoice(t *testing.T) {
	imp := domain.Import{Key: "setup.md", Title: "Setup", Filepath: "docs/setup.md"}
	g := Compile([]*domain.Leaf{
		leaf("s1", imp),
		leaf("s2", imp, member("db", 1, "Postgres")),
		leaf("s3", imp, member("db", 2, "SQLite")),
		leaf("s4", imp),
	})

	require.Len(t, g.Steps, 1)
	st, ok := g.Steps[0].(*domain.SubTask)
	require.True(t, ok)
	assert.Equal(t, "setup.md", st.Key)
	assert.Equal(t, "docs/setup.md", st.Filepath)
	require.Len(t, st.Body.Steps, 3)
	assert.True(t, domain.IsChoice(st.Body.Steps[1]))
	assert.Equal(t, []string{"s1", "s2", "s3", "s4"}, ids(g))
}

func TestCompile_SiblingPartClosesDeeperFrames(t *testing.T) {
	imp := domain.Import{Key: "x", Title: "X"}
	g := Compile([]*domain.Leaf{
		leaf("a1", member("g", 1, "A"), imp),
		leaf("a2", member("g", 1, "A")),
		leaf("b1", member("g", 2, "B")),
	})

	require.Len(t, g.Steps, 1)
	ch := g.Steps[0].(*domain.Choice)
	require.Len(t, ch.Parts, 2)
	assert.Equal(t, []string{"a1", "a2"}, ids(ch.Parts[0].Body))
	assert.True(t, domain.IsSubTask(ch.Parts[0].Body.Steps[0]))
	assert.Equal(t, []string{"b1"}, ids(ch.Parts[1].Body))
}

func TestCompile_InterruptedGroupStartsNewChoice(t *testing.T) {
	imp := domain.Import{Key: "a.md", Title: "A"}
	g := Compile([]*domain.Leaf{
		leaf("1", imp, member("g", 1, "One")),
		leaf("2", imp),
		leaf("3", imp, member("g", 2, "Two")),
	})

	st := g.Steps[0].(*domain.SubTask)
	require.Len(t, st.Body.Steps, 3)
	first := st.Body.Steps[0].(*domain.Choice)
	second := st.Body.Steps[2].(*domain.Choice)
	assert.Equal(t, "g", first.Context)
	assert.Equal(t, "g#2", second.Context)
}

func TestCompile_Wizard(t *testing.T) {
	step := func(m int, title string) domain.WizardStep {
		return domain.WizardStep{Group: "w", Member: m, Title: title, WizardTitle: "Install"}
	}
	g := Compile([]*domain.Leaf{
		leaf("1", step(1, "Download")),
		leaf("2", step(2, "Configure")),
		leaf("3", step(2, "Configure")),
	})

	require.Len(t, g.Steps, 1)
	ts, ok := g.Steps[0].(*domain.TitledSteps)
	require.True(t, ok)
	assert.Equal(t, "Install", ts.Title)
	require.Len(t, ts.Steps, 2)
	assert.Equal(t, "Configure", ts.Steps[1].Title)
	assert.Equal(t, []string{"2", "3"}, ids(ts.Steps[1].Body))
}

func TestCompile_DoesNotMutateLeaves(t *testing.T) {
	l := leaf("a", member("g", 1, "A"))
	before := *l
	_ = Compile([]*domain.Leaf{l})
	assert.Equal(t, before, *l)
}

func TestCompile_NilAndPointerDescriptors(t *testing.T) {
	var missing *domain.Import
	linux := member("os", 1, "Linux")
	g := Compile([]*domain.Leaf{
		leaf("a", nil, missing),
		leaf("l1", nil, &linux),
		leaf("m1", member("os", 2, "macOS")),
	})

	require.Len(t, g.Steps, 2)
	assert.Equal(t, "a", g.Steps[0].(*domain.Leaf).ID)
	ch, ok := g.Steps[1].(*domain.Choice)
	require.True(t, ok, "expected a choice, got %T", g.Steps[1])
	require.Len(t, ch.Parts, 2)
	assert.Equal(t, []string{"l1"}, ids(ch.Parts[0].Body))
	assert.Equal(t, []string{"m1"}, ids(ch.Parts[1].Body))
}
