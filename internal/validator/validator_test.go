package validator

import (
	"strings"
	"testing"

	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(id string, nesting ...domain.Nesting) *domain.Leaf {
	return &domain.Leaf{ID: id, Body: "echo " + id, Nesting: nesting}
}

func TestLint_Clean(t *testing.T) {
	leaves := []*domain.Leaf{
		leaf("a", domain.Import{Key: "db", Title: "Database"}),
		leaf("b", domain.ChoiceMembership{Group: "os", Member: 0, Title: "Linux", ChoiceTitle: "OS"}),
		leaf("c", domain.ChoiceMembership{Group: "os", Member: 1, Title: "macOS", ChoiceTitle: "OS"}),
		leaf("d", domain.Import{Key: "cleanup", FinallyFor: "db"}),
		leaf("e", domain.ChoiceMembership{Group: `expand("ls", "Pick")`, Member: 0, Title: "${name}"}),
	}
	assert.Empty(t, Lint(leaves))
	assert.NoError(t, Validate(leaves))
}

func TestLint_Findings(t *testing.T) {
	tests := []struct {
		name     string
		leaves   []*domain.Leaf
		severity Severity
		contains string
	}{
		{
			name:     "Duplicate ID",
			leaves:   []*domain.Leaf{leaf("a"), leaf("a")},
			severity: SeverityError,
			contains: "duplicate id",
		},
		{
			name:     "Missing ID",
			leaves:   []*domain.Leaf{{Body: "x"}},
			severity: SeverityError,
			contains: "has no id",
		},
		{
			name: "Inconsistent Choice Title",
			leaves: []*domain.Leaf{
				leaf("a", domain.ChoiceMembership{Group: "os", Member: 0, ChoiceTitle: "OS"}),
				leaf("b", domain.ChoiceMembership{Group: "os", Member: 1, ChoiceTitle: "Platform"}),
			},
			severity: SeverityWarning,
			contains: `title "Platform" differs from "OS"`,
		},
		{
			name: "Inconsistent Mode",
			leaves: []*domain.Leaf{
				leaf("a", domain.ChoiceMembership{Group: "tools", Member: 0, Mode: domain.ChoiceMulti}),
				leaf("b", domain.ChoiceMembership{Group: "tools", Member: 1, Mode: domain.ChoiceSingle}),
			},
			severity: SeverityWarning,
			contains: "mode",
		},
		{
			name: "Member Titled Twice",
			leaves: []*domain.Leaf{
				leaf("a", domain.ChoiceMembership{Group: "os", Member: 0, Title: "Linux"}),
				leaf("b", domain.ChoiceMembership{Group: "os", Member: 0, Title: "GNU/Linux"}),
			},
			severity: SeverityWarning,
			contains: "member 0",
		},
		{
			name:     "Finally Without Import",
			leaves:   []*domain.Leaf{leaf("a", domain.Import{Key: "teardown", FinallyFor: "ghost"})},
			severity: SeverityError,
			contains: `unknown import "ghost"`,
		},
		{
			name:     "Malformed Expand",
			leaves:   []*domain.Leaf{leaf("a", domain.ChoiceMembership{Group: "expand()", Member: 0})},
			severity: SeverityError,
			contains: "malformed dynamic group",
		},
		{
			name:     "Empty Leaf",
			leaves:   []*domain.Leaf{{ID: "a"}},
			severity: SeverityWarning,
			contains: "no body and no exec",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := Lint(tt.leaves)
			require.NotEmpty(t, issues)
			var found bool
			for _, i := range issues {
				if i.Severity == tt.severity && strings.Contains(i.String(), tt.contains) {
					found = true
				}
			}
			assert.True(t, found, "no %s issue containing %q in %v", tt.severity, tt.contains, issues)
		})
	}
}

func TestLint_MalformedExpandReportedOnce(t *testing.T) {
	issues := Lint([]*domain.Leaf{
		leaf("a", domain.ChoiceMembership{Group: "expand()", Member: 0}),
		leaf("b", domain.ChoiceMembership{Group: "expand()", Member: 0}),
	})
	errs, _ := Counts(issues)
	assert.Equal(t, 1, errs)
}

func TestValidate_IgnoresWarnings(t *testing.T) {
	assert.NoError(t, Validate([]*domain.Leaf{{ID: "empty"}}))

	err := Validate([]*domain.Leaf{leaf("a"), leaf("a")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leaf a: duplicate id")
}
