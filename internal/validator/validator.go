package validator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/guidebook/internal/expand"
	"github.com/aretw0/guidebook/pkg/domain"
)

// Severity ranks an Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding of Lint.
type Issue struct {
	Severity Severity
	LeafID   string
	Message  string
}

func (i Issue) String() string {
	if i.LeafID == "" {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("%s: leaf %s: %s", i.Severity, i.LeafID, i.Message)
}

// Lint checks a leaf list for mistakes the compiler tolerates silently:
// missing or duplicate ids, conflicting titles and modes within a choice
// group, cleanup tasks for unknown imports and malformed expand() groups.
// Issues are returned in leaf order.
func Lint(leaves []*domain.Leaf) []Issue {
	var (
		issues      []Issue
		seen        = make(map[string]bool)
		keys        = make(map[string]bool)
		groups      = make(map[string]*groupInfo)
		finally     []finallyRef
		badExpand   = make(map[string]bool)
		emptyLeaves []string
	)

	report := func(sev Severity, id, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, LeafID: id, Message: fmt.Sprintf(format, args...)})
	}

	for i, l := range leaves {
		if l == nil {
			report(SeverityError, "", "entry %d is empty", i)
			continue
		}
		switch {
		case l.ID == "":
			report(SeverityError, "", "entry %d has no id", i)
		case seen[l.ID]:
			report(SeverityError, l.ID, "duplicate id")
		default:
			seen[l.ID] = true
		}
		if l.Body == "" && l.Exec == "" {
			emptyLeaves = append(emptyLeaves, l.ID)
		}

		for _, n := range l.Nesting {
			switch d := n.(type) {
			case domain.Import:
				if d.Key == "" {
					report(SeverityError, l.ID, "import without key")
				}
				keys[d.Key] = true
				if d.FinallyFor != "" {
					finally = append(finally, finallyRef{leaf: l.ID, key: d.FinallyFor})
				}
			case domain.ChoiceMembership:
				if d.Group == "" {
					report(SeverityError, l.ID, "choice membership without group")
					continue
				}
				if strings.HasPrefix(strings.TrimSpace(d.Group), "expand(") {
					if _, ok := expand.Parse(d.Group); !ok && !badExpand[d.Group] {
						badExpand[d.Group] = true
						report(SeverityError, l.ID, "malformed dynamic group %q", d.Group)
					}
				}
				g := groups[d.Group]
				if g == nil {
					g = &groupInfo{parts: make(map[int]string)}
					groups[d.Group] = g
				}
				if msg := g.add(d); msg != "" {
					report(SeverityWarning, l.ID, "group %q: %s", d.Group, msg)
				}
			case domain.WizardStep:
				if d.Group == "" {
					report(SeverityError, l.ID, "wizard step without group")
				}
			}
		}
	}

	for _, f := range finally {
		if !keys[f.key] {
			report(SeverityError, f.leaf, "cleanup for unknown import %q", f.key)
		}
	}
	for _, id := range emptyLeaves {
		report(SeverityWarning, id, "no body and no exec")
	}
	return issues
}

// Validate runs Lint and joins its errors. Warnings are ignored.
func Validate(leaves []*domain.Leaf) error {
	var errs []error
	for _, issue := range Lint(leaves) {
		if issue.Severity == SeverityError {
			errs = append(errs, errors.New(issue.String()))
		}
	}
	return errors.Join(errs...)
}

// Counts returns the number of errors and warnings in issues.
func Counts(issues []Issue) (errs, warnings int) {
	for _, i := range issues {
		if i.Severity == SeverityError {
			errs++
		} else {
			warnings++
		}
	}
	return errs, warnings
}

type finallyRef struct {
	leaf string
	key  string
}

// groupInfo remembers the first title and mode seen for a choice group.
type groupInfo struct {
	title string
	mode  domain.ChoiceMode
	parts map[int]string
}

func (g *groupInfo) add(d domain.ChoiceMembership) string {
	var problems []string
	if d.ChoiceTitle != "" {
		if g.title == "" {
			g.title = d.ChoiceTitle
		} else if g.title != d.ChoiceTitle {
			problems = append(problems, fmt.Sprintf("title %q differs from %q", d.ChoiceTitle, g.title))
		}
	}
	if d.Mode != "" {
		if g.mode == "" {
			g.mode = d.Mode
		} else if g.mode != d.Mode {
			problems = append(problems, fmt.Sprintf("mode %q differs from %q", d.Mode, g.mode))
		}
	}
	if d.Title != "" {
		if prev, ok := g.parts[d.Member]; !ok {
			g.parts[d.Member] = d.Title
		} else if prev != d.Title {
			problems = append(problems, fmt.Sprintf("member %d titled %q and %q", d.Member, prev, d.Title))
		}
	}
	sort.Strings(problems)
	return strings.Join(problems, "; ")
}
