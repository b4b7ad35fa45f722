package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/guidebook/internal/presentation/graph"
	"github.com/aretw0/guidebook/internal/progress"
	"github.com/aretw0/guidebook/internal/validator"
	"github.com/aretw0/guidebook/pkg/adapters/file"
	"github.com/aretw0/guidebook/pkg/domain"
)

// PrintPlan writes the pending decisions of the guidebook without running
// any leaf. Validation commands still run, since they decide what is pending.
func PrintPlan(ctx context.Context, opts RunOptions, w io.Writer) error {
	ws, err := OpenWorkspace(ctx, opts, createLogger(opts.Debug))
	if err != nil {
		return err
	}
	defer ws.Close(context.WithoutCancel(ctx))

	plan, err := ws.Engine.Plan(ctx)
	if err != nil {
		return err
	}

	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}

	fmt.Fprintf(w, "Profile: %s\nStatus:  %s\n", ws.Profile, plan.Status)
	n := 0
	for _, e := range plan.Frontier {
		if e.Choice == nil {
			if len(e.Prereqs) > 0 {
				fmt.Fprintf(w, "\nThen %s to run.\n", steps(e.Prereqs))
			}
			continue
		}
		n++
		c := e.Choice
		title := c.Title
		if title == "" {
			title = c.Group
		}
		fmt.Fprintf(w, "\n%d. %s [%s]", n, title, c.Context)
		if c.Mode != "" && c.Mode != domain.ChoiceSingle {
			fmt.Fprintf(w, " (%s)", c.Mode)
		}
		fmt.Fprintln(w)
		if len(e.Prereqs) > 0 {
			fmt.Fprintf(w, "   after %s\n", steps(e.Prereqs))
		}
		for _, p := range c.Parts {
			fmt.Fprintf(w, "   - %s\n", p.Title)
		}
	}
	if n == 0 {
		fmt.Fprintln(w, "\nNo pending decisions.")
	}
	return nil
}

func steps(nodes []domain.Node) string {
	count := 0
	for _, n := range nodes {
		count += len(domain.Leaves(n))
	}
	if count == 1 {
		return "1 leaf"
	}
	return fmt.Sprintf("%d leaves", count)
}

// PrintGraph writes a Mermaid flowchart of the optimized tree, styled with
// the status of every node and the next decision highlighted.
func PrintGraph(ctx context.Context, opts RunOptions, w io.Writer) error {
	ws, err := OpenWorkspace(ctx, opts, createLogger(opts.Debug))
	if err != nil {
		return err
	}
	defer ws.Close(context.WithoutCancel(ctx))

	plan, err := ws.Engine.Plan(ctx)
	if err != nil {
		return err
	}

	overlay := &graph.GraphOverlay{
		Status: func(n domain.Node) domain.Status {
			return progress.StatusOf(n, ws.Engine.Memos(), ws.Engine.State())
		},
	}
	if next := plan.Next(); next != nil {
		overlay.Current = next.Context
	}
	_, err = io.WriteString(w, graph.GenerateMermaid(plan.Tree, overlay))
	return err
}

// Validate lints the leaves at path and prints every issue. It fails when
// any issue is an error.
func Validate(ctx context.Context, path string, w io.Writer) error {
	leaves, err := file.NewLoader(path).Load(ctx)
	if err != nil {
		return err
	}

	issues := validator.Lint(leaves)
	for _, i := range issues {
		fmt.Fprintln(w, i.String())
	}
	errs, warnings := validator.Counts(issues)
	if errs > 0 {
		return fmt.Errorf("%d %s, %d %s", errs, plural(errs, "error"), warnings, plural(warnings, "warning"))
	}
	fmt.Fprintf(w, "%d %s valid", len(leaves), plural(len(leaves), "leaf"))
	if warnings > 0 {
		fmt.Fprintf(w, " (%d %s)", warnings, plural(warnings, "warning"))
	}
	fmt.Fprintln(w)
	return nil
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	if strings.HasSuffix(word, "f") {
		return strings.TrimSuffix(word, "f") + "ves"
	}
	return word + "s"
}
