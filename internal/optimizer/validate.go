package optimizer

import (
	"context"
	"time"

	"github.com/aretw0/guidebook/pkg/domain"
	"golang.org/x/sync/errgroup"
)

// CollapseValidated elides subtrees whose validation already holds.
//
// Each distinct validation command runs at most once per session; its result
// is memoized under validate:<command>. A zero exit elides the subtree, any
// failure keeps it. A literal true always elides. Leaves that already ran
// successfully in this session are elided too. Nodes whose provenance matches
// a veto pattern are never validated. Siblings are checked concurrently.
// Only context cancellation is returned as an error.
func (o *Optimizer) CollapseValidated(ctx context.Context, n domain.Node) (domain.Node, error) {
	return o.collapseValidated(ctx, n, nil)
}

func (o *Optimizer) collapseValidated(ctx context.Context, n domain.Node, prov []string) (domain.Node, error) {
	if domain.IsNil(n) {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch v := n.(type) {
	case *domain.Leaf:
		if s, ok := o.memos.Status(v.ID); ok && s == domain.StatusSuccess {
			return nil, nil
		}
		ok, err := o.validated(ctx, v.Validate, prov)
		if err != nil || ok {
			return nil, err
		}
		return v, nil

	case *domain.Sequence:
		steps, err := o.fanOut(ctx, v.Steps, prov)
		if err != nil {
			return nil, err
		}
		return &domain.Sequence{Steps: steps}, nil

	case *domain.Parallel:
		branches, err := o.fanOut(ctx, v.Branches, prov)
		if err != nil {
			return nil, err
		}
		return &domain.Parallel{Branches: branches}, nil

	case *domain.SubTask:
		if v.Filepath != "" {
			prov = extend(prov, v.Filepath)
		}
		ok, err := o.validated(ctx, v.Validate, prov)
		if err != nil || ok {
			return nil, err
		}
		body, err := o.collapseValidated(ctx, v.Body, prov)
		if err != nil {
			return nil, err
		}
		out := *v
		out.Body = domain.AsSequence(body)
		return &out, nil

	case *domain.TitledSteps:
		bodies := make([]domain.Node, len(v.Steps))
		for i, s := range v.Steps {
			bodies[i] = s.Body
		}
		res, err := o.fanOut(ctx, bodies, prov)
		if err != nil {
			return nil, err
		}
		out := *v
		out.Steps = make([]domain.TitledStep, len(v.Steps))
		for i, s := range v.Steps {
			s.Body = domain.AsSequence(res[i])
			out.Steps[i] = s
		}
		return &out, nil

	case *domain.Choice:
		prov = extend(prov, v.Origin...)
		bodies := make([]domain.Node, len(v.Parts))
		for i, p := range v.Parts {
			bodies[i] = p.Body
		}
		res, err := o.fanOut(ctx, bodies, prov)
		if err != nil {
			return nil, err
		}
		out := *v
		out.Parts = make([]domain.ChoicePart, len(v.Parts))
		for i, p := range v.Parts {
			p.Body = domain.AsSequence(res[i])
			out.Parts[i] = p
		}
		return &out, nil
	}
	return n, nil
}

// fanOut collapses siblings concurrently. Results keep the input positions;
// elided siblings are nil.
func (o *Optimizer) fanOut(ctx context.Context, nodes []domain.Node, prov []string) ([]domain.Node, error) {
	out := make([]domain.Node, len(nodes))
	g, gctx := errgroup.WithContext(ctx)
	for i, n := range nodes {
		g.Go(func() error {
			r, err := o.collapseValidated(gctx, n, prov)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// validated reports whether v holds. Failures are statuses, not errors.
func (o *Optimizer) validated(ctx context.Context, v *domain.Validation, prov []string) (bool, error) {
	if v == nil || o.vetoed(prov) {
		return false, nil
	}
	if v.Always {
		return true, nil
	}
	if v.Command == "" || o.exec == nil {
		return false, nil
	}

	key := v.Key()
	s, cached, err := o.memos.Once(ctx, key, func(ctx context.Context) (domain.Status, error) {
		_, err := o.exec.Run(ctx, domain.ValidationRequest(v), o.memos)
		if ctx.Err() != nil {
			return domain.StatusBlank, ctx.Err()
		}
		if err != nil {
			o.logger.Debug("validation failed", "key", key, "err", err)
			return domain.StatusBlank, nil
		}
		return domain.StatusSuccess, nil
	})
	if err != nil {
		return false, err
	}

	if o.hooks.OnValidate != nil {
		o.hooks.OnValidate(ctx, &domain.ValidateEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventValidate},
			Key:       key,
			Status:    s,
			Cached:    cached,
		})
	}
	return s == domain.StatusSuccess, nil
}

func (o *Optimizer) vetoed(prov []string) bool {
	for _, re := range o.veto {
		for _, p := range prov {
			if re.MatchString(p) {
				return true
			}
		}
	}
	return false
}

func extend(prov []string, more ...string) []string {
	out := make([]string, 0, len(prov)+len(more))
	out = append(out, prov...)
	return append(out, more...)
}
