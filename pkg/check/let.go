package check

import (
	"context"

	"github.com/kr/pretty"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/j340m3/compiler/pkg/bind"
	"github.com/j340m3/compiler/pkg/diag"
	"github.com/j340m3/compiler/pkg/hm"
	"github.com/j340m3/compiler/pkg/scope"
	"github.com/j340m3/compiler/pkg/syntax"
)

// ErrUnsoundGeneralization means a quantified variable was still free in
// the enclosing environment. It indicates a bug in the checker, never in
// the program being checked.
var ErrUnsoundGeneralization = errors.New("unsound generalization")

func (infer *inferer) inferLet(ctx context.Context, env *scope.Frame, let *syntax.Let) (hm.Type, error) {
	ctx, span := tracer.Start(ctx, "check.let", trace.WithAttributes(
		attribute.String("location", let.Loc.String()),
		attribute.Bool("rec", let.Rec),
		attribute.Int("bindings", len(let.Bindings)),
	))
	defer span.End()

	report := &LetReport{Loc: let.Loc, State: LetGrouping}
	infer.lets = append(infer.lets, report)
	start := infer.diags.Len()

	c := bind.Collect(let, infer.ids)
	infer.sites = append(infer.sites, c.Sites...)
	for _, conflict := range c.Conflicts {
		infer.diags.Add(diag.Conflict(conflict.Winner.Name, conflict.Loser.Ident.Loc, conflict.Winner.Ident.Loc))
	}

	groups := bind.GroupSites(c)
	infer.logger.Debug("grouped let", "location", let.Loc, "groups", pretty.Sprint(describeGroups(c, groups)))

	report.advance(LetSolving)
	for _, g := range groups {
		var err error
		env, err = infer.solveGroup(ctx, env, c, g, report)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	report.advance(LetBodyChecking)
	t, err := infer.infer(ctx, env, let.Body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if infer.diags.Len() > start {
		report.advance(LetFailed)
		span.SetStatus(codes.Error, "let has diagnostics")
	} else {
		report.advance(LetDone)
	}
	return t, nil
}

// solveGroup checks one binding group and returns env extended with the
// group's schemes. Failed members are installed as the error type so later
// groups and the body still check without cascading.
func (infer *inferer) solveGroup(ctx context.Context, env *scope.Frame, c *bind.Collection, g *bind.Group, report *LetReport) (*scope.Frame, error) {
	names := g.Names(c)
	_, span := tracer.Start(ctx, "check.group", trace.WithAttributes(
		attribute.StringSlice("members", names),
		attribute.Bool("recursive", g.Recursive),
	))
	defer span.End()

	gr := &GroupReport{Members: names, Recursive: g.Recursive, State: GroupCollecting}
	report.Groups = append(report.Groups, gr)

	// Every member gets a monomorphic placeholder, installed together so
	// that recursive references resolve.
	placeholders := make(map[bind.SiteID]hm.TypeVariable, len(g.Members))
	var entries []scope.Entry
	for _, id := range g.Members {
		site := c.Site(id)
		tv := infer.fresh.Fresh()
		placeholders[id] = tv
		if c.Installed(site) {
			entries = append(entries, scope.Entry{
				Name:        site.Name,
				Site:        int(id),
				Scheme:      hm.Monotype(tv),
				Placeholder: true,
			})
		}
	}
	solving := env.Extend(entries...)

	gr.advance(GroupSolving)
	failed := map[bind.SiteID]bool{}
	opaque := map[bind.SiteID]bool{}
	for _, id := range g.Members {
		site := c.Site(id)
		before := infer.diags.Len()
		t, err := infer.infer(ctx, solving, site.Value)
		if err != nil {
			return nil, err
		}
		infer.unify(site.Ident.Loc, placeholders[id], t)
		if failures(infer.diags[before:]) > 0 {
			failed[id] = true
		}
		// A value built from an earlier failure stays opaque rather than
		// generalizing its unconstrained placeholder.
		if _, ok := infer.subs.Apply(t).(hm.ErrorType); ok {
			opaque[id] = true
		}
	}

	outerFree := env.FreeTypeVar(infer.subs)
	var installed []scope.Entry
	for _, id := range g.Members {
		site := c.Site(id)
		var sch *hm.Scheme
		switch {
		case failed[id], opaque[id]:
			sch = hm.NewScheme(nil, hm.Error)
		case infer.config.Monomorphic:
			sch = hm.Monotype(infer.subs.Apply(placeholders[id]))
		default:
			sch = hm.Generalize(outerFree, infer.subs.Apply(placeholders[id]))
			for _, tv := range sch.TypeVars() {
				if outerFree.Contains(tv) {
					return nil, errors.Wrapf(ErrUnsoundGeneralization,
						"%s: %s quantifies %s, which is free in the enclosing scope", site.Ident.Loc, site.Name, tv)
				}
			}
		}
		infer.schemes[id] = sch
		if c.Installed(site) {
			installed = append(installed, scope.Entry{Name: site.Name, Site: int(id), Scheme: sch})
		}
		infer.logger.Debug("generalized", "name", site.Name, "scheme", sch, "failed", failed[id])
	}

	if len(failed) > 0 {
		gr.advance(GroupFailed)
		span.SetStatus(codes.Error, "group has diagnostics")
	} else {
		gr.advance(GroupGeneralized)
	}

	return env.Extend(installed...), nil
}

// failures counts the diagnostics that leave a member without a usable type.
// Conflicts are resolved by picking the last definition, so they do not.
func failures(diags diag.List) int {
	n := 0
	for _, d := range diags {
		if d.Kind != diag.ConflictingDefinitions {
			n++
		}
	}
	return n
}

func describeGroups(c *bind.Collection, groups []*bind.Group) []string {
	descs := make([]string, len(groups))
	for i, g := range groups {
		descs[i] = g.Describe(c)
	}
	return descs
}
