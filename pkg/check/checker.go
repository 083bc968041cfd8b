// Package check resolves names and infers types for let-constructs: each
// let is split into dependency-ordered binding groups, every group is
// solved against monomorphic placeholders and then generalized, and the
// body is checked with every binding in scope.
package check

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"

	"github.com/j340m3/compiler/pkg/bind"
	"github.com/j340m3/compiler/pkg/diag"
	"github.com/j340m3/compiler/pkg/hm"
	"github.com/j340m3/compiler/pkg/scope"
	"github.com/j340m3/compiler/pkg/syntax"
)

var tracer = otel.Tracer("github.com/j340m3/compiler/pkg/check")

// Checker checks expressions and programs. It holds no per-check state and
// is safe for concurrent use.
type Checker struct {
	config  CheckConfig
	prelude *scope.Frame
	logger  *slog.Logger
}

// NewChecker returns a Checker starting every check from the prelude. A nil
// logger means slog.Default().
func NewChecker(config CheckConfig, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		config:  config,
		prelude: Prelude(),
		logger:  logger,
	}
}

// Result is everything one check produces.
type Result struct {
	// Type is the inferred type of the checked expression, or the error type
	// if it could not be determined.
	Type hm.Type
	// Scheme closes Type over its free variables.
	Scheme *hm.Scheme
	// Sites lists every binding site encountered, in the order the let
	// constructs were entered.
	Sites []*bind.Site
	// Schemes holds the final scheme of every site. Conflict losers are
	// present even though they were never in scope.
	Schemes map[bind.SiteID]*hm.Scheme
	// References records every use of a let-bound name and the site it
	// resolved to, in the order the uses were checked.
	References []Reference
	// Lets reports each let-construct in the order it was entered.
	Lets []*LetReport

	Diagnostics diag.List
}

// Reference is one resolved use of a let-bound name.
type Reference struct {
	Ident *syntax.Ident
	Site  bind.SiteID
}

// Site returns the binding site with the given id.
func (r *Result) Site(id bind.SiteID) *bind.Site {
	for _, s := range r.Sites {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// SchemeOf returns the scheme of the first site bound to name.
func (r *Result) SchemeOf(name string) (*hm.Scheme, bool) {
	for _, s := range r.Sites {
		if s.Name == name {
			sch, ok := r.Schemes[s.ID]
			return sch, ok
		}
	}
	return nil, false
}

// CheckExpr runs one independent check of expr. User errors are reported
// as diagnostics; the error return is for internal failures and for a
// context that is already done.
func (c *Checker) CheckExpr(ctx context.Context, expr syntax.Expr) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	infer := c.newInferer()
	t, err := infer.infer(ctx, c.prelude, expr)
	if err != nil {
		return nil, err
	}

	t = infer.subs.Apply(t)
	schemes := make(map[bind.SiteID]*hm.Scheme, len(infer.schemes))
	for id, sch := range infer.schemes {
		schemes[id] = sch.Apply(infer.subs).(*hm.Scheme)
	}
	infer.diags.Sort()

	return &Result{
		Type:        t,
		Scheme:      hm.Generalize(c.prelude.FreeTypeVar(nil), t),
		Sites:       infer.sites,
		Schemes:     schemes,
		References:  infer.refs,
		Lets:        infer.lets,
		Diagnostics: infer.diags,
	}, nil
}
