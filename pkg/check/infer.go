package check

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/j340m3/compiler/pkg/bind"
	"github.com/j340m3/compiler/pkg/diag"
	"github.com/j340m3/compiler/pkg/hm"
	"github.com/j340m3/compiler/pkg/scope"
	"github.com/j340m3/compiler/pkg/syntax"
)

// inferer is the state of one check. Nothing in it is shared.
type inferer struct {
	config CheckConfig
	logger *slog.Logger

	fresh *hm.Counter
	subs  hm.Subs
	ids   *bind.IDs
	diags diag.List

	sites   []*bind.Site
	schemes map[bind.SiteID]*hm.Scheme
	refs    []Reference
	lets    []*LetReport
}

func (c *Checker) newInferer() *inferer {
	return &inferer{
		config:  c.config,
		logger:  c.logger,
		fresh:   hm.NewCounter(0),
		subs:    hm.NewSubs(),
		ids:     &bind.IDs{},
		schemes: map[bind.SiteID]*hm.Scheme{},
	}
}

func (infer *inferer) infer(ctx context.Context, env *scope.Frame, expr syntax.Expr) (hm.Type, error) {
	switch e := expr.(type) {
	case *syntax.IntLit:
		return hm.Int, nil
	case *syntax.StringLit:
		return hm.String, nil
	case *syntax.BoolLit:
		return hm.Bool, nil
	case *syntax.UnitLit:
		return hm.Unit, nil

	case *syntax.Var:
		entry, _, found := env.Lookup(e.Ident.Name)
		if !found {
			infer.diags.Add(diag.Unresolved(e.Ident, env.Visible(), infer.config.Suggestions))
			return hm.Error, nil
		}
		if entry.Site != 0 {
			infer.refs = append(infer.refs, Reference{Ident: e.Ident, Site: bind.SiteID(entry.Site)})
		}
		return hm.Instantiate(infer.fresh, entry.Scheme), nil

	case *syntax.Lambda:
		param := infer.fresh.Fresh()
		inner := env.Extend(scope.Entry{Name: e.Param.Name, Scheme: hm.Monotype(param)})
		body, err := infer.infer(ctx, inner, e.Body)
		if err != nil {
			return nil, err
		}
		return hm.NewFnType(param, body), nil

	case *syntax.Apply:
		fnT, err := infer.infer(ctx, env, e.Fn)
		if err != nil {
			return nil, err
		}
		argT, err := infer.infer(ctx, env, e.Arg)
		if err != nil {
			return nil, err
		}
		switch ft := infer.subs.Apply(fnT).(type) {
		case *hm.FunctionType:
			infer.unify(e.Arg.GetSourceLocation(), ft.Arg(), argT)
			return ft.Ret(), nil
		case hm.ErrorType:
			return hm.Error, nil
		default:
			ret := infer.fresh.Fresh()
			if !infer.unify(e.Fn.GetSourceLocation(), hm.NewFnType(argT, ret), ft) {
				return hm.Error, nil
			}
			return ret, nil
		}

	case *syntax.If:
		condT, err := infer.infer(ctx, env, e.Cond)
		if err != nil {
			return nil, err
		}
		infer.unify(e.Cond.GetSourceLocation(), hm.Bool, condT)
		thenT, err := infer.infer(ctx, env, e.Then)
		if err != nil {
			return nil, err
		}
		elseT, err := infer.infer(ctx, env, e.Else)
		if err != nil {
			return nil, err
		}
		infer.unify(e.Else.GetSourceLocation(), thenT, elseT)
		return thenT, nil

	case *syntax.BinOp:
		sch, ok := operators[e.Op]
		if !ok {
			return nil, errors.Errorf("%s: unknown operator %q", e.Loc, e.Op)
		}
		left, err := infer.infer(ctx, env, e.Left)
		if err != nil {
			return nil, err
		}
		right, err := infer.infer(ctx, env, e.Right)
		if err != nil {
			return nil, err
		}
		opT := hm.Instantiate(infer.fresh, sch).(*hm.FunctionType)
		rest := opT.Ret().(*hm.FunctionType)
		infer.unify(e.Left.GetSourceLocation(), opT.Arg(), left)
		infer.unify(e.Right.GetSourceLocation(), rest.Arg(), right)
		return rest.Ret(), nil

	case *syntax.Tuple:
		elems := make(hm.Types, len(e.Elems))
		for i, el := range e.Elems {
			t, err := infer.infer(ctx, env, el)
			if err != nil {
				return nil, err
			}
			elems[i] = t
		}
		return hm.TupleType{Elems: elems}, nil

	case *syntax.Let:
		return infer.inferLet(ctx, env, e)

	default:
		return nil, errors.Errorf("expression of type %T is unhandled", expr)
	}
}

// unify makes expected and actual equal under the check's substitution. On
// failure it reports a type mismatch at loc and leaves the substitution
// untouched.
func (infer *inferer) unify(loc *syntax.SourceLocation, expected, actual hm.Type) bool {
	expected, actual = infer.subs.Apply(expected), infer.subs.Apply(actual)
	s, err := hm.Unify(expected, actual)
	if err != nil {
		infer.diags.Add(diag.Mismatch(loc, expected, actual))
		return false
	}
	infer.subs = infer.subs.Compose(s)
	return true
}
