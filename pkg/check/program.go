package check

import (
	"context"
	"runtime"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/j340m3/compiler/pkg/diag"
	"github.com/j340m3/compiler/pkg/syntax"
)

// DeclResult is the outcome of checking one top-level declaration.
type DeclResult struct {
	Name string
	Loc  *syntax.SourceLocation
	*Result
}

// ProgramResult collects the results of every declaration that was checked.
type ProgramResult struct {
	// Decls is in source order and omits skipped declarations.
	Decls []*DeclResult
	// Diagnostics of every checked declaration, in source order.
	Diagnostics diag.List
	// Skipped names the declarations that were never checked because the
	// error budget ran out.
	Skipped []string
}

// CheckProgram checks every declaration of prog independently and
// concurrently. Declarations do not see each other. Once MaxErrors
// diagnostics have been reported no further declarations are started;
// those already running finish.
func (c *Checker) CheckProgram(ctx context.Context, prog *syntax.Program) (*ProgramResult, error) {
	ctx, span := tracer.Start(ctx, "check.program", trace.WithAttributes(
		attribute.String("filename", prog.Filename),
		attribute.Int("declarations", len(prog.Decls)),
	))
	defer span.End()

	parallelism := c.config.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}

	results := make([]*DeclResult, len(prog.Decls))
	var reported atomic.Int64

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(parallelism)
	for i, decl := range prog.Decls {
		eg.Go(func() error {
			if limit := c.config.MaxErrors; limit > 0 && reported.Load() >= int64(limit) {
				return nil
			}
			ctx, span := tracer.Start(ctx, "check.decl", trace.WithAttributes(
				attribute.String("name", decl.Name.Name),
			))
			defer span.End()

			res, err := c.CheckExpr(ctx, decl.Value)
			if err != nil {
				return errors.Wrapf(err, "check %s", decl.Name.Name)
			}
			reported.Add(int64(res.Diagnostics.Len()))
			results[i] = &DeclResult{Name: decl.Name.Name, Loc: decl.Name.Loc, Result: res}
			c.logger.Debug("checked declaration",
				"name", decl.Name.Name,
				"type", res.Scheme,
				"diagnostics", res.Diagnostics.Len())
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := &ProgramResult{}
	for i, res := range results {
		if res == nil {
			out.Skipped = append(out.Skipped, prog.Decls[i].Name.Name)
			continue
		}
		out.Decls = append(out.Decls, res)
		out.Diagnostics.Add(res.Diagnostics...)
	}
	span.SetAttributes(attribute.Int("diagnostics", out.Diagnostics.Len()))
	return out, nil
}
