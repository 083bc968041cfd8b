package lsp

import (
	"context"
	"fmt"

	"github.com/creachadair/jrpc2"

	"github.com/j340m3/compiler/pkg/bind"
	"github.com/j340m3/compiler/pkg/check"
	"github.com/j340m3/compiler/pkg/hm"
	"github.com/j340m3/compiler/pkg/syntax"
)

// symbol is what the identifier under the cursor refers to.
type symbol struct {
	ident  *syntax.Ident
	name   string
	scheme *hm.Scheme
	// def is the defining identifier.
	def *syntax.Ident
}

// symbolAt finds the declaration name, binding site or resolved reference
// at pos.
func (f *File) symbolAt(pos Position) *symbol {
	if f.Result == nil {
		return nil
	}
	for _, d := range f.Result.Decls {
		if d.Loc != nil && contains(d.Loc, pos) {
			ident := &syntax.Ident{Name: d.Name, Loc: d.Loc}
			return &symbol{ident: ident, name: d.Name, scheme: d.Scheme, def: ident}
		}
		for _, site := range d.Sites {
			if contains(site.Ident.Loc, pos) {
				return siteSymbol(d.Result, site.Ident, site.ID)
			}
		}
		for _, ref := range d.References {
			if contains(ref.Ident.Loc, pos) {
				return siteSymbol(d.Result, ref.Ident, ref.Site)
			}
		}
	}
	return nil
}

func siteSymbol(res *check.Result, ident *syntax.Ident, id bind.SiteID) *symbol {
	site := res.Site(id)
	if site == nil {
		return nil
	}
	return &symbol{ident: ident, name: site.Name, scheme: res.Schemes[id], def: site.Ident}
}

func contains(loc *syntax.SourceLocation, pos Position) bool {
	if loc == nil || loc.Line-1 != pos.Line {
		return false
	}
	start := loc.Column - 1
	return pos.Character >= start && pos.Character < start+max(loc.Length, 1)
}

func (h *Handler) handleTextDocumentHover(ctx context.Context, req *jrpc2.Request) (any, error) {
	if !req.HasParams() {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "missing parameters")
	}

	var params TextDocumentPositionParams
	if err := req.UnmarshalParams(&params); err != nil {
		return nil, err
	}

	f := h.file(params.TextDocument.URI)
	if f == nil {
		return nil, nil
	}
	sym := f.symbolAt(params.Position)
	if sym == nil || sym.scheme == nil {
		return nil, nil
	}

	h.logger.DebugContext(ctx, "hover", "symbol", sym.name, "scheme", sym.scheme)
	rng := locRange(sym.ident.Loc, 1)
	return &Hover{
		Contents: MarkupContent{
			Kind:  "markdown",
			Value: fmt.Sprintf("```\n%s : %s\n```", sym.name, sym.scheme),
		},
		Range: &rng,
	}, nil
}

func (h *Handler) handleTextDocumentDefinition(ctx context.Context, req *jrpc2.Request) (any, error) {
	if !req.HasParams() {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "missing parameters")
	}

	var params TextDocumentPositionParams
	if err := req.UnmarshalParams(&params); err != nil {
		return nil, err
	}

	f := h.file(params.TextDocument.URI)
	if f == nil {
		return nil, nil
	}
	sym := f.symbolAt(params.Position)
	if sym == nil {
		return nil, nil
	}
	return &Location{
		URI:   params.TextDocument.URI,
		Range: locRange(sym.def.Loc, 1),
	}, nil
}
