package syntax

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is any expression node.
type Expr interface {
	SourceLocatable
	fmt.Stringer
	isExpr()
}

// Ident is one occurrence of a name. Two occurrences of the same name are
// distinct Idents and may refer to different binding sites.
type Ident struct {
	Name string
	Loc  *SourceLocation
}

func (i *Ident) GetSourceLocation() *SourceLocation { return i.Loc }
func (i *Ident) String() string                     { return i.Name }

type IntLit struct {
	Value int64
	Loc   *SourceLocation
}

type StringLit struct {
	Value string
	Loc   *SourceLocation
}

type BoolLit struct {
	Value bool
	Loc   *SourceLocation
}

type UnitLit struct {
	Loc *SourceLocation
}

// Var is a reference to a name.
type Var struct {
	Ident *Ident
}

// Lambda is a single-parameter function; multi-parameter functions are
// curried by the parser.
type Lambda struct {
	Param *Ident
	Body  Expr
	Loc   *SourceLocation
}

type Apply struct {
	Fn  Expr
	Arg Expr
	Loc *SourceLocation
}

type If struct {
	Cond, Then, Else Expr
	Loc              *SourceLocation
}

type BinOp struct {
	Op          string
	Left, Right Expr
	Loc         *SourceLocation
}

type Tuple struct {
	Elems []Expr
	Loc   *SourceLocation
}

// Let introduces one or more bindings and a body in which they are visible.
// Bindings may reference each other regardless of order; Rec is recorded
// for fidelity with the source but does not change visibility.
type Let struct {
	Rec      bool
	Bindings []*Binding
	Body     Expr
	Loc      *SourceLocation
}

// Binding is `name params... = value`.
type Binding struct {
	Name   *Ident
	Params []*Ident
	Value  Expr
}

// Definition returns the binding's defining expression with its parameters
// folded into nested lambdas.
func (b *Binding) Definition() Expr {
	body := b.Value
	for i := len(b.Params) - 1; i >= 0; i-- {
		body = &Lambda{Param: b.Params[i], Body: body, Loc: b.Params[i].Loc}
	}
	return body
}

// Decl is an independent top-level declaration.
type Decl struct {
	Name  *Ident
	Value Expr
}

type Program struct {
	Filename string
	Decls    []*Decl
}

func (*IntLit) isExpr()    {}
func (*StringLit) isExpr() {}
func (*BoolLit) isExpr()   {}
func (*UnitLit) isExpr()   {}
func (*Var) isExpr()       {}
func (*Lambda) isExpr()    {}
func (*Apply) isExpr()     {}
func (*If) isExpr()        {}
func (*BinOp) isExpr()     {}
func (*Tuple) isExpr()     {}
func (*Let) isExpr()       {}

func (e *IntLit) GetSourceLocation() *SourceLocation    { return e.Loc }
func (e *StringLit) GetSourceLocation() *SourceLocation { return e.Loc }
func (e *BoolLit) GetSourceLocation() *SourceLocation   { return e.Loc }
func (e *UnitLit) GetSourceLocation() *SourceLocation   { return e.Loc }
func (e *Var) GetSourceLocation() *SourceLocation       { return e.Ident.Loc }
func (e *Lambda) GetSourceLocation() *SourceLocation    { return e.Loc }
func (e *Apply) GetSourceLocation() *SourceLocation     { return e.Loc }
func (e *If) GetSourceLocation() *SourceLocation        { return e.Loc }
func (e *BinOp) GetSourceLocation() *SourceLocation     { return e.Loc }
func (e *Tuple) GetSourceLocation() *SourceLocation     { return e.Loc }
func (e *Let) GetSourceLocation() *SourceLocation       { return e.Loc }

func (e *IntLit) String() string    { return strconv.FormatInt(e.Value, 10) }
func (e *StringLit) String() string { return strconv.Quote(e.Value) }
func (e *BoolLit) String() string   { return strconv.FormatBool(e.Value) }
func (e *UnitLit) String() string   { return "()" }
func (e *Var) String() string       { return e.Ident.Name }

func (e *Lambda) String() string {
	return fmt.Sprintf("(fun %s -> %s)", e.Param.Name, e.Body)
}

func (e *Apply) String() string {
	return fmt.Sprintf("(%s %s)", e.Fn, e.Arg)
}

func (e *If) String() string {
	return fmt.Sprintf("(if %s then %s else %s)", e.Cond, e.Then, e.Else)
}

func (e *BinOp) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

func (e *Tuple) String() string {
	parts := make([]string, len(e.Elems))
	for i, el := range e.Elems {
		parts[i] = el.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (e *Let) String() string {
	var sb strings.Builder
	sb.WriteString("(let ")
	if e.Rec {
		sb.WriteString("rec ")
	}
	for i, b := range e.Bindings {
		if i > 0 {
			sb.WriteString(" and ")
		}
		sb.WriteString(b.Name.Name)
		for _, p := range b.Params {
			sb.WriteString(" " + p.Name)
		}
		sb.WriteString(" = ")
		sb.WriteString(b.Value.String())
	}
	sb.WriteString(" in ")
	sb.WriteString(e.Body.String())
	sb.WriteString(")")
	return sb.String()
}

// Walk traverses expr in pre-order, descending into children while fn
// returns true.
func Walk(expr Expr, fn func(Expr) bool) {
	if expr == nil || !fn(expr) {
		return
	}
	switch e := expr.(type) {
	case *Lambda:
		Walk(e.Body, fn)
	case *Apply:
		Walk(e.Fn, fn)
		Walk(e.Arg, fn)
	case *If:
		Walk(e.Cond, fn)
		Walk(e.Then, fn)
		Walk(e.Else, fn)
	case *BinOp:
		Walk(e.Left, fn)
		Walk(e.Right, fn)
	case *Tuple:
		for _, el := range e.Elems {
			Walk(el, fn)
		}
	case *Let:
		for _, b := range e.Bindings {
			Walk(b.Value, fn)
		}
		Walk(e.Body, fn)
	}
}
