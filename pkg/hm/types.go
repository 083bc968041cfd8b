package hm

import (
	"fmt"
	"strings"
)

// Type represents all possible type constructors
type Type interface {
	Substitutable
	Name() string
	Types() Types
	Eq(Type) bool
	fmt.Stringer
}

// Substitutable is any type that can have substitutions applied and knows its free type variables
type Substitutable interface {
	Apply(Subs) Substitutable
	FreeTypeVar() TypeVarSet
}

// Types represents a slice of types
type Types []Type

// TypeVariable represents a type variable. Variables are numbered; the
// supply is unbounded.
type TypeVariable int

const letters = `abcdefghijklmnopqrstuvwxyz`

func (tv TypeVariable) Name() string {
	n := int(tv)
	if n < 0 {
		return fmt.Sprintf("_%d", -n)
	}
	letter := string(letters[n%len(letters)])
	if round := n / len(letters); round > 0 {
		return fmt.Sprintf("%s%d", letter, round)
	}
	return letter
}

func (tv TypeVariable) Apply(subs Subs) Substitutable {
	if t, exists := subs[tv]; exists {
		return t
	}
	return tv
}

func (tv TypeVariable) FreeTypeVar() TypeVarSet {
	return NewTypeVarSet(tv)
}

func (tv TypeVariable) Types() Types {
	return nil
}

func (tv TypeVariable) Eq(other Type) bool {
	if ot, ok := other.(TypeVariable); ok {
		return tv == ot
	}
	return false
}

func (tv TypeVariable) String() string {
	return tv.Name()
}

// TypeConst is a nullary type constructor such as Int.
type TypeConst string

const (
	Int    TypeConst = "Int"
	String TypeConst = "String"
	Bool   TypeConst = "Bool"
	Unit   TypeConst = "Unit"
)

func (tc TypeConst) Name() string             { return string(tc) }
func (tc TypeConst) Apply(Subs) Substitutable { return tc }
func (tc TypeConst) FreeTypeVar() TypeVarSet  { return NewTypeVarSet() }
func (tc TypeConst) Types() Types             { return nil }
func (tc TypeConst) String() string           { return string(tc) }
func (tc TypeConst) Eq(other Type) bool {
	ot, ok := other.(TypeConst)
	return ok && ot == tc
}

// FunctionType represents a function type
type FunctionType struct {
	arg Type
	ret Type
}

func NewFnType(arg, ret Type) *FunctionType {
	return &FunctionType{arg: arg, ret: ret}
}

// Curried builds a -> b -> ... -> ret.
func Curried(ret Type, args ...Type) Type {
	for i := len(args) - 1; i >= 0; i-- {
		ret = NewFnType(args[i], ret)
	}
	return ret
}

func (ft *FunctionType) Name() string {
	return ft.String()
}

func (ft *FunctionType) Apply(subs Subs) Substitutable {
	return &FunctionType{
		arg: ft.arg.Apply(subs).(Type),
		ret: ft.ret.Apply(subs).(Type),
	}
}

func (ft *FunctionType) FreeTypeVar() TypeVarSet {
	return ft.arg.FreeTypeVar().Union(ft.ret.FreeTypeVar())
}

func (ft *FunctionType) Types() Types {
	return Types{ft.arg, ft.ret}
}

func (ft *FunctionType) Eq(other Type) bool {
	if ot, ok := other.(*FunctionType); ok {
		return ft.arg.Eq(ot.arg) && ft.ret.Eq(ot.ret)
	}
	return false
}

func (ft *FunctionType) String() string {
	arg := ft.arg.String()
	if _, isFn := ft.arg.(*FunctionType); isFn {
		arg = "(" + arg + ")"
	}
	return fmt.Sprintf("%s -> %s", arg, ft.ret)
}

// Arg returns the argument type
func (ft *FunctionType) Arg() Type {
	return ft.arg
}

// Ret returns the return type
func (ft *FunctionType) Ret() Type {
	return ft.ret
}

// TupleType is a fixed-size product type.
type TupleType struct {
	Elems Types
}

func (t TupleType) Name() string { return t.String() }

func (t TupleType) Apply(subs Subs) Substitutable {
	elems := make(Types, len(t.Elems))
	for i, el := range t.Elems {
		elems[i] = el.Apply(subs).(Type)
	}
	return TupleType{Elems: elems}
}

func (t TupleType) FreeTypeVar() TypeVarSet {
	ftvs := NewTypeVarSet()
	for _, el := range t.Elems {
		ftvs = ftvs.Union(el.FreeTypeVar())
	}
	return ftvs
}

func (t TupleType) Types() Types { return t.Elems }

func (t TupleType) Eq(other Type) bool {
	ot, ok := other.(TupleType)
	if !ok || len(ot.Elems) != len(t.Elems) {
		return false
	}
	for i := range t.Elems {
		if !t.Elems[i].Eq(ot.Elems[i]) {
			return false
		}
	}
	return true
}

func (t TupleType) String() string {
	parts := make([]string, len(t.Elems))
	for i, el := range t.Elems {
		parts[i] = el.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ErrorType stands in for the type of anything that failed to check. It
// unifies with every type without binding anything, so one error does not
// produce follow-on mismatches.
type ErrorType struct{}

// Error is the ErrorType value.
var Error Type = ErrorType{}

func (ErrorType) Name() string             { return "<error>" }
func (ErrorType) Apply(Subs) Substitutable { return ErrorType{} }
func (ErrorType) FreeTypeVar() TypeVarSet  { return NewTypeVarSet() }
func (ErrorType) Types() Types             { return nil }
func (ErrorType) String() string           { return "<error>" }
func (ErrorType) Eq(other Type) bool {
	_, ok := other.(ErrorType)
	return ok
}

// IsError reports whether t is, or contains, the error type.
func IsError(t Type) bool {
	if _, ok := t.(ErrorType); ok {
		return true
	}
	for _, sub := range t.Types() {
		if IsError(sub) {
			return true
		}
	}
	return false
}
