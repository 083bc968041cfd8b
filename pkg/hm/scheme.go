package hm

import (
	"fmt"
	"slices"
	"strings"
)

// Scheme represents a type scheme for polymorphic types
type Scheme struct {
	tvs []TypeVariable
	t   Type
}

// NewScheme creates a new type scheme
func NewScheme(tvs []TypeVariable, t Type) *Scheme {
	return &Scheme{tvs: tvs, t: t}
}

// Monotype wraps t in a scheme with no quantified variables.
func Monotype(t Type) *Scheme {
	return &Scheme{t: t}
}

// Type returns the underlying type and whether it's monomorphic
func (s *Scheme) Type() (Type, bool) {
	return s.t, len(s.tvs) == 0
}

// TypeVars returns the bound type variables
func (s *Scheme) TypeVars() []TypeVariable {
	return s.tvs
}

// Apply applies a substitution to a scheme. Bound variables are never
// substituted.
func (s *Scheme) Apply(subs Subs) Substitutable {
	if len(subs) == 0 {
		return s
	}
	filteredSubs := make(Subs, len(subs))
	for tv, t := range subs {
		if !slices.Contains(s.tvs, tv) {
			filteredSubs[tv] = t
		}
	}

	return &Scheme{
		tvs: s.tvs,
		t:   s.t.Apply(filteredSubs).(Type),
	}
}

// FreeTypeVar returns the free type variables in the scheme
func (s *Scheme) FreeTypeVar() TypeVarSet {
	ftvs := s.t.FreeTypeVar()

	// Remove bound variables
	for _, tv := range s.tvs {
		delete(ftvs, tv)
	}

	return ftvs
}

// Normalize renames the bound variables to a, b, c... in order of first
// appearance. Schemes with free variables are returned unchanged so that
// renaming can't capture them.
func (s *Scheme) Normalize() *Scheme {
	if len(s.tvs) == 0 || len(s.FreeTypeVar()) > 0 {
		return s
	}
	var order []TypeVariable
	var visit func(Type)
	visit = func(t Type) {
		if tv, ok := t.(TypeVariable); ok {
			if !slices.Contains(order, tv) {
				order = append(order, tv)
			}
			return
		}
		for _, sub := range t.Types() {
			visit(sub)
		}
	}
	visit(s.t)

	subs := NewSubs()
	tvs := make([]TypeVariable, 0, len(order))
	for i, tv := range order {
		subs[tv] = TypeVariable(i)
		tvs = append(tvs, TypeVariable(i))
	}
	return &Scheme{tvs: tvs, t: subs.Apply(s.t)}
}

// String returns a string representation
func (s *Scheme) String() string {
	n := s.Normalize()
	if len(n.tvs) == 0 {
		return n.t.String()
	}

	tvStrs := make([]string, len(n.tvs))
	for i, tv := range n.tvs {
		tvStrs[i] = tv.String()
	}

	return fmt.Sprintf("forall %s. %s", strings.Join(tvStrs, " "), n.t)
}
