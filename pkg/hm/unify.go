package hm

import (
	"fmt"
)

// UnificationError represents errors during unification. Left and Right are
// the innermost pair of types that could not be made equal.
type UnificationError struct {
	Left, Right Type
	Infinite    bool
}

func (e *UnificationError) Error() string {
	if e.Infinite {
		return fmt.Sprintf("occurs check failed: %s occurs in %s", e.Left, e.Right)
	}
	return fmt.Sprintf("cannot unify %s with %s", e.Left, e.Right)
}

// Unify attempts to unify two types, returning a substitution or error
func Unify(t1, t2 Type) (Subs, error) {
	return unify(t1, t2)
}

func unify(t1, t2 Type) (Subs, error) {
	// The error type absorbs everything.
	if _, ok := t1.(ErrorType); ok {
		return NewSubs(), nil
	}
	if _, ok := t2.(ErrorType); ok {
		return NewSubs(), nil
	}

	// Handle type variables
	if tv1, ok := t1.(TypeVariable); ok {
		return bindVar(tv1, t2)
	}
	if tv2, ok := t2.(TypeVariable); ok {
		return bindVar(tv2, t1)
	}

	switch a := t1.(type) {
	case *FunctionType:
		b, ok := t2.(*FunctionType)
		if !ok {
			break
		}
		s1, err := unify(a.arg, b.arg)
		if err != nil {
			return nil, err
		}

		// Apply s1 to return types and unify
		s2, err := unify(s1.Apply(a.ret), s1.Apply(b.ret))
		if err != nil {
			return nil, err
		}

		return s1.Compose(s2), nil
	case TupleType:
		b, ok := t2.(TupleType)
		if !ok || len(a.Elems) != len(b.Elems) {
			break
		}
		subs := NewSubs()
		for i := range a.Elems {
			s, err := unify(subs.Apply(a.Elems[i]), subs.Apply(b.Elems[i]))
			if err != nil {
				return nil, err
			}
			subs = subs.Compose(s)
		}
		return subs, nil
	case TypeConst:
		if b, ok := t2.(TypeConst); ok && a == b {
			return NewSubs(), nil
		}
	}

	return nil, &UnificationError{Left: t1, Right: t2}
}

// bindVar binds a type variable to a type
func bindVar(tv TypeVariable, t Type) (Subs, error) {
	if tv2, ok := t.(TypeVariable); ok && tv == tv2 {
		return NewSubs(), nil
	}

	if t.FreeTypeVar().Contains(tv) {
		return nil, &UnificationError{Left: tv, Right: t, Infinite: true}
	}

	return NewSubs().Add(tv, t), nil
}
