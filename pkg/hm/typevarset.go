package hm

import "slices"

// TypeVarSet represents a set of type variables
type TypeVarSet map[TypeVariable]bool

// NewTypeVarSet creates a new TypeVarSet
func NewTypeVarSet(tvs ...TypeVariable) TypeVarSet {
	set := make(TypeVarSet)
	for _, tv := range tvs {
		set[tv] = true
	}
	return set
}

// Union returns the union of two TypeVarSets
func (tvs TypeVarSet) Union(other TypeVarSet) TypeVarSet {
	result := make(TypeVarSet, len(tvs)+len(other))
	for tv := range tvs {
		result[tv] = true
	}
	for tv := range other {
		result[tv] = true
	}
	return result
}

// Difference returns the variables in tvs that are not in other.
func (tvs TypeVarSet) Difference(other TypeVarSet) TypeVarSet {
	result := make(TypeVarSet)
	for tv := range tvs {
		if !other.Contains(tv) {
			result[tv] = true
		}
	}
	return result
}

// Contains checks if a type variable is in the set
func (tvs TypeVarSet) Contains(tv TypeVariable) bool {
	return tvs[tv]
}

// Add adds a type variable to the set
func (tvs TypeVarSet) Add(tv TypeVariable) {
	tvs[tv] = true
}

// ToSlice converts the set to a slice in ascending order
func (tvs TypeVarSet) ToSlice() []TypeVariable {
	result := make([]TypeVariable, 0, len(tvs))
	for tv := range tvs {
		result = append(result, tv)
	}
	slices.Sort(result)
	return result
}
