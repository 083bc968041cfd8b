package hm

// Subs represents a substitution mapping from type variables to types
type Subs map[TypeVariable]Type

// NewSubs creates a new substitution
func NewSubs() Subs {
	return make(Subs)
}

// Apply applies a substitution to a type
func (s Subs) Apply(t Type) Type {
	if len(s) == 0 {
		return t
	}
	return t.Apply(s).(Type)
}

// Compose returns the substitution equivalent to applying s and then other.
func (s Subs) Compose(other Subs) Subs {
	result := make(Subs, len(s)+len(other))

	// Apply other to all types in s
	for tv, t := range s {
		result[tv] = t.Apply(other).(Type)
	}

	// Add mappings from other that aren't in s
	for tv, t := range other {
		if _, exists := result[tv]; !exists {
			result[tv] = t
		}
	}

	return result
}

// Add adds a substitution mapping and returns the updated substitution
func (s Subs) Add(tv TypeVariable, t Type) Subs {
	s[tv] = t
	return s
}
