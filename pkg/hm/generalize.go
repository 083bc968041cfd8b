package hm

// Generalize creates a type scheme by quantifying over type variables
// that are free in the type but not free in the environment
func Generalize(envFree TypeVarSet, t Type) *Scheme {
	quantified := t.FreeTypeVar().Difference(envFree)
	return NewScheme(quantified.ToSlice(), t)
}

// Instantiate creates a fresh instance of a type scheme
func Instantiate(fresher Fresher, scheme *Scheme) Type {
	if len(scheme.tvs) == 0 {
		return scheme.t
	}

	// Create fresh type variables for each quantified variable
	subs := NewSubs()
	for _, tv := range scheme.tvs {
		subs.Add(tv, fresher.Fresh())
	}

	return subs.Apply(scheme.t)
}

// Fresher interface for generating fresh type variables
type Fresher interface {
	Fresh() TypeVariable
}

// Counter hands out type variables in increasing order. It is not safe for
// concurrent use; each check owns its own.
type Counter struct {
	next int
}

// NewCounter returns a Counter whose first variable is start.
func NewCounter(start int) *Counter {
	return &Counter{next: start}
}

// Fresh generates a fresh type variable
func (c *Counter) Fresh() TypeVariable {
	tv := TypeVariable(c.next)
	c.next++
	return tv
}
