// Package scope implements the chained symbol table used while checking
// let-constructs. Frames are immutable once built: extending a frame returns
// a new child that shares its parent, so a frame can be handed to any number
// of concurrent readers.
package scope

import (
	"iter"
	"maps"
	"slices"

	"github.com/j340m3/compiler/pkg/hm"
)

// Entry is what a name resolves to.
type Entry struct {
	Name string
	// Site is the binding-site id of a let-bound name, or 0 for prelude
	// names and lambda parameters.
	Site int
	// Scheme is the name's type. Placeholders carry a monomorphic scheme
	// over a fresh variable while their group is still being solved.
	Scheme      *hm.Scheme
	Placeholder bool
}

// Frame is one layer of the chain.
type Frame struct {
	parent  *Frame
	entries map[string]Entry
	depth   int
}

// Root returns a parentless frame holding entries.
func Root(entries ...Entry) *Frame {
	return newFrame(nil, entries)
}

// Extend returns a new frame whose lookups consult entries first and then
// fall back to f. f is not modified. When entries repeats a name the last
// one wins.
func (f *Frame) Extend(entries ...Entry) *Frame {
	return newFrame(f, entries)
}

func newFrame(parent *Frame, entries []Entry) *Frame {
	frame := &Frame{
		parent:  parent,
		entries: make(map[string]Entry, len(entries)),
	}
	if parent != nil {
		frame.depth = parent.depth + 1
	}
	for _, e := range entries {
		frame.entries[e.Name] = e
	}
	return frame
}

// Parent returns the enclosing frame, or nil for a root.
func (f *Frame) Parent() *Frame {
	return f.parent
}

// Depth is the number of frames between f and its root.
func (f *Frame) Depth() int {
	return f.depth
}

// LookupLocal consults only this frame.
func (f *Frame) LookupLocal(name string) (Entry, bool) {
	e, ok := f.entries[name]
	return e, ok
}

// Lookup walks outward and returns the innermost entry for name together
// with the frame that holds it.
func (f *Frame) Lookup(name string) (Entry, *Frame, bool) {
	for p := f; p != nil; p = p.parent {
		if e, ok := p.entries[name]; ok {
			return e, p, true
		}
	}
	return Entry{}, nil, false
}

// Locals iterates this frame's own entries in name order.
func (f *Frame) Locals() iter.Seq2[string, Entry] {
	return func(yield func(string, Entry) bool) {
		for _, name := range slices.Sorted(maps.Keys(f.entries)) {
			if !yield(name, f.entries[name]) {
				return
			}
		}
	}
}

// Visible returns every name resolvable from f, sorted, each once.
func (f *Frame) Visible() []string {
	seen := map[string]bool{}
	for p := f; p != nil; p = p.parent {
		for name := range p.entries {
			seen[name] = true
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// FreeTypeVar returns the type variables free in any entry reachable from f
// once subs is applied. Shadowed entries are included.
func (f *Frame) FreeTypeVar(subs hm.Subs) hm.TypeVarSet {
	ftvs := hm.NewTypeVarSet()
	for p := f; p != nil; p = p.parent {
		for _, e := range p.entries {
			sch := e.Scheme.Apply(subs).(*hm.Scheme)
			for tv := range sch.FreeTypeVar() {
				ftvs.Add(tv)
			}
		}
	}
	return ftvs
}
