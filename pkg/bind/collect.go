// Package bind extracts the binding sites of a let-construct and groups them
// into dependency-ordered, recursion-capable units.
package bind

import (
	"maps"

	"github.com/emirpasic/gods/sets/linkedhashset"

	"github.com/j340m3/compiler/pkg/syntax"
)

// SiteID identifies a binding site within one check. Zero is never a valid
// id; scope entries use it for names that are not let-bound.
type SiteID int

// IDs allocates SiteIDs. It is owned by a single check.
type IDs struct {
	last SiteID
}

func (ids *IDs) Next() SiteID {
	ids.last++
	return ids.last
}

// Site is one `name = value` of a let-construct.
type Site struct {
	ID    SiteID
	Name  string
	Ident *syntax.Ident
	// Value is the defining expression with parameters folded into lambdas.
	Value syntax.Expr
	// Refs lists the sibling names Value mentions, in first-occurrence
	// order. Names hidden by an inner lambda parameter or nested let are
	// not included.
	Refs []string
	// Index is the site's position in the let-construct.
	Index int
}

func (s *Site) GetSourceLocation() *syntax.SourceLocation { return s.Ident.Loc }

// Conflict records two sites of one let-construct that share a name.
type Conflict struct {
	Loser, Winner *Site
}

// Collection is the result of walking one let-construct.
type Collection struct {
	Let   *syntax.Let
	Sites []*Site
	// Winners maps each bound name to the site that owns it. When a name is
	// declared more than once the last declaration wins.
	Winners   map[string]SiteID
	Conflicts []Conflict

	byID map[SiteID]*Site
}

// Site returns the site with the given id.
func (c *Collection) Site(id SiteID) *Site {
	return c.byID[id]
}

// Installed reports whether the site's name resolves to it, i.e. it did
// not lose a naming conflict.
func (c *Collection) Installed(s *Site) bool {
	return c.Winners[s.Name] == s.ID
}

// Collect extracts the binding sites of let and the sibling names each one
// references. It never fails: unresolved and forward references are for the
// checker to judge.
func Collect(let *syntax.Let, ids *IDs) *Collection {
	c := &Collection{
		Let:     let,
		Winners: make(map[string]SiteID, len(let.Bindings)),
		byID:    make(map[SiteID]*Site, len(let.Bindings)),
	}

	siblings := make(map[string]bool, len(let.Bindings))
	for i, b := range let.Bindings {
		site := &Site{
			ID:    ids.Next(),
			Name:  b.Name.Name,
			Ident: b.Name,
			Value: b.Definition(),
			Index: i,
		}
		c.Sites = append(c.Sites, site)
		c.byID[site.ID] = site
		siblings[site.Name] = true
	}

	for _, site := range c.Sites {
		if prev, dup := c.Winners[site.Name]; dup {
			c.Conflicts = append(c.Conflicts, Conflict{Loser: c.byID[prev], Winner: site})
		}
		c.Winners[site.Name] = site.ID
	}

	for _, site := range c.Sites {
		refs := linkedhashset.New()
		scanRefs(site.Value, siblings, nil, refs)
		for _, v := range refs.Values() {
			site.Refs = append(site.Refs, v.(string))
		}
	}

	return c
}

// scanRefs adds to refs every sibling name referenced by expr that is not
// hidden by a binder between the let-construct and the reference.
func scanRefs(expr syntax.Expr, siblings, hidden map[string]bool, refs *linkedhashset.Set) {
	switch e := expr.(type) {
	case *syntax.Var:
		if siblings[e.Ident.Name] && !hidden[e.Ident.Name] {
			refs.Add(e.Ident.Name)
		}
	case *syntax.Lambda:
		scanRefs(e.Body, siblings, hide(hidden, e.Param.Name), refs)
	case *syntax.Let:
		names := make([]string, len(e.Bindings))
		for i, b := range e.Bindings {
			names[i] = b.Name.Name
		}
		inner := hide(hidden, names...)
		for _, b := range e.Bindings {
			scanRefs(b.Definition(), siblings, inner, refs)
		}
		scanRefs(e.Body, siblings, inner, refs)
	case *syntax.Apply:
		scanRefs(e.Fn, siblings, hidden, refs)
		scanRefs(e.Arg, siblings, hidden, refs)
	case *syntax.If:
		scanRefs(e.Cond, siblings, hidden, refs)
		scanRefs(e.Then, siblings, hidden, refs)
		scanRefs(e.Else, siblings, hidden, refs)
	case *syntax.BinOp:
		scanRefs(e.Left, siblings, hidden, refs)
		scanRefs(e.Right, siblings, hidden, refs)
	case *syntax.Tuple:
		for _, el := range e.Elems {
			scanRefs(el, siblings, hidden, refs)
		}
	}
}

func hide(hidden map[string]bool, names ...string) map[string]bool {
	out := make(map[string]bool, len(hidden)+len(names))
	maps.Copy(out, hidden)
	for _, n := range names {
		out[n] = true
	}
	return out
}
