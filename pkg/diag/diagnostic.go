// Package diag holds the user-facing diagnostics produced while checking
// let-constructs.
package diag

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/iancoleman/strcase"

	"github.com/j340m3/compiler/pkg/syntax"
)

type Kind int

const (
	// UnresolvedName is a lookup that exhausted every frame.
	UnresolvedName Kind = iota + 1
	// ConflictingDefinitions is two bindings of one let-construct sharing a
	// name.
	ConflictingDefinitions
	// TypeMismatch is a unification failure.
	TypeMismatch
)

var kindNames = map[Kind]string{
	UnresolvedName:         "UnresolvedName",
	ConflictingDefinitions: "ConflictingDefinitions",
	TypeMismatch:           "TypeMismatch",
}

// Kinds lists every kind in reporting order.
var Kinds = []Kind{UnresolvedName, ConflictingDefinitions, TypeMismatch}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Code is the stable kebab-case identifier used in rendered and structured
// output, e.g. "unresolved-name".
func (k Kind) Code() string {
	return strcase.ToKebab(k.String())
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.Code()), nil
}

// Diagnostic is one reported problem.
type Diagnostic struct {
	Kind    Kind                   `json:"kind" yaml:"kind"`
	Loc     *syntax.SourceLocation `json:"location" yaml:"location"`
	Message string                 `json:"message" yaml:"message"`

	// Name is the identifier involved, for UnresolvedName and
	// ConflictingDefinitions.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Visible holds the names in scope at an unresolved reference.
	Visible     []string `json:"visible,omitempty" yaml:"visible,omitempty"`
	Suggestions []string `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`

	Expected string `json:"expected,omitempty" yaml:"expected,omitempty"`
	Actual   string `json:"actual,omitempty" yaml:"actual,omitempty"`

	// Related points at the other definition of a conflict.
	Related *syntax.SourceLocation `json:"related,omitempty" yaml:"related,omitempty"`
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s", d.Loc, d.Message)
}

func (d *Diagnostic) GetSourceLocation() *syntax.SourceLocation { return d.Loc }

// Unresolved reports a reference to a name no frame binds. When suggest is
// set, visible names close to the missing one are offered.
func Unresolved(ident *syntax.Ident, visible []string, suggest bool) *Diagnostic {
	d := &Diagnostic{
		Kind:    UnresolvedName,
		Loc:     ident.Loc,
		Message: fmt.Sprintf("unresolved name %q", ident.Name),
		Name:    ident.Name,
		Visible: visible,
	}
	if suggest {
		d.Suggestions = Suggest(ident.Name, visible)
	}
	return d
}

// Conflict reports that name is bound twice in one let-construct. winner is
// the definition that stays in scope, loser the one it replaces.
func Conflict(name string, loser, winner *syntax.SourceLocation) *Diagnostic {
	return &Diagnostic{
		Kind:    ConflictingDefinitions,
		Loc:     winner,
		Message: fmt.Sprintf("conflicting definitions of %q; this definition replaces the one at %s", name, loser),
		Name:    name,
		Related: loser,
	}
}

// Mismatch reports a failed unification at loc.
func Mismatch(loc *syntax.SourceLocation, expected, actual fmt.Stringer) *Diagnostic {
	return &Diagnostic{
		Kind:     TypeMismatch,
		Loc:      loc,
		Message:  fmt.Sprintf("type mismatch: expected %s, found %s", expected, actual),
		Expected: expected.String(),
		Actual:   actual.String(),
	}
}

// List accumulates diagnostics. The zero value is ready to use.
type List []*Diagnostic

func (l *List) Add(ds ...*Diagnostic) {
	*l = append(*l, ds...)
}

func (l List) Len() int {
	return len(l)
}

// ByKind returns the diagnostics of one kind, in list order.
func (l List) ByKind(kind Kind) List {
	var out List
	for _, d := range l {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// Partition groups the list by kind. Kinds with no diagnostics are absent.
func (l List) Partition() map[Kind]List {
	parts := map[Kind]List{}
	for _, d := range l {
		parts[d.Kind] = append(parts[d.Kind], d)
	}
	return parts
}

// Sort orders the list by location, keeping the relative order of
// diagnostics at the same location.
func (l List) Sort() {
	slices.SortStableFunc(l, func(a, b *Diagnostic) int {
		switch {
		case a.Loc.Before(b.Loc):
			return -1
		case b.Loc.Before(a.Loc):
			return 1
		}
		return cmp.Compare(a.Kind, b.Kind)
	})
}

// Err returns nil for an empty list and otherwise an error joining every
// diagnostic.
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}
	errs := make([]error, len(l))
	for i, d := range l {
		errs[i] = d
	}
	return errors.Join(errs...)
}
