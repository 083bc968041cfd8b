package scope

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j340m3/compiler/pkg/hm"
)

func mono(name string, t hm.Type) Entry {
	return Entry{Name: name, Scheme: hm.Monotype(t)}
}

func TestLookupWalksOutward(t *testing.T) {
	root := Root(mono("x", hm.Int), mono("y", hm.Bool))
	inner := root.Extend(mono("x", hm.String))

	e, holder, ok := inner.Lookup("x")
	require.True(t, ok)
	assert.Same(t, inner, holder)
	ty, _ := e.Scheme.Type()
	assert.Equal(t, hm.Type(hm.String), ty)

	e, holder, ok = inner.Lookup("y")
	require.True(t, ok)
	assert.Same(t, root, holder)
	assert.Equal(t, "y", e.Name)

	_, _, ok = inner.Lookup("z")
	assert.False(t, ok)
}

func TestExtendDoesNotMutateParent(t *testing.T) {
	root := Root(mono("x", hm.Int))
	child := root.Extend(mono("y", hm.Bool))

	_, ok := root.LookupLocal("y")
	assert.False(t, ok)
	_, _, ok = root.Lookup("y")
	assert.False(t, ok)
	assert.Same(t, root, child.Parent())
	assert.Equal(t, 0, root.Depth())
	assert.Equal(t, 1, child.Depth())
}

func TestSiblingFramesAreIsolated(t *testing.T) {
	root := Root()
	left := root.Extend(mono("l", hm.Int))
	right := root.Extend(mono("r", hm.Int))

	_, _, ok := left.Lookup("r")
	assert.False(t, ok)
	_, _, ok = right.Lookup("l")
	assert.False(t, ok)
}

func TestShadowingIsTotal(t *testing.T) {
	f := Root(mono("x", hm.Int)).
		Extend(mono("x", hm.String)).
		Extend(mono("unrelated", hm.Bool))

	e, _, ok := f.Lookup("x")
	require.True(t, ok)
	ty, _ := e.Scheme.Type()
	assert.Equal(t, hm.Type(hm.String), ty)
}

func TestVisible(t *testing.T) {
	f := Root(mono("b", hm.Int), mono("a", hm.Int)).Extend(mono("a", hm.Bool), mono("c", hm.Int))
	assert.Equal(t, []string{"a", "b", "c"}, f.Visible())

	var locals []string
	for name := range f.Locals() {
		locals = append(locals, name)
	}
	assert.Equal(t, []string{"a", "c"}, locals)
}

func TestFreeTypeVarAppliesSubstitution(t *testing.T) {
	a, b, c := hm.TypeVariable(0), hm.TypeVariable(1), hm.TypeVariable(2)
	f := Root(Entry{Name: "id", Scheme: hm.NewScheme([]hm.TypeVariable{a}, hm.NewFnType(a, a))}).
		Extend(mono("p", b), mono("q", c))

	assert.Equal(t, hm.NewTypeVarSet(b, c), f.FreeTypeVar(nil))
	assert.Equal(t, hm.NewTypeVarSet(c), f.FreeTypeVar(hm.NewSubs().Add(b, hm.Int)))
}

func TestConcurrentReaders(t *testing.T) {
	shared := Root(mono("x", hm.Int))
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f := shared.Extend(mono("y", hm.TypeVariable(i)))
			_, _, ok := f.Lookup("x")
			assert.True(t, ok)
			assert.Len(t, f.Visible(), 2)
		}()
	}
	wg.Wait()
	assert.Equal(t, []string{"x"}, shared.Visible())
}
