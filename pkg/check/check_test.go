package check

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/dagger/testctx"
	"github.com/dagger/testctx/oteltest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j340m3/compiler/pkg/diag"
	"github.com/j340m3/compiler/pkg/hm"
	"github.com/j340m3/compiler/pkg/syntax"
)

func TestMain(m *testing.M) {
	os.Exit(oteltest.Main(m))
}

type CheckSuite struct{}

func TestCheck(tT *testing.T) {
	testctx.New(tT,
		oteltest.WithTracing[*testing.T](),
		oteltest.WithLogging[*testing.T](),
	).RunTests(CheckSuite{})
}

func defaults() CheckConfig {
	return DefaultConfig().Check
}

func checkSource(ctx context.Context, t *testctx.T, config CheckConfig, src string) *Result {
	t.Helper()
	expr, err := syntax.ParseExpr("test.lc", src)
	require.NoError(t, err)
	res, err := NewChecker(config, nil).CheckExpr(ctx, expr)
	require.NoError(t, err)
	return res
}

func schemeOf(t *testctx.T, res *Result, name string) string {
	t.Helper()
	sch, ok := res.SchemeOf(name)
	require.True(t, ok, "no scheme for %s", name)
	return sch.String()
}

func groupMembers(r *LetReport) [][]string {
	var out [][]string
	for _, g := range r.Groups {
		out = append(out, g.Members)
	}
	return out
}

func (CheckSuite) TestLetBodySeesBindings(ctx context.Context, t *testctx.T) {
	res := checkSource(ctx, t, defaults(), `let a = 1 in let b = a + 1 in b`)

	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, hm.Type(hm.Int), res.Type)
	assert.Equal(t, "Int", schemeOf(t, res, "a"))
	assert.Equal(t, "Int", schemeOf(t, res, "b"))

	require.Len(t, res.Lets, 2)
	for _, l := range res.Lets {
		assert.Equal(t, LetDone, l.State)
		require.Len(t, l.Groups, 1)
		assert.Equal(t, GroupGeneralized, l.Groups[0].State)
		assert.False(t, l.Groups[0].Recursive)
	}
}

func (CheckSuite) TestMutualRecursion(ctx context.Context, t *testctx.T) {
	res := checkSource(ctx, t, defaults(), `let rec f x = g x and g x = f x in f 0`)

	assert.Empty(t, res.Diagnostics)
	require.Len(t, res.Lets, 1)
	assert.Equal(t, [][]string{{"f", "g"}}, groupMembers(res.Lets[0]))
	assert.True(t, res.Lets[0].Groups[0].Recursive)
	assert.Equal(t, "forall a b. a -> b", schemeOf(t, res, "f"))
	assert.Equal(t, "forall a b. a -> b", schemeOf(t, res, "g"))
}

func (CheckSuite) TestSelfRecursion(ctx context.Context, t *testctx.T) {
	res := checkSource(ctx, t, defaults(), `let rec fact n = if n == 0 then 1 else n * fact (n - 1) in fact 5`)

	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, hm.Type(hm.Int), res.Type)
	assert.Equal(t, "Int -> Int", schemeOf(t, res, "fact"))
	assert.True(t, res.Lets[0].Groups[0].Recursive)
}

func (CheckSuite) TestRecursionDoesNotNeedRec(ctx context.Context, t *testctx.T) {
	res := checkSource(ctx, t, defaults(), `let b = a + 1 and a = 1 in b`)

	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, hm.Type(hm.Int), res.Type)
	assert.Equal(t, [][]string{{"a"}, {"b"}}, groupMembers(res.Lets[0]))
}

func (CheckSuite) TestShadowing(ctx context.Context, t *testctx.T) {
	res := checkSource(ctx, t, defaults(), `let x = 1 in let x = "s" in x`)

	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, hm.Type(hm.String), res.Type)

	t.Run("lambda parameter shadows a let binding", func(ctx context.Context, t *testctx.T) {
		res := checkSource(ctx, t, defaults(), `let x = 1 in (fun x -> x ++ "!") "s"`)
		assert.Empty(t, res.Diagnostics)
		assert.Equal(t, hm.Type(hm.String), res.Type)
	})

	t.Run("let binding shadows the prelude", func(ctx context.Context, t *testctx.T) {
		res := checkSource(ctx, t, defaults(), `let not = 1 in not + 1`)
		assert.Empty(t, res.Diagnostics)
		assert.Equal(t, hm.Type(hm.Int), res.Type)
	})

	t.Run("references resolve to the innermost site", func(ctx context.Context, t *testctx.T) {
		require.Len(t, res.References, 1)
		ref := res.References[0]
		assert.Equal(t, 29, ref.Ident.Loc.Column)
		site := res.Site(ref.Site)
		require.NotNil(t, site)
		assert.Equal(t, 18, site.Ident.Loc.Column)
	})

	t.Run("parameters and prelude names are not recorded", func(ctx context.Context, t *testctx.T) {
		res := checkSource(ctx, t, defaults(), `(fun x -> not x) true`)
		assert.Empty(t, res.References)
	})
}

func (CheckSuite) TestLetPolymorphism(ctx context.Context, t *testctx.T) {
	const src = `let id = fun x -> x in (id 1, id "s")`

	t.Run("generalized", func(ctx context.Context, t *testctx.T) {
		res := checkSource(ctx, t, defaults(), src)
		assert.Empty(t, res.Diagnostics)
		assert.Equal(t, "(Int, String)", res.Type.String())
		assert.Equal(t, "forall a. a -> a", schemeOf(t, res, "id"))
	})

	t.Run("monomorphic", func(ctx context.Context, t *testctx.T) {
		config := defaults()
		config.Monomorphic = true
		res := checkSource(ctx, t, config, src)

		require.Len(t, res.Diagnostics, 1)
		d := res.Diagnostics[0]
		assert.Equal(t, diag.TypeMismatch, d.Kind)
		assert.Equal(t, "Int", d.Expected)
		assert.Equal(t, "String", d.Actual)
		assert.Equal(t, 34, d.Loc.Column)
	})
}

func (CheckSuite) TestOuterVariablesAreNotQuantified(ctx context.Context, t *testctx.T) {
	t.Run("sound use", func(ctx context.Context, t *testctx.T) {
		res := checkSource(ctx, t, defaults(), `fun y -> let f = fun x -> y in (f 1, f "s")`)
		assert.Empty(t, res.Diagnostics)
		assert.Equal(t, "forall a. a -> (a, a)", res.Scheme.String())

		sch, ok := res.SchemeOf("f")
		require.True(t, ok)
		assert.Len(t, sch.TypeVars(), 1)
		assert.Len(t, sch.FreeTypeVar(), 1)
	})

	t.Run("conflicting uses of the outer variable", func(ctx context.Context, t *testctx.T) {
		res := checkSource(ctx, t, defaults(), `fun y -> let f = fun x -> y in (f 1 + 1, f 2 ++ "s")`)
		require.Len(t, res.Diagnostics, 1)
		assert.Equal(t, diag.TypeMismatch, res.Diagnostics[0].Kind)
	})
}

func (CheckSuite) TestUnresolvedName(ctx context.Context, t *testctx.T) {
	res := checkSource(ctx, t, defaults(), `let a = 1 in b`)

	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, diag.UnresolvedName, d.Kind)
	assert.Equal(t, "b", d.Name)
	assert.Equal(t, 14, d.Loc.Column)
	assert.Contains(t, d.Visible, "a")
	assert.Contains(t, d.Visible, "identity")
	assert.Equal(t, []string{"a"}, d.Suggestions)

	assert.True(t, hm.IsError(res.Type))
	assert.Equal(t, LetFailed, res.Lets[0].State)
	assert.Equal(t, GroupGeneralized, res.Lets[0].Groups[0].State)

	t.Run("without suggestions", func(ctx context.Context, t *testctx.T) {
		config := defaults()
		config.Suggestions = false
		res := checkSource(ctx, t, config, `let a = 1 in b`)
		require.Len(t, res.Diagnostics, 1)
		assert.Empty(t, res.Diagnostics[0].Suggestions)
		assert.NotEmpty(t, res.Diagnostics[0].Visible)
	})

	t.Run("names bound later in a sibling let are not visible", func(ctx context.Context, t *testctx.T) {
		res := checkSource(ctx, t, defaults(), `(let a = 1 in a, let b = 2 in a)`)
		require.Len(t, res.Diagnostics, 1)
		assert.Equal(t, "a", res.Diagnostics[0].Name)
		assert.NotContains(t, res.Diagnostics[0].Visible, "a")
	})
}

func (CheckSuite) TestConflictingDefinitions(ctx context.Context, t *testctx.T) {
	res := checkSource(ctx, t, defaults(), `let x = 1 and x = "s" in x`)

	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, diag.ConflictingDefinitions, d.Kind)
	assert.Equal(t, "x", d.Name)
	assert.Equal(t, 15, d.Loc.Column)
	assert.Equal(t, 5, d.Related.Column)

	// The last definition wins; the loser is still checked.
	assert.Equal(t, hm.Type(hm.String), res.Type)
	require.Len(t, res.Sites, 2)
	assert.Equal(t, "Int", res.Schemes[res.Sites[0].ID].String())
	assert.Equal(t, "String", res.Schemes[res.Sites[1].ID].String())
}

func (CheckSuite) TestNestedConflictKeepsEnclosingBinding(ctx context.Context, t *testctx.T) {
	t.Run("polymorphic", func(ctx context.Context, t *testctx.T) {
		res := checkSource(ctx, t, defaults(), `let id = (let x = 1 and x = 2 in fun y -> y) in (id 1, id "s")`)

		require.Len(t, res.Diagnostics, 1)
		assert.Equal(t, diag.ConflictingDefinitions, res.Diagnostics[0].Kind)
		assert.Equal(t, "forall a. a -> a", schemeOf(t, res, "id"))
		assert.Equal(t, "(Int, String)", res.Type.String())

		require.Len(t, res.Lets[0].Groups, 1)
		assert.Equal(t, GroupGeneralized, res.Lets[0].Groups[0].State)
	})

	t.Run("monomorphic", func(ctx context.Context, t *testctx.T) {
		res := checkSource(ctx, t, defaults(), `let f = (let x = 1 and x = 2 in x) in f + 1`)

		require.Len(t, res.Diagnostics, 1)
		assert.Equal(t, "Int", schemeOf(t, res, "f"))
		assert.Equal(t, hm.Type(hm.Int), res.Type)
	})
}

func (CheckSuite) TestErrorsDoNotCascade(ctx context.Context, t *testctx.T) {
	t.Run("type mismatch", func(ctx context.Context, t *testctx.T) {
		res := checkSource(ctx, t, defaults(), `let a = 1 + true and b = a + 1 and c = b * 2 in c`)

		require.Len(t, res.Diagnostics, 1)
		assert.Equal(t, diag.TypeMismatch, res.Diagnostics[0].Kind)
		assert.Equal(t, "<error>", schemeOf(t, res, "a"))
		assert.Equal(t, "Int", schemeOf(t, res, "b"))
		assert.Equal(t, hm.Type(hm.Int), res.Type)

		states := map[string]GroupState{}
		for _, g := range res.Lets[0].Groups {
			states[strings.Join(g.Members, ",")] = g.State
		}
		assert.Equal(t, map[string]GroupState{
			"a": GroupFailed,
			"b": GroupGeneralized,
			"c": GroupGeneralized,
		}, states)
		assert.Equal(t, LetFailed, res.Lets[0].State)
	})

	t.Run("unresolved name", func(ctx context.Context, t *testctx.T) {
		res := checkSource(ctx, t, defaults(), `let f = fun x -> y and g = f 1 in g`)

		require.Len(t, res.Diagnostics, 1)
		assert.Equal(t, "y", res.Diagnostics[0].Name)
		assert.Equal(t, "<error>", schemeOf(t, res, "f"))
		assert.Equal(t, "<error>", schemeOf(t, res, "g"))
	})

	t.Run("every independent failure is reported", func(ctx context.Context, t *testctx.T) {
		res := checkSource(ctx, t, defaults(), `let x = 1 and x = 2 and p = q and r = 1 ++ "s" in (x, p, r)`)

		parts := res.Diagnostics.Partition()
		assert.Len(t, parts[diag.ConflictingDefinitions], 1)
		assert.Len(t, parts[diag.UnresolvedName], 1)
		assert.Len(t, parts[diag.TypeMismatch], 1)
	})
}

func (CheckSuite) TestGroupOrder(ctx context.Context, t *testctx.T) {
	res := checkSource(ctx, t, defaults(), `let d = c and c = b and b = a and a = 1 in d`)

	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}, {"d"}}, groupMembers(res.Lets[0]))
}

func (CheckSuite) TestNestedLetsAreReportedInOrder(ctx context.Context, t *testctx.T) {
	res := checkSource(ctx, t, defaults(), `let f = let g = 1 in g in let h = f in h`)

	assert.Empty(t, res.Diagnostics)
	require.Len(t, res.Lets, 3)
	assert.Equal(t, [][]string{{"f"}}, groupMembers(res.Lets[0]))
	assert.Equal(t, [][]string{{"g"}}, groupMembers(res.Lets[1]))
	assert.Equal(t, [][]string{{"h"}}, groupMembers(res.Lets[2]))
}

func (CheckSuite) TestPrelude(ctx context.Context, t *testctx.T) {
	for _, tt := range []struct {
		src      string
		expected string
	}{
		{`not true`, "Bool"},
		{`negate 1`, "Int"},
		{`toString (1, "s")`, "String"},
		{`identity identity`, "forall a. a -> a"},
		{`fst (1, "s")`, "Int"},
		{`snd (1, "s")`, "String"},
		{`1 == 1`, "Bool"},
		{`"x" ++ toString true`, "String"},
	} {
		t.Run(tt.src, func(ctx context.Context, t *testctx.T) {
			res := checkSource(ctx, t, defaults(), tt.src)
			assert.Empty(t, res.Diagnostics)
			assert.Equal(t, tt.expected, res.Scheme.String())
		})
	}

	t.Run("comparison is on integers", func(ctx context.Context, t *testctx.T) {
		res := checkSource(ctx, t, defaults(), `"a" < "b"`)
		require.Len(t, res.Diagnostics, 2)
		assert.Equal(t, diag.TypeMismatch, res.Diagnostics[0].Kind)
		assert.Equal(t, hm.Type(hm.Bool), res.Type)
	})
}

func (CheckSuite) TestInfiniteType(ctx context.Context, t *testctx.T) {
	res := checkSource(ctx, t, defaults(), `let rec f x = f in f`)

	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, diag.TypeMismatch, res.Diagnostics[0].Kind)
	assert.Equal(t, "<error>", schemeOf(t, res, "f"))
}

func (CheckSuite) TestCancelledContext(ctx context.Context, t *testctx.T) {
	ctx, cancel := context.WithCancel(ctx)
	cancel()

	expr, err := syntax.ParseExpr("test.lc", `let a = 1 in a`)
	require.NoError(t, err)
	_, err = NewChecker(defaults(), nil).CheckExpr(ctx, expr)
	require.ErrorIs(t, err, context.Canceled)
}

func (CheckSuite) TestCheckProgram(ctx context.Context, t *testctx.T) {
	prog, err := syntax.ParseProgram("prog.lc", []byte(`
def one = 1
def two = one + 1
def three = let id = fun x -> x in id "three"
`))
	require.NoError(t, err)

	res, err := NewChecker(defaults(), nil).CheckProgram(ctx, prog)
	require.NoError(t, err)

	require.Len(t, res.Decls, 3)
	assert.Equal(t, "one", res.Decls[0].Name)
	assert.Equal(t, "Int", res.Decls[0].Scheme.String())
	assert.Equal(t, "String", res.Decls[2].Scheme.String())
	assert.Empty(t, res.Skipped)

	// Declarations are independent: two cannot see one.
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, diag.UnresolvedName, res.Diagnostics[0].Kind)
	assert.Equal(t, "one", res.Diagnostics[0].Name)
}

func (CheckSuite) TestCheckProgramMaxErrors(ctx context.Context, t *testctx.T) {
	prog, err := syntax.ParseProgram("prog.lc", []byte(`
def a = x
def b = y
def c = 1
`))
	require.NoError(t, err)

	config := defaults()
	config.MaxErrors = 1
	config.Parallelism = 1
	res, err := NewChecker(config, nil).CheckProgram(ctx, prog)
	require.NoError(t, err)

	require.Len(t, res.Decls, 1)
	assert.Equal(t, "a", res.Decls[0].Name)
	assert.Equal(t, 1, res.Diagnostics.Len())
	assert.Equal(t, []string{"b", "c"}, res.Skipped)
}

func (CheckSuite) TestCheckProgramConcurrently(ctx context.Context, t *testctx.T) {
	var src strings.Builder
	const n = 64
	for i := range n {
		fmt.Fprintf(&src, "def d%d = let id = fun x -> x and k = %d in (id k, id \"s\")\n", i, i)
	}
	prog, err := syntax.ParseProgram("many.lc", []byte(src.String()))
	require.NoError(t, err)

	config := defaults()
	config.Parallelism = 8
	res, err := NewChecker(config, nil).CheckProgram(ctx, prog)
	require.NoError(t, err)

	assert.Empty(t, res.Diagnostics)
	require.Len(t, res.Decls, n)
	for i, d := range res.Decls {
		assert.Equal(t, fmt.Sprintf("d%d", i), d.Name)
		assert.Equal(t, "(Int, String)", d.Scheme.String())
	}
	assert.Equal(t, []string{"fst", "identity", "negate", "not", "snd", "toString"}, Prelude().Visible())
}
