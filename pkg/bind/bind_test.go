package bind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j340m3/compiler/pkg/syntax"
)

func collect(t *testing.T, src string) *Collection {
	t.Helper()
	expr, err := syntax.ParseExpr("test.lc", src)
	require.NoError(t, err)
	let, ok := expr.(*syntax.Let)
	require.True(t, ok, "expected a let, got %T", expr)
	return Collect(let, &IDs{})
}

func describe(c *Collection, groups []*Group) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g.Describe(c))
	}
	return out
}

func TestCollectSites(t *testing.T) {
	c := collect(t, `let a = 1 and f x = a + x + g x and g y = y in f 2`)

	require.Len(t, c.Sites, 3)
	assert.Equal(t, SiteID(1), c.Sites[0].ID)
	assert.Equal(t, "a", c.Sites[0].Name)
	assert.Empty(t, c.Sites[0].Refs)
	assert.Equal(t, []string{"a", "g"}, c.Sites[1].Refs)
	assert.Empty(t, c.Sites[2].Refs)
	assert.IsType(t, &syntax.Lambda{}, c.Sites[1].Value)
	assert.Same(t, c.Sites[2], c.Site(3))
	assert.Empty(t, c.Conflicts)
}

func TestCollectStopsAtShadowingBinders(t *testing.T) {
	t.Run("lambda parameter", func(t *testing.T) {
		c := collect(t, `let a = 1 and b = fun a -> a in b`)
		assert.Empty(t, c.Sites[1].Refs)
	})

	t.Run("binding parameter", func(t *testing.T) {
		c := collect(t, `let a = 1 and f a = a in f`)
		assert.Empty(t, c.Sites[1].Refs)
	})

	t.Run("nested let binding", func(t *testing.T) {
		c := collect(t, `let a = 1 and b = let a = "s" in a in b`)
		assert.Empty(t, c.Sites[1].Refs)
	})

	t.Run("nested let sees outer sibling before shadowing", func(t *testing.T) {
		c := collect(t, `let a = 1 and b = let c = a in c in b`)
		assert.Equal(t, []string{"a"}, c.Sites[1].Refs)
	})

	t.Run("reference outside the shadowing lambda still counts", func(t *testing.T) {
		c := collect(t, `let a = 1 and b = (fun a -> a) a in b`)
		assert.Equal(t, []string{"a"}, c.Sites[1].Refs)
	})
}

func TestCollectConflicts(t *testing.T) {
	c := collect(t, `let x = 1 and y = x and x = "s" in y`)

	require.Len(t, c.Conflicts, 1)
	assert.Equal(t, 0, c.Conflicts[0].Loser.Index)
	assert.Equal(t, 2, c.Conflicts[0].Winner.Index)
	assert.Equal(t, c.Sites[2].ID, c.Winners["x"])
	assert.False(t, c.Installed(c.Sites[0]))
	assert.True(t, c.Installed(c.Sites[2]))

	// y's reference to x goes to the winning declaration.
	deps := Dependencies(c)
	assert.Equal(t, []int{2}, deps[1])
}

func TestGroupSites(t *testing.T) {
	for _, tt := range []struct {
		name     string
		src      string
		expected []string
	}{
		{
			name:     "single binding",
			src:      `let a = 1 in a`,
			expected: []string{"{a}"},
		},
		{
			name:     "independent bindings keep source order",
			src:      `let a = 1 and b = 2 and c = 3 in a`,
			expected: []string{"{a}", "{b}", "{c}"},
		},
		{
			name:     "forward reference is ordered after its dependency",
			src:      `let b = a + 1 and a = 1 in b`,
			expected: []string{"{a}", "{b}"},
		},
		{
			name:     "self recursion",
			src:      `let rec fact n = if n == 0 then 1 else n * fact (n - 1) in fact 5`,
			expected: []string{"{fact} rec"},
		},
		{
			name:     "mutual recursion",
			src:      `let rec f x = g x and g x = f x in f 0`,
			expected: []string{"{f, g} rec"},
		},
		{
			name:     "cycle with a tail",
			src:      `let main = even 10 and even n = if n == 0 then true else odd (n - 1) and odd n = if n == 0 then false else even (n - 1) and unused = 1 in main`,
			expected: []string{"{even, odd} rec", "{main}", "{unused}"},
		},
		{
			name:     "chain through several groups",
			src:      `let d = c and c = b and b = a and a = 1 in d`,
			expected: []string{"{a}", "{b}", "{c}", "{d}"},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c := collect(t, tt.src)
			assert.Equal(t, tt.expected, describe(c, GroupSites(c)))
		})
	}
}

func TestGroupsRespectDependencyOrder(t *testing.T) {
	c := collect(t, `let a = b + c and b = c and c = d and d = 1 and e = a + e and f = 2 in e`)
	groups := GroupSites(c)

	position := map[SiteID]int{}
	for gi, g := range groups {
		for _, id := range g.Members {
			position[id] = gi
		}
	}

	// Every edge between different groups points backwards; no group
	// splits a cycle.
	deps := Dependencies(c)
	for i, siteDeps := range deps {
		for _, dep := range siteDeps {
			from := position[c.Sites[i].ID]
			to := position[c.Sites[dep].ID]
			assert.LessOrEqual(t, to, from, "%s -> %s", c.Sites[i].Name, c.Sites[dep].Name)
		}
	}

	total := 0
	for _, g := range groups {
		total += len(g.Members)
	}
	assert.Equal(t, len(c.Sites), total)
}
