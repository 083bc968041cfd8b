package bind

import (
	"fmt"
	"slices"
	"strings"

	"github.com/emirpasic/gods/stacks/arraystack"
)

// Group is a maximal set of sites that depend on each other. Members are in
// source order.
type Group struct {
	Members []SiteID
	// Recursive is true when any member references a member of the same
	// group, itself included.
	Recursive bool

	first int // source index of the first member
}

func (g *Group) String() string {
	return fmt.Sprintf("%v", g.Members)
}

// Names renders the member names for logs and reports.
func (g *Group) Names(c *Collection) []string {
	names := make([]string, len(g.Members))
	for i, id := range g.Members {
		names[i] = c.Site(id).Name
	}
	return names
}

// Describe renders the group as "{a, b} rec".
func (g *Group) Describe(c *Collection) string {
	s := "{" + strings.Join(g.Names(c), ", ") + "}"
	if g.Recursive {
		s += " rec"
	}
	return s
}

// Dependencies returns, for every site, the indices of the sites its value
// references, resolved through the conflict policy.
func Dependencies(c *Collection) [][]int {
	index := make(map[SiteID]int, len(c.Sites))
	for i, s := range c.Sites {
		index[s.ID] = i
	}
	deps := make([][]int, len(c.Sites))
	for i, s := range c.Sites {
		for _, ref := range s.Refs {
			deps[i] = append(deps[i], index[c.Winners[ref]])
		}
	}
	return deps
}

// GroupSites partitions the collection into strongly connected components
// and orders them so that every group comes after the groups it depends on.
// Among groups whose dependencies are all satisfied, the one whose first
// member appears earliest in the source goes first.
func GroupSites(c *Collection) []*Group {
	deps := Dependencies(c)
	components := tarjan(len(c.Sites), deps)

	groups := make([]*Group, len(components))
	groupOf := make([]int, len(c.Sites))
	for gi, comp := range components {
		slices.Sort(comp)
		g := &Group{first: comp[0]}
		for _, idx := range comp {
			g.Members = append(g.Members, c.Sites[idx].ID)
			groupOf[idx] = gi
		}
		for _, idx := range comp {
			for _, dep := range deps[idx] {
				if slices.Contains(comp, dep) {
					g.Recursive = true
				}
			}
		}
		groups[gi] = g
	}

	return orderGroups(groups, groupOf, deps)
}

// tarjan returns the strongly connected components of the graph with n
// nodes and the given adjacency lists.
func tarjan(n int, deps [][]int) [][]int {
	const unvisited = -1
	index := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = unvisited
	}

	stack := arraystack.New()
	next := 0
	var components [][]int

	var connect func(v int)
	connect = func(v int) {
		index[v] = next
		lowlink[v] = next
		next++
		stack.Push(v)
		onStack[v] = true

		for _, w := range deps[v] {
			if index[w] == unvisited {
				connect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], index[w])
			}
		}

		if lowlink[v] == index[v] {
			var comp []int
			for {
				top, _ := stack.Pop()
				w := top.(int)
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			components = append(components, comp)
		}
	}

	for v := range n {
		if index[v] == unvisited {
			connect(v)
		}
	}
	return components
}

// orderGroups performs Kahn's algorithm over the condensation graph,
// choosing the ready group with the earliest first member each time.
func orderGroups(groups []*Group, groupOf []int, deps [][]int) []*Group {
	n := len(groups)
	waitingOn := make([]map[int]bool, n)
	dependents := make([][]int, n)
	for gi := range groups {
		waitingOn[gi] = map[int]bool{}
	}
	for site, siteDeps := range deps {
		from := groupOf[site]
		for _, dep := range siteDeps {
			to := groupOf[dep]
			if to == from || waitingOn[from][to] {
				continue
			}
			waitingOn[from][to] = true
			dependents[to] = append(dependents[to], from)
		}
	}

	done := make([]bool, n)
	result := make([]*Group, 0, n)
	for len(result) < n {
		pick := -1
		for gi, g := range groups {
			if done[gi] || len(waitingOn[gi]) > 0 {
				continue
			}
			if pick == -1 || g.first < groups[pick].first {
				pick = gi
			}
		}
		if pick == -1 {
			// The condensation of a graph is acyclic, so this can't happen.
			panic("bind: cycle in condensation graph")
		}
		done[pick] = true
		result = append(result, groups[pick])
		for _, dependent := range dependents[pick] {
			delete(waitingOn[dependent], pick)
		}
	}
	return result
}
