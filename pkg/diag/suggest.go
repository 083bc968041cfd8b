package diag

import (
	"cmp"
	"slices"

	"github.com/agnivade/levenshtein"
)

// MaxSuggestionDistance is the largest edit distance still offered as a
// "did you mean".
const MaxSuggestionDistance = 2

// Suggest returns the candidates within MaxSuggestionDistance edits of name,
// nearest first, ties broken alphabetically.
func Suggest(name string, candidates []string) []string {
	type scored struct {
		name string
		dist int
	}
	var hits []scored
	for _, c := range candidates {
		if c == name {
			continue
		}
		// Very short names are within two edits of nearly everything.
		if len(name) <= 2 && len(c) > len(name)+1 {
			continue
		}
		if d := levenshtein.ComputeDistance(name, c); d <= MaxSuggestionDistance {
			hits = append(hits, scored{c, d})
		}
	}
	slices.SortFunc(hits, func(a, b scored) int {
		return cmp.Or(cmp.Compare(a.dist, b.dist), cmp.Compare(a.name, b.name))
	})
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}
	return out
}
