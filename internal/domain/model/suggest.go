package model

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// catalogSource implements fuzzy.Source over "id name" labels.
type catalogSource []Athlete

func (s catalogSource) Len() int { return len(s) }

func (s catalogSource) String(i int) string {
	return strings.ToLower(s[i].ID + " " + s[i].Name)
}

// Suggest returns up to n catalog ids that fuzzily match an unknown id.
// Results are ordered by match score, best first.
func (c Catalog) Suggest(unknown string, n int) []string {
	q := strings.ToLower(strings.TrimSpace(unknown))
	if q == "" || n <= 0 || len(c) == 0 {
		return nil
	}

	src := make(catalogSource, 0, len(c))
	for _, a := range c {
		src = append(src, a)
	}
	// map iteration is random; fix the order so ties are stable
	sort.Slice(src, func(i, j int) bool { return src[i].ID < src[j].ID })

	matches := fuzzy.FindFrom(q, src)
	out := make([]string, 0, min(n, len(matches)))
	for _, m := range matches {
		if len(out) == n {
			break
		}
		out = append(out, src[m.Index].ID)
	}
	return out
}
