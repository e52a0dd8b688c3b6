package idmap

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cast"
)

// Pair maps one source id to one target id.
type Pair struct {
	From string
	To   string
}

// Result is a mapping table. Results returned by Query contain no duplicate
// pairs and are sorted by From.
type Result []Pair

// Sources returns the distinct From values in order of first appearance.
func (r Result) Sources() []string {
	return uniqueValues(r, func(p Pair) string { return p.From })
}

// Targets returns the distinct To values in order of first appearance.
func (r Result) Targets() []string {
	return uniqueValues(r, func(p Pair) string { return p.To })
}

func uniqueValues(r Result, key func(Pair) string) []string {
	seen := make(map[string]struct{}, len(r))
	var out []string
	for _, p := range r {
		k := key(p)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// groupByFrom indexes targets by source id, preserving order.
func (r Result) groupByFrom() map[string][]string {
	g := make(map[string][]string, len(r))
	for _, p := range r {
		g[p.From] = append(g[p.From], p.To)
	}
	return g
}

// dedupe drops pairs with an empty field and repeated pairs, keeping the
// first occurrence.
func dedupe(r Result) Result {
	seen := make(map[Pair]struct{}, len(r))
	out := make(Result, 0, len(r))
	for _, p := range r {
		if p.From == "" || p.To == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// postProcess dedupes r and stable-sorts it by From.
func postProcess(r Result) Result {
	out := dedupe(r)
	slices.SortStableFunc(out, func(a, b Pair) int {
		return strings.Compare(a.From, b.From)
	})
	return out
}

// IDs converts arbitrary scalar values (strings, integers, floats, ...) to
// their string form for use as query ids.
func IDs[T any](values ...T) ([]string, error) {
	ids := make([]string, 0, len(values))
	for i, v := range values {
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, fmt.Errorf("id %d: %w", i, err)
		}
		ids = append(ids, s)
	}
	return ids, nil
}
