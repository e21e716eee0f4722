package parser

import "strings"

// QueryPlan is a normalised free-text query. Matching is a literal,
// case-insensitive substring test, so the plan only carries the lowered
// needle alongside the caller's text.
type QueryPlan struct {
	RawQuery string
	Needle   string
	Empty    bool
}

// Parse normalises query. Only the empty string is an empty query;
// whitespace is searched like any other text.
func Parse(query string) *QueryPlan {
	return &QueryPlan{
		RawQuery: query,
		Needle:   strings.ToLower(query),
		Empty:    query == "",
	}
}

// Key is the plan's identity for caching: two queries that differ only in
// letter case share a key.
func (p *QueryPlan) Key() string {
	return p.Needle
}
