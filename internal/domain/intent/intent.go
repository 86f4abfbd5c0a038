// Package intent describes what a search query asks for, as extracted by an LLM.
package intent

import (
	"strings"
	"time"
)

// Intent is the structured reading of a user query.
type Intent struct {
	Intent              string  `json:"intent"`
	Reasoning           string  `json:"reasoning"`
	RewrittenQuery      string  `json:"rewritten_query"`
	Filters             Filters `json:"filters"`
	QueryVectorRequired bool    `json:"query_vector_required"`
}

// Filters are the constraints found in a query. Dates are ISO-8601 (YYYY-MM-DD).
type Filters struct {
	Language      string   `json:"language,omitempty"`
	Libraries     []string `json:"libraries,omitempty"`
	CreatedAfter  string   `json:"created_after,omitempty"`
	CreatedBefore string   `json:"created_before,omitempty"`
	StarsMin      *int     `json:"stars_min,omitempty"`
	Topics        []string `json:"topics,omitempty"`
}

// IsEmpty reports whether no post-filter applies.
func (f Filters) IsEmpty() bool {
	return f.CreatedAfter == "" && f.CreatedBefore == "" && f.StarsMin == nil
}

// Fallback is used when extraction fails: the normalized query is taken
// as-is and vector search is requested.
func Fallback(normalized string) Intent {
	return Intent{
		Intent:              normalized,
		Reasoning:           "fallback: intent extraction unavailable",
		RewrittenQuery:      normalized,
		QueryVectorRequired: true,
	}
}

// Sanitize trims string fields and drops blank list entries. An empty
// rewritten query is replaced by normalized.
func (i Intent) Sanitize(normalized string) Intent {
	i.Intent = strings.TrimSpace(i.Intent)
	i.RewrittenQuery = strings.TrimSpace(i.RewrittenQuery)
	if i.RewrittenQuery == "" {
		i.RewrittenQuery = normalized
	}
	if i.Intent == "" {
		i.Intent = i.RewrittenQuery
	}
	i.Filters.Language = strings.TrimSpace(i.Filters.Language)
	i.Filters.CreatedAfter = strings.TrimSpace(i.Filters.CreatedAfter)
	i.Filters.CreatedBefore = strings.TrimSpace(i.Filters.CreatedBefore)
	i.Filters.Libraries = compact(i.Filters.Libraries)
	i.Filters.Topics = compact(i.Filters.Topics)
	return i
}

func compact(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// RelativeDates maps the relative phrases the extractor understands to absolute dates.
type RelativeDates struct {
	Today     string
	LastWeek  string
	LastMonth string
	Recent    string
	LastYear  string
}

// NewRelativeDates anchors the relative phrases at today (UTC calendar date).
func NewRelativeDates(today time.Time) RelativeDates {
	t := today.UTC()
	back := func(days int) string { return t.AddDate(0, 0, -days).Format(time.DateOnly) }
	return RelativeDates{
		Today:     t.Format(time.DateOnly),
		LastWeek:  back(7),
		LastMonth: back(30),
		Recent:    back(90),
		LastYear:  back(365),
	}
}
