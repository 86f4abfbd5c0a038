// Package query is the backend-neutral search request.
package query

import (
	"errors"
	"strings"

	"github.com/kailas-cloud/reposearch/internal/domain/search/filter"
	"github.com/kailas-cloud/reposearch/internal/domain/search/mode"
)

// Query is what the orchestrator sends to a search backend. The mode follows
// from which parts are set.
type Query struct {
	Text   string
	Vector []float32
	Filter filter.Expression
	TopK   int
}

// New validates and creates a Query.
func New(text string, vec []float32, f filter.Expression, topK int) (Query, error) {
	q := Query{Text: strings.TrimSpace(text), Vector: vec, Filter: f, TopK: topK}
	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}

// Validate checks that the query has a positive TopK and something to match on.
func (q Query) Validate() error {
	if q.TopK <= 0 {
		return errors.New("top_k must be positive")
	}
	if q.Text == "" && len(q.Vector) == 0 && q.Filter.IsEmpty() {
		return errors.New("query needs text, vector or filter")
	}
	return nil
}

// Mode resolves the retrieval strategy.
func (q Query) Mode() mode.Mode {
	hasText, hasVec := q.Text != "", len(q.Vector) > 0
	switch {
	case hasText && hasVec:
		return mode.Hybrid
	case hasVec:
		return mode.Vector
	case hasText:
		return mode.FullText
	default:
		return mode.Browse
	}
}

// Normalize lowercases s, trims it and collapses inner whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
