package db

import "github.com/kailas-cloud/reposearch/internal/domain/search/filter"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Filters      filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// TextQuery is the input for BM25 text search.
type TextQuery struct {
	IndexName    string
	Query        string
	Filters      filter.Expression
	TopK         int
	ReturnFields []string
}

// SortOrder is the direction of a SORTBY clause.
type SortOrder string

const (
	// SortAsc sorts ascending.
	SortAsc SortOrder = "ASC"
	// SortDesc sorts descending.
	SortDesc SortOrder = "DESC"
)

// SortBy names a SORTABLE field and direction.
type SortBy struct {
	Field string
	Order SortOrder
}

// FilterQuery is a pre-filter-only search (no text, no vector), optionally sorted.
// An empty filter matches every document in the index.
type FilterQuery struct {
	IndexName    string
	Filters      filter.Expression
	Sort         *SortBy
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// FacetValue is one group of an FT.AGGREGATE GROUPBY with its document count.
type FacetValue struct {
	Value string
	Count int
}
