// Package db is the storage contract the repositories are written against:
// a key-value cache, pipelined JSON writes, and FT index management and search.
package db

import (
	"context"
	"time"
)

// Store is everything the Redis driver provides. Repositories depend on
// narrow subsets declared next to them.
type Store interface {
	Pinger
	KVStore
	JSONWriter
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore backs the embedding cache.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// JSONSetItem is one JSON.SET of a pipelined write. Empty Path means the root.
type JSONSetItem struct {
	Key  string
	Path string
	Data []byte
}

// JSONWriter stores indexed documents.
type JSONWriter interface {
	// JSONSetMulti returns one error slot per item, nil on success.
	JSONSetMulti(ctx context.Context, items []JSONSetItem) []error
}

// IndexManager owns the FT index lifecycle.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher runs FT.SEARCH and FT.AGGREGATE.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchBM25(ctx context.Context, q *TextQuery) (*SearchResult, error)
	SearchFilter(ctx context.Context, q *FilterQuery) (*SearchResult, error)
	TopTagValues(ctx context.Context, index, field string, n int) ([]FacetValue, error)
}
