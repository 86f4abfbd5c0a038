package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/reposearch/internal/domain"
	"github.com/kailas-cloud/reposearch/internal/domain/document"
	"github.com/kailas-cloud/reposearch/internal/domain/intent"
	"github.com/kailas-cloud/reposearch/internal/domain/search/query"
	"github.com/kailas-cloud/reposearch/internal/usecase/ranking"
)

// Backend runs a query in the mode its parts imply.
type Backend interface {
	Search(ctx context.Context, q query.Query) ([]document.Document, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// IntentExtractor reads a structured intent out of a raw query.
type IntentExtractor interface {
	Extract(ctx context.Context, query string) (intent.Intent, error)
}

// Suggester proposes related queries.
type Suggester interface {
	Related(ctx context.Context, query string) ([]string, error)
}

// Ranker orders documents by final score.
type Ranker interface {
	Rank(docs []document.Document) []ranking.Result
}

// Cache is the semantic response cache.
type Cache interface {
	Lookup(vec []float32, threshold float64) (*Response, float64, bool)
	StoreWithTTL(vec []float32, value *Response, ttl time.Duration)
}
