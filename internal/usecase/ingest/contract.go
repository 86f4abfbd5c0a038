package ingest

import (
	"context"

	"github.com/kailas-cloud/reposearch/internal/domain"
	"github.com/kailas-cloud/reposearch/internal/domain/document"
)

// Embedder vectorizes document contents in batches.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Indexer owns the search index and document writes.
type Indexer interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, docs []document.Document, vectors [][]float32) ([]error, error)
}
