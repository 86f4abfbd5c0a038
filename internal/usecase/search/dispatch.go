package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/reposearch/internal/domain/document"
	"github.com/kailas-cloud/reposearch/internal/domain/search/query"
	"github.com/kailas-cloud/reposearch/internal/logger"
	"github.com/kailas-cloud/reposearch/internal/metrics"
)

// vectorFirst embeds the rewritten query and runs a hybrid backend query,
// degrading to full-text on the normalized query. Total failure is an empty list.
func (s *Service) vectorFirst(ctx context.Context, qc QueryContext, limit int) []document.Document {
	log := logger.FromContext(ctx)

	res, err := s.embedder.Embed(ctx, qc.Rewritten)
	if err == nil && len(res.Embedding) > 0 {
		docs, err := s.backend.Search(ctx, query.Query{Text: qc.Normalized, Vector: res.Embedding, TopK: limit})
		if err == nil {
			return docs
		}
		log.Warn("hybrid search failed, degrading to full-text", zap.Error(err))
		metrics.SearchFallbacksTotal.WithLabelValues(metrics.FallbackHybrid).Inc()
	} else {
		log.Warn("query embedding failed, degrading to full-text", zap.Error(err))
		metrics.SearchFallbacksTotal.WithLabelValues(metrics.FallbackEmbedding).Inc()
	}

	docs, err := s.backend.Search(ctx, query.Query{Text: qc.Normalized, TopK: limit})
	if err != nil {
		log.Error("full-text fallback failed", zap.Error(err))
		return []document.Document{}
	}
	return docs
}

// textFirst runs full-text on the rewritten query. When that finds nothing it
// tries a vector query and accepts it only if its best score reaches
// VectorFallbackMinScore. ok is false for "no result".
func (s *Service) textFirst(ctx context.Context, qc QueryContext, limit int) (docs []document.Document, ok bool) {
	log := logger.FromContext(ctx)

	docs, err := s.backend.Search(ctx, query.Query{Text: qc.Rewritten, TopK: limit})
	if err != nil {
		log.Warn("full-text search failed, trying vector", zap.Error(err))
	}
	if err == nil && len(docs) > 0 {
		return docs, true
	}

	res, err := s.embedder.Embed(ctx, qc.Rewritten)
	if err != nil || len(res.Embedding) == 0 {
		log.Warn("vector fallback embedding failed", zap.Error(err))
		metrics.SearchFallbacksTotal.WithLabelValues(metrics.FallbackEmbedding).Inc()
		return nil, false
	}
	docs, err = s.backend.Search(ctx, query.Query{Vector: res.Embedding, TopK: limit})
	if err != nil {
		log.Warn("vector fallback search failed", zap.Error(err))
		metrics.SearchFallbacksTotal.WithLabelValues(metrics.FallbackVectorSearch).Inc()
		return nil, false
	}

	if top := topScore(docs); len(docs) == 0 || top < s.opts.VectorFallbackMinScore {
		log.Debug("vector fallback below gate", zap.Float64("top_score", top), zap.Int("hits", len(docs)))
		metrics.SearchFallbacksTotal.WithLabelValues(metrics.FallbackVectorGate).Inc()
		return nil, false
	}
	return docs, true
}

func topScore(docs []document.Document) float64 {
	var top float64
	for i, d := range docs {
		if i == 0 || d.BackendScore > top {
			top = d.BackendScore
		}
	}
	return top
}
