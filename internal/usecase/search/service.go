// Package search orchestrates repository search: intent extraction, retrieval
// with degradation, post-filtering, ranking, suggestions and the semantic cache.
package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/reposearch/internal/domain"
	"github.com/kailas-cloud/reposearch/internal/domain/document"
	"github.com/kailas-cloud/reposearch/internal/domain/search/filter"
	"github.com/kailas-cloud/reposearch/internal/domain/search/query"
	"github.com/kailas-cloud/reposearch/internal/logger"
	"github.com/kailas-cloud/reposearch/internal/metrics"
	"github.com/kailas-cloud/reposearch/internal/usecase/ranking"
)

// Options tune limits and thresholds. Zero fields take the defaults.
type Options struct {
	DefaultLimit           int // hybrid, vector and tag
	TextDefaultLimit       int // text
	MaxLimit               int
	VectorFallbackMinScore float64  // top score a vector fallback must reach
	SimilarityThreshold    *float64 // semantic cache default, nil means 0.8
	CacheTTL               time.Duration
}

func (o Options) withDefaults() Options {
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = 5
	}
	if o.TextDefaultLimit <= 0 {
		o.TextDefaultLimit = 50
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = 100
	}
	if o.VectorFallbackMinScore <= 0 {
		o.VectorFallbackMinScore = 0.5
	}
	if o.SimilarityThreshold == nil {
		def := 0.8
		o.SimilarityThreshold = &def
	}
	return o
}

// TextOptions are per-call settings of Text. Zero fields take the service
// defaults; a nil Threshold does too, so 0 stays a valid threshold.
type TextOptions struct {
	Limit     int
	Threshold *float64
	TTL       time.Duration
}

// Service is the hybrid search orchestrator.
type Service struct {
	backend   Backend
	embedder  Embedder
	intents   IntentExtractor
	suggester Suggester
	ranker    Ranker
	cache     Cache
	group     singleflight.Group
	opts      Options
}

// New creates a search service.
func New(
	backend Backend,
	embedder Embedder,
	intents IntentExtractor,
	suggester Suggester,
	ranker Ranker,
	cache Cache,
	opts Options,
) *Service {
	return &Service{
		backend:   backend,
		embedder:  embedder,
		intents:   intents,
		suggester: suggester,
		ranker:    ranker,
		cache:     cache,
		opts:      opts.withDefaults(),
	}
}

func (s *Service) limit(requested, def int) int {
	if requested <= 0 {
		return def
	}
	return min(requested, s.opts.MaxLimit)
}

// Hybrid answers a query with whichever retrieval its intent calls for.
// It returns (nil, nil) when the text-first path finds nothing trustworthy.
func (s *Service) Hybrid(ctx context.Context, raw string, limit int) (*Response, error) {
	limit = s.limit(limit, s.opts.DefaultLimit)

	qc, err := s.understand(ctx, raw)
	if err != nil {
		countRequest("hybrid", nil, err)
		return nil, err
	}
	ctx = logger.With(ctx, zap.String("query", qc.Normalized))

	var docs []document.Document
	if qc.RequiresVector {
		docs = s.vectorFirst(ctx, qc, limit)
	} else {
		var ok bool
		if docs, ok = s.textFirst(ctx, qc, limit); !ok {
			countRequest("hybrid", nil, nil)
			return nil, nil
		}
	}

	resp := s.finish(ctx, qc, docs, limit)
	countRequest("hybrid", resp, nil)
	return resp, nil
}

// Text is the text-first search with the semantic cache in front of it.
// Concurrent misses for the same query, threshold and TTL run once. The flight
// is detached from the leader's context so a cancelled caller only fails itself.
func (s *Service) Text(ctx context.Context, raw string, opts TextOptions) (*Response, error) {
	limit := s.limit(opts.Limit, s.opts.TextDefaultLimit)
	threshold := *s.opts.SimilarityThreshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = s.opts.CacheTTL
	}

	normalized := query.Normalize(raw)
	if normalized == "" {
		countRequest("text", nil, domain.ErrInvalidQuery)
		return nil, domain.ErrInvalidQuery
	}

	key := normalized + "\x00" + strconv.FormatFloat(threshold, 'g', -1, 64) + "\x00" + ttl.String()
	flight := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		return s.text(flight, raw, threshold, ttl)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		countRequest("text", nil, ctx.Err())
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		countRequest("text", nil, res.Err)
		return nil, res.Err
	}
	full, _ := res.Val.(*Response)
	resp := full.limited(limit)
	countRequest("text", resp, nil)
	return resp, nil
}

// text answers a cache miss with the full ranked set up to MaxLimit. Callers
// truncate, so one cached entry serves every limit.
func (s *Service) text(ctx context.Context, raw string, threshold float64, ttl time.Duration) (*Response, error) {
	qc, err := s.understand(ctx, raw)
	if err != nil {
		return nil, err
	}
	ctx = logger.With(ctx, zap.String("query", qc.Normalized))
	log := logger.FromContext(ctx)

	var key []float32
	if res, err := s.embedder.Embed(ctx, qc.Intent); err != nil || len(res.Embedding) == 0 {
		log.Warn("cache embedding failed, skipping cache", zap.Error(err))
		metrics.SearchFallbacksTotal.WithLabelValues(metrics.FallbackCacheEmbed).Inc()
	} else {
		key = res.Embedding
	}

	if key != nil {
		if cached, sim, ok := s.cache.Lookup(key, threshold); ok && cached != nil {
			log.Debug("semantic cache hit", zap.Float64("similarity", sim))
			return cached.hit(sim), nil
		}
	}

	docs, ok := s.textFirst(ctx, qc, s.opts.MaxLimit)
	if !ok {
		return nil, nil
	}
	resp := s.finish(ctx, qc, docs, s.opts.MaxLimit)

	if key != nil {
		s.cache.StoreWithTTL(key, resp, ttl)
	}
	return resp, nil
}

// Vector returns the nearest documents to the query in backend order, unranked.
func (s *Service) Vector(ctx context.Context, raw string, limit int) ([]document.Document, error) {
	limit = s.limit(limit, s.opts.DefaultLimit)
	normalized := query.Normalize(raw)
	if normalized == "" {
		countRequest("vector", nil, domain.ErrInvalidQuery)
		return nil, domain.ErrInvalidQuery
	}

	res, err := s.embedder.Embed(ctx, normalized)
	if err != nil {
		countRequest("vector", nil, err)
		return nil, fmt.Errorf("embed query: %w", err)
	}
	docs, err := s.backend.Search(ctx, query.Query{Vector: res.Embedding, TopK: limit})
	if err != nil {
		countRequest("vector", nil, err)
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(docs) > limit {
		docs = docs[:limit]
	}
	outcome := "results"
	if len(docs) == 0 {
		outcome = "empty"
	}
	metrics.SearchRequestsTotal.WithLabelValues("vector", outcome).Inc()
	return docs, nil
}

// Tag lists documents carrying exactly tag, ranked. Backend failures yield an empty list.
func (s *Service) Tag(ctx context.Context, tag string, limit int) ([]ranking.Result, error) {
	limit = s.limit(limit, s.opts.DefaultLimit)
	tag = strings.TrimSpace(tag)
	if tag == "" {
		countRequest("tag", nil, domain.ErrInvalidQuery)
		return nil, domain.ErrInvalidQuery
	}

	q := query.Query{
		Filter: filter.Expression{}.WithMust(filter.Match("tags", tag)),
		TopK:   limit,
	}
	docs, err := s.backend.Search(ctx, q)
	if err != nil {
		logger.FromContext(ctx).Warn("tag search failed", zap.String("tag", tag), zap.Error(err))
		metrics.SearchRequestsTotal.WithLabelValues("tag", "empty").Inc()
		return []ranking.Result{}, nil
	}

	results := s.ranker.Rank(docs)
	if len(results) > limit {
		results = results[:limit]
	}
	outcome := "results"
	if len(results) == 0 {
		outcome = "empty"
	}
	metrics.SearchRequestsTotal.WithLabelValues("tag", outcome).Inc()
	return results, nil
}

// finish filters, ranks, truncates and attaches suggestions.
func (s *Service) finish(ctx context.Context, qc QueryContext, docs []document.Document, limit int) *Response {
	docs = newPostFilter(ctx, qc.Filters).apply(docs)

	results := s.ranker.Rank(docs)
	if len(results) > limit {
		results = results[:limit]
	}

	resp := emptyResponse()
	resp.Results = results
	resp.SuggestedFilters = s.suggest(ctx, qc.Normalized)
	if len(qc.Filters.Topics) > 0 {
		resp.SuggestedTopics = append([]string(nil), qc.Filters.Topics...)
	}
	return resp
}

func (s *Service) suggest(ctx context.Context, normalized string) []string {
	related, err := s.suggester.Related(ctx, normalized)
	if err != nil {
		logger.FromContext(ctx).Warn("related queries failed", zap.Error(err))
		metrics.SearchFallbacksTotal.WithLabelValues(metrics.FallbackSuggest).Inc()
		return []string{}
	}
	if related == nil {
		return []string{}
	}
	return related
}

func countRequest(mode string, resp *Response, err error) {
	outcome := "results"
	switch {
	case err != nil:
		outcome = "error"
	case resp == nil:
		outcome = "no_result"
	case len(resp.Results) == 0:
		outcome = "empty"
	}
	metrics.SearchRequestsTotal.WithLabelValues(mode, outcome).Inc()
}
