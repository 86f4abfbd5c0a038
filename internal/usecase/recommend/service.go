// Package recommend builds the landing-page recommendations: trending,
// popular and per-topic repositories plus suggested filters.
package recommend

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/reposearch/internal/domain/document"
	"github.com/kailas-cloud/reposearch/internal/domain/search/browse"
	"github.com/kailas-cloud/reposearch/internal/logger"
	"github.com/kailas-cloud/reposearch/internal/metrics"
)

// FallbackTags stand in when the catalog has no tags.
var FallbackTags = []string{"machine learning", "web3", "frontend", "blockchain", "deep learning"}

// Recommendations is the landing-page payload.
type Recommendations struct {
	Trending         []document.Document            `json:"trending"`
	Popular          []document.Document            `json:"popular"`
	Topics           map[string][]document.Document `json:"topics"`
	SuggestedFilters []string                       `json:"suggested_filters"`
	Limit            int                            `json:"limit"`
}

// Options tune the sections and the result cache. Zero fields take the defaults.
type Options struct {
	CacheSize            int
	CacheTTL             time.Duration
	TrendingWindow       time.Duration
	TopicCount           int
	SuggestedFilterCount int
	Now                  func() time.Time
}

func (o Options) withDefaults() Options {
	if o.CacheSize <= 0 {
		o.CacheSize = 64
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 900 * time.Second
	}
	if o.TrendingWindow <= 0 {
		o.TrendingWindow = 365 * 24 * time.Hour
	}
	if o.TopicCount <= 0 {
		o.TopicCount = 3
	}
	if o.SuggestedFilterCount <= 0 {
		o.SuggestedFilterCount = 10
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Service computes recommendations and caches them per limit.
type Service struct {
	catalog Catalog
	cache   *expirable.LRU[int, Recommendations]
	opts    Options
}

// New creates a recommendation service.
func New(catalog Catalog, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		catalog: catalog,
		cache:   expirable.NewLRU[int, Recommendations](opts.CacheSize, nil, opts.CacheTTL),
		opts:    opts,
	}
}

// Recommend never fails: a section that cannot be fetched is empty.
// Fully healthy results are cached per limit.
func (s *Service) Recommend(ctx context.Context, limit int) Recommendations {
	if rec, ok := s.cache.Get(limit); ok {
		metrics.RecommendationCacheTotal.WithLabelValues("hit").Inc()
		return rec
	}
	metrics.RecommendationCacheTotal.WithLabelValues("miss").Inc()

	rec, degraded := s.build(ctx, limit)
	if !degraded {
		s.cache.Add(limit, rec)
	}
	return rec
}

func (s *Service) build(ctx context.Context, limit int) (Recommendations, bool) {
	log := logger.FromContext(ctx)
	rec := Recommendations{
		Trending:         []document.Document{},
		Popular:          []document.Document{},
		Topics:           map[string][]document.Document{},
		SuggestedFilters: slices.Clone(FallbackTags),
		Limit:            limit,
	}

	var mu sync.Mutex
	degraded := false
	fail := func(section string, err error) {
		log.Warn("recommendation section failed", zap.String("section", section), zap.Error(err))
		mu.Lock()
		degraded = true
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(func() error {
		after := s.opts.Now().Add(-s.opts.TrendingWindow)
		docs, err := s.catalog.Browse(ctx, browse.Filter{CreatedAfter: after}, browse.SortStars, limit)
		if err != nil {
			fail("trending", err)
			return nil
		}
		rec.Trending = sortTrending(docs)
		return nil
	})
	g.Go(func() error {
		docs, err := s.catalog.Browse(ctx, browse.Filter{}, browse.SortStars, limit)
		if err != nil {
			fail("popular", err)
			return nil
		}
		rec.Popular = docs
		return nil
	})
	g.Go(func() error {
		n := max(s.opts.TopicCount, s.opts.SuggestedFilterCount)
		tags, err := s.catalog.TopTags(ctx, n)
		if err != nil {
			fail("tags", err)
		}
		tags = document.CleanTags(tags)

		topics := FallbackTags[:min(s.opts.TopicCount, len(FallbackTags))]
		if len(tags) > 0 {
			rec.SuggestedFilters = tags[:min(s.opts.SuggestedFilterCount, len(tags))]
			topics = tags[:min(s.opts.TopicCount, len(tags))]
		}
		rec.Topics = s.topics(ctx, topics, limit, fail)
		return nil
	})
	_ = g.Wait()

	return rec, degraded
}

func (s *Service) topics(
	ctx context.Context, tags []string, limit int, fail func(string, error),
) map[string][]document.Document {
	out := make(map[string][]document.Document, len(tags))
	var mu sync.Mutex
	var g errgroup.Group
	for _, tag := range tags {
		g.Go(func() error {
			docs, err := s.catalog.Browse(ctx, browse.Filter{Tag: tag}, browse.SortNone, limit)
			if err != nil {
				fail("topic:"+tag, err)
				docs = []document.Document{}
			}
			mu.Lock()
			out[tag] = docs
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// sortTrending orders by stars, then by date, both descending. Missing dates sort last.
func sortTrending(docs []document.Document) []document.Document {
	out := slices.Clone(docs)
	slices.SortStableFunc(out, func(a, b document.Document) int {
		if c := cmp.Compare(b.StarCount(), a.StarCount()); c != 0 {
			return c
		}
		ta, okA := a.CreatedAt()
		tb, okB := b.CreatedAt()
		switch {
		case okA && okB:
			return tb.Compare(ta)
		case okA:
			return -1
		case okB:
			return 1
		}
		return 0
	})
	return out
}
