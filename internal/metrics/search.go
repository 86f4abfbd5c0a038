package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Search pipeline metrics.
var (
	SemanticCacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "semantic_cache_lookups_total",
			Help:      "Semantic cache lookups by result",
		},
		[]string{"result"}, // hit / miss
	)

	SemanticCacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "semantic_cache_entries",
			Help:      "Entries held by the semantic cache, expired ones included until pruned",
		},
	)

	RankedDocumentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ranked_documents_total",
			Help:      "Documents scored by the ranking engine",
		},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_requests_total",
			Help:      "Search requests by entry point and outcome",
		},
		[]string{"mode", "outcome"}, // outcome: results / empty / no_result / error
	)

	SearchFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_fallbacks_total",
			Help:      "Degradations taken by the orchestrator",
		},
		[]string{"reason"},
	)

	RecommendationCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "recommendation_cache_total",
			Help:      "Recommendation cache hits and misses",
		},
		[]string{"result"},
	)
)

// Fallback reasons.
const (
	FallbackIntent       = "intent"
	FallbackEmbedding    = "embedding"
	FallbackHybrid       = "hybrid"
	FallbackVectorGate   = "vector_gate"
	FallbackSuggest      = "suggest"
	FallbackCacheEmbed   = "cache_embedding"
	FallbackVectorSearch = "vector_search"
)

var searchOnce sync.Once

// RegisterSearchMetrics registers the search pipeline collectors. Safe to call more than once.
func RegisterSearchMetrics() {
	searchOnce.Do(func() {
		prometheus.MustRegister(
			SemanticCacheLookupsTotal,
			SemanticCacheEntries,
			RankedDocumentsTotal,
			SearchRequestsTotal,
			SearchFallbacksTotal,
			RecommendationCacheTotal,
		)
	})
}
