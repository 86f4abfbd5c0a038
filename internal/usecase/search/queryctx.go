package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/reposearch/internal/domain"
	"github.com/kailas-cloud/reposearch/internal/domain/intent"
	"github.com/kailas-cloud/reposearch/internal/domain/search/query"
	"github.com/kailas-cloud/reposearch/internal/logger"
	"github.com/kailas-cloud/reposearch/internal/metrics"
)

// QueryContext is the per-request reading of a query. It lives only for one call.
type QueryContext struct {
	Raw            string
	Normalized     string
	Intent         string
	Rewritten      string
	Filters        intent.Filters
	RequiresVector bool
}

// understand normalizes raw and extracts its intent, falling back to the
// normalized text when extraction fails.
func (s *Service) understand(ctx context.Context, raw string) (QueryContext, error) {
	normalized := query.Normalize(raw)
	if normalized == "" {
		return QueryContext{}, domain.ErrInvalidQuery
	}

	in, err := s.intents.Extract(ctx, normalized)
	if err != nil {
		logger.FromContext(ctx).Warn("intent extraction failed, using fallback", zap.Error(err))
		metrics.SearchFallbacksTotal.WithLabelValues(metrics.FallbackIntent).Inc()
		in = intent.Fallback(normalized)
	}
	in = in.Sanitize(normalized)

	return QueryContext{
		Raw:            raw,
		Normalized:     normalized,
		Intent:         in.Intent,
		Rewritten:      in.RewrittenQuery,
		Filters:        in.Filters,
		RequiresVector: in.QueryVectorRequired,
	}, nil
}
