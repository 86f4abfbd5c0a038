package chi

import (
	"context"

	"github.com/kailas-cloud/reposearch/internal/domain/document"
	"github.com/kailas-cloud/reposearch/internal/usecase/health"
	"github.com/kailas-cloud/reposearch/internal/usecase/ranking"
	"github.com/kailas-cloud/reposearch/internal/usecase/recommend"
	"github.com/kailas-cloud/reposearch/internal/usecase/search"
)

// Searcher is the search orchestrator.
type Searcher interface {
	Text(ctx context.Context, raw string, opts search.TextOptions) (*search.Response, error)
	Hybrid(ctx context.Context, raw string, limit int) (*search.Response, error)
	Vector(ctx context.Context, raw string, limit int) ([]document.Document, error)
	Tag(ctx context.Context, tag string, limit int) ([]ranking.Result, error)
}

// Recommender builds the landing-page recommendations.
type Recommender interface {
	Recommend(ctx context.Context, limit int) recommend.Recommendations
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}
