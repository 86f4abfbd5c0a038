package recommend

import (
	"context"

	"github.com/kailas-cloud/reposearch/internal/domain/document"
	"github.com/kailas-cloud/reposearch/internal/domain/search/browse"
)

// Catalog lists repositories without a query.
type Catalog interface {
	Browse(ctx context.Context, f browse.Filter, sortBy browse.Sort, limit int) ([]document.Document, error)
	TopTags(ctx context.Context, n int) ([]string, error)
}
