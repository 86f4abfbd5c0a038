package search

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/reposearch/internal/db"
	"github.com/kailas-cloud/reposearch/internal/domain/document"
	"github.com/kailas-cloud/reposearch/internal/domain/search/browse"
	"github.com/kailas-cloud/reposearch/internal/domain/search/filter"
)

func browseExpression(f browse.Filter) filter.Expression {
	var conds []filter.Condition
	if f.Tag != "" {
		conds = append(conds, filter.Match(FieldTags, f.Tag))
	}
	if !f.CreatedAfter.IsZero() {
		conds = append(conds, filter.AtLeast(FieldCreatedTS, float64(f.CreatedAfter.Unix())))
	}
	if f.StarsMin != nil {
		conds = append(conds, filter.AtLeast(FieldStars, float64(*f.StarsMin)))
	}
	return filter.Expression{}.WithMust(conds...)
}

// Browse lists documents matching f, sorted descending by sortBy.
func (r *Repo) Browse(ctx context.Context, f browse.Filter, sortBy browse.Sort, limit int) ([]document.Document, error) {
	if limit <= 0 {
		return []document.Document{}, nil
	}
	fq := &db.FilterQuery{Filters: browseExpression(f), Limit: limit}
	if sortBy != browse.SortNone {
		fq.Sort = &db.SortBy{Field: string(sortBy), Order: db.SortDesc}
	}
	return r.browse(ctx, fq)
}

// TopTags returns the n most frequent tags, most frequent first. The
// placeholder tag is never returned.
func (r *Repo) TopTags(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}
	facets, err := r.store.TopTagValues(ctx, r.cfg.IndexName, FieldTags, n+1)
	if err != nil {
		return nil, fmt.Errorf("top tags: %w", err)
	}
	tags := make([]string, 0, n)
	for _, f := range facets {
		if f.Value == document.NoneTag {
			continue
		}
		tags = append(tags, f.Value)
		if len(tags) == n {
			break
		}
	}
	return tags, nil
}
