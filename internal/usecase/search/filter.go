package search

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/reposearch/internal/domain/document"
	"github.com/kailas-cloud/reposearch/internal/domain/intent"
	"github.com/kailas-cloud/reposearch/internal/logger"
)

// postFilter holds the intent constraints that parsed. A nil bound is disabled.
type postFilter struct {
	after    *time.Time
	before   *time.Time
	starsMin *int
}

func newPostFilter(ctx context.Context, f intent.Filters) postFilter {
	var p postFilter
	parse := func(name, v string) *time.Time {
		if v == "" {
			return nil
		}
		t, ok := document.ParseDate(v)
		if !ok {
			logger.FromContext(ctx).Debug("ignoring unparseable date filter",
				zap.String("filter", name), zap.String("value", v))
			return nil
		}
		return &t
	}
	p.after = parse("created_after", f.CreatedAfter)
	p.before = parse("created_before", f.CreatedBefore)
	p.starsMin = f.StarsMin
	return p
}

func (p postFilter) active() bool {
	return p.after != nil || p.before != nil || p.starsMin != nil
}

// keep reports whether d passes every active bound. A document without a
// usable date fails any date bound; one without stars fails stars_min.
func (p postFilter) keep(d document.Document) bool {
	if p.after != nil || p.before != nil {
		created, ok := d.CreatedAt()
		if !ok {
			return false
		}
		if p.after != nil && created.Before(*p.after) {
			return false
		}
		if p.before != nil && created.After(*p.before) {
			return false
		}
	}
	if p.starsMin != nil && (d.Stars == nil || *d.Stars < *p.starsMin) {
		return false
	}
	return true
}

func (p postFilter) apply(docs []document.Document) []document.Document {
	if !p.active() {
		return docs
	}
	out := make([]document.Document, 0, len(docs))
	for _, d := range docs {
		if p.keep(d) {
			out = append(out, d)
		}
	}
	return out
}
