package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/reposearch/internal/db"
	"github.com/kailas-cloud/reposearch/internal/domain/document"
)

// IndexDefinition describes the repository index over JSON documents.
// Tags are matched exactly, case included.
func (r *Repo) IndexDefinition() (*db.IndexDefinition, error) {
	b := db.NewIndex(r.cfg.IndexName).
		Prefix(r.keyPrefix()).
		Text("$.content", "__content").
		Text("$.title", "title").
		TagWithOpts("$.tags[*]", FieldTags, "", true).
		Numeric("$.stars", FieldStars).Sortable().
		Numeric("$.created_ts", FieldCreatedTS).Sortable()

	if r.cfg.VectorAlgorithm == db.VectorFlat {
		b.VectorFlat("$.vector", "vector", r.cfg.Dimensions, db.DistanceCosine)
	} else {
		b.VectorHNSW("$.vector", "vector", r.cfg.Dimensions, db.DistanceCosine, r.cfg.HNSWM, r.cfg.HNSWEFConstruct)
	}

	def, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("repository index: %w", err)
	}
	return def, nil
}

// EnsureIndex creates the index unless it already exists.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.cfg.IndexName)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}
	def, err := r.IndexDefinition()
	if err != nil {
		return err
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// RecreateIndex drops the index (documents stay) and builds it again from
// the current definition. Redis re-indexes the existing keys in the background.
func (r *Repo) RecreateIndex(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.cfg.IndexName); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index: %w", err)
	}
	def, err := r.IndexDefinition()
	if err != nil {
		return err
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// record is the stored JSON layout: the document plus the indexed derivatives.
type record struct {
	document.Document
	Content   string    `json:"content"`
	CreatedTS *int64    `json:"created_ts,omitempty"`
	Vector    []float32 `json:"vector"`
}

func newRecord(doc document.Document, vec []float32) record {
	doc.BackendScore = 0
	doc.Tags = document.CleanTags(doc.Tags)
	rec := record{Document: doc, Content: doc.Content(), Vector: vec}
	if t, ok := doc.CreatedAt(); ok {
		ts := t.Unix()
		rec.CreatedTS = &ts
	}
	return rec
}

// Upsert writes docs with their vectors in one pipeline. The returned slice
// is aligned with docs; nil means that document was stored.
func (r *Repo) Upsert(ctx context.Context, docs []document.Document, vectors [][]float32) ([]error, error) {
	if len(docs) != len(vectors) {
		return nil, fmt.Errorf("upsert: %d documents, %d vectors", len(docs), len(vectors))
	}

	errs := make([]error, len(docs))
	items := make([]db.JSONSetItem, 0, len(docs))
	pos := make([]int, 0, len(docs))

	for i, doc := range docs {
		if err := doc.Validate(); err != nil {
			errs[i] = err
			continue
		}
		if len(vectors[i]) != r.cfg.Dimensions {
			errs[i] = fmt.Errorf("vector has %d dimensions, index expects %d", len(vectors[i]), r.cfg.Dimensions)
			continue
		}
		data, err := json.Marshal(newRecord(doc, vectors[i]))
		if err != nil {
			errs[i] = fmt.Errorf("marshal %s: %w", doc.ID, err)
			continue
		}
		items = append(items, db.JSONSetItem{Key: r.keyPrefix() + doc.ID, Path: "$", Data: data})
		pos = append(pos, i)
	}

	if len(items) == 0 {
		return errs, nil
	}
	for j, err := range r.store.JSONSetMulti(ctx, items) {
		if err != nil {
			errs[pos[j]] = fmt.Errorf("store %s: %w", docs[pos[j]].ID, err)
		}
	}
	return errs, nil
}
