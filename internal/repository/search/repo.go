// Package search is the Redis-backed search backend: FT.SEARCH in full-text,
// vector, hybrid and browse modes over repository documents.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/reposearch/internal/db"
	"github.com/kailas-cloud/reposearch/internal/domain/document"
	"github.com/kailas-cloud/reposearch/internal/domain/search/mode"
	"github.com/kailas-cloud/reposearch/internal/domain/search/query"
)

// Attribute names of the repository index.
const (
	FieldTags      = "tags"
	FieldStars     = "stars"
	FieldCreatedTS = "created_ts"

	docField = "$"
)

type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchFilter(ctx context.Context, q *db.FilterQuery) (*db.SearchResult, error)
	TopTagValues(ctx context.Context, index, field string, n int) ([]db.FacetValue, error)
	IndexExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) []error
}

// Config names the index and its key space.
type Config struct {
	KeyPrefix       string
	IndexName       string
	Dimensions      int
	VectorAlgorithm db.VectorAlgorithm
	HNSWM           int
	HNSWEFConstruct int
	RRFK            int
}

// Repo implements the search backend and the recommendation catalog.
type Repo struct {
	store store
	cfg   Config
}

// New creates a search repository.
func New(s store, cfg Config) *Repo {
	if cfg.RRFK <= 0 {
		cfg.RRFK = defaultRRFK
	}
	if cfg.HNSWM <= 0 {
		cfg.HNSWM = 16
	}
	if cfg.HNSWEFConstruct <= 0 {
		cfg.HNSWEFConstruct = 200
	}
	return &Repo{store: s, cfg: cfg}
}

func (r *Repo) keyPrefix() string {
	return r.cfg.KeyPrefix + "repo:"
}

// Search runs q in the mode its parts imply. Hybrid runs the vector and
// text legs concurrently and fuses them with RRF.
func (r *Repo) Search(ctx context.Context, q query.Query) ([]document.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	switch m := q.Mode(); m {
	case mode.Vector:
		return r.searchKNN(ctx, q)
	case mode.FullText:
		return r.searchText(ctx, q)
	case mode.Hybrid:
		return r.searchHybrid(ctx, q)
	case mode.Browse:
		return r.browse(ctx, &db.FilterQuery{Filters: q.Filter, Limit: q.TopK})
	default:
		return nil, fmt.Errorf("unsupported search mode %q", m)
	}
}

func (r *Repo) searchKNN(ctx context.Context, q query.Query) ([]document.Document, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName: r.cfg.IndexName,
		Filters:   q.Filter,
		Vector:    q.Vector,
		K:         q.TopK,
	})
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	return r.parse(sr), nil
}

func (r *Repo) searchText(ctx context.Context, q query.Query) ([]document.Document, error) {
	sr, err := r.store.SearchBM25(ctx, &db.TextQuery{
		IndexName: r.cfg.IndexName,
		Query:     q.Text,
		Filters:   q.Filter,
		TopK:      q.TopK,
	})
	if err != nil {
		return nil, fmt.Errorf("search bm25: %w", err)
	}
	return r.parse(sr), nil
}

func (r *Repo) searchHybrid(ctx context.Context, q query.Query) ([]document.Document, error) {
	var knn, text []document.Document

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		knn, err = r.searchKNN(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		text, err = r.searchText(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("hybrid: %w", err)
	}

	return fuseRRF(knn, text, r.cfg.RRFK, q.TopK), nil
}

func (r *Repo) browse(ctx context.Context, fq *db.FilterQuery) ([]document.Document, error) {
	fq.IndexName = r.cfg.IndexName
	sr, err := r.store.SearchFilter(ctx, fq)
	if err != nil {
		return nil, fmt.Errorf("search filter: %w", err)
	}
	return r.parse(sr), nil
}

// parse decodes the "$" document of each hit. Hits that fail to decode are skipped.
func (r *Repo) parse(sr *db.SearchResult) []document.Document {
	if sr == nil || len(sr.Entries) == 0 {
		return []document.Document{}
	}
	prefix := r.keyPrefix()
	docs := make([]document.Document, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		doc, err := decodeEntry(e)
		if err != nil {
			continue
		}
		if doc.ID == "" {
			doc.ID = strings.TrimPrefix(e.Key, prefix)
		}
		doc.BackendScore = e.Score
		docs = append(docs, doc)
	}
	return docs
}

var errNoDocument = errors.New("search entry has no document")

func decodeEntry(e db.SearchEntry) (document.Document, error) {
	raw, ok := e.Fields[docField]
	if !ok || raw == "" {
		return document.Document{}, errNoDocument
	}
	return document.FromJSON([]byte(raw))
}
