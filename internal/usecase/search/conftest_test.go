package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/reposearch/internal/domain"
	"github.com/kailas-cloud/reposearch/internal/domain/document"
	"github.com/kailas-cloud/reposearch/internal/domain/intent"
	"github.com/kailas-cloud/reposearch/internal/domain/search/mode"
	"github.com/kailas-cloud/reposearch/internal/domain/search/query"
	"github.com/kailas-cloud/reposearch/internal/metrics"
	"github.com/kailas-cloud/reposearch/internal/repository/semcache"
	"github.com/kailas-cloud/reposearch/internal/usecase/ranking"
)

var errBoom = errors.New("boom")

// mockBackend answers per mode and records every query.
type mockBackend struct {
	mu      sync.Mutex
	queries []query.Query
	byMode  map[mode.Mode]func(q query.Query) ([]document.Document, error)

	// gate, when set, holds every search until it is closed or ctx ends.
	// entered receives once per held search if it has room.
	gate    chan struct{}
	entered chan struct{}
}

func newMockBackend() *mockBackend {
	return &mockBackend{byMode: map[mode.Mode]func(query.Query) ([]document.Document, error){}}
}

func (m *mockBackend) on(md mode.Mode, docs []document.Document, err error) {
	m.byMode[md] = func(query.Query) ([]document.Document, error) { return docs, err }
}

func (m *mockBackend) Search(ctx context.Context, q query.Query) ([]document.Document, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	fn := m.byMode[q.Mode()]
	gate, entered := m.gate, m.entered
	m.mu.Unlock()

	if gate != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fn == nil {
		return []document.Document{}, nil
	}
	return fn(q)
}

func (m *mockBackend) calls(md mode.Mode) []query.Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []query.Query
	for _, q := range m.queries {
		if q.Mode() == md {
			out = append(out, q)
		}
	}
	return out
}

type mockEmbedder struct {
	mu    sync.Mutex
	vec   []float32
	err   error
	texts []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

type mockIntents struct {
	in  intent.Intent
	err error
}

func (m *mockIntents) Extract(_ context.Context, _ string) (intent.Intent, error) {
	return m.in, m.err
}

type mockSuggester struct {
	related []string
	err     error
	seen    []string
}

func (m *mockSuggester) Related(_ context.Context, q string) ([]string, error) {
	m.seen = append(m.seen, q)
	return m.related, m.err
}

// countingRanker wraps the real engine and counts calls.
type countingRanker struct {
	inner *ranking.Engine
	calls int
}

func (r *countingRanker) Rank(docs []document.Document) []ranking.Result {
	r.calls++
	return r.inner.Rank(docs)
}

// today is 2025-01-08, the reference date of the ranking scenarios.
func today() time.Time { return time.Date(2025, 1, 8, 12, 0, 0, 0, time.UTC) }

type fixture struct {
	svc       *Service
	backend   *mockBackend
	embedder  *mockEmbedder
	intents   *mockIntents
	suggester *mockSuggester
	ranker    *countingRanker
	cache     *semcache.Cache[*Response]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		backend:   newMockBackend(),
		embedder:  &mockEmbedder{vec: []float32{1, 0, 0}},
		intents:   &mockIntents{},
		suggester: &mockSuggester{related: []string{"rust async", "tokio"}},
		ranker:    &countingRanker{inner: ranking.New(ranking.DefaultPolicy(), today)},
		cache:     semcache.New[*Response](semcache.Config{Now: today}),
	}
	f.svc = New(f.backend, f.embedder, f.intents, f.suggester, f.ranker, f.cache, Options{})
	return f
}

func doc(id string, score float64, stars int, date string) document.Document {
	return document.Document{ID: id, Title: id, Stars: &stars, Date: date, BackendScore: score}
}

func resultIDs(resp *Response) []string {
	out := make([]string, len(resp.Results))
	for i, r := range resp.Results {
		out[i] = r.Document().ID
	}
	return out
}

func fallbackCount(reason string) float64 {
	return testutil.ToFloat64(metrics.SearchFallbacksTotal.WithLabelValues(reason))
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
