package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/reposearch/internal/domain/document"
	"github.com/kailas-cloud/reposearch/internal/usecase/health"
	"github.com/kailas-cloud/reposearch/internal/usecase/ranking"
	"github.com/kailas-cloud/reposearch/internal/usecase/recommend"
	"github.com/kailas-cloud/reposearch/internal/usecase/search"
)

type mockSearcher struct {
	resp    *search.Response
	docs    []document.Document
	results []ranking.Result
	err     error

	gotQuery string
	gotLimit int
	gotText  search.TextOptions
}

func (m *mockSearcher) Text(_ context.Context, raw string, opts search.TextOptions) (*search.Response, error) {
	m.gotQuery, m.gotText = raw, opts
	return m.resp, m.err
}

func (m *mockSearcher) Hybrid(_ context.Context, raw string, limit int) (*search.Response, error) {
	m.gotQuery, m.gotLimit = raw, limit
	return m.resp, m.err
}

func (m *mockSearcher) Vector(_ context.Context, raw string, limit int) ([]document.Document, error) {
	m.gotQuery, m.gotLimit = raw, limit
	return m.docs, m.err
}

func (m *mockSearcher) Tag(_ context.Context, tag string, limit int) ([]ranking.Result, error) {
	m.gotQuery, m.gotLimit = tag, limit
	return m.results, m.err
}

type mockRecommender struct {
	gotLimit int
}

func (m *mockRecommender) Recommend(_ context.Context, limit int) recommend.Recommendations {
	m.gotLimit = limit
	return recommend.Recommendations{
		Trending:         []document.Document{{ID: "t/one"}},
		Popular:          []document.Document{},
		Topics:           map[string][]document.Document{"go": {{ID: "g/one"}}},
		SuggestedFilters: []string{"go"},
		Limit:            limit,
	}
}

type mockHealth struct {
	report health.Report
}

func (m *mockHealth) Check(_ context.Context) health.Report { return m.report }

type fixture struct {
	searcher    *mockSearcher
	recommender *mockRecommender
	health      *mockHealth
	handler     http.Handler
}

func newFixture(t *testing.T, apiKeys ...string) *fixture {
	t.Helper()
	f := &fixture{
		searcher:    &mockSearcher{},
		recommender: &mockRecommender{},
		health:      &mockHealth{report: health.Report{Status: health.Healthy, Checks: map[string]health.CheckResult{}}},
	}
	r := chi.NewRouter()
	r.Use(BearerAuthMiddleware(apiKeys))
	NewServer(f.searcher, f.recommender, f.health, 0).Mount(r)
	f.handler = r
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&m); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return m
}

func intPtr(v int) *int { return &v }
