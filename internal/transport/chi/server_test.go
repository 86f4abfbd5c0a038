package chi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/reposearch/internal/domain"
	"github.com/kailas-cloud/reposearch/internal/domain/document"
	"github.com/kailas-cloud/reposearch/internal/usecase/health"
	"github.com/kailas-cloud/reposearch/internal/usecase/ranking"
	"github.com/kailas-cloud/reposearch/internal/usecase/search"
)

func rankedDocs() []ranking.Result {
	now := func() time.Time { return time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC) }
	return ranking.New(ranking.DefaultPolicy(), now).Rank([]document.Document{
		{ID: "a/one", Title: "One", Date: "2025-01-07", Stars: intPtr(10), BackendScore: 0.9},
	})
}

func TestSearchText_OK(t *testing.T) {
	f := newFixture(t)
	f.searcher.resp = &search.Response{
		Results:          rankedDocs(),
		SuggestedFilters: []string{"rust cli"},
		SuggestedTopics:  []string{},
		CacheHit:         true,
		Similarity:       0.93,
	}

	rr := f.do(t, http.MethodPost, "/search/text", `{"query":"rust cli","limit":7,"threshold":0.9,"ttl_sec":60}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	if f.searcher.gotQuery != "rust cli" {
		t.Errorf("query = %q", f.searcher.gotQuery)
	}
	got := f.searcher.gotText
	if got.Limit != 7 || got.TTL != time.Minute || got.Threshold == nil || *got.Threshold != 0.9 {
		t.Errorf("options = %+v", got)
	}

	body := decodeMap(t, rr)
	if body["cache_hit"] != true || body["no_result"] != false || body["similarity"] != 0.93 {
		t.Errorf("body = %v", body)
	}
	results := body["results"].([]any)
	first := results[0].(map[string]any)
	if first["id"] != "a/one" || first["final_score"] == nil || first["boosted_score"] == nil {
		t.Errorf("result = %v", first)
	}
}

func TestSearchText_Defaults(t *testing.T) {
	f := newFixture(t)
	f.searcher.resp = &search.Response{}

	rr := f.do(t, http.MethodPost, "/search/text", `{"query":"x"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if f.searcher.gotText != (search.TextOptions{}) {
		t.Errorf("zero options expected so the service applies its defaults, got %+v", f.searcher.gotText)
	}
}

func TestSearchText_ZeroThreshold(t *testing.T) {
	f := newFixture(t)
	f.searcher.resp = &search.Response{}

	rr := f.do(t, http.MethodPost, "/search/text", `{"query":"x","threshold":0}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if th := f.searcher.gotText.Threshold; th == nil || *th != 0 {
		t.Errorf("threshold = %v, want explicit 0", th)
	}
}

func TestSearchText_BadParams(t *testing.T) {
	f := newFixture(t)
	for _, body := range []string{
		`{"query":"x","threshold":1.5}`,
		`{"query":"x","threshold":-0.1}`,
		`{"query":"x","ttl_sec":-1}`,
		`{"query":`,
		`{"query":"x","limit":"ten"}`,
	} {
		rr := f.do(t, http.MethodPost, "/search/text", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, rr.Code)
		}
	}
}

func TestSearchHybrid_NoResult(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/search/hybrid", `{"query":"obscure","limit":3}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if f.searcher.gotLimit != 3 {
		t.Errorf("limit = %d, want 3", f.searcher.gotLimit)
	}
	body := decodeMap(t, rr)
	if body["no_result"] != true {
		t.Errorf("no_result = %v, want true", body["no_result"])
	}
	if results, ok := body["results"].([]any); !ok || len(results) != 0 {
		t.Errorf("results = %v, want []", body["results"])
	}
}

func TestSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
		code ErrorCode
	}{
		{domain.ErrInvalidQuery, http.StatusBadRequest, CodeInvalidQuery},
		{fmt.Errorf("embed query: %w", domain.ErrEmbeddingProviderError), http.StatusBadGateway, CodeProviderError},
		{fmt.Errorf("extract: %w", domain.ErrLLMProviderError), http.StatusBadGateway, CodeProviderError},
		{errors.New("redis: connection refused"), http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		for _, path := range []string{"/search/text", "/search/hybrid", "/search/vector", "/search/tag"} {
			t.Run(path+" "+tt.err.Error(), func(t *testing.T) {
				f := newFixture(t)
				f.searcher.err = tt.err

				rr := f.do(t, http.MethodPost, path, `{"query":"q"}`)
				if rr.Code != tt.want {
					t.Fatalf("status = %d, want %d", rr.Code, tt.want)
				}
				body := decodeMap(t, rr)
				if body["code"] != string(tt.code) {
					t.Errorf("code = %v, want %s", body["code"], tt.code)
				}
				if strings.Contains(rr.Body.String(), "redis") {
					t.Error("internal details leaked")
				}
			})
		}
	}
}

func TestSearchVector_OK(t *testing.T) {
	f := newFixture(t)
	f.searcher.docs = []document.Document{{ID: "a/one", BackendScore: 0.7}}

	rr := f.do(t, http.MethodPost, "/search/vector", `{"query":"graph db"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	results := decodeMap(t, rr)["results"].([]any)
	doc := results[0].(map[string]any)
	if doc["id"] != "a/one" || doc["score"] != 0.7 {
		t.Errorf("doc = %v", doc)
	}
	if _, ranked := doc["final_score"]; ranked {
		t.Error("vector results are unranked")
	}
}

func TestSearchTag_EmptyList(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/search/tag", `{"query":"python","limit":2}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if f.searcher.gotQuery != "python" || f.searcher.gotLimit != 2 {
		t.Errorf("got tag %q limit %d", f.searcher.gotQuery, f.searcher.gotLimit)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"results":[]}` {
		t.Errorf("body = %s", got)
	}
}

func TestRecommendations(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantLimit int
	}{
		{"empty body", "", http.StatusOK, 25},
		{"empty object", "{}", http.StatusOK, 25},
		{"explicit", `{"limit":10}`, http.StatusOK, 10},
		{"zero", `{"limit":0}`, http.StatusBadRequest, 0},
		{"negative", `{"limit":-3}`, http.StatusBadRequest, 0},
		{"malformed", `{"limit":`, http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rr := f.do(t, http.MethodPost, "/recommendations", tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			if f.recommender.gotLimit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", f.recommender.gotLimit, tt.wantLimit)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			body := decodeMap(t, rr)
			for _, k := range []string{"trending", "popular", "topics", "suggested_filters", "limit"} {
				if _, ok := body[k]; !ok {
					t.Errorf("missing %q", k)
				}
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		status health.Status
		want   int
	}{
		{health.Healthy, http.StatusOK},
		{health.Degraded, http.StatusOK},
		{health.Unhealthy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			f := newFixture(t, "secret")
			f.health.report = health.Report{
				Status: tt.status,
				Checks: map[string]health.CheckResult{"database": health.CheckOK},
			}

			rr := f.do(t, http.MethodGet, "/health", "")
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			body := decodeMap(t, rr)
			if body["status"] != string(tt.status) {
				t.Errorf("status field = %v", body["status"])
			}
			if checks := body["checks"].(map[string]any); checks["database"] != "ok" {
				t.Errorf("checks = %v", checks)
			}
		})
	}
}

func TestMetrics_Public(t *testing.T) {
	f := newFixture(t, "secret")
	rr := f.do(t, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestSearch_RequiresAuth(t *testing.T) {
	f := newFixture(t, "secret")
	rr := f.do(t, http.MethodPost, "/search/hybrid", `{"query":"q"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}
