package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	RegisterHTTPMetrics()
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/search/{mode}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/search/{mode}", "200"))
	for _, p := range []string{"/search/text", "/search/hybrid"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, p, http.NoBody))
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/search/{mode}", "200"))

	if after-before != 2 {
		t.Errorf("requests counted = %v, want 2 under one pattern label", after-before)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected duration observations")
	}
	if v := testutil.ToFloat64(httpRequestsInFlight); v != 0 {
		t.Errorf("in flight = %v after requests finished", v)
	}
}

func TestMiddleware_InFlightDuringRequest(t *testing.T) {
	var during float64
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		during = testutil.ToFloat64(httpRequestsInFlight)
		w.WriteHeader(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	if during < 1 {
		t.Errorf("in flight during request = %v", during)
	}
}

func TestMiddleware_StatusCodes(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/recommendations", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.WriteHeader(http.StatusOK) // second call must not change the label
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	tests := []struct {
		method, path, status string
	}{
		{http.MethodPost, "/recommendations", "400"},
		{http.MethodGet, "/health", "200"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, http.NoBody))

			if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(tc.method, tc.path, tc.status)); v < 1 {
				t.Errorf("requests_total{%s %s %s} = %v", tc.method, tc.path, tc.status, v)
			}
		})
	}
}

func TestRoutePattern_Unmatched(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/nowhere", http.NoBody)
	if got := routePattern(req); got != "unknown" {
		t.Errorf("routePattern = %q, want unknown", got)
	}
}

func TestRegister_Idempotent(t *testing.T) {
	RegisterHTTPMetrics()
	RegisterHTTPMetrics()
	RegisterEmbeddingMetrics()
	RegisterEmbeddingMetrics()
	RegisterLLMMetrics()
	RegisterLLMMetrics()
	RegisterSearchMetrics()
	RegisterSearchMetrics()

	SearchFallbacksTotal.WithLabelValues(FallbackIntent).Inc()
	if testutil.ToFloat64(SearchFallbacksTotal.WithLabelValues(FallbackIntent)) < 1 {
		t.Error("fallback counter not incremented")
	}
}
