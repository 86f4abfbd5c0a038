// Package chi is the HTTP API over the search, recommendation and health services.
package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kailas-cloud/reposearch/internal/domain/document"
	"github.com/kailas-cloud/reposearch/internal/usecase/health"
	"github.com/kailas-cloud/reposearch/internal/usecase/ranking"
	"github.com/kailas-cloud/reposearch/internal/usecase/search"
)

const (
	maxBodyBytes          = 1 << 20
	defaultRecommendLimit = 25
)

// Server holds the HTTP handlers.
type Server struct {
	search         Searcher
	recommend      Recommender
	health         HealthChecker
	recommendLimit int
	metricsHandler http.Handler
}

// NewServer creates an HTTP API server. recommendLimit <= 0 means 25.
func NewServer(searcher Searcher, recommender Recommender, checker HealthChecker, recommendLimit int) *Server {
	if recommendLimit <= 0 {
		recommendLimit = defaultRecommendLimit
	}
	return &Server{
		search:         searcher,
		recommend:      recommender,
		health:         checker,
		recommendLimit: recommendLimit,
		metricsHandler: promhttp.Handler(),
	}
}

// Mount registers the API routes on r.
func (s *Server) Mount(r chi.Router) {
	r.Post("/search/text", s.SearchText)
	r.Post("/search/hybrid", s.SearchHybrid)
	r.Post("/search/vector", s.SearchVector)
	r.Post("/search/tag", s.SearchTag)
	r.Post("/recommendations", s.Recommendations)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type queryRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type textRequest struct {
	Query     string   `json:"query"`
	Limit     int      `json:"limit"`
	Threshold *float64 `json:"threshold"`
	TTLSec    int      `json:"ttl_sec"`
}

type recommendRequest struct {
	Limit *int `json:"limit"`
}

// searchResponse is search.Response plus the "no result" marker.
type searchResponse struct {
	*search.Response
	NoResult bool `json:"no_result"`
}

func newSearchResponse(resp *search.Response) searchResponse {
	if resp == nil {
		return searchResponse{
			Response: &search.Response{
				Results:          []ranking.Result{},
				SuggestedFilters: []string{},
				SuggestedTopics:  []string{},
			},
			NoResult: true,
		}
	}
	return searchResponse{Response: resp}
}

type documentsResponse struct {
	Results []document.Document `json:"results"`
}

type rankedResponse struct {
	Results []ranking.Result `json:"results"`
}

// SearchText handles POST /search/text.
func (s *Server) SearchText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if t := req.Threshold; t != nil && (*t < 0 || *t > 1) {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "threshold must be within [0, 1]")
		return
	}
	if req.TTLSec < 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "ttl_sec must not be negative")
		return
	}

	resp, err := s.search.Text(r.Context(), req.Query, search.TextOptions{
		Limit:     req.Limit,
		Threshold: req.Threshold,
		TTL:       time.Duration(req.TTLSec) * time.Second,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSearchResponse(resp))
}

// SearchHybrid handles POST /search/hybrid.
func (s *Server) SearchHybrid(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.search.Hybrid(r.Context(), req.Query, req.Limit)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSearchResponse(resp))
}

// SearchVector handles POST /search/vector.
func (s *Server) SearchVector(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	docs, err := s.search.Vector(r.Context(), req.Query, req.Limit)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if docs == nil {
		docs = []document.Document{}
	}
	writeJSON(w, http.StatusOK, documentsResponse{Results: docs})
}

// SearchTag handles POST /search/tag. The tag is passed as "query".
func (s *Server) SearchTag(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	results, err := s.search.Tag(r.Context(), req.Query, req.Limit)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if results == nil {
		results = []ranking.Result{}
	}
	writeJSON(w, http.StatusOK, rankedResponse{Results: results})
}

// Recommendations handles POST /recommendations. An empty body takes the default limit.
func (s *Server) Recommendations(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}
	limit := s.recommendLimit
	if req.Limit != nil {
		if *req.Limit <= 0 {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "limit must be positive")
			return
		}
		limit = *req.Limit
	}
	writeJSON(w, http.StatusOK, s.recommend.Recommend(r.Context(), limit))
}

// HealthCheck handles GET /health. Degraded still answers 200.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	status := http.StatusOK
	if report.Status == health.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	s.metricsHandler.ServeHTTP(w, r)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func decodeOptionalBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
	return false
}
