package search

import "github.com/kailas-cloud/reposearch/internal/usecase/ranking"

// Response is what the text and hybrid entry points return. A nil
// *Response means the query found nothing trustworthy ("no result").
type Response struct {
	Results          []ranking.Result `json:"results"`
	SuggestedFilters []string         `json:"suggested_filters"`
	SuggestedTopics  []string         `json:"suggested_topics"`
	CacheHit         bool             `json:"cache_hit"`
	Similarity       float64          `json:"similarity,omitempty"`
}

func emptyResponse() *Response {
	return &Response{
		Results:          []ranking.Result{},
		SuggestedFilters: []string{},
		SuggestedTopics:  []string{},
	}
}

// hit returns a copy of r marked as served from cache. The cached value is never mutated.
func (r *Response) hit(similarity float64) *Response {
	out := *r
	out.CacheHit = true
	out.Similarity = similarity
	return &out
}

// limited returns r cut to at most n results. A nil r stays nil; r is never mutated.
func (r *Response) limited(n int) *Response {
	if r == nil || len(r.Results) <= n {
		return r
	}
	out := *r
	out.Results = r.Results[:n:n]
	return &out
}
