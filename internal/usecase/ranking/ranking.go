// Package ranking blends backend relevance with star velocity (stars per day
// since creation) so fresh, fast-growing repositories surface.
package ranking

import (
	"cmp"
	"encoding/json"
	"math"
	"slices"
	"time"

	"github.com/kailas-cloud/reposearch/internal/domain/document"
	"github.com/kailas-cloud/reposearch/internal/metrics"
)

// Policy holds the blend weights.
type Policy struct {
	RelevanceWeight float64
	BoostWeight     float64
	FallbackDate    time.Time // creation date assumed when a document has none
}

// DefaultPolicy is 0.8 relevance, 0.2 boost, fallback 2024-01-01.
func DefaultPolicy() Policy {
	return Policy{
		RelevanceWeight: 0.8,
		BoostWeight:     0.2,
		FallbackDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Result is a ranked document. Scores are only set by Engine.Rank.
type Result struct {
	doc     document.Document
	ageDays int
	boosted float64
	final   float64
}

// Document returns the ranked document.
func (r Result) Document() document.Document { return r.doc }

// AgeDays is the day count used as the boost denominator (at least 1).
func (r Result) AgeDays() int { return r.ageDays }

// BoostedScore is stars / AgeDays.
func (r Result) BoostedScore() float64 { return r.boosted }

// FinalScore is the blended score results are ordered by.
func (r Result) FinalScore() float64 { return r.final }

// MarshalJSON flattens the document and appends boosted_score and final_score.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		document.Document
		BoostedScore float64 `json:"boosted_score"`
		FinalScore   float64 `json:"final_score"`
	}{r.doc, r.boosted, r.final})
}

// Engine scores and orders documents.
type Engine struct {
	policy Policy
	now    func() time.Time
}

// New creates an Engine. now defaults to time.Now.
func New(policy Policy, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{policy: policy, now: now}
}

// Rank scores docs and returns them by descending final score. Ties keep input order.
func (e *Engine) Rank(docs []document.Document) []Result {
	if len(docs) == 0 {
		return []Result{}
	}

	today := dateOf(e.now())
	out := make([]Result, len(docs))
	for i, d := range docs {
		out[i] = e.score(d, today)
	}

	slices.SortStableFunc(out, func(a, b Result) int {
		return cmp.Compare(b.final, a.final)
	})

	metrics.RankedDocumentsTotal.Add(float64(len(docs)))
	return out
}

func (e *Engine) score(d document.Document, today time.Time) Result {
	created := e.policy.FallbackDate
	if d.Date != "" {
		if t, ok := document.ParseDate(d.Date); ok {
			created = t
		} else {
			created = today
		}
	}

	days := max(1, int(math.Floor(today.Sub(dateOf(created)).Hours()/24)))
	boosted := float64(d.StarCount()) / float64(days)

	relevance := d.BackendScore
	if math.IsNaN(relevance) || math.IsInf(relevance, 0) {
		relevance = 0
	}

	return Result{
		doc:     d,
		ageDays: days,
		boosted: boosted,
		final:   e.policy.RelevanceWeight*relevance + e.policy.BoostWeight*boosted,
	}
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
