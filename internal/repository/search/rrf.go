package search

import (
	"slices"

	"github.com/kailas-cloud/reposearch/internal/domain/document"
)

// defaultRRFK is the Reciprocal Rank Fusion constant (Cormack et al. 2009).
const defaultRRFK = 60

// fuseRRF merges the vector and text legs:
// score(d) = sum of 1/(k + rank_i(d)) over the legs d appears in.
// A document in both legs keeps the vector leg's copy.
func fuseRRF(knn, text []document.Document, k, topK int) []document.Document {
	type scored struct {
		doc   document.Document
		score float64
		order int
	}

	merged := make(map[string]*scored, len(knn)+len(text))
	order := 0
	add := func(list []document.Document) {
		for rank, d := range list {
			s := 1.0 / float64(k+rank+1)
			if existing, ok := merged[d.ID]; ok {
				existing.score += s
				continue
			}
			merged[d.ID] = &scored{doc: d, score: s, order: order}
			order++
		}
	}
	add(knn)
	add(text)

	all := make([]*scored, 0, len(merged))
	for _, s := range merged {
		all = append(all, s)
	}
	// Ties fall back to first appearance so output is deterministic.
	slices.SortFunc(all, func(a, b *scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return a.order - b.order
	})

	if len(all) > topK {
		all = all[:topK]
	}
	out := make([]document.Document, len(all))
	for i, s := range all {
		out[i] = s.doc
		out[i].BackendScore = s.score
	}
	return out
}
