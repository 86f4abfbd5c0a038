package ingest

import (
	"context"
	"errors"
	"strings"

	"github.com/kailas-cloud/reposearch/internal/domain"
	"github.com/kailas-cloud/reposearch/internal/domain/document"
)

type mockEmbedder struct {
	batches [][]string
	err     error
	short   bool
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batches = append(m.batches, texts)
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	n := len(texts)
	if m.short {
		n--
	}
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = []float32{1, 0, 0}
	}
	return domain.BatchEmbeddingResult{Embeddings: vecs}, nil
}

type mockIndexer struct {
	ensureErr error
	upsertErr error
	// rejectIDs fail individually.
	rejectIDs map[string]bool
	ensured   int
	stored    []document.Document
}

func (m *mockIndexer) EnsureIndex(_ context.Context) error {
	m.ensured++
	return m.ensureErr
}

func (m *mockIndexer) Upsert(_ context.Context, docs []document.Document, vectors [][]float32) ([]error, error) {
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	if len(docs) != len(vectors) {
		return nil, errors.New("length mismatch")
	}
	errs := make([]error, len(docs))
	for i, d := range docs {
		if m.rejectIDs[d.ID] {
			errs[i] = errors.New("rejected")
			continue
		}
		m.stored = append(m.stored, d)
	}
	return errs, nil
}

func (m *mockIndexer) ids() string {
	ids := make([]string, len(m.stored))
	for i, d := range m.stored {
		ids[i] = d.ID
	}
	return strings.Join(ids, ",")
}
