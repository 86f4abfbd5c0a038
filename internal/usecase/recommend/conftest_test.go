package recommend

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/reposearch/internal/domain/document"
	"github.com/kailas-cloud/reposearch/internal/domain/search/browse"
)

type browseCall struct {
	filter browse.Filter
	sort   browse.Sort
	limit  int
}

// mockCatalog answers browse calls by tag (empty tag = untagged listing).
type mockCatalog struct {
	mu        sync.Mutex
	byTag     map[string][]document.Document
	browseErr map[string]error
	tags      []string
	tagsErr   error
	calls     []browseCall
	tagCalls  int
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{byTag: map[string][]document.Document{}, browseErr: map[string]error{}}
}

func (m *mockCatalog) Browse(_ context.Context, f browse.Filter, s browse.Sort, limit int) ([]document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, browseCall{filter: f, sort: s, limit: limit})
	if err := m.browseErr[f.Tag]; err != nil {
		return nil, err
	}
	return m.byTag[f.Tag], nil
}

func (m *mockCatalog) TopTags(_ context.Context, n int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tagCalls++
	if m.tagsErr != nil {
		return nil, m.tagsErr
	}
	return m.tags[:min(n, len(m.tags))], nil
}

func (m *mockCatalog) browseCalls() []browseCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]browseCall(nil), m.calls...)
}

func fixedNow() time.Time { return time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC) }

func repo(id string, stars int, date string) document.Document {
	return document.Document{ID: id, Stars: &stars, Date: date}
}
