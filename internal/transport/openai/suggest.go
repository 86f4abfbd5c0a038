package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/reposearch/internal/domain"
)

const suggestSystemPrompt = `You suggest filter chips for a GitHub repository search interface.
Given a broad query ("AI", "Python", "machine learning"), return 5 short distinct refinements
based on technologies, frameworks, use cases or repository attributes.
Each chip is under 6 words and must not repeat the query.
If the query is already specific, return an empty list.
Output strict JSON: {"related_queries": ["chip 1", "chip 2"]}`

const maxSuggestions = 5

// Suggester produces related queries for a search.
type Suggester struct {
	chat *Chat
}

// NewSuggester creates a related query suggester.
func NewSuggester(chat *Chat) *Suggester {
	return &Suggester{chat: chat}
}

// Related returns up to five related queries. Blank and duplicate entries are dropped.
func (s *Suggester) Related(ctx context.Context, query string) ([]string, error) {
	raw, err := s.chat.complete(ctx, "suggest", suggestSystemPrompt, fmt.Sprintf("User query: %q", query))
	if err != nil {
		return nil, err
	}

	var out struct {
		RelatedQueries []string `json:"related_queries"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &out); err != nil {
		return nil, fmt.Errorf("decode related queries: %v: %w", err, domain.ErrLLMProviderError)
	}

	seen := make(map[string]bool, len(out.RelatedQueries))
	related := make([]string, 0, len(out.RelatedQueries))
	for _, q := range out.RelatedQueries {
		q = strings.TrimSpace(q)
		key := strings.ToLower(q)
		if q == "" || seen[key] {
			continue
		}
		seen[key] = true
		related = append(related, q)
		if len(related) == maxSuggestions {
			break
		}
	}
	return related, nil
}
