package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kailas-cloud/reposearch/internal/domain"
	"github.com/kailas-cloud/reposearch/internal/domain/intent"
)

const intentSystemPrompt = `You interpret user queries about GitHub repositories.
Return one strict JSON object, no markdown and no explanation:
{
  "intent": "<short description of what the user wants>",
  "reasoning": "<one sentence>",
  "filters": {
    "language": "<language or empty>",
    "libraries": ["<library>"],
    "created_after": "<YYYY-MM-DD or empty>",
    "created_before": "<YYYY-MM-DD or empty>",
    "stars_min": <number or null>,
    "topics": ["<topic>"]
  },
  "query_vector_required": <true or false>,
  "rewritten_query": "<precise domain phrase or empty>"
}
Rules:
- Explicit star counts ("more than 20 stars") go to stars_min.
- Popularity words ("popular", "top", "most starred") mean stars_min = 500.
- rewritten_query holds only precise domain terms ("image captioning", "transformer chatbot"). Never put stars or dates in it.
- For vague or exploratory queries ("anything cool?", "interesting repos") set query_vector_required = true and rewritten_query = "".
- For queries with clear keywords or filters set query_vector_required = false.`

// IntentExtractor reads a structured intent out of a free-text query.
type IntentExtractor struct {
	chat *Chat
	now  func() time.Time
}

// NewIntentExtractor creates an extractor. now anchors relative dates; nil means time.Now.
func NewIntentExtractor(chat *Chat, now func() time.Time) *IntentExtractor {
	if now == nil {
		now = time.Now
	}
	return &IntentExtractor{chat: chat, now: now}
}

// Extract asks the model for an intent. The result is not sanitized.
func (x *IntentExtractor) Extract(ctx context.Context, query string) (intent.Intent, error) {
	raw, err := x.chat.complete(ctx, "intent", x.systemPrompt(), fmt.Sprintf("User query: %q", query))
	if err != nil {
		return intent.Intent{}, err
	}

	var reply intentReply
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &reply); err != nil {
		return intent.Intent{}, fmt.Errorf("decode intent: %v: %w", err, domain.ErrLLMProviderError)
	}
	return reply.intent(), nil
}

// intentReply is the model's wire shape. Models emit floats for counts and
// sometimes omit flags, so both are decoded loosely.
type intentReply struct {
	Intent         string `json:"intent"`
	Reasoning      string `json:"reasoning"`
	RewrittenQuery string `json:"rewritten_query"`
	Filters        struct {
		Language      string       `json:"language"`
		Libraries     []string     `json:"libraries"`
		CreatedAfter  string       `json:"created_after"`
		CreatedBefore string       `json:"created_before"`
		StarsMin      *json.Number `json:"stars_min"`
		Topics        []string     `json:"topics"`
	} `json:"filters"`
	QueryVectorRequired *bool `json:"query_vector_required"`
}

func (r intentReply) intent() intent.Intent {
	out := intent.Intent{
		Intent:         r.Intent,
		Reasoning:      r.Reasoning,
		RewrittenQuery: r.RewrittenQuery,
		Filters: intent.Filters{
			Language:      r.Filters.Language,
			Libraries:     r.Filters.Libraries,
			CreatedAfter:  r.Filters.CreatedAfter,
			CreatedBefore: r.Filters.CreatedBefore,
			Topics:        r.Filters.Topics,
		},
		// A missing flag means the model was unsure; the vector path is the safe route.
		QueryVectorRequired: r.QueryVectorRequired == nil || *r.QueryVectorRequired,
	}
	if r.Filters.StarsMin != nil {
		if f, err := r.Filters.StarsMin.Float64(); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			n := int(math.Round(f))
			out.Filters.StarsMin = &n
		}
	}
	return out
}

func (x *IntentExtractor) systemPrompt() string {
	d := intent.NewRelativeDates(x.now())
	var b strings.Builder
	b.WriteString(intentSystemPrompt)
	fmt.Fprintf(&b, "\nToday is %s. Relative phrases map to created_after: "+
		"\"last week\" = %s, \"last month\" = %s, \"recent\" = %s, \"last year\" = %s.",
		d.Today, d.LastWeek, d.LastMonth, d.Recent, d.LastYear)
	return b.String()
}
