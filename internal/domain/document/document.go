// Package document holds the canonical repository hit shared by every search path.
package document

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// NoneTag is the placeholder the corpus uses for untagged repositories.
const NoneTag = "(none)"

const dateLayout = "2006-01-02"

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_.\-/]+$`)

// Document is a repository as returned by the search backend.
type Document struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	ShortDescription string   `json:"short_description"`
	Tags             []string `json:"tags"`
	Date             string   `json:"date,omitempty"`
	Stars            *int     `json:"stars,omitempty"`
	Owner            string   `json:"owner,omitempty"`
	URL              string   `json:"url,omitempty"`
	BackendScore     float64  `json:"score"`
}

// Validate checks the fields required for indexing.
func (d Document) Validate() error {
	if d.ID == "" {
		return errors.New("document id is required")
	}
	if len(d.ID) > 256 {
		return errors.New("document id too long (max 256)")
	}
	if !idRegex.MatchString(d.ID) {
		return errors.New("document id contains invalid characters")
	}
	return nil
}

// StarCount returns the star count, 0 when absent.
func (d Document) StarCount() int {
	if d.Stars == nil {
		return 0
	}
	return *d.Stars
}

// Content is the text indexed for full-text search.
func (d Document) Content() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{d.Title, d.ShortDescription, strings.Join(d.Tags, " ")} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}

// CreatedAt parses Date. ok is false when the date is missing or malformed.
func (d Document) CreatedAt() (time.Time, bool) {
	return ParseDate(d.Date)
}

// ParseDate reads the calendar date of an ISO-8601 date or date-time,
// ignoring everything from the "T" on.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CleanTags drops blanks, the placeholder tag and duplicates, keeping order.
func CleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || t == NoneTag || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
