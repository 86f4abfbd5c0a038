package openai

import (
	"regexp"
	"strings"
)

var fenceRegex = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")

// cleanJSON strips markdown fences and prose around the first JSON object in s.
// Models asked for strict JSON still wrap it in ```json blocks often enough.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRegex.FindStringSubmatch(s); len(m) == 2 {
		s = m[1]
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
