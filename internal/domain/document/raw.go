package document

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FromRaw maps a decoded JSON object into a Document. The corpus has several
// shapes: metadata nested under "meta_data" or flattened, description under
// "short_des", "short_description" or "description", tags as an array or a
// comma-separated string. Unknown or badly typed fields become zero values.
func FromRaw(raw map[string]any) Document {
	meta, _ := raw["meta_data"].(map[string]any)

	d := Document{
		ID:               asString(firstOf(raw, meta, "id")),
		Title:            asString(firstOf(raw, nil, "title", "name")),
		ShortDescription: asString(firstOf(raw, nil, "short_des", "short_description", "description")),
		Tags:             asTags(raw["tags"]),
		Date:             asString(firstOf(raw, nil, "date", "created_at")),
		Stars:            asInt(firstOf(meta, raw, "stars")),
		Owner:            asString(firstOf(meta, raw, "owner")),
		URL:              asString(firstOf(meta, raw, "url")),
	}
	if s, ok := asFloat(firstOf(raw, nil, "@search.score", "score", "_score")); ok {
		d.BackendScore = s
	}
	return d
}

// FromJSON decodes one JSON object through FromRaw.
func FromJSON(data []byte) (Document, error) {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Document{}, err
	}
	return FromRaw(raw), nil
}

// firstOf returns the first non-nil value among keys, looking in primary then secondary.
func firstOf(primary, secondary map[string]any, keys ...string) any {
	for _, m := range []map[string]any{primary, secondary} {
		if m == nil {
			continue
		}
		for _, k := range keys {
			if v, ok := m[k]; ok && v != nil {
				if s, isStr := v.(string); isStr && s == "" {
					continue
				}
				return v
			}
		}
	}
	return nil
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	}
	return ""
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x)
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

func asInt(v any) *int {
	f, ok := asFloat(v)
	if !ok || math.IsInf(f, 0) {
		return nil
	}
	n := int(f)
	return &n
}

func asTags(v any) []string {
	switch x := v.(type) {
	case []string:
		return CleanTags(x)
	case []any:
		tags := make([]string, 0, len(x))
		for _, t := range x {
			if s := asString(t); s != "" {
				tags = append(tags, s)
			}
		}
		return CleanTags(tags)
	case string:
		return CleanTags(strings.Split(x, ","))
	}
	return []string{}
}
