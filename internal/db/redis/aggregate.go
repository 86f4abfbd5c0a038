package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/kailas-cloud/reposearch/internal/db"
)

// TopTagValues returns the n most frequent values of a TAG field with their
// document counts, most frequent first.
func (s *Store) TopTagValues(ctx context.Context, index, field string, n int) ([]db.FacetValue, error) {
	if index == "" || field == "" {
		return nil, errors.New("index and field are required")
	}
	if n <= 0 {
		return nil, errors.New("n must be positive")
	}

	args := []string{
		index, "*",
		"GROUPBY", "1", "@" + field,
		"REDUCE", "COUNT", "0", "AS", "count",
		"SORTBY", "2", "@count", "DESC",
		"LIMIT", "0", strconv.Itoa(n),
		"DIALECT", "2",
	}
	raw, err := s.do(ctx, s.b().Arbitrary("FT.AGGREGATE").Args(args...).Build()).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpAggregate, Err: err}
	}

	// [total, [field, value, count, n], ...]
	out := make([]db.FacetValue, 0, len(raw))
	for i := 1; i < len(raw); i++ {
		row, err := raw[i].ToArray()
		if err != nil {
			continue
		}
		pairs := parseFieldPairs(row)
		value := pairs[field]
		if value == "" {
			continue
		}
		count, _ := strconv.Atoi(pairs["count"])
		out = append(out, db.FacetValue{Value: value, Count: count})
	}
	return out, nil
}
