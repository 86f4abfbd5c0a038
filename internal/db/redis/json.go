package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/reposearch/internal/db"
)

// JSONSetMulti pipelines several JSON.SET commands in one DoMulti round-trip.
// The returned slice is aligned with items; nil entries succeeded.
func (s *Store) JSONSetMulti(ctx context.Context, items []db.JSONSetItem) []error {
	if len(items) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, len(items))
	for i, item := range items {
		cmds[i] = s.jsonSetCmd(item.Key, item.Path, item.Data)
	}

	errs := make([]error, len(items))
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			errs[i] = &db.Error{Op: db.OpJSONSet, Err: fmt.Errorf("key %s: %w", items[i].Key, err)}
		}
	}
	return errs
}

func (s *Store) jsonSetCmd(key, path string, data []byte) rueidis.Completed {
	if path == "" {
		path = "$"
	}
	return s.b().JsonSet().Key(key).Path(path).Value(string(data)).Build()
}
