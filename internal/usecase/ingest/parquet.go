package ingest

import (
	"errors"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

const parquetBatchRows = 1000

// parquetColumn says where a leaf column lands in the raw object.
type parquetColumn struct {
	key      string // top-level field
	nested   string // struct member, e.g. meta_data.stars
	repeated bool   // list column, values accumulate
}

// decodeParquet streams rows of a Parquet file as raw objects. Top-level
// columns map to keys, struct members to nested objects and list columns to
// arrays, so FromRaw sees the same shapes as in JSON dumps.
func decodeParquet(r io.ReaderAt, size int64, fn func(map[string]any) error) error {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return fmt.Errorf("open parquet: %w", err)
	}

	cols := resolveColumns(pf.Schema())
	for _, rg := range pf.RowGroups() {
		if err := readRowGroup(rg, cols, fn); err != nil {
			return err
		}
	}
	return nil
}

func resolveColumns(schema *parquet.Schema) []parquetColumn {
	paths := schema.Columns()
	cols := make([]parquetColumn, len(paths))
	for i, path := range paths {
		if len(path) == 0 {
			continue
		}
		c := parquetColumn{key: path[0]}
		if leaf, ok := schema.Lookup(path...); ok && leaf.MaxRepetitionLevel > 0 {
			c.repeated = true
		} else if len(path) > 1 {
			c.nested = path[len(path)-1]
		}
		cols[i] = c
	}
	return cols
}

func readRowGroup(rg parquet.RowGroup, cols []parquetColumn, fn func(map[string]any) error) error {
	rows := parquet.NewRowGroupReader(rg)
	buf := make([]parquet.Row, parquetBatchRows)

	for {
		n, readErr := rows.ReadRows(buf)
		for i := 0; i < n; i++ {
			if err := fn(rowToRaw(buf[i], cols)); err != nil {
				return err
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return fmt.Errorf("read rows: %w", readErr)
		}
	}
}

func rowToRaw(row parquet.Row, cols []parquetColumn) map[string]any {
	raw := make(map[string]any, len(cols))
	for _, v := range row {
		idx := v.Column()
		if idx < 0 || idx >= len(cols) || v.IsNull() {
			continue
		}
		c := cols[idx]
		if c.key == "" {
			continue
		}
		val := parquetValue(v)

		switch {
		case c.repeated:
			list, _ := raw[c.key].([]any)
			raw[c.key] = append(list, val)
		case c.nested != "":
			obj, ok := raw[c.key].(map[string]any)
			if !ok {
				obj = make(map[string]any)
				raw[c.key] = obj
			}
			obj[c.nested] = val
		default:
			raw[c.key] = val
		}
	}
	return raw
}

func parquetValue(v parquet.Value) any {
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	default:
		return v.String()
	}
}
