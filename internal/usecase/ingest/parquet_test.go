package ingest

import (
	"bytes"
	"context"
	"testing"

	"github.com/parquet-go/parquet-go"
)

type repoMeta struct {
	Stars int64  `parquet:"stars"`
	Owner string `parquet:"owner"`
}

type repoRow struct {
	ID       string   `parquet:"id"`
	Title    string   `parquet:"title"`
	ShortDes string   `parquet:"short_des"`
	Tags     []string `parquet:"tags,list"`
	Date     string   `parquet:"date"`
	Meta     repoMeta `parquet:"meta_data"`
}

func writeParquet(t *testing.T, rows []repoRow) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	if err := parquet.Write(&buf, rows); err != nil {
		t.Fatalf("write parquet: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestIngestParquet(t *testing.T) {
	r := writeParquet(t, []repoRow{
		{
			ID: "a/one", Title: "One", ShortDes: "first", Tags: []string{"go", "cli"},
			Date: "2024-05-01", Meta: repoMeta{Stars: 42, Owner: "a"},
		},
		{Title: "no id"},
		{ID: "b/two", Title: "Two", Meta: repoMeta{Stars: 7}},
	})

	idx := &mockIndexer{}
	rep, err := New(&mockEmbedder{}, idx, 10, nil).IngestParquet(context.Background(), r, r.Size())
	if err != nil {
		t.Fatalf("IngestParquet: %v", err)
	}
	if rep.Read != 3 || rep.Indexed != 2 || rep.Skipped != 1 {
		t.Fatalf("report = %+v", rep)
	}

	first := idx.stored[0]
	if first.ID != "a/one" || first.ShortDescription != "first" || first.Date != "2024-05-01" {
		t.Errorf("doc = %+v", first)
	}
	if len(first.Tags) != 2 || first.Tags[0] != "go" || first.Tags[1] != "cli" {
		t.Errorf("tags = %v", first.Tags)
	}
	if first.Stars == nil || *first.Stars != 42 || first.Owner != "a" {
		t.Errorf("meta = stars %v owner %q", first.Stars, first.Owner)
	}
	if second := idx.stored[1]; second.Stars == nil || *second.Stars != 7 || len(second.Tags) != 0 {
		t.Errorf("second = %+v", second)
	}
}

func TestIngestParquet_NotParquet(t *testing.T) {
	r := bytes.NewReader([]byte(`{"id":"a"}`))
	_, err := New(&mockEmbedder{}, &mockIndexer{}, 10, nil).IngestParquet(context.Background(), r, r.Size())
	if err == nil {
		t.Fatal("expected error for non-parquet input")
	}
}
