// Package ingest loads raw repository dumps into the search index.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/kailas-cloud/reposearch/internal/domain/document"
)

const defaultBatchSize = 64

// maxReportedErrors bounds Report.Errors.
const maxReportedErrors = 100

// ItemError is one document that could not be indexed.
type ItemError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// Report summarizes an ingest run.
type Report struct {
	Read    int         `json:"read"`
	Indexed int         `json:"indexed"`
	Skipped int         `json:"skipped"`
	Failed  int         `json:"failed"`
	Errors  []ItemError `json:"errors,omitempty"`
}

func (r *Report) fail(id string, err error) {
	r.Failed++
	if len(r.Errors) < maxReportedErrors {
		r.Errors = append(r.Errors, ItemError{ID: id, Error: err.Error()})
	}
}

// Service indexes documents.
type Service struct {
	embedder  Embedder
	indexer   Indexer
	batchSize int
	logger    *zap.Logger
}

// New creates an ingest service. batchSize <= 0 means 64.
func New(embedder Embedder, indexer Indexer, batchSize int, logger *zap.Logger) *Service {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{embedder: embedder, indexer: indexer, batchSize: batchSize, logger: logger}
}

// Ingest reads a JSON array or JSON Lines of raw documents from r and
// indexes them. Documents without an id are skipped. A failing batch is
// reported and the run continues; only read errors and cancellation abort.
func (s *Service) Ingest(ctx context.Context, r io.Reader) (Report, error) {
	return s.run(ctx, func(fn func(map[string]any) error) error {
		return decode(r, fn)
	})
}

// IngestParquet is Ingest over a Parquet file of size bytes.
func (s *Service) IngestParquet(ctx context.Context, r io.ReaderAt, size int64) (Report, error) {
	return s.run(ctx, func(fn func(map[string]any) error) error {
		return decodeParquet(r, size, fn)
	})
}

// source streams raw objects into fn until exhausted or fn fails.
type source func(fn func(map[string]any) error) error

func (s *Service) run(ctx context.Context, src source) (Report, error) {
	var rep Report

	if err := s.indexer.EnsureIndex(ctx); err != nil {
		return rep, fmt.Errorf("ensure index: %w", err)
	}

	batch := make([]document.Document, 0, s.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.index(ctx, batch, &rep); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	err := src(func(raw map[string]any) error {
		rep.Read++
		doc := document.FromRaw(raw)
		if doc.ID == "" {
			rep.Skipped++
			return nil
		}
		batch = append(batch, doc)
		if len(batch) == s.batchSize {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}

	s.logger.Info("Ingest finished",
		zap.Int("read", rep.Read),
		zap.Int("indexed", rep.Indexed),
		zap.Int("skipped", rep.Skipped),
		zap.Int("failed", rep.Failed),
		zap.Error(err),
	)
	return rep, err
}

func (s *Service) index(ctx context.Context, docs []document.Document, rep *Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content()
	}

	res, err := s.embedder.BatchEmbed(ctx, texts)
	if err == nil && len(res.Embeddings) != len(docs) {
		err = fmt.Errorf("embedder returned %d vectors for %d documents", len(res.Embeddings), len(docs))
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("Batch embedding failed", zap.Int("batch_size", len(docs)), zap.Error(err))
		for _, d := range docs {
			rep.fail(d.ID, err)
		}
		return nil
	}

	errs, err := s.indexer.Upsert(ctx, docs, res.Embeddings)
	if err != nil {
		for _, d := range docs {
			rep.fail(d.ID, err)
		}
		return nil
	}
	for i, e := range errs {
		if e != nil {
			rep.fail(docs[i].ID, e)
			continue
		}
		rep.Indexed++
	}
	return nil
}

// decode streams objects from a JSON array or from whitespace-separated
// JSON values (JSON Lines).
func decode(r io.Reader, fn func(map[string]any) error) error {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	dec := json.NewDecoder(br)
	dec.UseNumber()

	if first == '[' {
		if _, err := dec.Token(); err != nil {
			return fmt.Errorf("read array start: %w", err)
		}
		for dec.More() {
			var raw map[string]any
			if err := dec.Decode(&raw); err != nil {
				return fmt.Errorf("decode document: %w", err)
			}
			if err := fn(raw); err != nil {
				return err
			}
		}
		return nil
	}

	for {
		var raw map[string]any
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("decode document: %w", err)
		}
		if err := fn(raw); err != nil {
			return err
		}
	}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}
