package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	ingestuc "github.com/kailas-cloud/reposearch/internal/usecase/ingest"
)

func newIngestCmd(flags *rootFlags) *cobra.Command {
	var (
		file     string
		recreate bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Index repositories from a JSON array, JSON Lines or Parquet file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if recreate {
				if err := a.repo.RecreateIndex(ctx); err != nil {
					return err
				}
				a.logger.Info("Index recreated")
			}

			report, err := ingestFile(ctx, a.ingest, cmd, file)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(report); encErr != nil {
				return encErr
			}
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			if report.Failed > 0 {
				return fmt.Errorf("%d documents failed to index", report.Failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", `input file, "-" for stdin (JSON only)`)
	cmd.Flags().BoolVar(&recreate, "recreate", false, "drop and rebuild the index schema before loading")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func ingestFile(ctx context.Context, svc *ingestuc.Service, cmd *cobra.Command, file string) (ingestuc.Report, error) {
	if file == "-" {
		return svc.Ingest(ctx, cmd.InOrStdin())
	}

	f, err := os.Open(filepath.Clean(file))
	if err != nil {
		return ingestuc.Report{}, fmt.Errorf("open input: %w", err)
	}
	defer func() { _ = f.Close() }()

	if strings.EqualFold(filepath.Ext(file), ".parquet") {
		stat, err := f.Stat()
		if err != nil {
			return ingestuc.Report{}, fmt.Errorf("stat input: %w", err)
		}
		return svc.IngestParquet(ctx, f, stat.Size())
	}
	return svc.Ingest(ctx, f)
}
