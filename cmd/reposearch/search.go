package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	searchuc "github.com/kailas-cloud/reposearch/internal/usecase/search"
)

const (
	modeText   = "text"
	modeHybrid = "hybrid"
	modeVector = "vector"
	modeTag    = "tag"
)

func newSearchCmd(flags *rootFlags) *cobra.Command {
	var (
		mode  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run one query in-process and print the JSON result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch mode {
			case modeText, modeHybrid, modeVector, modeTag:
			default:
				return fmt.Errorf("unknown mode %q (text, hybrid, vector, tag)", mode)
			}

			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := runSearch(cmd.Context(), a.search, mode, strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", modeHybrid, "text, hybrid, vector or tag")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "result count (0 = mode default)")
	return cmd
}

func runSearch(ctx context.Context, svc *searchuc.Service, mode, q string, limit int) (any, error) {
	switch mode {
	case modeText:
		resp, err := svc.Text(ctx, q, searchuc.TextOptions{Limit: limit})
		return orNoResult(resp), err
	case modeVector:
		docs, err := svc.Vector(ctx, q, limit)
		return map[string]any{"results": docs}, err
	case modeTag:
		results, err := svc.Tag(ctx, q, limit)
		return map[string]any{"results": results}, err
	default:
		resp, err := svc.Hybrid(ctx, q, limit)
		return orNoResult(resp), err
	}
}

func orNoResult(resp *searchuc.Response) any {
	if resp == nil {
		return map[string]any{"no_result": true}
	}
	return resp
}
