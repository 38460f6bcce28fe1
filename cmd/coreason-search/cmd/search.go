package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cserrors "github.com/CoReason-AI/coreason-search/internal/errors"
	"github.com/CoReason-AI/coreason-search/internal/output"
	"github.com/CoReason-AI/coreason-search/internal/schema"
)

func newSearchCmd() *cobra.Command {
	var (
		strategies []string
		topK       int
		filterJSON string
		format     string
		noFusion   bool
		noRerank   bool
		noDistill  bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run one bounded search from the command line",
		Long: `Run a single query through the full pipeline and print the results.

Examples:
  coreason-search search "CRISPR off-target effects"
  coreason-search search --strategy fts --top-k 10 "influenza[Title] AND 2023[Year]"
  coreason-search search --filter '{"year": {"$gte": 2020}}' "mrna vaccines"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildCLIRequest(args[0], strategies, topK, filterJSON,
				noFusion, noRerank, noDistill)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			app, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			resp, err := app.engine.Execute(ctx, req)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			case "text":
				output.NewHitRenderer(os.Stdout).Render(resp)
				return nil
			default:
				return cserrors.ValidationError(
					fmt.Sprintf("unknown format %q, want text or json", format), nil)
			}
		},
	}

	cmd.Flags().StringSliceVarP(&strategies, "strategy", "s", []string{"dense", "fts"},
		"retrieval strategy, repeatable (dense, fts, graph)")
	cmd.Flags().IntVarP(&topK, "top-k", "k", schema.DefaultTopK, "number of results")
	cmd.Flags().StringVar(&filterJSON, "filter", "", "metadata filter as a JSON object")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text, json)")
	cmd.Flags().BoolVar(&noFusion, "no-fusion", false, "concatenate instead of fusing")
	cmd.Flags().BoolVar(&noRerank, "no-rerank", false, "skip reranking")
	cmd.Flags().BoolVar(&noDistill, "no-distill", false, "skip context distillation")
	return cmd
}

func buildCLIRequest(queryText string, strategyTags []string, topK int, filterJSON string, noFusion, noRerank, noDistill bool) (*schema.SearchRequest, error) {
	parsed := make([]schema.Strategy, 0, len(strategyTags))
	for _, tag := range strategyTags {
		s, err := schema.ParseStrategy(tag)
		if err != nil {
			return nil, cserrors.ValidationError(err.Error(), err)
		}
		parsed = append(parsed, s)
	}

	req := schema.NewSearchRequest(schema.TextQuery(queryText), parsed...)
	req.TopK = topK
	req.FusionEnabled = !noFusion
	req.RerankEnabled = !noRerank
	req.DistillEnabled = !noDistill

	if filterJSON != "" {
		filters := map[string]any{}
		if err := json.Unmarshal([]byte(filterJSON), &filters); err != nil {
			return nil, cserrors.ValidationError(
				fmt.Sprintf("invalid filter JSON: %s", err.Error()), err)
		}
		req.Filters = filters
	}

	return req, req.Validate()
}
