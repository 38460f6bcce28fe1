// Package mcp exposes the search engine to AI clients over the Model
// Context Protocol. One tool is registered: search, mirroring the HTTP
// request shape minus the identity record.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	cserrors "github.com/CoReason-AI/coreason-search/internal/errors"
	"github.com/CoReason-AI/coreason-search/internal/schema"
	"github.com/CoReason-AI/coreason-search/internal/search"
	"github.com/CoReason-AI/coreason-search/pkg/version"
)

// Limit clamps for the search tool.
const (
	defaultTopK = 5
	maxTopK     = 50
)

// SearchInput is the tool argument schema. Absent stage toggles mean
// enabled; absent strategies select the hybrid default.
type SearchInput struct {
	Query          string         `json:"query" jsonschema:"the search query; free text, PubMed-style tags are translated for the sparse index"`
	Strategies     []string       `json:"strategies,omitempty" jsonschema:"retrieval strategies to run: dense, fts, graph; defaults to dense and fts"`
	FusionEnabled  *bool          `json:"fusion_enabled,omitempty" jsonschema:"merge strategy results with reciprocal rank fusion, default true"`
	RerankEnabled  *bool          `json:"rerank_enabled,omitempty" jsonschema:"re-score the fused candidates, default true"`
	DistillEnabled *bool          `json:"distill_enabled,omitempty" jsonschema:"distill each hit into a query-focused extract, default true"`
	TopK           int            `json:"top_k,omitempty" jsonschema:"maximum results, default 5, capped at 50"`
	Filters        map[string]any `json:"filters,omitempty" jsonschema:"metadata predicate tree, e.g. {\"year\": {\"$gte\": 2020}}"`
}

// Server bridges MCP clients to one engine.
type Server struct {
	mcp    *mcp.Server
	engine *search.Engine
	logger *slog.Logger
}

// NewServer creates the MCP server and registers its tools.
func NewServer(engine *search.Engine, logger *slog.Logger) (*Server, error) {
	if engine == nil {
		return nil, search.ErrNilDependency
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{engine: engine, logger: logger}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "coreason-search",
			Version: version.Version,
		},
		nil,
	)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Hybrid document retrieval: dense vector, sparse full-text, and knowledge-graph strategies fused, reranked, and distilled into query-focused extracts. Supports PubMed-style field tags and metadata filters.",
	}, s.handleSearch)

	return s, nil
}

// Run serves on stdio until the context ends.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp_listening", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.logger.Error("mcp_stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_stopped")
	return nil
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	schema.SearchResponse,
	error,
) {
	req, err := buildRequest(input)
	if err != nil {
		return nil, schema.SearchResponse{}, err
	}

	resp, err := s.engine.Execute(ctx, req)
	if err != nil {
		return nil, schema.SearchResponse{}, err
	}

	s.logger.Info("mcp_search_completed",
		slog.Int("total_found", resp.TotalFound),
		slog.Float64("execution_time_ms", resp.ExecutionTimeMS))
	return nil, *resp, nil
}

// buildRequest maps the tool arguments onto a pipeline request, applying
// the tool-level defaults and clamps.
func buildRequest(input SearchInput) (*schema.SearchRequest, error) {
	if input.Query == "" {
		return nil, cserrors.ValidationError("query is required", nil)
	}

	strategies := []schema.Strategy{schema.StrategyDense, schema.StrategyFTS}
	if len(input.Strategies) > 0 {
		strategies = strategies[:0]
		for _, tag := range input.Strategies {
			strategy, err := schema.ParseStrategy(tag)
			if err != nil {
				return nil, cserrors.ValidationError(fmt.Sprintf("unknown strategy %q", tag), err)
			}
			strategies = append(strategies, strategy)
		}
	}

	topK := input.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	req := schema.NewSearchRequest(schema.TextQuery(input.Query), strategies...)
	req.TopK = topK
	req.Filters = input.Filters
	if input.FusionEnabled != nil {
		req.FusionEnabled = *input.FusionEnabled
	}
	if input.RerankEnabled != nil {
		req.RerankEnabled = *input.RerankEnabled
	}
	if input.DistillEnabled != nil {
		req.DistillEnabled = *input.DistillEnabled
	}
	return req, nil
}
