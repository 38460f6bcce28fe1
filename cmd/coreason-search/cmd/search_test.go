package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cserrors "github.com/CoReason-AI/coreason-search/internal/errors"
	"github.com/CoReason-AI/coreason-search/internal/schema"
)

func TestBuildCLIRequest_Defaults(t *testing.T) {
	req, err := buildCLIRequest("gene therapy", []string{"dense", "fts"},
		schema.DefaultTopK, "", false, false, false)
	require.NoError(t, err)

	assert.Equal(t, "gene therapy", req.Query.Text)
	assert.Equal(t, []schema.Strategy{schema.StrategyDense, schema.StrategyFTS}, req.Strategies)
	assert.Equal(t, schema.DefaultTopK, req.TopK)
	assert.True(t, req.FusionEnabled)
	assert.True(t, req.RerankEnabled)
	assert.True(t, req.DistillEnabled)
	assert.Nil(t, req.Filters)
}

func TestBuildCLIRequest_TogglesAndFilter(t *testing.T) {
	req, err := buildCLIRequest("statins", []string{"fts"}, 20,
		`{"year": {"$gte": 2020}}`, true, true, true)
	require.NoError(t, err)

	assert.False(t, req.FusionEnabled)
	assert.False(t, req.RerankEnabled)
	assert.False(t, req.DistillEnabled)
	assert.Equal(t, 20, req.TopK)
	require.Contains(t, req.Filters, "year")
}

func TestBuildCLIRequest_UnknownStrategy(t *testing.T) {
	_, err := buildCLIRequest("q", []string{"lucene"}, 5, "", false, false, false)
	require.Error(t, err)
	assert.Equal(t, cserrors.ErrCodeInvalidRequest, cserrors.GetCode(err))
}

func TestBuildCLIRequest_InvalidFilterJSON(t *testing.T) {
	_, err := buildCLIRequest("q", []string{"fts"}, 5, "{not json", false, false, false)
	require.Error(t, err)
	assert.Equal(t, cserrors.ErrCodeInvalidRequest, cserrors.GetCode(err))
}

func TestBuildCLIRequest_NonPositiveTopK(t *testing.T) {
	_, err := buildCLIRequest("q", []string{"fts"}, 0, "", false, false, false)
	require.Error(t, err)
	assert.Equal(t, cserrors.ErrCodeInvalidRequest, cserrors.GetCode(err))
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	root := NewRootCmd()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "mcp", "search", "corpus", "config", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestDemoCorpus_MatchesGraphFixture(t *testing.T) {
	rows := demoCorpus()
	require.NotEmpty(t, rows)

	ids := map[string]bool{}
	for _, row := range rows {
		require.NotEmpty(t, row.DocID)
		require.NotEmpty(t, row.Content)
		assert.False(t, ids[row.DocID], "duplicate doc_id %s", row.DocID)
		ids[row.DocID] = true
	}
	assert.True(t, ids["paper_a"])
	assert.True(t, ids["paper_b"])
}
