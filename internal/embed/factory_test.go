package embed

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CoReason-AI/coreason-search/internal/config"
	cserrors "github.com/CoReason-AI/coreason-search/internal/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestParseProvider(t *testing.T) {
	assert.Equal(t, ProviderHF, ParseProvider("hf"))
	assert.Equal(t, ProviderHF, ParseProvider("HuggingFace"))
	assert.Equal(t, ProviderMock, ParseProvider("mock"))
	assert.Equal(t, ProviderAuto, ParseProvider("auto"))
	assert.Equal(t, ProviderAuto, ParseProvider(""))
}

func TestNew_MockProvider(t *testing.T) {
	// Given config selecting the mock provider
	cfg := config.EmbeddingConfig{Provider: "mock"}

	// When building an embedder
	e, err := New(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	// Then it is a cached mock
	assert.Equal(t, "mock", e.Provider())
	cached, ok := e.(*CachedEmbedder)
	require.True(t, ok)
	assert.IsType(t, &MockEmbedder{}, cached.Inner())
}

func TestNew_HFProvider(t *testing.T) {
	srv := newEmbedServer(t, 4)

	cfg := config.EmbeddingConfig{
		Provider:   "hf",
		Endpoint:   srv.URL,
		Dimensions: 4,
	}
	e, err := New(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, "hf", e.Provider())
	assert.Equal(t, 4, e.Dimensions())
}

func TestNew_HFProviderUnavailableFails(t *testing.T) {
	cfg := config.EmbeddingConfig{
		Provider: "hf",
		Endpoint: "http://127.0.0.1:1",
	}

	_, err := New(context.Background(), cfg, discardLogger())
	require.Error(t, err)
	assert.Equal(t, cserrors.ErrCodeBackendUnavailable, cserrors.GetCode(err))
}

func TestNew_AutoFallsBackToMock(t *testing.T) {
	// Given auto config with an unreachable endpoint
	cfg := config.EmbeddingConfig{
		Provider: "auto",
		Endpoint: "http://127.0.0.1:1",
	}

	// When building an embedder
	e, err := New(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	// Then mock serves in place of hf
	assert.Equal(t, "mock", e.Provider())
}

func TestNew_AutoPrefersHF(t *testing.T) {
	srv := newEmbedServer(t, 4)

	cfg := config.EmbeddingConfig{
		Provider:   "auto",
		Endpoint:   srv.URL,
		Dimensions: 4,
	}
	e, err := New(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, "hf", e.Provider())
}

func TestGetInfo(t *testing.T) {
	e := NewMockEmbedder()

	info := GetInfo(context.Background(), e)

	assert.Equal(t, "mock", info.Provider)
	assert.Equal(t, "mock", info.Model)
	assert.Equal(t, MockDimensions, info.Dimensions)
	assert.True(t, info.Available)
}
