package embed

import (
	"context"
	"log/slog"
	"strings"

	"github.com/CoReason-AI/coreason-search/internal/config"
	cserrors "github.com/CoReason-AI/coreason-search/internal/errors"
)

// ProviderType names an embedding provider.
type ProviderType string

const (
	// ProviderAuto probes hf and falls back to mock when unavailable.
	ProviderAuto ProviderType = "auto"

	// ProviderHF uses an HTTP text-embeddings endpoint.
	ProviderHF ProviderType = "hf"

	// ProviderMock uses hash-based embeddings (no external dependencies).
	ProviderMock ProviderType = "mock"
)

// String returns the string representation of ProviderType.
func (p ProviderType) String() string {
	return string(p)
}

// ParseProvider converts a string to ProviderType. Unknown names map to
// auto, matching config validation which rejects them earlier.
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(s) {
	case "hf", "huggingface":
		return ProviderHF
	case "mock":
		return ProviderMock
	default:
		return ProviderAuto
	}
}

// New creates an embedder from the embedding config. The auto provider
// probes the hf endpoint once and logs a warning before falling back to
// mock, so degraded semantic quality never goes unnoticed.
//
// The result is wrapped with an LRU cache keyed by text and model.
func New(ctx context.Context, cfg config.EmbeddingConfig, logger *slog.Logger) (Embedder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	inner, err := newProvider(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return NewCachedEmbedder(inner, DefaultCacheSize), nil
}

func newProvider(ctx context.Context, cfg config.EmbeddingConfig, logger *slog.Logger) (Embedder, error) {
	switch ParseProvider(cfg.Provider) {
	case ProviderMock:
		return NewMockEmbedder(), nil

	case ProviderHF:
		hf := NewHFEmbedder(hfConfig(cfg))
		if !hf.Available(ctx) {
			_ = hf.Close()
			return nil, cserrors.New(cserrors.ErrCodeBackendUnavailable,
				"embedding server unavailable at "+endpointOrDefault(cfg), nil)
		}
		return hf, nil

	default: // auto
		hf := NewHFEmbedder(hfConfig(cfg))
		if hf.Available(ctx) {
			return hf, nil
		}
		_ = hf.Close()
		logger.Warn("embedding_fallback",
			slog.String("endpoint", endpointOrDefault(cfg)),
			slog.String("provider", ProviderMock.String()))
		return NewMockEmbedder(), nil
	}
}

func hfConfig(cfg config.EmbeddingConfig) HFConfig {
	hc := DefaultHFConfig()
	if cfg.Endpoint != "" {
		hc.Endpoint = cfg.Endpoint
	}
	hc.Model = cfg.ModelName
	if cfg.Dimensions > 0 {
		hc.Dimensions = cfg.Dimensions
	}
	if cfg.BatchSize > 0 {
		hc.BatchSize = cfg.BatchSize
	}
	return hc
}

func endpointOrDefault(cfg config.EmbeddingConfig) string {
	if cfg.Endpoint != "" {
		return cfg.Endpoint
	}
	return DefaultHFEndpoint
}

// Info describes an embedder for health reporting.
type Info struct {
	Provider   string
	Model      string
	Dimensions int
	Available  bool
}

// GetInfo returns provider, model, and readiness for an embedder. The probe
// is bounded so health checks stay fast even with a dead endpoint.
func GetInfo(ctx context.Context, embedder Embedder) Info {
	probeCtx, cancel := context.WithTimeout(ctx, DefaultProbeTimeout)
	defer cancel()

	return Info{
		Provider:   embedder.Provider(),
		Model:      embedder.ModelName(),
		Dimensions: embedder.Dimensions(),
		Available:  embedder.Available(probeCtx),
	}
}
