package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	cserrors "github.com/CoReason-AI/coreason-search/internal/errors"
)

// DefaultHFEndpoint is the default text-embeddings endpoint.
const DefaultHFEndpoint = "http://localhost:8081"

// HFConfig configures the HTTP embedding provider. The endpoint must speak
// the text-embeddings-inference protocol: POST /embed with a JSON body of
// {"inputs": [...]} returning one vector per input.
type HFConfig struct {
	Endpoint   string
	Model      string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration
	Retry      RetryConfig
}

// DefaultHFConfig returns the default hf provider configuration.
func DefaultHFConfig() HFConfig {
	return HFConfig{
		Endpoint:   DefaultHFEndpoint,
		Dimensions: DefaultHFDimensions,
		BatchSize:  DefaultBatchSize,
		Timeout:    DefaultRequestTimeout,
		Retry:      DefaultRetryConfig(),
	}
}

// HFEmbedder generates embeddings through an HTTP embedding server.
type HFEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    HFConfig

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*HFEmbedder)(nil)

// embedRequest is the wire request for the /embed endpoint.
type embedRequest struct {
	Inputs []string `json:"inputs"`
}

// NewHFEmbedder creates an HTTP embedder. It does not contact the endpoint;
// call Available to probe readiness.
func NewHFEmbedder(cfg HFConfig) *HFEmbedder {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultHFEndpoint
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultHFDimensions
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize > MaxBatchSize {
		cfg.BatchSize = MaxBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialDelay == 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	transport := &http.Transport{
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,
	}

	// No client-level timeout: each request carries its own context
	// deadline so callers can shorten it for probes.
	return &HFEmbedder{
		client:    &http.Client{Transport: transport},
		transport: transport,
		config:    cfg,
	}
}

// Embed generates the embedding for a single text.
func (e *HFEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts, splitting the inputs
// into configured batch sizes.
func (e *HFEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := e.embedChunk(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, vectors...)
	}

	return results, nil
}

// embedChunk sends one batch to the endpoint with retry.
func (e *HFEmbedder) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	err := withRetry(ctx, e.config.Retry, func() error {
		reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()

		got, err := e.doEmbed(reqCtx, texts)
		if err != nil {
			return err
		}
		vectors = got
		return nil
	})
	if err != nil {
		return nil, cserrors.New(cserrors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("embedding request to %s failed: %v", e.config.Endpoint, err), err)
	}

	if len(vectors) != len(texts) {
		return nil, cserrors.New(cserrors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("embedding server returned %d vectors for %d inputs", len(vectors), len(texts)), nil)
	}
	for _, v := range vectors {
		if len(v) != e.config.Dimensions {
			return nil, cserrors.New(cserrors.ErrCodeDimensionMismatch,
				fmt.Sprintf("embedding server returned %d dimensions, expected %d", len(v), e.config.Dimensions), nil)
		}
	}

	return vectors, nil
}

// doEmbed performs a single HTTP call.
func (e *HFEmbedder) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Inputs: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.Endpoint+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach embedding server: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(payload))
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return vectors, nil
}

// Dimensions returns the embedding dimension.
func (e *HFEmbedder) Dimensions() int {
	return e.config.Dimensions
}

// ModelName returns the model identifier.
func (e *HFEmbedder) ModelName() string {
	if e.config.Model == "" {
		return "hf"
	}
	return e.config.Model
}

// Provider returns the provider name.
func (e *HFEmbedder) Provider() string {
	return "hf"
}

// Available probes the endpoint's /health route.
func (e *HFEmbedder) Available(ctx context.Context) bool {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return false
	}
	e.mu.RUnlock()

	probeCtx, cancel := context.WithTimeout(ctx, DefaultProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, e.config.Endpoint+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// Close releases idle connections.
func (e *HFEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.transport.CloseIdleConnections()
	return nil
}
