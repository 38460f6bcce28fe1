// Package embed generates vector embeddings for search text.
//
// Three providers are available: "hf" talks to an HTTP text-embeddings
// endpoint, "mock" produces deterministic hash-based vectors with no
// external dependencies, and "auto" probes hf and falls back to mock.
package embed

import (
	"context"
	"math"
	"time"
)

const (
	// DefaultBatchSize is the default batch size for embedding requests.
	DefaultBatchSize = 32

	// MaxBatchSize caps a single embedding request.
	MaxBatchSize = 256

	// DefaultRequestTimeout bounds a single HTTP embedding call.
	DefaultRequestTimeout = 60 * time.Second

	// DefaultProbeTimeout bounds the availability probe used by the
	// auto provider.
	DefaultProbeTimeout = 3 * time.Second

	// DefaultMaxRetries caps retries of transient HTTP failures.
	DefaultMaxRetries = 3
)

const (
	// MockDimensions is the vector width of the mock provider.
	MockDimensions = 256

	// DefaultHFDimensions is the vector width assumed for the hf
	// provider when the config does not state one.
	DefaultHFDimensions = 1024
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, one vector
	// per input in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Provider returns the provider name ("hf" or "mock").
	Provider() string

	// Available checks if the embedder is ready.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
