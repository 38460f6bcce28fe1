// Package config loads the layered settings for coreason-search.
//
// Precedence, highest first:
//  1. In-process construction (callers mutate the returned Settings or pass
//     explicit component options).
//  2. Environment variables with the APP__ prefix and __ as the nesting
//     delimiter (APP__EMBEDDING__PROVIDER=mock).
//  3. YAML file at SEARCH_CONFIG_PATH (default search_config.yaml).
//  4. Built-in defaults.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	cserrors "github.com/CoReason-AI/coreason-search/internal/errors"
)

const (
	// EnvConfigPath names the environment variable holding the YAML path.
	EnvConfigPath = "SEARCH_CONFIG_PATH"

	// DefaultConfigFile is the YAML file used when EnvConfigPath is unset.
	DefaultConfigFile = "search_config.yaml"

	// envPrefix is the prefix for environment overrides.
	envPrefix = "APP__"
)

// Settings is the complete service configuration.
type Settings struct {
	Env         string          `yaml:"env" json:"env"`
	DatabaseURI string          `yaml:"database_uri" json:"database_uri"`
	Embedding   EmbeddingConfig `yaml:"embedding" json:"embedding"`
	Reranker    RerankerConfig  `yaml:"reranker" json:"reranker"`
	Scout       ScoutConfig     `yaml:"scout" json:"scout"`
	Search      SearchConfig    `yaml:"search" json:"search"`
	Logging     LoggingConfig   `yaml:"logging" json:"logging"`
	Server      ServerConfig    `yaml:"server" json:"server"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	// Provider is one of "auto", "hf", "mock".
	Provider string `yaml:"provider" json:"provider"`

	// ModelName is the embedding model identifier.
	ModelName string `yaml:"model_name" json:"model_name"`

	// ContextLength is the model context window. Must be positive.
	ContextLength int `yaml:"context_length" json:"context_length"`

	// BatchSize is the embedding batch size. Must be positive.
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// Endpoint is the HTTP endpoint for the hf provider.
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// Dimensions is the vector width reported by the hf provider.
	Dimensions int `yaml:"dimensions" json:"dimensions"`
}

// RerankerConfig selects the re-ranking model.
type RerankerConfig struct {
	ModelName string `yaml:"model_name" json:"model_name"`
}

// ScoutConfig tunes context distillation.
type ScoutConfig struct {
	ModelName string `yaml:"model_name" json:"model_name"`

	// Threshold is the segment score cutoff, in [0, 1]. Segments scoring
	// strictly above it are kept.
	Threshold float64 `yaml:"threshold" json:"threshold"`
}

// SearchConfig tunes the retrieval pipeline.
type SearchConfig struct {
	// FTSBackend selects the sparse index backend: "sqlite" or "bleve".
	FTSBackend string `yaml:"fts_backend" json:"fts_backend"`

	// RerankWindow bounds the candidate set passed from fusion to the
	// reranker.
	RerankWindow int `yaml:"rerank_window" json:"rerank_window"`

	// RRFK is the reciprocal-rank-fusion smoothing constant.
	RRFK int `yaml:"rrf_k" json:"rrf_k"`

	// SystematicBatchSize is the page size for systematic streaming.
	SystematicBatchSize int `yaml:"systematic_batch_size" json:"systematic_batch_size"`
}

// LoggingConfig tunes structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// ServerConfig tunes the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// NewSettings returns the built-in defaults.
func NewSettings() *Settings {
	return &Settings{
		Env:         "development",
		DatabaseURI: "./data/coreason.db",
		Embedding: EmbeddingConfig{
			Provider:      "auto",
			ModelName:     "Alibaba-NLP/gte-Qwen2-7B-instruct",
			ContextLength: 32768,
			BatchSize:     1,
			Dimensions:    1024,
		},
		Reranker: RerankerConfig{
			ModelName: "BAAI/bge-reranker-v2-m3",
		},
		Scout: ScoutConfig{
			ModelName: "microsoft/llmlingua-2-bert-base-multilingual-cased-meetingbank",
			Threshold: 0.4,
		},
		Search: SearchConfig{
			FTSBackend:          "sqlite",
			RerankWindow:        50,
			RRFK:                60,
			SystematicBatchSize: 1000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// ResolveConfigPath picks the YAML path: the explicit argument, then
// SEARCH_CONFIG_PATH, then the default file name. The boolean reports
// whether the path was requested explicitly (explicit paths must exist).
func ResolveConfigPath(explicit string) (string, bool) {
	if explicit != "" {
		return explicit, true
	}
	if fromEnv := os.Getenv(EnvConfigPath); fromEnv != "" {
		return fromEnv, true
	}
	return DefaultConfigFile, false
}

// Load builds Settings from defaults, the YAML file, and environment
// overrides, then validates the result. An explicit path that does not
// exist is an error; the implicit default file is optional.
func Load(explicitPath string) (*Settings, error) {
	s := NewSettings()

	path, required := ResolveConfigPath(explicitPath)
	if err := s.loadFromFile(path, required); err != nil {
		return nil, err
	}

	s.applyEnvOverrides()

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// loadFromFile unmarshals the YAML file over the current values. Fields
// absent from the file keep their defaults; explicit zeros are honored.
func (s *Settings) loadFromFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return cserrors.New(cserrors.ErrCodeConfigNotFound,
			fmt.Sprintf("config file %s: %v", path, err), err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return cserrors.ConfigError(fmt.Sprintf("config file %s: %v", path, err), err)
	}
	return nil
}

// applyEnvOverrides applies APP__-prefixed environment variables. Nested
// fields use __ as the delimiter, e.g. APP__SCOUT__THRESHOLD=0.2.
func (s *Settings) applyEnvOverrides() {
	envString("ENV", &s.Env)
	envString("DATABASE_URI", &s.DatabaseURI)

	envString("EMBEDDING__PROVIDER", &s.Embedding.Provider)
	envString("EMBEDDING__MODEL_NAME", &s.Embedding.ModelName)
	envInt("EMBEDDING__CONTEXT_LENGTH", &s.Embedding.ContextLength)
	envInt("EMBEDDING__BATCH_SIZE", &s.Embedding.BatchSize)
	envString("EMBEDDING__ENDPOINT", &s.Embedding.Endpoint)
	envInt("EMBEDDING__DIMENSIONS", &s.Embedding.Dimensions)

	envString("RERANKER__MODEL_NAME", &s.Reranker.ModelName)

	envString("SCOUT__MODEL_NAME", &s.Scout.ModelName)
	envFloat("SCOUT__THRESHOLD", &s.Scout.Threshold)

	envString("SEARCH__FTS_BACKEND", &s.Search.FTSBackend)
	envInt("SEARCH__RERANK_WINDOW", &s.Search.RerankWindow)
	envInt("SEARCH__RRF_K", &s.Search.RRFK)
	envInt("SEARCH__SYSTEMATIC_BATCH_SIZE", &s.Search.SystematicBatchSize)

	envString("LOGGING__LEVEL", &s.Logging.Level)
	envString("SERVER__ADDR", &s.Server.Addr)
}

// Validate enforces the documented constraints.
func (s *Settings) Validate() error {
	switch s.Embedding.Provider {
	case "auto", "hf", "mock":
	default:
		return cserrors.ConfigError(
			fmt.Sprintf("embedding.provider must be one of auto, hf, mock; got %q", s.Embedding.Provider), nil)
	}
	if s.Embedding.ContextLength <= 0 {
		return cserrors.ConfigError(
			fmt.Sprintf("embedding.context_length must be positive, got %d", s.Embedding.ContextLength), nil)
	}
	if s.Embedding.BatchSize <= 0 {
		return cserrors.ConfigError(
			fmt.Sprintf("embedding.batch_size must be positive, got %d", s.Embedding.BatchSize), nil)
	}
	if s.Embedding.Dimensions <= 0 {
		return cserrors.ConfigError(
			fmt.Sprintf("embedding.dimensions must be positive, got %d", s.Embedding.Dimensions), nil)
	}
	if s.Scout.Threshold < 0 || s.Scout.Threshold > 1 {
		return cserrors.ConfigError(
			fmt.Sprintf("scout.threshold must be in [0, 1], got %g", s.Scout.Threshold), nil)
	}
	switch s.Search.FTSBackend {
	case "sqlite", "bleve":
	default:
		return cserrors.ConfigError(
			fmt.Sprintf("search.fts_backend must be sqlite or bleve, got %q", s.Search.FTSBackend), nil)
	}
	if s.Search.RerankWindow <= 0 {
		return cserrors.ConfigError(
			fmt.Sprintf("search.rerank_window must be positive, got %d", s.Search.RerankWindow), nil)
	}
	if s.Search.RRFK <= 0 {
		return cserrors.ConfigError(
			fmt.Sprintf("search.rrf_k must be positive, got %d", s.Search.RRFK), nil)
	}
	if s.Search.SystematicBatchSize <= 0 {
		return cserrors.ConfigError(
			fmt.Sprintf("search.systematic_batch_size must be positive, got %d", s.Search.SystematicBatchSize), nil)
	}
	return nil
}

// Fingerprint returns a stable digest of the settings values. Factories use
// it to cache one component set per distinct configuration.
func (s *Settings) Fingerprint() string {
	data, err := json.Marshal(s)
	if err != nil {
		// Settings are plain values; marshalling cannot realistically fail.
		return fmt.Sprintf("unfingerprintable-%p", s)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return
	}
	*dst = parsed
}

func envFloat(key string, dst *float64) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return
	}
	*dst = parsed
}
