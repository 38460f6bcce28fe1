package search

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultRegistrySize bounds the number of cached engines. Each engine
// pins backend handles, so the registry stays small.
const DefaultRegistrySize = 8

// Registry caches constructed engines keyed by the settings fingerprint,
// so callers sharing a configuration share one engine and its backends.
// Distinct configurations never share state.
type Registry struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *Engine]
}

// NewRegistry creates a registry holding at most size engines. size <= 0
// selects the default.
func NewRegistry(size int) (*Registry, error) {
	if size <= 0 {
		size = DefaultRegistrySize
	}
	cache, err := lru.New[string, *Engine](size)
	if err != nil {
		return nil, err
	}
	return &Registry{cache: cache}, nil
}

// GetOrCreate returns the cached engine for a fingerprint, building and
// caching one via build on a miss. Concurrent callers with the same
// fingerprint get the same instance.
func (r *Registry) GetOrCreate(fingerprint string, build func() (*Engine, error)) (*Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if engine, ok := r.cache.Get(fingerprint); ok {
		return engine, nil
	}
	engine, err := build()
	if err != nil {
		return nil, err
	}
	r.cache.Add(fingerprint, engine)
	return engine, nil
}

// Len reports the number of cached engines.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}
