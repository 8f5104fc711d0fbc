package search

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultRegistrySize is the number of engines a Registry keeps alive.
const DefaultRegistrySize = 16

// Registry holds long-lived engines by name, like properties hung off the
// data source. It is LRU-bounded; an evicted engine is closed.
type Registry struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *Engine]
}

// NewRegistry creates a registry keeping at most size engines.
func NewRegistry(size int) (*Registry, error) {
	if size <= 0 {
		size = DefaultRegistrySize
	}
	cache, err := lru.NewWithEvict[string, *Engine](size, func(_ string, e *Engine) {
		_ = e.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create engine registry: %w", err)
	}
	return &Registry{cache: cache}, nil
}

// GetOrCreate returns the engine registered under name, calling create to
// build it on first use.
func (r *Registry) GetOrCreate(name string, create func() (*Engine, error)) (*Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.cache.Get(name); ok {
		return e, nil
	}
	e, err := create()
	if err != nil {
		return nil, err
	}
	r.cache.Add(name, e)
	return e, nil
}

// Get returns the engine registered under name.
func (r *Registry) Get(name string) (*Engine, bool) {
	return r.cache.Get(name)
}

// Names returns the registered names, oldest first.
func (r *Registry) Names() []string {
	return r.cache.Keys()
}

// Remove closes and forgets the engine under name.
func (r *Registry) Remove(name string) bool {
	return r.cache.Remove(name)
}

// Len returns the number of live engines.
func (r *Registry) Len() int {
	return r.cache.Len()
}

// Close closes every engine.
func (r *Registry) Close() {
	r.cache.Purge()
}
