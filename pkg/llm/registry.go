package llm

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages text-generation backends by name.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]TextGenerator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[string]TextGenerator),
	}
}

// Register adds a backend.
func (r *Registry) Register(g TextGenerator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := g.Name()
	if _, exists := r.backends[name]; exists {
		return fmt.Errorf("llm backend %q already registered", name)
	}
	r.backends[name] = g
	return nil
}

// Get returns a backend by name.
func (r *Registry) Get(name string) (TextGenerator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("llm backend %q not found", name)
	}
	return g, nil
}

// List returns the registered backend names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
