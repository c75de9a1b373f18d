// Package source manages the set of configured upstream adapters.
package source

import (
	"fmt"
	"sort"

	"DealRadar/internal/ports"
)

// Registry keeps a mapping from adapter names to their implementations.
type Registry struct {
	adapters map[string]ports.SourceAdapter
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: map[string]ports.SourceAdapter{}}
}

// Register adds or replaces an adapter.
func (r *Registry) Register(adapter ports.SourceAdapter) {
	if r.adapters == nil {
		r.adapters = map[string]ports.SourceAdapter{}
	}
	r.adapters[adapter.Name()] = adapter
}

// Resolve returns an adapter by name or an error if it is absent.
func (r *Registry) Resolve(name string) (ports.SourceAdapter, error) {
	if adapter, ok := r.adapters[name]; ok {
		return adapter, nil
	}
	return nil, fmt.Errorf("source %s is not registered", name)
}

// All returns every adapter ordered by name for deterministic fan-out.
func (r *Registry) All() []ports.SourceAdapter {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ports.SourceAdapter, 0, len(names))
	for _, name := range names {
		out = append(out, r.adapters[name])
	}
	return out
}
