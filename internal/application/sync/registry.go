package sync

import (
	std "sync"

	domain "github.com/omnisync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Transformer & Adapter Registries
// ---------------------------------------------------------------------------

// TransformerRegistry holds the per-platform transformers. Adding a platform
// means registering a transformer here and an adapter in the adapter
// registry; the engine itself never changes.
type TransformerRegistry struct {
	mu           std.RWMutex
	transformers map[string]domain.Transformer
}

// NewTransformerRegistry creates an empty transformer registry
func NewTransformerRegistry() *TransformerRegistry {
	return &TransformerRegistry{transformers: make(map[string]domain.Transformer)}
}

// Register adds a transformer keyed by its platform code, replacing any
// previous registration for that platform
func (r *TransformerRegistry) Register(t domain.Transformer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transformers[t.Platform()] = t
}

// Get returns the transformer for a platform code
func (r *TransformerRegistry) Get(platform string) (domain.Transformer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transformers[platform]
	if !ok {
		return nil, domain.ErrUnknownTransformer
	}
	return t, nil
}

// AdapterRegistry is the process-wide map of platform adapters, constructed
// at startup and injected into the engine
type AdapterRegistry struct {
	mu       std.RWMutex
	adapters map[string]domain.PlatformAdapter
}

// NewAdapterRegistry creates an empty adapter registry
func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{adapters: make(map[string]domain.PlatformAdapter)}
}

// Register adds an adapter keyed by its platform code
func (r *AdapterRegistry) Register(a domain.PlatformAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Platform()] = a
}

// Get returns the adapter for a platform code
func (r *AdapterRegistry) Get(platform string) (domain.PlatformAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[platform]
	if !ok {
		return nil, domain.ErrUnknownAdapter
	}
	return a, nil
}

// List returns all registered adapters
func (r *AdapterRegistry) List() []domain.PlatformAdapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.PlatformAdapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	return out
}

// Ensure AdapterRegistry satisfies the domain port
var _ domain.AdapterRegistry = (*AdapterRegistry)(nil)
