package transform

import (
	"slices"
	"sync"

	"go.trai.ch/sling/internal/core/ports"
)

var _ ports.TransformRegistry = (*Registry)(nil)

// Registry maps rule names to transforms.
type Registry struct {
	mu         sync.RWMutex
	transforms map[string]ports.Transformer
}

// NewRegistry creates a Registry holding the given transforms.
func NewRegistry(transforms ...ports.Transformer) *Registry {
	r := &Registry{transforms: make(map[string]ports.Transformer, len(transforms))}
	for _, t := range transforms {
		r.Register(t)
	}
	return r
}

// NewDefaultRegistry creates a Registry with every built-in transform.
func NewDefaultRegistry(hasher ports.Hasher) *Registry {
	return NewRegistry(
		NewESBuild(),
		NewJSON(),
		NewCSS(),
		NewAsset(hasher),
		NewRaw(),
	)
}

// Register adds t, replacing any transform of the same name.
func (r *Registry) Register(t ports.Transformer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transforms[t.Name()] = t
}

// Lookup implements ports.TransformRegistry.
func (r *Registry) Lookup(name string) (ports.Transformer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transforms[name]
	return t, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.transforms))
	for name := range r.transforms {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
