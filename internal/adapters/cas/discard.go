package cas

import (
	"go.trai.ch/sling/internal/core/domain"
	"go.trai.ch/sling/internal/core/ports"
)

var _ ports.BuildCache = Discard{}

// Discard is a BuildCache that never hits and drops every write. It backs --no-cache.
type Discard struct{}

// Get always misses.
func (Discard) Get(domain.ModuleID) (*domain.CacheEntry, error) { return nil, nil }

// Put drops the entry.
func (Discard) Put(domain.CacheEntry) error { return nil }

// Delete is a no-op.
func (Discard) Delete(domain.ModuleID) error { return nil }
