package ports

import "go.trai.ch/sling/internal/core/domain"

// BuildCache stores transform results per module.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type BuildCache interface {
	// Get retrieves the entry for id.
	// Returns nil, nil if not found.
	Get(id domain.ModuleID) (*domain.CacheEntry, error)

	// Put stores an entry.
	Put(entry domain.CacheEntry) error

	// Delete removes the entry for id, if any.
	Delete(id domain.ModuleID) error
}

// BuildCacheFactory opens the BuildCache of the project rooted at root.
type BuildCacheFactory func(root string) BuildCache
