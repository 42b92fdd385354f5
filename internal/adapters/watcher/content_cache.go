package watcher

import (
	"errors"
	iofs "io/fs"
	"os"
	"sync"

	"go.trai.ch/sling/internal/core/ports"
)

var _ ports.ContentCache = (*ContentCache)(nil)

// ContentCache drops watch events for files whose bytes did not change, which filters out
// editor save-without-edit and touch noise.
type ContentCache struct {
	mu     sync.Mutex
	hasher ports.Hasher
	hashes map[string]string
}

// NewContentCache creates an empty cache backed by the given hasher.
func NewContentCache(hasher ports.Hasher) *ContentCache {
	return &ContentCache{
		hasher: hasher,
		hashes: make(map[string]string),
	}
}

// Seed records the current hashes of the given files. Unreadable files are skipped.
func (c *ContentCache) Seed(paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, path := range paths {
		if hash, err := c.hasher.HashFile(path); err == nil {
			c.hashes[path] = hash
		}
	}
}

// Changed returns the subset of paths whose content differs from the recorded state.
// A file that disappeared counts as changed once. Paths that cannot be hashed for any
// other reason, such as directories, are ignored.
func (c *ContentCache) Changed(paths []string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var changed []string
	for _, path := range paths {
		previous, known := c.hashes[path]

		info, err := os.Stat(path)
		if errors.Is(err, iofs.ErrNotExist) {
			if known {
				delete(c.hashes, path)
				changed = append(changed, path)
			}
			continue
		}
		if err != nil || info.IsDir() {
			continue
		}

		hash, err := c.hasher.HashFile(path)
		switch {
		case err != nil:
			continue
		case !known || previous != hash:
			c.hashes[path] = hash
			changed = append(changed, path)
		}
	}
	return changed
}
