package ports

// ContentCache remembers the last seen content hash of source files so that
// watch events without a content change can be dropped.
//
//go:generate mockgen -destination=mocks/mock_content_cache.go -package=mocks -source=content_cache.go
type ContentCache interface {
	// Seed records the current hashes of the given files.
	Seed(paths []string)
	// Changed returns the paths whose content differs from the last seen
	// hash, including removed files, and records the new state.
	Changed(paths []string) []string
}
