package domain

import "go.trai.ch/zerr"

var (
	// ErrUnresolvedSpecifier is returned when a specifier cannot be mapped to a module.
	ErrUnresolvedSpecifier = zerr.New("cannot resolve module specifier")

	// ErrInvalidPackageJSON is returned when a package manifest cannot be parsed.
	ErrInvalidPackageJSON = zerr.New("invalid package.json")

	// ErrTransformFailed is returned when a transform rejects its input.
	ErrTransformFailed = zerr.New("transform failed")

	// ErrUnknownTransform is returned when a rule references a transform that is not registered.
	ErrUnknownTransform = zerr.New("unknown transform")

	// ErrInvalidTransformOption is returned when a transform option has the wrong type or value.
	ErrInvalidTransformOption = zerr.New("invalid transform option")

	// ErrNoMatchingRule is returned when no transform rule matches a module.
	ErrNoMatchingRule = zerr.New("no transform rule matches module")

	// ErrUnknownEdgeKind is returned when decoding an unknown dependency kind.
	ErrUnknownEdgeKind = zerr.New("unknown edge kind")

	// ErrSourceReadFailed is returned when a module's source cannot be read.
	ErrSourceReadFailed = zerr.New("failed to read module source")

	// ErrGraphBuildFailed is returned when the module graph could not be completed.
	ErrGraphBuildFailed = zerr.New("module graph build failed")

	// ErrChunkCycle is returned when the chunk dependency graph contains a cycle.
	ErrChunkCycle = zerr.New("cycle detected between chunks")

	// ErrDuplicateEntry is returned when two entry points share a name.
	ErrDuplicateEntry = zerr.New("duplicate entry name")

	// ErrDuplicateChunk is returned when two chunks share a name.
	ErrDuplicateChunk = zerr.New("duplicate chunk name")

	// ErrNoEntries is returned when the configuration declares no entry points.
	ErrNoEntries = zerr.New("no entry points configured")

	// ErrEmitCollision is returned when two different contents map to the same output path.
	ErrEmitCollision = zerr.New("output path collision")

	// ErrEmitFailed is returned when an output file cannot be written.
	ErrEmitFailed = zerr.New("failed to emit output")

	// ErrManifestWriteFailed is returned when the manifest cannot be replaced.
	ErrManifestWriteFailed = zerr.New("failed to write manifest")

	// ErrOutputPathOutsideRoot is returned when the output root is not strictly inside the project root.
	ErrOutputPathOutsideRoot = zerr.New("output path is outside project root")

	// ErrFailedToCleanOutput is returned when removing stale output fails.
	ErrFailedToCleanOutput = zerr.New("failed to clean output directory")

	// ErrConfigNotFound is returned when the config file cannot be found.
	ErrConfigNotFound = zerr.New("could not find " + ConfigFileName)

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrInvalidConfig is returned when a config value fails validation.
	ErrInvalidConfig = zerr.New("invalid configuration")

	// ErrStoreCreateFailed is returned when the cache directory cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create cache directory")

	// ErrStoreReadFailed is returned when a cache entry cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read cache entry")

	// ErrStoreUnmarshalFailed is returned when a cache entry cannot be decoded.
	ErrStoreUnmarshalFailed = zerr.New("failed to unmarshal cache entry")

	// ErrStoreMarshalFailed is returned when a cache entry cannot be encoded.
	ErrStoreMarshalFailed = zerr.New("failed to marshal cache entry")

	// ErrStoreWriteFailed is returned when a cache entry cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write cache entry")

	// ErrFileOpenFailed is returned when a file cannot be opened.
	ErrFileOpenFailed = zerr.New("failed to open file")

	// ErrFileHashFailed is returned when hashing a file fails.
	ErrFileHashFailed = zerr.New("failed to hash file content")

	// ErrBuildFailed is returned when a build generation does not complete successfully.
	ErrBuildFailed = zerr.New("build failed")

	// ErrDiagnosticsFailed is returned in fail-fast mode when a checker reports errors.
	ErrDiagnosticsFailed = zerr.New("advisory checks reported errors")

	// ErrCheckerFailed is returned when a checker process cannot be started.
	ErrCheckerFailed = zerr.New("checker failed")

	// ErrWatcherFailed is returned when the filesystem watcher cannot start.
	ErrWatcherFailed = zerr.New("failed to start watcher")

	// ErrServerFailed is returned when the dev server stops unexpectedly.
	ErrServerFailed = zerr.New("dev server failed")
)

// Meta returns the metadata value stored under key anywhere in err's chain,
// including the branches of joined errors.
func Meta(err error, key string) (any, bool) {
	if err == nil {
		return nil, false
	}
	if z, ok := err.(*zerr.Error); ok {
		if v, ok := z.Metadata()[key]; ok {
			return v, true
		}
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			if v, ok := Meta(e, key); ok {
				return v, true
			}
		}
	case interface{ Unwrap() error }:
		return Meta(u.Unwrap(), key)
	}
	return nil, false
}
