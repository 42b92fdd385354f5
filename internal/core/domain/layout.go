package domain

import "path/filepath"

const (
	// StateDirName is the name of the internal project state directory.
	StateDirName = ".sling"

	// CacheDirName is the name of the module build cache directory.
	CacheDirName = "cache"

	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "sling.yaml"

	// ManifestFileName is the name of the manifest written to the output root.
	ManifestFileName = "manifest.json"

	// HTMLFileName is the name of the injected HTML page.
	HTMLFileName = "index.html"

	// HMRPath is the URL path of the hot update channel.
	HMRPath = "/__sling/hmr"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// DefaultStatePath returns the default root directory for sling metadata.
func DefaultStatePath() string {
	return StateDirName
}

// DefaultCachePath returns the default path of the module build cache.
// It joins .sling and cache.
func DefaultCachePath() string {
	return filepath.Join(StateDirName, CacheDirName)
}
