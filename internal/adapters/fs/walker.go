// Package fs provides file system adapters for walking, hashing and verifying files.
package fs

import (
	"io/fs"
	"iter"
	"path/filepath"
)

// DefaultIgnores are directory names never considered project sources.
var DefaultIgnores = []string{"node_modules", ".sling"}

// Walker provides file walking functionality.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// WalkFiles yields every regular file below root, skipping VCS metadata and entries whose
// base name matches one of the ignore patterns. Yielded paths include root.
func (w *Walker) WalkFiles(root string, ignores []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if skip, action := w.shouldSkip(path != root, d, ignores); skip {
				return action
			}

			if d.IsDir() {
				return nil
			}

			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// WalkDirs yields every directory below root, root included, honoring the same ignore rules
// as WalkFiles.
func (w *Walker) WalkDirs(root string, ignores []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if skip, action := w.shouldSkip(path != root, d, ignores); skip {
				return action
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// shouldSkip reports whether the entry is excluded. Directories are pruned with SkipDir,
// files are skipped by returning nil.
func (w *Walker) shouldSkip(nested bool, d fs.DirEntry, ignores []string) (bool, error) {
	if !nested {
		return false, nil
	}
	name := d.Name()

	if d.IsDir() && (name == ".git" || name == ".jj") {
		return true, filepath.SkipDir
	}

	for _, ignore := range ignores {
		if matched, _ := filepath.Match(ignore, name); !matched {
			continue
		}
		if d.IsDir() {
			return true, filepath.SkipDir
		}
		return true, nil
	}
	return false, nil
}
