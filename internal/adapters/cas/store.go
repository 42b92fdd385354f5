// Package cas persists per-module transform results under the project state directory.
package cas

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/sling/internal/core/domain"
	"go.trai.ch/sling/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.BuildCache = (*Store)(nil)

// Store implements ports.BuildCache using a file-per-module strategy.
type Store struct {
	dir string
}

// NewStore creates a Store for the project rooted at root. Entries live in .sling/cache.
func NewStore(root string) *Store {
	return NewStoreWithPath(filepath.Join(root, domain.DefaultCachePath()))
}

// NewStoreWithPath creates a Store backed by the given directory.
func NewStoreWithPath(dir string) *Store {
	return &Store{dir: dir}
}

// NewFromRoot is the ports.BuildCacheFactory of the file store.
func NewFromRoot(root string) ports.BuildCache {
	return NewStore(root)
}

// Dir returns the directory entries are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Get retrieves the cached entry for id.
func (s *Store) Get(id domain.ModuleID) (*domain.CacheEntry, error) {
	filename := s.filename(id)
	//nolint:gosec // Path is constructed from trusted directory and hashed filename
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(domain.ErrStoreReadFailed, err.Error()), "path", filename)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrStoreUnmarshalFailed, err.Error()), "path", filename)
	}

	// A digest collision on the filename would hand back another module's output.
	if entry.ID != id.String() {
		return nil, nil
	}
	return &entry, nil
}

// Put stores entry, replacing any previous entry of the same module.
func (s *Store) Put(entry domain.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return zerr.Wrap(domain.ErrStoreMarshalFailed, err.Error())
	}

	if err := os.MkdirAll(s.dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrStoreCreateFailed, err.Error()), "path", s.dir)
	}

	filename := s.filename(domain.ParseModuleID(entry.ID))
	tmp, err := os.CreateTemp(s.dir, ".entry-*")
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrStoreWriteFailed, err.Error()), "path", filename)
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr = errors.Join(werr, cerr); werr != nil {
		_ = os.Remove(tmp.Name())
		return zerr.With(zerr.Wrap(domain.ErrStoreWriteFailed, werr.Error()), "path", filename)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		_ = os.Remove(tmp.Name())
		return zerr.With(zerr.Wrap(domain.ErrStoreWriteFailed, err.Error()), "path", filename)
	}
	return nil
}

// Delete removes the entry for id. Deleting a missing entry is not an error.
func (s *Store) Delete(id domain.ModuleID) error {
	filename := s.filename(id)
	if err := os.Remove(filename); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(domain.ErrStoreWriteFailed, err.Error()), "path", filename)
	}
	return nil
}

func (s *Store) filename(id domain.ModuleID) string {
	hash := sha256.Sum256([]byte(id.String()))
	return filepath.Join(s.dir, hex.EncodeToString(hash[:])+".json")
}
