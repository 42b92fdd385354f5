package emitter

import (
	"bytes"
	"os"
	"path/filepath"

	"go.trai.ch/sling/internal/core/domain"
	"go.trai.ch/zerr"
)

// fileWriter writes outputs below the output root and refuses to map two
// different contents to one path within a build.
type fileWriter struct {
	dir     string
	written map[string][]byte
	changed []string
}

func newFileWriter(dir string) *fileWriter {
	return &fileWriter{dir: dir, written: make(map[string][]byte)}
}

// write stores data at rel. Writing the same bytes to a path twice is a
// no-op; so is rewriting a file that already holds them.
func (w *fileWriter) write(rel string, data []byte) error {
	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		return zerr.With(zerr.Wrap(domain.ErrEmitFailed, "path escapes the output root"), "path", rel)
	}

	if prev, ok := w.written[rel]; ok {
		if bytes.Equal(prev, data) {
			return nil
		}
		return zerr.With(zerr.Wrap(domain.ErrEmitCollision, "different contents map to the same path"), "path", rel)
	}
	w.written[rel] = bytes.Clone(data)

	path := filepath.Join(w.dir, filepath.FromSlash(rel))
	if current, err := os.ReadFile(path); err == nil && bytes.Equal(current, data) {
		return nil
	}
	if err := writeAtomic(path, data); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrEmitFailed, err.Error()), "path", rel)
	}
	w.changed = append(w.changed, rel)
	return nil
}

// writeAtomic replaces path through a temporary file in the same directory,
// so readers see either the old or the new content.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.Wrap(err, "failed to create output directory")
	}

	tmp, err := os.CreateTemp(dir, ".sling-*")
	if err != nil {
		return zerr.Wrap(err, "failed to create temp file")
	}
	tmpName := tmp.Name()
	defer func() {
		if _, err := os.Stat(tmpName); err == nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return zerr.Wrap(err, "failed to write temp file")
	}
	if err := tmp.Close(); err != nil {
		return zerr.Wrap(err, "failed to close temp file")
	}
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return zerr.Wrap(err, "failed to chmod temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return zerr.Wrap(err, "failed to rename temp file")
	}
	return nil
}

// clean empties dir, keeping the directory itself.
func clean(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return zerr.With(zerr.Wrap(domain.ErrFailedToCleanOutput, err.Error()), "path", dir)
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return zerr.With(zerr.Wrap(domain.ErrFailedToCleanOutput, err.Error()), "path", path)
		}
	}
	return nil
}
