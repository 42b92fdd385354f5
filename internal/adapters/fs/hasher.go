package fs

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/sling/internal/core/domain"
	"go.trai.ch/sling/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Hasher = (*Hasher)(nil)

// separator delimits hashed parts so that ("ab", "c") and ("a", "bc") differ.
var separator = []byte{0}

// Hasher implements the Hasher interface using xxhash.
type Hasher struct{}

// NewHasher creates a new Hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// HashBytes returns the hex digest of the given parts, NUL separated.
func (h *Hasher) HashBytes(parts ...[]byte) string {
	digest := xxhash.New()
	for i, part := range parts {
		if i > 0 {
			_, _ = digest.Write(separator)
		}
		_, _ = digest.Write(part)
	}
	return format(digest.Sum64())
}

// HashStrings returns the hex digest of the given strings, NUL separated.
func (h *Hasher) HashStrings(parts ...string) string {
	digest := xxhash.New()
	for i, part := range parts {
		if i > 0 {
			_, _ = digest.Write(separator)
		}
		_, _ = digest.WriteString(part)
	}
	return format(digest.Sum64())
}

// HashFile returns the hex digest of the file's content.
func (h *Hasher) HashFile(path string) (string, error) {
	return ComputeFileHash(path)
}

// ComputeFileHash streams the file at path through xxhash.
func ComputeFileHash(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // paths come from the module graph
	if err != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrFileOpenFailed, err.Error()), "path", path)
	}
	defer func() {
		_ = f.Close()
	}()

	digest := xxhash.New()
	if _, err := io.Copy(digest, f); err != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrFileHashFailed, err.Error()), "path", path)
	}
	return format(digest.Sum64()), nil
}

func format(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}
