package fs_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sling/internal/adapters/fs"
	"go.trai.ch/sling/internal/core/domain"
)

func TestHasher_HashFile(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "app.js")
	hasher := fs.NewHasher()

	require.NoError(t, os.WriteFile(file, []byte("export const a = 1"), domain.PrivateFilePerm))
	first, err := hasher.HashFile(file)
	require.NoError(t, err)

	again, err := hasher.HashFile(file)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	require.NoError(t, os.WriteFile(file, []byte("export const a = 2"), domain.PrivateFilePerm))
	changed, err := hasher.HashFile(file)
	require.NoError(t, err)
	assert.NotEqual(t, first, changed, "hash should follow content")
	assert.Len(t, changed, 16)
}

func TestHasher_HashFile_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.js")

	_, err := fs.NewHasher().HashFile(missing)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrFileOpenFailed))

	path, ok := domain.Meta(err, "path")
	require.True(t, ok)
	assert.Equal(t, missing, path)
}

func TestHasher_PartsAreSeparated(t *testing.T) {
	hasher := fs.NewHasher()

	assert.NotEqual(t, hasher.HashStrings("ab", "c"), hasher.HashStrings("a", "bc"))
	assert.NotEqual(t, hasher.HashStrings("ab"), hasher.HashStrings("a", "b"))
	assert.Equal(t, hasher.HashStrings("a", "b"), hasher.HashBytes([]byte("a"), []byte("b")))
}
