package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sling/internal/adapters/fs"
)

func TestVerifier_VerifyOutputs(t *testing.T) {
	tmpDir := t.TempDir()
	verifier := fs.NewVerifier()

	writeTree(t, tmpDir, map[string]string{
		"dist/main.3f2a9c1b.js": "",
		"dist/manifest.json":    "{}",
	})

	exists, err := verifier.VerifyOutputs(tmpDir, []string{"dist/main.3f2a9c1b.js", "dist/manifest.json"})
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = verifier.VerifyOutputs(tmpDir, []string{"dist/main.3f2a9c1b.js", "dist/vendor.0000.js"})
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = verifier.VerifyOutputs(tmpDir, nil)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestVerifier_VerifyOutputs_StatError(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	// A path that descends through a regular file is ENOTDIR, not ENOENT.
	_, err := fs.NewVerifier().VerifyOutputs(tmpDir, []string{"file/child"})
	if err == nil {
		t.Skip("platform reports missing file for ENOTDIR")
	}
	assert.Contains(t, err.Error(), "failed to stat output")
}
