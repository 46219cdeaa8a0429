package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchivePreview(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.zip")
	writeTestZip(t, path, map[string]string{
		"top.txt":        "abc",
		"a/b/deep.txt":   "12345",
		"a/sibling.json": "{}",
	})

	preview, err := ArchivePreview(path)
	require.NoError(t, err)

	top, ok := preview["top.txt"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, top["is_dir"])
	assert.Equal(t, uint64(3), top["size"])

	a, ok := preview["a"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, a["is_dir"])
	assert.Contains(t, a, "sibling.json")

	b, ok := a["b"].(map[string]any)
	require.True(t, ok)
	deep, ok := b["deep.txt"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, uint64(5), deep["size"])
}

func TestArchivePreviewRejectsNonZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(path, []byte("not an archive"), 0o644))

	_, err := ArchivePreview(path)
	assert.Error(t, err)
}
