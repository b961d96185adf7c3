package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMainImplWritesPackage(t *testing.T) {
	dir := t.TempDir()
	notes := filepath.Join(dir, "capitals")
	require.NoError(t, os.MkdirAll(notes, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(notes, "europe.md"), []byte("Q: France?\nA: Paris\n\nQ: Spain?\nA: Madrid\n"), 0o644))
	picture := filepath.Join(dir, "map.png")
	require.NoError(t, os.WriteFile(picture, []byte("PNG"), 0o644))
	out := filepath.Join(dir, "out.apkg")

	err := mainImpl([]string{
		"--output", out,
		"--source", notes,
		"--media", picture,
		"--schema-version", "18",
		"--timestamp", "1700000000",
		"--log-level", "error",
	})
	require.NoError(t, err)

	zr, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"collection.anki2", "media", "0"}, names)
}

func TestMainImplInvalidConfig(t *testing.T) {
	err := mainImpl([]string{"--source", t.TempDir()})
	assert.ErrorContains(t, err, "invalid configuration")
}
