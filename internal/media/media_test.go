package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexAndManifest(t *testing.T) {
	dir := t.TempDir()
	soundPath := filepath.Join(dir, "sound.mp3")
	require.NoError(t, os.WriteFile(soundPath, []byte("mp3"), 0o644))

	files := []File{
		Path(soundPath),
		Inline("image.jpg", []byte("jpg")),
		Path(filepath.Join(dir, "nested", "clip.ogg")),
	}
	entries := Index(files)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, i, e.Index)
	}

	m := NewManifest(entries)
	assert.Equal(t, Manifest{"0": "sound.mp3", "1": "image.jpg", "2": "clip.ogg"}, m)

	data, err := m.Encode()
	require.NoError(t, err)
	var decoded map[string]string
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 3)
}

func TestEmptyManifest(t *testing.T) {
	data, err := NewManifest(Index(nil)).Encode()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestBytes(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(p, []byte("hello"), 0o644))

	data, err := Path(p).Bytes()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	data, err = Inline("b.txt", []byte("inline")).Bytes()
	require.NoError(t, err)
	assert.Equal(t, "inline", string(data))

	_, err = Path(filepath.Join(dir, "missing")).Bytes()
	assert.Error(t, err)
}

func TestEmptyPathIsNotInline(t *testing.T) {
	f := Path("")
	assert.False(t, f.IsInline())
	_, err := f.Bytes()
	assert.Error(t, err)

	empty := Inline("empty.txt", nil)
	assert.True(t, empty.IsInline())
	data, err := empty.Bytes()
	require.NoError(t, err)
	assert.Empty(t, data)
}
