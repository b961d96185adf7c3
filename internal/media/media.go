// Package media indexes the attachments shipped alongside a collection.
package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/goccy/go-json"
)

// File is a media attachment, either a path on disk or inline bytes with an
// explicit display name.
type File struct {
	path   string
	name   string
	data   []byte
	inline bool
}

// Path returns a File read from disk when the container is written.
func Path(p string) File {
	return File{path: p}
}

// Inline returns a File whose contents are held in memory.
func Inline(name string, data []byte) File {
	return File{name: name, data: data, inline: true}
}

// Name is the file name the target application sees.
func (f File) Name() string {
	if f.inline {
		return f.name
	}
	return filepath.Base(f.path)
}

// IsInline reports whether the contents are held in memory.
func (f File) IsInline() bool {
	return f.inline
}

// Bytes returns the file contents. A path-based file is read on every call.
func (f File) Bytes() ([]byte, error) {
	if f.IsInline() {
		return f.data, nil
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read media file %s: %w", f.path, err)
	}
	return data, nil
}

// Entry is a media file at its position in the container.
type Entry struct {
	Index int
	File  File
}

// Key is the manifest key and archive entry name for the entry.
func (e Entry) Key() string {
	return strconv.Itoa(e.Index)
}

// Index assigns each file its zero-based position in files.
func Index(files []File) []Entry {
	entries := make([]Entry, len(files))
	for i, f := range files {
		entries[i] = Entry{Index: i, File: f}
	}
	return entries
}

// Manifest maps decimal entry names to display names.
type Manifest map[string]string

// NewManifest builds the manifest for entries.
func NewManifest(entries []Entry) Manifest {
	m := make(Manifest, len(entries))
	for _, e := range entries {
		m[e.Key()] = e.File.Name()
	}
	return m
}

// EncodeError reports a manifest that could not be encoded as JSON.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode media manifest: %v", e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Encode returns the manifest as a JSON object. Failures are *EncodeError.
func (m Manifest) Encode() ([]byte, error) {
	data, err := json.Marshal(map[string]string(m))
	if err != nil {
		return nil, &EncodeError{Err: err}
	}
	return data, nil
}
