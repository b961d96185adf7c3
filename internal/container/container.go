// Package container assembles the importable archive: the collection
// database, the media manifest and the numbered media entries.
package container

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/klauspost/compress/zip"

	"github.com/conorfennell/ankipack/internal/media"
)

const (
	// CollectionEntry holds the SQLite collection database.
	CollectionEntry = "collection.anki2"
	// ManifestEntry holds the JSON media manifest.
	ManifestEntry = "media"
)

// EntryError reports a failure to start or fill an archive entry.
type EntryError struct {
	Entry string
	Err   error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("failed to write archive entry %q: %v", e.Entry, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// Write streams the archive to w. Entries are written in order: the
// collection, the manifest, then one entry per media index. Nothing already
// flushed to w is undone on failure.
//
// Failures of the archive or of w are *EntryError. Failures reading the
// collection or a media file are returned as they are, and a manifest that
// cannot be encoded is a *media.EncodeError.
func Write(w io.Writer, collection io.Reader, manifest media.Manifest, entries []media.Entry) error {
	zw := zip.NewWriter(w)

	if err := writeEntry(zw, CollectionEntry, collection); err != nil {
		return err
	}

	manifestJSON, err := manifest.Encode()
	if err != nil {
		return err
	}
	if err := writeBytes(zw, ManifestEntry, manifestJSON); err != nil {
		return err
	}

	for _, e := range entries {
		data, err := e.File.Bytes()
		if err != nil {
			return err
		}
		if err := writeBytes(zw, e.Key(), data); err != nil {
			return err
		}
		slog.Debug("wrote media entry", "entry", e.Key(), "name", e.File.Name(), "bytes", len(data))
	}

	if err := zw.Close(); err != nil {
		return &EntryError{Entry: "central directory", Err: err}
	}
	return nil
}

// sourceReader remembers the last read failure so copy errors can be told
// apart from archive errors.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		s.err = err
	}
	return n, err
}

func writeEntry(zw *zip.Writer, name string, r io.Reader) error {
	fw, err := zw.Create(name)
	if err != nil {
		return &EntryError{Entry: name, Err: err}
	}
	src := &sourceReader{r: r}
	if _, err := io.Copy(fw, src); err != nil {
		if src.err != nil {
			return fmt.Errorf("failed to read %s: %w", name, src.err)
		}
		return &EntryError{Entry: name, Err: err}
	}
	return nil
}

func writeBytes(zw *zip.Writer, name string, data []byte) error {
	fw, err := zw.Create(name)
	if err != nil {
		return &EntryError{Entry: name, Err: err}
	}
	if _, err := fw.Write(data); err != nil {
		return &EntryError{Entry: name, Err: err}
	}
	return nil
}
