// Package anki serializes decks, notes, cards and review history into an
// importable .apkg container for a chosen collection schema version.
package anki

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/conorfennell/ankipack/internal/container"
	"github.com/conorfennell/ankipack/internal/idalloc"
	"github.com/conorfennell/ankipack/internal/media"
	"github.com/conorfennell/ankipack/internal/schema"
	"github.com/conorfennell/ankipack/internal/storage"
)

// Package is everything written into one container. A Package must not be
// written by two goroutines at once nor mutated during a write.
type Package struct {
	Decks []*Deck
	Media []media.File

	Configs     []ConfigEntry
	DeckConfigs []DeckConfigEntry
	DeckInfos   []DeckInfoEntry
	Notetypes   []NotetypeEntry
	Fields      []FieldEntry
	Templates   []TemplateEntry
	Graves      []GraveEntry
	Tags        []TagEntry

	Overrides CollectionOverrides
	// SchemaVersion selects the table layout. Zero means schema.DefaultVersion.
	SchemaVersion int
}

// NewPackage returns a package holding decks and media.
func NewPackage(decks []*Deck, files ...media.File) *Package {
	return &Package{Decks: decks, Media: files}
}

// NewPackageFromPaths returns a package whose media are read from paths when
// the package is written.
func NewPackageFromPaths(decks []*Deck, paths ...string) *Package {
	files := make([]media.File, len(paths))
	for i, p := range paths {
		files[i] = media.Path(p)
	}
	return NewPackage(decks, files...)
}

// AddConfigEntry adds a config table row.
func (p *Package) AddConfigEntry(e ConfigEntry) { p.Configs = append(p.Configs, e) }

// AddDeckConfigEntry adds a deck_config table row.
func (p *Package) AddDeckConfigEntry(e DeckConfigEntry) { p.DeckConfigs = append(p.DeckConfigs, e) }

// AddDeckInfoEntry adds a decks table row.
func (p *Package) AddDeckInfoEntry(e DeckInfoEntry) { p.DeckInfos = append(p.DeckInfos, e) }

// AddNotetypeEntry adds a notetypes table row.
func (p *Package) AddNotetypeEntry(e NotetypeEntry) { p.Notetypes = append(p.Notetypes, e) }

// AddFieldEntry adds a fields table row.
func (p *Package) AddFieldEntry(e FieldEntry) { p.Fields = append(p.Fields, e) }

// AddTemplateEntry adds a templates table row.
func (p *Package) AddTemplateEntry(e TemplateEntry) { p.Templates = append(p.Templates, e) }

// AddGraveEntry adds a tombstone.
func (p *Package) AddGraveEntry(e GraveEntry) { p.Graves = append(p.Graves, e) }

// AddTagEntry adds a tags table row.
func (p *Package) AddTagEntry(e TagEntry) { p.Tags = append(p.Tags, e) }

// Write writes the container to w using the current time.
func (p *Package) Write(w io.Writer) error {
	return p.WriteTimestamp(w, now())
}

// WriteToFile creates path and writes the container to it.
func (p *Package) WriteToFile(path string) error {
	return p.WriteToFileTimestamp(path, now())
}

// WriteToFileTimestamp creates path and writes the container to it using
// timestamp, in seconds since the epoch.
func (p *Package) WriteToFileTimestamp(path string, timestamp float64) error {
	f, err := os.Create(path)
	if err != nil {
		return newError(KindIO, "create "+path, err)
	}
	if err := p.WriteTimestamp(f, timestamp); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return newError(KindIO, "close "+path, err)
	}
	return nil
}

// WriteTimestamp writes the container to w using timestamp, in seconds
// since the epoch. The timestamp seeds the id allocator and every
// modification time.
//
// The database phase runs in one transaction on a private temporary file.
// Archive assembly follows; on failure bytes already written to w stay
// written.
func (p *Package) WriteTimestamp(w io.Writer, timestamp float64) error {
	s := schema.For(p.SchemaVersion)
	ids := idalloc.New(timestamp)
	slog.Debug("writing package", "schema", s.String(), "decks", len(p.Decks), "media", len(p.Media))

	tmp, err := os.CreateTemp("", "ankipack-*.anki2")
	if err != nil {
		return newError(KindIO, "create temporary collection", err)
	}
	path := tmp.Name()
	defer os.Remove(path)
	if err := tmp.Close(); err != nil {
		return newError(KindIO, "close temporary collection", err)
	}

	if err := p.writeCollection(path, s, timestamp, ids); err != nil {
		return err
	}

	collection, err := os.Open(path)
	if err != nil {
		return newError(KindIO, "reopen temporary collection", err)
	}
	defer collection.Close()

	entries := media.Index(p.Media)
	if err := container.Write(w, collection, media.NewManifest(entries), entries); err != nil {
		return newError(containerErrorKind(err), "write container", err)
	}
	slog.Debug("package written", "notes_and_cards", ids.Issued(), "media", len(entries))
	return nil
}

// writeCollection runs the whole database phase in one transaction.
func (p *Package) writeCollection(path string, s schema.Schema, timestamp float64, ids *idalloc.Allocator) error {
	db, err := storage.Open(path, s)
	if err != nil {
		return newError(KindDatabase, "open collection", err)
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return newError(KindDatabase, "create schema", err)
	}
	defer tx.Rollback()

	// Models are described before any note is mapped so an invalid model
	// aborts the write early.
	models, err := collectModels(p.Decks, timestamp)
	if err != nil {
		return err
	}

	if s.HasSideTables() {
		if err := p.writeSideTables(tx, timestamp, models); err != nil {
			return newError(KindDatabase, "write side tables", err)
		}
	} else if p.hasSideEntries() {
		slog.Warn("side-table entries ignored below schema version 12", "schema", s.String())
	}

	for _, g := range p.Graves {
		if err := tx.InsertGrave(storage.GraveRow{ObjectID: g.ObjectID, Kind: g.Kind, USN: g.USN}); err != nil {
			return newError(KindDatabase, "write graves", err)
		}
	}

	for _, d := range p.Decks {
		if err := d.writeNotes(tx, timestamp, ids); err != nil {
			return newError(KindDatabase, fmt.Sprintf("write deck %d", d.ID), err)
		}
	}

	b := &collectionBuilder{
		schema:      s,
		timestamp:   timestamp,
		overrides:   p.Overrides,
		decks:       p.Decks,
		models:      models,
		configs:     p.Configs,
		deckConfigs: p.DeckConfigs,
	}
	row, err := b.build()
	if err != nil {
		return err
	}
	if err := tx.InsertCollection(row); err != nil {
		return newError(KindDatabase, "write collection row", err)
	}

	if err := tx.Commit(); err != nil {
		return newError(KindDatabase, "commit collection", err)
	}
	logRowCounts(db)
	if err := db.Close(); err != nil {
		return newError(KindDatabase, "close collection", err)
	}
	return nil
}

// containerErrorKind classifies a container.Write failure: archive failures
// are container errors, manifest encoding is serialization and anything else
// is a read of the collection or a media file.
func containerErrorKind(err error) Kind {
	var entryErr *container.EntryError
	var encodeErr *media.EncodeError
	switch {
	case errors.As(err, &entryErr):
		return KindContainer
	case errors.As(err, &encodeErr):
		return KindSerialization
	default:
		return KindIO
	}
}

func (p *Package) hasSideEntries() bool {
	return len(p.Configs)+len(p.DeckConfigs)+len(p.DeckInfos)+len(p.Notetypes)+
		len(p.Fields)+len(p.Templates)+len(p.Tags) > 0
}

// writeSideTables writes the explicit side-table entries, then a decks row
// for every package deck and the Default deck not already described, so the
// decks table and the legacy deck blob cover the same ids.
func (p *Package) writeSideTables(tx *storage.Tx, timestamp float64, models map[int64]ModelDBEntry) error {
	for _, c := range p.Configs {
		if err := tx.InsertConfig(storage.ConfigRow{Key: c.Key, USN: c.USN, MtimeSecs: c.MtimeSecs, Val: c.Val}); err != nil {
			return err
		}
	}
	for _, c := range p.DeckConfigs {
		if err := tx.InsertDeckConfig(storage.DeckConfigRow{ID: c.ID, Name: c.Name, MtimeSecs: c.MtimeSecs, USN: c.USN, Config: c.Config}); err != nil {
			return err
		}
	}

	described := make(map[int64]bool)
	for _, d := range p.DeckInfos {
		described[d.ID] = true
		if err := tx.InsertDeck(storage.DeckRow{ID: d.ID, Name: d.Name, MtimeSecs: d.MtimeSecs, USN: d.USN, Common: d.Common, Kind: d.Kind}); err != nil {
			return err
		}
	}
	decks := append([]*Deck{}, p.Decks...)
	decks = append(decks, NewDeck(DefaultDeckID, defaultDeckName, ""))
	for _, d := range decks {
		if described[d.ID] {
			continue
		}
		described[d.ID] = true
		row := storage.DeckRow{
			ID:        d.ID,
			Name:      strings.ReplaceAll(d.Name, "::", "\x1f"),
			MtimeSecs: int64(timestamp),
			USN:       USNUnsynced,
			Kind:      normalDeckKind,
		}
		if err := tx.InsertDeck(row); err != nil {
			return err
		}
	}

	notetypes := make(map[int64]bool)
	for _, n := range p.Notetypes {
		notetypes[n.ID] = true
		if err := tx.InsertNotetype(storage.NotetypeRow{ID: n.ID, Name: n.Name, MtimeSecs: n.MtimeSecs, USN: n.USN, Config: n.Config}); err != nil {
			return err
		}
	}
	for _, f := range p.Fields {
		if err := tx.InsertField(storage.FieldRow{NotetypeID: f.NotetypeID, Ord: f.Ord, Name: f.Name, Config: f.Config}); err != nil {
			return err
		}
	}
	for _, t := range p.Templates {
		if err := tx.InsertTemplate(storage.TemplateRow{NotetypeID: t.NotetypeID, Ord: t.Ord, Name: t.Name, MtimeSecs: t.MtimeSecs, USN: t.USN, Config: t.Config}); err != nil {
			return err
		}
	}
	for _, t := range p.Tags {
		if err := tx.InsertTag(storage.TagRow{Tag: t.Tag, USN: t.USN, Collapsed: t.Collapsed, Config: t.Config}); err != nil {
			return err
		}
	}

	if tx.Schema().EmptyLegacyBlobs() {
		for id, m := range models {
			if !notetypes[id] {
				slog.Warn("model has no notetype row and no legacy blob to live in", "model", m.Name, "id", id)
			}
		}
	}
	return nil
}

// logRowCounts reports the committed row counts at debug level.
func logRowCounts(db *storage.DB) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	attrs := []any{"schema", db.Schema().String()}
	for _, table := range []string{"notes", "cards", "revlog", "graves"} {
		n, err := db.Count(table)
		if err != nil {
			slog.Debug("failed to count rows", "table", table, "error", err)
			return
		}
		attrs = append(attrs, table, n)
	}
	slog.Debug("collection committed", attrs...)
}

func now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
