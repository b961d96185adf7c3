package storage

import (
	"database/sql"
	"fmt"

	"github.com/conorfennell/ankipack/internal/schema"
)

// NoteRow is one row of the notes table.
type NoteRow struct {
	ID        int64
	GUID      string
	ModelID   int64
	Mod       int64
	USN       int64
	Tags      string
	Fields    string
	SortField string
	Checksum  int64
	Flags     int64
	Data      string
}

// CardRow is one row of the cards table, in column order.
type CardRow struct {
	ID             int64
	NoteID         int64
	DeckID         int64
	Ord            int64
	Mod            int64
	USN            int64
	Type           int64
	Queue          int64
	Due            int64
	Interval       int64
	Factor         int64
	Reps           int64
	Lapses         int64
	Left           int64
	OriginalDue    int64
	OriginalDeckID int64
	Flags          int64
	Data           string
}

// RevlogRow is one row of the revlog table.
type RevlogRow struct {
	ID           int64
	CardID       int64
	USN          int64
	Ease         int64
	Interval     int64
	LastInterval int64
	Factor       int64
	Time         int64
	Type         int64
}

// CollectionRow is the single row of the col table.
type CollectionRow struct {
	Created     int64
	Modified    int64
	SchemaMod   int64
	Version     int64
	Dirty       int64
	USN         int64
	LastSync    int64
	Conf        string
	Models      string
	Decks       string
	DeckConfigs string
	Tags        string
}

// GraveRow is a tombstone.
type GraveRow struct {
	ObjectID int64
	Kind     int64
	USN      int64
}

// ConfigRow is one row of the config table.
type ConfigRow struct {
	Key       string
	USN       int64
	MtimeSecs int64
	Val       []byte
}

// DeckConfigRow is one row of the deck_config table.
type DeckConfigRow struct {
	ID        int64
	Name      string
	MtimeSecs int64
	USN       int64
	Config    []byte
}

// DeckRow is one row of the decks table.
type DeckRow struct {
	ID        int64
	Name      string
	MtimeSecs int64
	USN       int64
	Common    []byte
	Kind      []byte
}

// NotetypeRow is one row of the notetypes table.
type NotetypeRow struct {
	ID        int64
	Name      string
	MtimeSecs int64
	USN       int64
	Config    []byte
}

// FieldRow is one row of the fields table.
type FieldRow struct {
	NotetypeID int64
	Ord        int64
	Name       string
	Config     []byte
}

// TemplateRow is one row of the templates table.
type TemplateRow struct {
	NotetypeID int64
	Ord        int64
	Name       string
	MtimeSecs  int64
	USN        int64
	Config     []byte
}

// TagRow is one row of the tags table. A nil Config is stored as NULL.
type TagRow struct {
	Tag       string
	USN       int64
	Collapsed bool
	Config    []byte
}

// Tx is the transaction every row of a write goes through.
type Tx struct {
	tx     *sql.Tx
	schema schema.Schema
}

// Schema returns the schema the transaction writes.
func (t *Tx) Schema() schema.Schema {
	return t.schema
}

// Commit makes the write durable.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback abandons the write. It is a no-op after Commit.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if err != nil && err != sql.ErrTxDone {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

// InsertCollection inserts the col row.
func (t *Tx) InsertCollection(r CollectionRow) error {
	_, err := t.tx.Exec(`
		INSERT INTO col (id, crt, mod, scm, ver, dty, usn, ls, conf, models, decks, dconf, tags)
		VALUES (NULL, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.Created, r.Modified, r.SchemaMod, r.Version, r.Dirty, r.USN, r.LastSync,
		r.Conf, r.Models, r.Decks, r.DeckConfigs, r.Tags,
	)
	if err != nil {
		return fmt.Errorf("failed to insert collection row: %w", err)
	}
	return nil
}

// InsertNote inserts a notes row.
func (t *Tx) InsertNote(r NoteRow) error {
	_, err := t.tx.Exec(`INSERT INTO notes VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.GUID, r.ModelID, r.Mod, r.USN, r.Tags, r.Fields, r.SortField, r.Checksum, r.Flags, r.Data,
	)
	if err != nil {
		return fmt.Errorf("failed to insert note %d: %w", r.ID, err)
	}
	return nil
}

// InsertCard inserts a cards row.
func (t *Tx) InsertCard(r CardRow) error {
	_, err := t.tx.Exec(`INSERT INTO cards VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.NoteID, r.DeckID, r.Ord, r.Mod, r.USN,
		r.Type, r.Queue, r.Due, r.Interval, r.Factor, r.Reps, r.Lapses, r.Left,
		r.OriginalDue, r.OriginalDeckID, r.Flags, r.Data,
	)
	if err != nil {
		return fmt.Errorf("failed to insert card %d: %w", r.ID, err)
	}
	return nil
}

// InsertRevlog inserts a revlog row.
func (t *Tx) InsertRevlog(r RevlogRow) error {
	_, err := t.tx.Exec(`INSERT INTO revlog VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CardID, r.USN, r.Ease, r.Interval, r.LastInterval, r.Factor, r.Time, r.Type,
	)
	if err != nil {
		return fmt.Errorf("failed to insert revlog %d for card %d: %w", r.ID, r.CardID, err)
	}
	return nil
}

// InsertGrave inserts a graves row in the layout of the schema.
func (t *Tx) InsertGrave(r GraveRow) error {
	var err error
	if t.schema.KeyedGraves() {
		_, err = t.tx.Exec(`INSERT INTO graves (oid, type, usn) VALUES (?, ?, ?)`, r.ObjectID, r.Kind, r.USN)
	} else {
		_, err = t.tx.Exec(`INSERT INTO graves (usn, oid, type) VALUES (?, ?, ?)`, r.USN, r.ObjectID, r.Kind)
	}
	if err != nil {
		return fmt.Errorf("failed to insert grave %d/%d: %w", r.ObjectID, r.Kind, err)
	}
	return nil
}

// InsertConfig inserts or replaces a config row.
func (t *Tx) InsertConfig(r ConfigRow) error {
	_, err := t.tx.Exec(`INSERT OR REPLACE INTO config (key, usn, mtime_secs, val) VALUES (?, ?, ?, ?)`,
		r.Key, r.USN, r.MtimeSecs, blob(r.Val),
	)
	if err != nil {
		return fmt.Errorf("failed to insert config %q: %w", r.Key, err)
	}
	return nil
}

// InsertDeckConfig inserts or replaces a deck_config row.
func (t *Tx) InsertDeckConfig(r DeckConfigRow) error {
	_, err := t.tx.Exec(`INSERT OR REPLACE INTO deck_config (id, name, mtime_secs, usn, config) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.MtimeSecs, r.USN, blob(r.Config),
	)
	if err != nil {
		return fmt.Errorf("failed to insert deck config %d: %w", r.ID, err)
	}
	return nil
}

// InsertDeck inserts a decks row.
func (t *Tx) InsertDeck(r DeckRow) error {
	_, err := t.tx.Exec(`INSERT INTO decks (id, name, mtime_secs, usn, common, kind) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.MtimeSecs, r.USN, blob(r.Common), blob(r.Kind),
	)
	if err != nil {
		return fmt.Errorf("failed to insert deck %d: %w", r.ID, err)
	}
	return nil
}

// InsertNotetype inserts a notetypes row.
func (t *Tx) InsertNotetype(r NotetypeRow) error {
	_, err := t.tx.Exec(`INSERT INTO notetypes (id, name, mtime_secs, usn, config) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.MtimeSecs, r.USN, blob(r.Config),
	)
	if err != nil {
		return fmt.Errorf("failed to insert notetype %d: %w", r.ID, err)
	}
	return nil
}

// InsertField inserts a fields row.
func (t *Tx) InsertField(r FieldRow) error {
	_, err := t.tx.Exec(`INSERT INTO fields (ntid, ord, name, config) VALUES (?, ?, ?, ?)`,
		r.NotetypeID, r.Ord, r.Name, blob(r.Config),
	)
	if err != nil {
		return fmt.Errorf("failed to insert field %d/%d: %w", r.NotetypeID, r.Ord, err)
	}
	return nil
}

// InsertTemplate inserts a templates row.
func (t *Tx) InsertTemplate(r TemplateRow) error {
	_, err := t.tx.Exec(`INSERT INTO templates (ntid, ord, name, mtime_secs, usn, config) VALUES (?, ?, ?, ?, ?, ?)`,
		r.NotetypeID, r.Ord, r.Name, r.MtimeSecs, r.USN, blob(r.Config),
	)
	if err != nil {
		return fmt.Errorf("failed to insert template %d/%d: %w", r.NotetypeID, r.Ord, err)
	}
	return nil
}

// InsertTag inserts a tags row.
func (t *Tx) InsertTag(r TagRow) error {
	var config any
	if r.Config != nil {
		config = r.Config
	}
	_, err := t.tx.Exec(`INSERT INTO tags (tag, usn, collapsed, config) VALUES (?, ?, ?, ?)`,
		r.Tag, r.USN, r.Collapsed, config,
	)
	if err != nil {
		return fmt.Errorf("failed to insert tag %q: %w", r.Tag, err)
	}
	return nil
}

// blob keeps nil slices out of not-null blob columns.
func blob(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
