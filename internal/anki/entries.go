package anki

// Side-table entries are written verbatim for schema version 12 and above.
// Their blobs are opaque: they are stored as given and never decoded except
// when folded into the legacy JSON blobs of older revisions.

// ConfigEntry is a row of the config table.
type ConfigEntry struct {
	Key       string
	USN       int64
	MtimeSecs int64
	Val       []byte
}

// DeckConfigEntry is a row of the deck_config table.
type DeckConfigEntry struct {
	ID        int64
	Name      string
	MtimeSecs int64
	USN       int64
	Config    []byte
}

// DeckInfoEntry is a row of the decks table.
type DeckInfoEntry struct {
	ID        int64
	Name      string
	MtimeSecs int64
	USN       int64
	Common    []byte
	Kind      []byte
}

// NotetypeEntry is a row of the notetypes table.
type NotetypeEntry struct {
	ID        int64
	Name      string
	MtimeSecs int64
	USN       int64
	Config    []byte
}

// FieldEntry is a row of the fields table.
type FieldEntry struct {
	NotetypeID int64
	Ord        int64
	Name       string
	Config     []byte
}

// TemplateEntry is a row of the templates table.
type TemplateEntry struct {
	NotetypeID int64
	Ord        int64
	Name       string
	MtimeSecs  int64
	USN        int64
	Config     []byte
}

// Grave kinds.
const (
	GraveCard = 0
	GraveNote = 1
	GraveDeck = 2
)

// GraveEntry is a tombstone for a deleted card, note or deck.
type GraveEntry struct {
	ObjectID int64
	Kind     int64
	USN      int64
}

// TagEntry is a row of the tags table. A nil Config is stored as NULL.
type TagEntry struct {
	Tag       string
	USN       int64
	Collapsed bool
	Config    []byte
}

// CollectionOverrides replaces computed values of the collection row. Nil
// fields keep the computed value.
type CollectionOverrides struct {
	Created   *int64
	SchemaMod *int64
	Version   *int64
	USN       *int64
	LastSync  *int64
	// Legacy JSON blobs, honoured below schema version 16 only.
	Conf        *string
	Models      *string
	Decks       *string
	DeckConfigs *string
}
