package anki

import (
	"fmt"
	"strings"

	"github.com/conorfennell/ankipack/internal/idalloc"
	"github.com/conorfennell/ankipack/internal/knol"
	"github.com/conorfennell/ankipack/internal/storage"
)

// fieldSeparator joins field values in the flds column.
const fieldSeparator = "\x1f"

// RowSink receives the rows produced while mapping notes and cards.
// *storage.Tx implements it.
type RowSink interface {
	InsertNote(storage.NoteRow) error
	InsertCard(storage.CardRow) error
	InsertRevlog(storage.RevlogRow) error
}

// Note is a set of field values rendered through a model. Field values are
// written as given; no HTML validation is performed.
type Note struct {
	model  *Model
	Fields []string
	Tags   []string
	// GUID defaults to a digest of the field values.
	GUID string
	// Cards defaults to one new card per template of the model.
	Cards []Card
}

// NewNote returns a note for model. The number of values must match the
// number of model fields.
func NewNote(model *Model, fields ...string) (*Note, error) {
	if model == nil {
		return nil, fmt.Errorf("note has no model")
	}
	if len(fields) != len(model.Fields) {
		return nil, fmt.Errorf("model %q has %d fields, got %d values", model.Name, len(model.Fields), len(fields))
	}
	for _, f := range fields {
		if strings.Contains(f, fieldSeparator) {
			return nil, fmt.Errorf("field value contains the field separator")
		}
	}
	return &Note{model: model, Fields: fields}, nil
}

// Model returns the note's model.
func (n *Note) Model() *Model {
	return n.model
}

// WithTags appends tags. A tag containing whitespace becomes several tags.
func (n *Note) WithTags(tags ...string) *Note {
	n.Tags = append(n.Tags, tags...)
	return n
}

// WithGUID pins the note guid.
func (n *Note) WithGUID(guid string) *Note {
	n.GUID = guid
	return n
}

// WithCards replaces the default cards.
func (n *Note) WithCards(cards ...Card) *Note {
	n.Cards = cards
	return n
}

func (n *Note) guid() string {
	if n.GUID != "" {
		return n.GUID
	}
	return knol.GUIDFor(n.Fields...)
}

func (n *Note) sortField() string {
	return n.Fields[n.model.SortField]
}

// cards returns the explicit cards or one new card per template.
func (n *Note) cards() []Card {
	if n.Cards != nil {
		return n.Cards
	}
	cards := make([]Card, len(n.model.Templates))
	for i := range cards {
		cards[i] = NewCard(int64(i), false)
	}
	return cards
}

// tagString is the space-padded tags column.
func (n *Note) tagString() string {
	tags := strings.Fields(strings.Join(n.Tags, " "))
	if len(tags) == 0 {
		return ""
	}
	return " " + strings.Join(tags, " ") + " "
}

// Write inserts the note and its cards into sink. The note consumes the next
// allocated id, then each card without a custom id consumes one more.
func (n *Note) Write(sink RowSink, timestamp float64, deckID int64, ids *idalloc.Allocator) error {
	noteID := ids.Next()
	sortField := n.sortField()
	err := sink.InsertNote(storage.NoteRow{
		ID:        noteID,
		GUID:      n.guid(),
		ModelID:   n.model.ID,
		Mod:       int64(timestamp),
		USN:       USNUnsynced,
		Tags:      n.tagString(),
		Fields:    strings.Join(n.Fields, fieldSeparator),
		SortField: sortField,
		Checksum:  knol.Checksum(sortField),
		Flags:     0,
		Data:      "",
	})
	if err != nil {
		return err
	}
	for _, c := range n.cards() {
		if _, err := c.write(sink, timestamp, deckID, noteID, ids); err != nil {
			return err
		}
	}
	return nil
}
