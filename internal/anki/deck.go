package anki

import "github.com/conorfennell/ankipack/internal/idalloc"

// DefaultDeckID is the deck every collection contains.
const DefaultDeckID = 1

// Deck is a named set of notes.
type Deck struct {
	ID          int64
	Name        string
	Description string
	notes       []*Note
	models      map[int64]*Model
}

// NewDeck returns an empty deck. Deck ids must be unique within a package.
func NewDeck(id int64, name, description string) *Deck {
	return &Deck{
		ID:          id,
		Name:        name,
		Description: description,
		models:      make(map[int64]*Model),
	}
}

// AddNote appends a note and records its model.
func (d *Deck) AddNote(n *Note) {
	d.notes = append(d.notes, n)
	if d.models == nil {
		d.models = make(map[int64]*Model)
	}
	d.models[n.Model().ID] = n.Model()
}

// Notes returns the notes in insertion order.
func (d *Deck) Notes() []*Note {
	return d.notes
}

// Models returns the models referenced by the deck's notes, keyed by id.
func (d *Deck) Models() map[int64]*Model {
	return d.models
}

// DeckDBEntry is the legacy JSON descriptor of a deck stored in the decks
// blob of the collection row.
type DeckDBEntry struct {
	Collapsed bool   `json:"collapsed"`
	Conf      int64  `json:"conf"`
	Desc      string `json:"desc"`
	Dyn       int    `json:"dyn"`
	ExtendNew int    `json:"extendNew"`
	ExtendRev int    `json:"extendRev"`
	ID        int64  `json:"id"`
	LrnToday  [2]int `json:"lrnToday"`
	Mod       int64  `json:"mod"`
	Name      string `json:"name"`
	NewToday  [2]int `json:"newToday"`
	RevToday  [2]int `json:"revToday"`
	TimeToday [2]int `json:"timeToday"`
	USN       int64  `json:"usn"`
}

// DBEntry returns the legacy descriptor. It does not depend on the schema
// version.
func (d *Deck) DBEntry() DeckDBEntry {
	return DeckDBEntry{
		Collapsed: false,
		Conf:      1,
		Desc:      d.Description,
		Dyn:       0,
		ExtendNew: 10,
		ExtendRev: 50,
		ID:        d.ID,
		Mod:       0,
		Name:      d.Name,
		USN:       USNUnsynced,
	}
}

// writeNotes maps every note of the deck into sink.
func (d *Deck) writeNotes(sink RowSink, timestamp float64, ids *idalloc.Allocator) error {
	for _, n := range d.notes {
		if err := n.Write(sink, timestamp, d.ID, ids); err != nil {
			return err
		}
	}
	return nil
}

// WriteToFile packages the deck alone, without media, into path.
func (d *Deck) WriteToFile(path string) error {
	return NewPackage([]*Deck{d}).WriteToFile(path)
}
