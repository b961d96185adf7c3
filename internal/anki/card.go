package anki

import (
	"fmt"

	"github.com/conorfennell/ankipack/internal/idalloc"
	"github.com/conorfennell/ankipack/internal/storage"
)

// Card types.
const (
	CardNew        = 0
	CardLearning   = 1
	CardReview     = 2
	CardRelearning = 3
)

// QueueSuspended is the queue of a suspended card.
const QueueSuspended = -1

// USNUnsynced marks a row as changed locally and pending sync.
const USNUnsynced = -1

// Scheduling is the review state of a card. A card without one is written
// with NewCardScheduling.
type Scheduling struct {
	Type     int64
	Queue    int64
	Due      int64
	Interval int64
	Factor   int64
	Reps     int64
	Lapses   int64
	Left     int64
}

// NewCardScheduling is the state of a card that was never studied.
func NewCardScheduling() Scheduling {
	return Scheduling{Type: CardNew}
}

// RevlogEntry is one past review of a card.
type RevlogEntry struct {
	// ID is the review time in milliseconds.
	ID           int64
	Ease         int64 // 1 again, 2 hard, 3 good, 4 easy
	Interval     int64
	LastInterval int64
	Factor       int64
	Time         int64 // milliseconds spent answering
	Type         int64 // 0 learn, 1 review, 2 relearn, 3 filtered
	USN          int64
}

// Card is one card of a note, identified by the ordinal of its template.
type Card struct {
	Ord     int64
	Suspend bool
	// Scheduling is nil for a new card.
	Scheduling *Scheduling
	History    []RevlogEntry
	Data       string
	// CustomID is used verbatim instead of an allocated id. It is not
	// checked against allocated ids.
	CustomID *int64
	// USN is nil for USNUnsynced.
	USN *int64
}

// NewCard returns a new card for template ord.
func NewCard(ord int64, suspend bool) Card {
	return Card{Ord: ord, Suspend: suspend}
}

// NewCardWithReview returns a card carrying review state.
func NewCardWithReview(ord int64, suspend bool, s Scheduling) Card {
	return Card{Ord: ord, Suspend: suspend, Scheduling: &s}
}

// WithHistory attaches review history, kept in the given order.
func (c Card) WithHistory(entries ...RevlogEntry) Card {
	c.History = append(append([]RevlogEntry(nil), c.History...), entries...)
	return c
}

// WithData sets the free-form data column.
func (c Card) WithData(data string) Card {
	c.Data = data
	return c
}

// WithID pins the card id.
func (c Card) WithID(id int64) Card {
	c.CustomID = &id
	return c
}

// WithUSN stamps an update sequence number, for re-exporting synced data.
func (c Card) WithUSN(usn int64) Card {
	c.USN = &usn
	return c
}

// resolveID returns the custom id or consumes the next allocated one.
func (c Card) resolveID(ids *idalloc.Allocator) int64 {
	if c.CustomID != nil {
		return *c.CustomID
	}
	return ids.Next()
}

// row maps the card onto a cards row. Scheduling defaults are merged here
// and nowhere else.
func (c Card) row(id, noteID, deckID int64, timestamp float64) storage.CardRow {
	s := NewCardScheduling()
	if c.Scheduling != nil {
		s = *c.Scheduling
	}
	if c.Suspend {
		s.Queue = QueueSuspended
	}
	usn := int64(USNUnsynced)
	if c.USN != nil {
		usn = *c.USN
	}
	return storage.CardRow{
		ID:       id,
		NoteID:   noteID,
		DeckID:   deckID,
		Ord:      c.Ord,
		Mod:      int64(timestamp),
		USN:      usn,
		Type:     s.Type,
		Queue:    s.Queue,
		Due:      s.Due,
		Interval: s.Interval,
		Factor:   s.Factor,
		Reps:     s.Reps,
		Lapses:   s.Lapses,
		Left:     s.Left,
		// Filtered decks are not supported.
		OriginalDue:    0,
		OriginalDeckID: 0,
		Flags:          0,
		Data:           c.Data,
	}
}

// write inserts the card and its review history.
func (c Card) write(sink RowSink, timestamp float64, deckID, noteID int64, ids *idalloc.Allocator) (int64, error) {
	id := c.resolveID(ids)
	if err := sink.InsertCard(c.row(id, noteID, deckID, timestamp)); err != nil {
		return 0, err
	}
	for _, r := range c.History {
		err := sink.InsertRevlog(storage.RevlogRow{
			ID:           r.ID,
			CardID:       id,
			USN:          r.USN,
			Ease:         r.Ease,
			Interval:     r.Interval,
			LastInterval: r.LastInterval,
			Factor:       r.Factor,
			Time:         r.Time,
			Type:         r.Type,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to write history of card %d: %w", id, err)
		}
	}
	return id, nil
}
