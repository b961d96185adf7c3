package anki

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/ankipack/internal/container"
	"github.com/conorfennell/ankipack/internal/media"
	"github.com/conorfennell/ankipack/internal/schema"
	"github.com/conorfennell/ankipack/internal/storage"
)

const testTimestamp = 1700000000.5

// written is a package read back from its archive.
type written struct {
	entries map[string][]byte
	order   []string
	db      *storage.DB
}

func writePackage(t *testing.T, p *Package) *written {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, p.WriteTimestamp(&buf, testTimestamp))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	w := &written{entries: make(map[string][]byte)}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		w.entries[f.Name] = data
		w.order = append(w.order, f.Name)
	}

	path := filepath.Join(t.TempDir(), container.CollectionEntry)
	require.NoError(t, os.WriteFile(path, w.entries[container.CollectionEntry], 0o644))
	w.db, err = storage.Open(path, schema.For(p.SchemaVersion))
	require.NoError(t, err)
	t.Cleanup(func() { w.db.Close() })
	return w
}

func (w *written) count(t *testing.T, table string) int {
	t.Helper()
	n, err := w.db.Count(table)
	require.NoError(t, err)
	return n
}

func (w *written) int64s(t *testing.T, query string) []int64 {
	t.Helper()
	rows, err := w.db.Query(query)
	require.NoError(t, err)
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var v int64
		require.NoError(t, rows.Scan(&v))
		out = append(out, v)
	}
	require.NoError(t, rows.Err())
	return out
}

func (w *written) collection(t *testing.T) (ver int64, conf, models, decks, dconf, tags string) {
	t.Helper()
	require.Equal(t, 1, w.count(t, "col"))
	err := w.db.QueryRow(`SELECT ver, conf, models, decks, dconf, tags FROM col`).
		Scan(&ver, &conf, &models, &decks, &dconf, &tags)
	require.NoError(t, err)
	return
}

func mustNote(t *testing.T, m *Model, fields ...string) *Note {
	t.Helper()
	n, err := NewNote(m, fields...)
	require.NoError(t, err)
	return n
}

func TestCardCountAndUniqueIDs(t *testing.T) {
	basic, reversed := BasicModel(), BasicAndReversedModel()
	var decks []*Deck
	wantCards := 0
	for d := 0; d < 3; d++ {
		deck := NewDeck(int64(100+d), "Deck "+strconv.Itoa(d), "")
		for i := 0; i < 4; i++ {
			m := basic
			if i%2 == 1 {
				m = reversed
			}
			deck.AddNote(mustNote(t, m, "q"+strconv.Itoa(d*10+i), "a"))
			wantCards += len(m.Templates)
		}
		decks = append(decks, deck)
	}

	for _, version := range []int{11, 14, 17, 18} {
		t.Run("v"+strconv.Itoa(version), func(t *testing.T) {
			p := NewPackage(decks)
			p.SchemaVersion = version
			w := writePackage(t, p)

			assert.Equal(t, wantCards, w.count(t, "cards"))
			assert.Equal(t, 12, w.count(t, "notes"))

			ids := append(w.int64s(t, `SELECT id FROM cards`), w.int64s(t, `SELECT id FROM notes`)...)
			seen := make(map[int64]bool)
			for _, id := range ids {
				assert.False(t, seen[id], "duplicate id %d", id)
				seen[id] = true
			}

			orphans := w.int64s(t, `SELECT count(*) FROM cards WHERE nid NOT IN (SELECT id FROM notes)`)
			assert.Equal(t, []int64{0}, orphans)
		})
	}
}

func TestModelsWrittenOnce(t *testing.T) {
	m := BasicModel()
	d1 := NewDeck(10, "One", "")
	d2 := NewDeck(20, "Two", "")
	d1.AddNote(mustNote(t, m, "a", "b"))
	d2.AddNote(mustNote(t, m, "c", "d"))
	d2.AddNote(mustNote(t, BasicAndReversedModel(), "e", "f"))

	w := writePackage(t, NewPackage([]*Deck{d1, d2}))
	_, _, models, _, _, _ := w.collection(t)

	var decoded map[string]struct {
		Did int64 `json:"did"`
		Mod int64 `json:"mod"`
	}
	require.NoError(t, json.Unmarshal([]byte(models), &decoded))
	require.Len(t, decoded, 2)
	basic := decoded[strconv.FormatInt(m.ID, 10)]
	assert.Equal(t, int64(10), basic.Did, "owned by the first deck referencing it")
	assert.Equal(t, int64(math.Floor(testTimestamp)), basic.Mod)
}

func TestLegacyBlobsEmptyFromVersion16(t *testing.T) {
	deck := NewDeck(5, "Deck", "")
	deck.AddNote(mustNote(t, BasicModel(), "a", "b"))
	deck.AddNote(mustNote(t, BasicAndReversedModel(), "c", "d"))
	conf := `{"custom": 1}`

	for _, version := range []int{16, 17, 18} {
		p := NewPackage([]*Deck{deck, NewDeck(6, "Other", "")})
		p.SchemaVersion = version
		p.Overrides.Conf = &conf
		w := writePackage(t, p)

		ver, c, models, decks, dconf, _ := w.collection(t)
		assert.Equal(t, int64(version), ver)
		assert.Equal(t, "{}", c)
		assert.Equal(t, "{}", models)
		assert.Equal(t, "{}", decks)
		assert.Equal(t, "{}", dconf)
	}
}

func TestLegacyBlobsComputedBelowVersion16(t *testing.T) {
	deck := NewDeck(5, "Deck", "about")
	deck.AddNote(mustNote(t, BasicModel(), "a", "b"))
	p := NewPackage([]*Deck{deck})
	p.SchemaVersion = 15
	p.AddDeckConfigEntry(DeckConfigEntry{ID: 7, Name: "Fast", Config: []byte(`{"id": 7, "name": "Fast"}`)})
	p.AddDeckConfigEntry(DeckConfigEntry{ID: 8, Name: "Opaque", Config: []byte{0x08, 0x01}})
	p.AddConfigEntry(ConfigEntry{Key: "curDeck", Val: []byte(`5`)})
	p.AddConfigEntry(ConfigEntry{Key: "tags", Val: []byte(`{"geo": 0}`)})
	w := writePackage(t, p)

	ver, conf, models, decks, dconf, tags := w.collection(t)
	assert.Equal(t, int64(15), ver)
	assert.JSONEq(t, `{"geo": 0}`, tags)

	var confMap map[string]any
	require.NoError(t, json.Unmarshal([]byte(conf), &confMap))
	assert.Equal(t, float64(5), confMap["curDeck"])
	assert.Equal(t, float64(1200), confMap["collapseTime"])
	assert.NotContains(t, confMap, "tags")

	var modelMap map[string]any
	require.NoError(t, json.Unmarshal([]byte(models), &modelMap))
	assert.Len(t, modelMap, 1)

	var deckMap map[string]DeckDBEntry
	require.NoError(t, json.Unmarshal([]byte(decks), &deckMap))
	assert.Equal(t, "about", deckMap["5"].Desc)

	var dconfMap map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(dconf), &dconfMap))
	assert.Len(t, dconfMap, 2)
	assert.Contains(t, dconfMap, "1")
	assert.Contains(t, dconfMap, "7")
}

func TestOverridesBelowVersion16(t *testing.T) {
	models, decks := `{"m": 1}`, `{"d": 1}`
	crt, scm, ver, usn, ls := int64(11), int64(22), int64(9), int64(33), int64(44)
	p := NewPackage(nil)
	p.Overrides = CollectionOverrides{
		Created: &crt, SchemaMod: &scm, Version: &ver, USN: &usn, LastSync: &ls,
		Models: &models, Decks: &decks,
	}
	w := writePackage(t, p)

	var gotCrt, gotMod, gotScm, gotVer, gotDty, gotUSN, gotLS int64
	var gotModels, gotDecks string
	err := w.db.QueryRow(`SELECT crt, mod, scm, ver, dty, usn, ls, models, decks FROM col`).
		Scan(&gotCrt, &gotMod, &gotScm, &gotVer, &gotDty, &gotUSN, &gotLS, &gotModels, &gotDecks)
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 1700000000500, 22, 9, 0, 33, 44},
		[]int64{gotCrt, gotMod, gotScm, gotVer, gotDty, gotUSN, gotLS})
	assert.Equal(t, models, gotModels)
	assert.Equal(t, decks, gotDecks)
}

func TestCollectionDefaults(t *testing.T) {
	w := writePackage(t, NewPackage(nil))
	var crt, mod, scm, ver, dty, usn, ls int64
	err := w.db.QueryRow(`SELECT crt, mod, scm, ver, dty, usn, ls FROM col`).
		Scan(&crt, &mod, &scm, &ver, &dty, &usn, &ls)
	require.NoError(t, err)
	assert.Equal(t, []int64{1700000000, 1700000000500, 1700000000500, schema.DefaultVersion, 0, -1, 0},
		[]int64{crt, mod, scm, ver, dty, usn, ls})
}

func TestDefaultDeckAlwaysPresent(t *testing.T) {
	deck := NewDeck(1234, "Mine", "")
	deck.AddNote(mustNote(t, BasicModel(), "a", "b"))

	t.Run("legacy blob", func(t *testing.T) {
		w := writePackage(t, NewPackage([]*Deck{deck}))
		_, _, _, decks, _, _ := w.collection(t)
		var deckMap map[string]DeckDBEntry
		require.NoError(t, json.Unmarshal([]byte(decks), &deckMap))
		require.Contains(t, deckMap, "1")
		assert.Equal(t, "Default", deckMap["1"].Name)
		assert.Contains(t, deckMap, "1234")
	})

	t.Run("decks table", func(t *testing.T) {
		p := NewPackage([]*Deck{NewDeck(50, "Parent::Child", ""), deck})
		p.SchemaVersion = 18
		p.AddDeckInfoEntry(DeckInfoEntry{ID: 1234, Name: "Explicit", Common: []byte{1}, Kind: []byte{2}})
		w := writePackage(t, p)

		assert.Equal(t, []int64{1, 50, 1234}, w.int64s(t, `SELECT id FROM decks ORDER BY id`))
		var name string
		require.NoError(t, w.db.QueryRow(`SELECT name FROM decks WHERE id = 1`).Scan(&name))
		assert.Equal(t, "Default", name)
		require.NoError(t, w.db.QueryRow(`SELECT name FROM decks WHERE id = 50`).Scan(&name))
		assert.Equal(t, "Parent\x1fChild", name)
		require.NoError(t, w.db.QueryRow(`SELECT name FROM decks WHERE id = 1234`).Scan(&name))
		assert.Equal(t, "Explicit", name)
	})
}

func TestSingleCardScenario(t *testing.T) {
	testCases := []struct {
		name      string
		suspend   bool
		wantQueue int64
	}{
		{"active", false, 0},
		{"suspended", true, -1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			deck := NewDeck(1, "D", "")
			deck.AddNote(mustNote(t, BasicModel(), "q", "a").WithCards(NewCard(0, tc.suspend)))
			p := NewPackage([]*Deck{deck})
			p.SchemaVersion = 18
			w := writePackage(t, p)

			require.Equal(t, 1, w.count(t, "cards"))
			var queue, typ, ivl, factor, reps, lapses, left, odue, odid, usn int64
			err := w.db.QueryRow(`SELECT queue, type, ivl, factor, reps, lapses, left, odue, odid, usn FROM cards`).
				Scan(&queue, &typ, &ivl, &factor, &reps, &lapses, &left, &odue, &odid, &usn)
			require.NoError(t, err)
			assert.Equal(t, tc.wantQueue, queue)
			assert.Equal(t, []int64{0, 0, 0, 0, 0, 0, 0, 0, -1}, []int64{typ, ivl, factor, reps, lapses, left, odue, odid, usn})

			ver, _, _, _, _, _ := w.collection(t)
			assert.Equal(t, int64(18), ver)
		})
	}
}

func TestSuspendOverridesSuppliedQueue(t *testing.T) {
	deck := NewDeck(1, "D", "")
	card := NewCardWithReview(0, true, Scheduling{Type: CardReview, Queue: 2, Due: 10, Interval: 3})
	deck.AddNote(mustNote(t, BasicModel(), "q", "a").WithCards(card))
	w := writePackage(t, NewPackage([]*Deck{deck}))
	assert.Equal(t, []int64{-1}, w.int64s(t, `SELECT queue FROM cards`))
	assert.Equal(t, []int64{2}, w.int64s(t, `SELECT type FROM cards`))
}

func TestCustomCardIDAndRevlog(t *testing.T) {
	deck := NewDeck(3, "D", "")
	card := NewCard(0, false).WithID(42).WithHistory(
		RevlogEntry{ID: 1600000000000, Ease: 3, Interval: 1, LastInterval: 0, Factor: 2500, Time: 5000, Type: 0, USN: -1},
	)
	deck.AddNote(mustNote(t, BasicModel(), "first", "a").WithCards(card))
	deck.AddNote(mustNote(t, BasicModel(), "second", "b"))
	w := writePackage(t, NewPackage([]*Deck{deck}))

	base := int64(testTimestamp * 1000)
	assert.Equal(t, []int64{42, base + 2}, w.int64s(t, `SELECT id FROM cards ORDER BY id`))
	assert.Equal(t, []int64{base, base + 1}, w.int64s(t, `SELECT id FROM notes ORDER BY id`))
	assert.Equal(t, []int64{42}, w.int64s(t, `SELECT cid FROM revlog`))
}

func TestGravesThroughPackage(t *testing.T) {
	for _, tc := range []struct {
		version int
		wantErr bool
	}{{17, false}, {18, true}} {
		p := NewPackage(nil)
		p.SchemaVersion = tc.version
		p.AddGraveEntry(GraveEntry{ObjectID: 9, Kind: GraveNote, USN: -1})
		p.AddGraveEntry(GraveEntry{ObjectID: 9, Kind: GraveNote, USN: -1})
		err := p.WriteTimestamp(io.Discard, testTimestamp)
		if tc.wantErr {
			assert.ErrorIs(t, err, ErrDatabase)
		} else {
			assert.NoError(t, err)
		}
	}
}

func TestSideTablesWritten(t *testing.T) {
	p := NewPackage(nil)
	p.SchemaVersion = 18
	p.AddConfigEntry(ConfigEntry{Key: "sortType", USN: 0, MtimeSecs: 5, Val: []byte(`"noteFld"`)})
	p.AddDeckConfigEntry(DeckConfigEntry{ID: 1, Name: "Default", Config: []byte{0x01}})
	p.AddNotetypeEntry(NotetypeEntry{ID: 77, Name: "Basic", Config: []byte{0x02}})
	p.AddFieldEntry(FieldEntry{NotetypeID: 77, Ord: 0, Name: "Front"})
	p.AddFieldEntry(FieldEntry{NotetypeID: 77, Ord: 1, Name: "Back"})
	p.AddTemplateEntry(TemplateEntry{NotetypeID: 77, Ord: 0, Name: "Card 1"})
	p.AddTagEntry(TagEntry{Tag: "geo", USN: -1, Collapsed: true})
	w := writePackage(t, p)

	assert.Equal(t, 1, w.count(t, "config"))
	assert.Equal(t, 1, w.count(t, "deck_config"))
	assert.Equal(t, 1, w.count(t, "notetypes"))
	assert.Equal(t, 2, w.count(t, "fields"))
	assert.Equal(t, 1, w.count(t, "templates"))
	assert.Equal(t, []int64{1}, w.int64s(t, `SELECT collapsed FROM tags WHERE tag = 'geo'`))
}

func TestSideEntriesIgnoredOnLegacySchema(t *testing.T) {
	p := NewPackage(nil)
	p.AddTagEntry(TagEntry{Tag: "geo"})
	w := writePackage(t, p)
	_, err := w.db.Count("tags")
	assert.Error(t, err)
}

func TestMediaEntries(t *testing.T) {
	dir := t.TempDir()
	onDisk := filepath.Join(dir, "sound.mp3")
	require.NoError(t, os.WriteFile(onDisk, []byte("ID3"), 0o644))

	p := NewPackage(nil, media.Path(onDisk), media.Inline("pic.png", []byte("PNG")))
	w := writePackage(t, p)

	assert.Equal(t, []string{container.CollectionEntry, container.ManifestEntry, "0", "1"}, w.order)
	var manifest map[string]string
	require.NoError(t, json.Unmarshal(w.entries[container.ManifestEntry], &manifest))
	assert.Equal(t, map[string]string{"0": "sound.mp3", "1": "pic.png"}, manifest)
	for key := range manifest {
		assert.Contains(t, w.entries, key)
	}
	assert.Equal(t, "ID3", string(w.entries["0"]))
	assert.Equal(t, "PNG", string(w.entries["1"]))
}

func TestMissingMediaIsIOError(t *testing.T) {
	p := NewPackageFromPaths(nil, filepath.Join(t.TempDir(), "nope.jpg"))
	err := p.WriteTimestamp(io.Discard, testTimestamp)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIO)
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestDestinationFailureIsContainerError(t *testing.T) {
	err := NewPackage(nil).WriteTimestamp(brokenWriter{}, testTimestamp)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrContainer)
}

func TestInvalidModelIsSerializationError(t *testing.T) {
	m := BasicModel()
	deck := NewDeck(2, "D", "")
	deck.AddNote(mustNote(t, m, "a", "b"))
	m.Templates = nil
	err := NewPackage([]*Deck{deck}).WriteTimestamp(io.Discard, testTimestamp)
	assert.ErrorIs(t, err, ErrSerialization)
}

func TestWriteToFile(t *testing.T) {
	deck := NewDeck(2, "D", "")
	deck.AddNote(mustNote(t, BasicModel(), "a", "b"))
	path := filepath.Join(t.TempDir(), "out.apkg")
	require.NoError(t, deck.WriteToFile(path))

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{container.CollectionEntry, container.ManifestEntry}, names)
}

func TestEmptyMediaPathIsIOError(t *testing.T) {
	var buf bytes.Buffer
	err := NewPackage(nil, media.Path("")).WriteTimestamp(&buf, testTimestamp)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIO)
}

func TestContainerErrorKind(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want Kind
	}{
		{"archive entry", &container.EntryError{Entry: "media", Err: errors.New("short write")}, KindContainer},
		{"manifest encoding", &media.EncodeError{Err: errors.New("bad value")}, KindSerialization},
		{"collection read", fmt.Errorf("failed to read collection.anki2: %w", os.ErrClosed), KindIO},
		{"media read", fmt.Errorf("failed to read media file x: %w", os.ErrNotExist), KindIO},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, containerErrorKind(tc.err))
		})
	}
}

// captureLogs routes the default logger into a buffer for the test.
func captureLogs(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestCollectModelsKeyedByID(t *testing.T) {
	basic := BasicModel()
	d1 := NewDeck(10, "One", "")
	d1.AddNote(mustNote(t, basic, "a", "b"))
	d2 := NewDeck(20, "Two", "")
	d2.AddNote(mustNote(t, basic, "c", "d"))
	d2.AddNote(mustNote(t, BasicAndReversedModel(), "e", "f"))

	models, err := collectModels([]*Deck{d1, d2}, testTimestamp)
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, int64(10), models[basic.ID].Did)
	assert.Equal(t, strconv.FormatInt(basic.ID, 10), models[basic.ID].ID)
	assert.Equal(t, int64(20), models[BasicAndReversedModel().ID].Did)
}

func TestMissingNotetypeWarning(t *testing.T) {
	basic := BasicModel()
	deck := NewDeck(3, "D", "")
	deck.AddNote(mustNote(t, basic, "a", "b"))

	t.Run("no notetype row", func(t *testing.T) {
		logs := captureLogs(t, slog.LevelWarn)
		p := NewPackage([]*Deck{deck})
		p.SchemaVersion = 18
		require.NoError(t, p.WriteTimestamp(io.Discard, testTimestamp))
		assert.Contains(t, logs.String(), "model has no notetype row")
		assert.Contains(t, logs.String(), "id="+strconv.FormatInt(basic.ID, 10))
	})

	t.Run("notetype row present", func(t *testing.T) {
		logs := captureLogs(t, slog.LevelWarn)
		p := NewPackage([]*Deck{deck})
		p.SchemaVersion = 18
		p.AddNotetypeEntry(NotetypeEntry{ID: basic.ID, Name: basic.Name, Config: []byte{0x01}})
		require.NoError(t, p.WriteTimestamp(io.Discard, testTimestamp))
		assert.NotContains(t, logs.String(), "model has no notetype row")
	})
}

func TestDebugSummaryCountsRows(t *testing.T) {
	logs := captureLogs(t, slog.LevelDebug)
	deck := NewDeck(3, "D", "")
	deck.AddNote(mustNote(t, BasicAndReversedModel(), "a", "b"))
	p := NewPackage([]*Deck{deck})
	p.AddGraveEntry(GraveEntry{ObjectID: 9, Kind: GraveCard, USN: -1})
	require.NoError(t, p.WriteTimestamp(io.Discard, testTimestamp))

	out := logs.String()
	assert.Contains(t, out, "collection committed")
	assert.Contains(t, out, "notes=1")
	assert.Contains(t, out, "cards=2")
	assert.Contains(t, out, "revlog=0")
	assert.Contains(t, out, "graves=1")
}

func TestDebugSummarySkippedAboveDebug(t *testing.T) {
	logs := captureLogs(t, slog.LevelInfo)
	require.NoError(t, NewPackage(nil).WriteTimestamp(io.Discard, testTimestamp))
	assert.NotContains(t, logs.String(), "collection committed")
}
