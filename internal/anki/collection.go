package anki

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/conorfennell/ankipack/internal/schema"
	"github.com/conorfennell/ankipack/internal/storage"
)

// collectionBuilder assembles the single col row once every deck and model
// of the package is known.
type collectionBuilder struct {
	schema      schema.Schema
	timestamp   float64
	overrides   CollectionOverrides
	decks       []*Deck
	models      map[int64]ModelDBEntry
	configs     []ConfigEntry
	deckConfigs []DeckConfigEntry
}

func (b *collectionBuilder) build() (storage.CollectionRow, error) {
	o := b.overrides
	modified := int64(math.Floor(b.timestamp * 1000))
	row := storage.CollectionRow{
		Created:   valueOr(o.Created, int64(math.Floor(b.timestamp))),
		Modified:  modified,
		SchemaMod: valueOr(o.SchemaMod, modified),
		Version:   valueOr(o.Version, int64(b.schema.Version)),
		Dirty:     0,
		USN:       valueOr(o.USN, USNUnsynced),
		LastSync:  valueOr(o.LastSync, 0),
		Tags:      b.tags(),
	}

	if b.schema.EmptyLegacyBlobs() {
		row.Conf = emptyObject
		row.Models = emptyObject
		row.Decks = emptyObject
		row.DeckConfigs = emptyObject
		return row, nil
	}

	var err error
	if row.Conf, err = overrideOr(o.Conf, b.conf); err != nil {
		return row, err
	}
	if row.Models, err = overrideOr(o.Models, b.modelsJSON); err != nil {
		return row, err
	}
	if row.Decks, err = overrideOr(o.Decks, b.decksJSON); err != nil {
		return row, err
	}
	if row.DeckConfigs, err = overrideOr(o.DeckConfigs, b.deckConfigsJSON); err != nil {
		return row, err
	}
	return row, nil
}

func valueOr(v *int64, def int64) int64 {
	if v != nil {
		return *v
	}
	return def
}

func overrideOr(v *string, compute func() (string, error)) (string, error) {
	if v != nil {
		return *v, nil
	}
	return compute()
}

func (b *collectionBuilder) tags() string {
	for _, c := range b.configs {
		if c.Key == tagsConfigKey {
			return string(c.Val)
		}
	}
	return emptyObject
}

func encode(what string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", newError(KindSerialization, "encode "+what, err)
	}
	return string(data), nil
}

// conf overlays JSON-valued config entries on the default configuration.
func (b *collectionBuilder) conf() (string, error) {
	conf := make(map[string]json.RawMessage)
	if err := json.Unmarshal([]byte(defaultConf), &conf); err != nil {
		return "", newError(KindSerialization, "decode default conf", err)
	}
	for _, c := range b.configs {
		if c.Key == tagsConfigKey {
			continue
		}
		if !json.Valid(c.Val) {
			slog.Debug("config value is not JSON, left out of legacy conf", "key", c.Key)
			continue
		}
		conf[c.Key] = json.RawMessage(c.Val)
	}
	return encode("conf", conf)
}

// modelsJSON keys every model descriptor by its id.
func (b *collectionBuilder) modelsJSON() (string, error) {
	models := make(map[string]ModelDBEntry, len(b.models))
	for id, m := range b.models {
		models[strconv.FormatInt(id, 10)] = m
	}
	return encode("models", models)
}

// decksJSON keys every deck descriptor by id and adds the Default deck when
// the package does not define it.
func (b *collectionBuilder) decksJSON() (string, error) {
	decks := make(map[string]DeckDBEntry, len(b.decks)+1)
	for _, d := range b.decks {
		decks[strconv.FormatInt(d.ID, 10)] = d.DBEntry()
	}
	defaultKey := strconv.Itoa(DefaultDeckID)
	if _, ok := decks[defaultKey]; !ok {
		decks[defaultKey] = NewDeck(DefaultDeckID, defaultDeckName, "").DBEntry()
	}
	return encode("decks", decks)
}

// deckConfigsJSON merges JSON-valued deck configs over the built-in default
// keyed "1".
func (b *collectionBuilder) deckConfigsJSON() (string, error) {
	dconf := map[string]json.RawMessage{
		strconv.Itoa(DefaultDeckID): json.RawMessage(defaultDeckConfig),
	}
	for _, c := range b.deckConfigs {
		if !json.Valid(c.Config) {
			slog.Debug("deck config is not JSON, left out of legacy dconf", "id", c.ID)
			continue
		}
		dconf[strconv.FormatInt(c.ID, 10)] = json.RawMessage(c.Config)
	}
	return encode("deck configs", dconf)
}

// collectModels serializes each distinct model once, owned by the first deck
// whose notes reference it.
func collectModels(decks []*Deck, timestamp float64) (map[int64]ModelDBEntry, error) {
	models := make(map[int64]ModelDBEntry)
	for _, d := range decks {
		for _, n := range d.Notes() {
			m := n.Model()
			if _, ok := models[m.ID]; ok {
				continue
			}
			entry, err := m.ToDBEntry(timestamp, d.ID)
			if err != nil {
				return nil, newError(KindSerialization, fmt.Sprintf("describe model %d", m.ID), err)
			}
			models[m.ID] = entry
		}
	}
	return models, nil
}
