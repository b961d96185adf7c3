// Package schema describes the collection database layouts emitted for each
// supported revision of the target application's schema.
package schema

import "fmt"

// DefaultVersion is the schema version written when a package does not
// request one.
const DefaultVersion = 11

// Tier groups schema versions that share one table layout.
type Tier int

const (
	// Legacy covers versions below 12: core tables only.
	Legacy Tier = iota
	// Mid covers versions 12 to 15: adds the dedicated side tables.
	Mid
	// PreModern covers versions 16 and 17: legacy JSON blobs are emptied.
	PreModern
	// Modern covers version 18 and above: graves gain a composite key.
	Modern
)

func (t Tier) String() string {
	switch t {
	case Legacy:
		return "legacy"
	case Mid:
		return "mid"
	case PreModern:
		return "pre-modern"
	case Modern:
		return "modern"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// TierOf classifies a schema version number.
func TierOf(version int) Tier {
	switch {
	case version >= 18:
		return Modern
	case version >= 16:
		return PreModern
	case version >= 12:
		return Mid
	default:
		return Legacy
	}
}

// Schema is the descriptor for a single write. It is fixed for the lifetime
// of that write.
type Schema struct {
	Version int
	Tier    Tier
}

// For returns the descriptor for version. Zero selects DefaultVersion.
func For(version int) Schema {
	if version == 0 {
		version = DefaultVersion
	}
	return Schema{Version: version, Tier: TierOf(version)}
}

// HasSideTables reports whether decks, deck_config, notetypes, templates,
// fields, config and tags tables exist.
func (s Schema) HasSideTables() bool {
	return s.Tier >= Mid
}

// EmptyLegacyBlobs reports whether the conf, models, decks and dconf columns
// of the collection row must hold the empty object.
func (s Schema) EmptyLegacyBlobs() bool {
	return s.Tier >= PreModern
}

// KeyedGraves reports whether graves are laid out as (oid, type, usn) with a
// composite primary key on (oid, type).
func (s Schema) KeyedGraves() bool {
	return s.Tier >= Modern
}

// Statements returns the DDL for the schema, in execution order.
func (s Schema) Statements() []string {
	stmts := append([]string{}, coreTables...)
	stmts = append(stmts, legacyGraves)
	stmts = append(stmts, coreIndexes...)
	if !s.HasSideTables() {
		return stmts
	}
	stmts = append(stmts, sideTables...)
	stmts = append(stmts, "DROP TABLE graves")
	if s.KeyedGraves() {
		stmts = append(stmts, keyedGraves, keyedGravesIndex)
	} else {
		stmts = append(stmts, legacyGraves)
	}
	return stmts
}

func (s Schema) String() string {
	return fmt.Sprintf("v%d (%s)", s.Version, s.Tier)
}
