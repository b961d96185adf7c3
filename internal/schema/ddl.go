package schema

var coreTables = []string{
	`CREATE TABLE col (
    id              integer primary key,
    crt             integer not null,
    mod             integer not null,
    scm             integer not null,
    ver             integer not null,
    dty             integer not null,
    usn             integer not null,
    ls              integer not null,
    conf            text not null,
    models          text not null,
    decks           text not null,
    dconf           text not null,
    tags            text not null
)`,
	`CREATE TABLE notes (
    id              integer primary key,
    guid            text not null,
    mid             integer not null,
    mod             integer not null,
    usn             integer not null,
    tags            text not null,
    flds            text not null,
    sfld            text not null,
    csum            integer not null,
    flags           integer not null,
    data            text not null
)`,
	`CREATE TABLE cards (
    id              integer primary key,
    nid             integer not null,
    did             integer not null,
    ord             integer not null,
    mod             integer not null,
    usn             integer not null,
    type            integer not null,
    queue           integer not null,
    due             integer not null,
    ivl             integer not null,
    factor          integer not null,
    reps            integer not null,
    lapses          integer not null,
    left            integer not null,
    odue            integer not null,
    odid            integer not null,
    flags           integer not null,
    data            text not null
)`,
	`CREATE TABLE revlog (
    id              integer primary key,
    cid             integer not null,
    usn             integer not null,
    ease            integer not null,
    ivl             integer not null,
    lastIvl         integer not null,
    factor          integer not null,
    time            integer not null,
    type            integer not null
)`,
}

// Graves without a key: duplicate (oid, type) pairs are accepted.
const legacyGraves = `CREATE TABLE graves (
    usn             integer not null,
    oid             integer not null,
    type            integer not null
)`

const keyedGraves = `CREATE TABLE graves (
    oid             integer not null,
    type            integer not null,
    usn             integer not null,
    PRIMARY KEY (oid, type)
) WITHOUT ROWID`

const keyedGravesIndex = `CREATE INDEX idx_graves_pending ON graves (usn)`

var coreIndexes = []string{
	`CREATE INDEX ix_notes_usn ON notes (usn)`,
	`CREATE INDEX ix_cards_usn ON cards (usn)`,
	`CREATE INDEX ix_revlog_usn ON revlog (usn)`,
	`CREATE INDEX ix_cards_nid ON cards (nid)`,
	`CREATE INDEX ix_cards_sched ON cards (did, queue, due)`,
	`CREATE INDEX ix_revlog_cid ON revlog (cid)`,
	`CREATE INDEX ix_notes_csum ON notes (csum)`,
}

var sideTables = []string{
	`CREATE TABLE decks (
    id              integer primary key not null,
    name            text not null,
    mtime_secs      integer not null,
    usn             integer not null,
    common          blob not null,
    kind            blob not null
)`,
	`CREATE TABLE deck_config (
    id              integer primary key not null,
    name            text not null,
    mtime_secs      integer not null,
    usn             integer not null,
    config          blob not null
)`,
	`CREATE TABLE notetypes (
    id              integer primary key not null,
    name            text not null,
    mtime_secs      integer not null,
    usn             integer not null,
    config          blob not null
)`,
	`CREATE TABLE templates (
    ntid            integer not null,
    ord             integer not null,
    name            text not null,
    mtime_secs      integer not null,
    usn             integer not null,
    config          blob not null,
    PRIMARY KEY (ntid, ord)
) WITHOUT ROWID`,
	`CREATE TABLE fields (
    ntid            integer not null,
    ord             integer not null,
    name            text not null,
    config          blob not null,
    PRIMARY KEY (ntid, ord)
) WITHOUT ROWID`,
	`CREATE TABLE config (
    key             text primary key not null,
    usn             integer not null,
    mtime_secs      integer not null,
    val             blob not null
) WITHOUT ROWID`,
	`CREATE TABLE tags (
    tag             text not null primary key,
    usn             integer not null,
    collapsed       boolean not null,
    config          blob null
) WITHOUT ROWID`,
	`CREATE INDEX ix_decks_usn ON decks (usn)`,
	`CREATE INDEX ix_deck_config_usn ON deck_config (usn)`,
	`CREATE INDEX ix_notetypes_usn ON notetypes (usn)`,
	`CREATE INDEX ix_templates_usn ON templates (usn)`,
	`CREATE INDEX ix_fields_ntid ON fields (ntid)`,
}
