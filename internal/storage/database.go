package storage

import (
	"database/sql"
	"fmt"

	"github.com/conorfennell/ankipack/internal/schema"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB represents a wrapper around a collection database being built.
type DB struct {
	conn   *sql.DB
	schema schema.Schema
}

// Open opens the collection database at path for schema s. The file is
// expected not to exist or to be empty.
func Open(path string, s schema.Schema) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps the transaction and the DDL on the same file handle.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{conn: db, schema: s}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Schema returns the schema the database was opened with.
func (db *DB) Schema() schema.Schema {
	return db.schema
}

// Begin starts the single transaction of a write. The DDL is applied inside
// it so a failed write leaves no tables behind.
func (db *DB) Begin() (*Tx, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, stmt := range db.schema.Statements() {
		if _, err := tx.Exec(stmt); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to apply schema %s: %w", db.schema, err)
		}
	}
	return &Tx{tx: tx, schema: db.schema}, nil
}

// Count returns the number of rows in table.
func (db *DB) Count(table string) (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return n, nil
}

// Query runs query against the collection.
func (db *DB) Query(query string, args ...any) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

// QueryRow runs query against the collection and returns at most one row.
func (db *DB) QueryRow(query string, args ...any) *sql.Row {
	return db.conn.QueryRow(query, args...)
}
