// Package store provides the SQLite-backed item and tag repository with
// optional FTS5 full-text search.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS items (
	id             TEXT PRIMARY KEY,
	type           TEXT NOT NULL,
	content        TEXT NOT NULL DEFAULT '',
	html_content   TEXT NOT NULL DEFAULT '',
	title          TEXT NOT NULL DEFAULT '',
	og_image       TEXT NOT NULL DEFAULT '',
	og_title       TEXT NOT NULL DEFAULT '',
	og_description TEXT NOT NULL DEFAULT '',
	is_favorite    INTEGER NOT NULL DEFAULT 0,
	is_encrypted   INTEGER NOT NULL DEFAULT 0,
	is_code        INTEGER NOT NULL DEFAULT 0,
	attachment_key TEXT NOT NULL DEFAULT '',
	file_name      TEXT NOT NULL DEFAULT '',
	file_size      INTEGER NOT NULL DEFAULT 0,
	mime_type      TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL,
	updated_at     DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS tags (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL UNIQUE,
	color         TEXT NOT NULL DEFAULT '',
	auto_keywords TEXT NOT NULL DEFAULT '[]',
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS item_tags (
	item_id TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	tag_id  TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	UNIQUE(item_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_items_created ON items(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_item_tags_item ON item_tags(item_id);
CREATE INDEX IF NOT EXISTS idx_item_tags_tag ON item_tags(tag_id);
`

// DB wraps a sql.DB with repository operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
