// Package store is loglite's relational schema and repository layer:
// apps, sources, tail offsets, and events, all backed by SQLite through
// sqlx and the pure-Go modernc.org/sqlite driver, one repository per
// entity.
package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS apps (
	app_id     TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS app_sources (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	app_id       TEXT NOT NULL,
	kind         TEXT NOT NULL,
	path         TEXT NOT NULL,
	recursive    INTEGER NOT NULL DEFAULT 0,
	encoding     TEXT NOT NULL DEFAULT 'utf-8',
	include_glob TEXT NOT NULL DEFAULT '',
	exclude_glob TEXT NOT NULL DEFAULT '',
	enabled      INTEGER NOT NULL DEFAULT 1,
	created_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_app_sources_app_id ON app_sources(app_id);

CREATE TABLE IF NOT EXISTS tail_offsets (
	source_id    INTEGER NOT NULL,
	file_path    TEXT NOT NULL,
	offset_bytes INTEGER NOT NULL,
	updated_at   TIMESTAMP NOT NULL,
	PRIMARY KEY (source_id, file_path)
);

CREATE TABLE IF NOT EXISTS events (
	id         INTEGER PRIMARY KEY,
	app_id     TEXT NOT NULL,
	ts         TIMESTAMP NOT NULL,
	host       TEXT NOT NULL,
	source     TEXT NOT NULL,
	sourcetype TEXT NOT NULL DEFAULT '',
	severity   INTEGER,
	message    TEXT NOT NULL,
	fields     TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_events_app_ts ON events(app_id, ts);
CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);

CREATE TABLE IF NOT EXISTS pending_retention_deletes (
	event_id INTEGER PRIMARY KEY
);
`

// Open connects to the SQLite database at dsn and applies the schema.
// SQLite itself serializes writers, so a modest pool cap avoids
// "database is locked" contention rather than granting unbounded
// parallelism.
func Open(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	db.SetMaxOpenConns(8)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
