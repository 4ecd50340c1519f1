// Package sqlite provides a SQLite-backed implementation of the
// directory.Source port. The directory table holds every uid that has been
// issued by the account provisioning system.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/haukened/uidgen/internal/directory"

	// database/sql SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

var (
	_ directory.Source = (*Directory)(nil)
	_ directory.Pinger = (*Directory)(nil)
)

// Directory implements directory.Source using SQLite (via database/sql). It is
// safe for concurrent use; database/sql manages connection pooling.
type Directory struct{ db *sql.DB }

// New constructs a Directory, initializing the required schema if absent.
func New(db *sql.DB) (*Directory, error) {
	d := &Directory{db: db}
	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Directory) init() error {
	schema := `CREATE TABLE IF NOT EXISTS directory_entries (
uid TEXT PRIMARY KEY,
created_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
);`
	_, err := d.db.Exec(schema)
	return err
}

// OccupiedUIDs returns all uids starting with tag.
func (d *Directory) OccupiedUIDs(ctx context.Context, tag string) ([]string, error) {
	const q = `SELECT uid FROM directory_entries WHERE substr(uid, 1, ?) = ? ORDER BY uid`
	rows, err := d.db.QueryContext(ctx, q, len(tag), tag)
	if err != nil {
		return nil, fmt.Errorf("query directory: %w", err)
	}
	defer rows.Close()
	var uids []string
	for rows.Next() {
		var uid string
		if err = rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scan directory entry: %w", err)
		}
		uids = append(uids, uid)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return uids, nil
}

// Ping reports whether the database is reachable.
func (d *Directory) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }
