package output

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"ss2beacon-go/internal/beacon"
)

const archiveSchema = `
CREATE TABLE IF NOT EXISTS beacons (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	line        TEXT NOT NULL,
	schema      TEXT NOT NULL,
	received_at TEXT NOT NULL,
	document    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS beacons_run_id ON beacons (run_id);
`

// Archive stores decoded beacons in a SQLite database.
type Archive struct {
	db    *sql.DB
	runID string
}

type ArchivedBeacon struct {
	ID         int64
	RunID      string
	Line       string
	Schema     string
	ReceivedAt time.Time
	Document   string
}

func OpenArchive(path, runID string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("archive %s: %w", path, err)
		}
	}
	if _, err := db.Exec(archiveSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive %s: %w", path, err)
	}
	return &Archive{db: db, runID: runID}, nil
}

func (a *Archive) RunID() string { return a.runID }

// Insert stores one decoded beacon with its JSON document.
func (a *Archive) Insert(ctx context.Context, line, schema string, at time.Time, doc beacon.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = a.db.ExecContext(ctx,
		"INSERT INTO beacons (run_id, line, schema, received_at, document) VALUES (?, ?, ?, ?, ?)",
		a.runID, line, schema, at.UTC().Format(time.RFC3339Nano), string(body))
	return err
}

// Recent returns up to limit beacons, newest first.
func (a *Archive) Recent(ctx context.Context, limit int) ([]ArchivedBeacon, error) {
	rows, err := a.db.QueryContext(ctx,
		"SELECT id, run_id, line, schema, received_at, document FROM beacons ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ArchivedBeacon
	for rows.Next() {
		var (
			b        ArchivedBeacon
			received string
		)
		if err := rows.Scan(&b.ID, &b.RunID, &b.Line, &b.Schema, &received, &b.Document); err != nil {
			return nil, err
		}
		if b.ReceivedAt, err = time.Parse(time.RFC3339Nano, received); err != nil {
			return nil, fmt.Errorf("beacon %d received_at: %w", b.ID, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (a *Archive) Count(ctx context.Context) (int, error) {
	var n int
	err := a.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM beacons").Scan(&n)
	return n, err
}

func (a *Archive) Close() error {
	return a.db.Close()
}
