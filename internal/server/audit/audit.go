// Package audit keeps a SQLite record of calls the allowlist refused.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
	"unicode/utf8"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS denials (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	ts_unix   INTEGER NOT NULL,
	conn_id   TEXT    NOT NULL,
	remote    TEXT    NOT NULL,
	method    TEXT    NOT NULL,
	reason    TEXT    NOT NULL,
	position  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS denials_ts ON denials (ts_unix);`

// maxMethodLen bounds what an attacker can make us store per row.
const maxMethodLen = 128

// Entry is one refused call.
type Entry struct {
	Time     time.Time
	ConnID   string
	Remote   string
	Method   string
	Reason   string
	Position int
}

type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	// sqlite takes one writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init audit db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.Method = truncate(e.Method, maxMethodLen)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO denials (ts_unix, conn_id, remote, method, reason, position) VALUES (?, ?, ?, ?, ?, ?)`,
		e.Time.Unix(), e.ConnID, e.Remote, e.Method, e.Reason, e.Position,
	)
	if err != nil {
		return fmt.Errorf("record denial: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts_unix, conn_id, remote, method, reason, position FROM denials ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query denials: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			ts int64
		)
		if err := rows.Scan(&ts, &e.ConnID, &e.Remote, &e.Method, &e.Reason, &e.Position); err != nil {
			return nil, fmt.Errorf("scan denial: %w", err)
		}
		e.Time = time.Unix(ts, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes all but the newest keep rows.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM denials WHERE id <= (SELECT id FROM denials ORDER BY id DESC LIMIT 1 OFFSET ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune denials: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
