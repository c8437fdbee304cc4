package persist

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps session items in a SQLite database. Every run is one
// session; rows from other sessions are invisible to it.
type SQLiteStore struct {
	db      *sql.DB
	session string
}

// SessionInfo describes one stored session.
type SessionInfo struct {
	ID        string
	Items     int
	UpdatedAt time.Time
}

const sessionSchema = `
CREATE TABLE IF NOT EXISTS session_items (
	session_id TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (session_id, key)
);
CREATE INDEX IF NOT EXISTS idx_session_items_updated ON session_items(updated_at);
`

// OpenSQLite opens (or creates) the database at path and scopes the store
// to session. Use ":memory:" for a throwaway database.
func OpenSQLite(path, session string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := db.Exec(sessionSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &SQLiteStore{db: db, session: session}, nil
}

// Session returns the session id the store is scoped to.
func (s *SQLiteStore) Session() string { return s.session }

// WithSession returns a store sharing the same database but scoped to a
// different session. Closing either closes both.
func (s *SQLiteStore) WithSession(session string) *SQLiteStore {
	return &SQLiteStore{db: s.db, session: session}
}

func (s *SQLiteStore) Get(key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(
		"SELECT value FROM session_items WHERE session_id = ? AND key = ?",
		s.session, key,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return v, true, nil
}

func (s *SQLiteStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO session_items (session_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.session, key, value, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(key string) error {
	if _, err := s.db.Exec(
		"DELETE FROM session_items WHERE session_id = ? AND key = ?",
		s.session, key,
	); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Sessions lists stored sessions, most recently updated first.
func (s *SQLiteStore) Sessions() ([]SessionInfo, error) {
	rows, err := s.db.Query(
		`SELECT session_id, COUNT(*), MAX(updated_at) FROM session_items
		 GROUP BY session_id ORDER BY MAX(updated_at) DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var ms int64
		if err := rows.Scan(&info.ID, &info.Items, &ms); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		info.UpdatedAt = time.UnixMilli(ms)
		out = append(out, info)
	}
	return out, rows.Err()
}

// Prune deletes every item last written before cutoff and reports how many
// rows were removed.
func (s *SQLiteStore) Prune(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec("DELETE FROM session_items WHERE updated_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("pruning sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
