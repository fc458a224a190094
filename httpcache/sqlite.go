package httpcache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS responses (
	key TEXT PRIMARY KEY,
	status INTEGER NOT NULL,
	header TEXT NOT NULL,
	body BLOB NOT NULL,
	stored_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_responses_expires_at ON responses(expires_at);
`

// SQLiteStore persists responses in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode = WAL"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Get(key string) (*Entry, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, fmt.Errorf("httpcache: missing database connection")
	}

	var (
		status    int
		header    string
		body      []byte
		storedAt  int64
		expiresAt int64
	)
	err := s.db.QueryRow(`
		SELECT status, header, body, stored_at, expires_at
		FROM responses
		WHERE key = ?
	`, key).Scan(&status, &header, &body, &storedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	entry := &Entry{
		StatusCode: status,
		Body:       body,
		StoredAt:   time.UnixMilli(storedAt),
	}
	if expiresAt != 0 {
		entry.ExpiresAt = time.UnixMilli(expiresAt)
	}
	if entry.Expired(s.now()) {
		return nil, false, nil
	}

	var h http.Header
	if err := json.Unmarshal([]byte(header), &h); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached header: %w", err)
	}
	entry.Header = h

	return entry, true, nil
}

func (s *SQLiteStore) Set(key string, entry *Entry) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("httpcache: missing database connection")
	}

	header, err := json.Marshal(entry.Header)
	if err != nil {
		return err
	}

	var expiresAt int64
	if !entry.ExpiresAt.IsZero() {
		expiresAt = entry.ExpiresAt.UnixMilli()
	}

	_, err = s.db.Exec(`
		INSERT INTO responses (key, status, header, body, stored_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			status=excluded.status,
			header=excluded.header,
			body=excluded.body,
			stored_at=excluded.stored_at,
			expires_at=excluded.expires_at
	`, key, entry.StatusCode, string(header), entry.Body, entry.StoredAt.UnixMilli(), expiresAt)
	return err
}

func (s *SQLiteStore) Has(key string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("httpcache: missing database connection")
	}

	var one int
	err := s.db.QueryRow(`
		SELECT 1 FROM responses
		WHERE key = ? AND (expires_at = 0 OR expires_at > ?)
	`, key, s.now().UnixMilli()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) Delete(key string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("httpcache: missing database connection")
	}
	_, err := s.db.Exec("DELETE FROM responses WHERE key = ?", key)
	return err
}

func (s *SQLiteStore) Clear() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("httpcache: missing database connection")
	}
	_, err := s.db.Exec("DELETE FROM responses")
	return err
}

func (s *SQLiteStore) RemoveExpired() (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("httpcache: missing database connection")
	}
	res, err := s.db.Exec(
		"DELETE FROM responses WHERE expires_at != 0 AND expires_at <= ?",
		s.now().UnixMilli(),
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLiteStore) Len() (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("httpcache: missing database connection")
	}
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM responses").Scan(&n)
	return n, err
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
