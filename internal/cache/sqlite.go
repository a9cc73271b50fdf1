// internal/cache/sqlite.go
package cache

import (
	"context"
	"database/sql"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is a disk-backed persistent tier, used when no Redis is
// configured. Entries expired at read time are deleted lazily.
type SQLiteStore struct {
	db *sql.DB

	hits   atomic.Int64
	misses atomic.Int64
}

// NewSQLiteStore opens (creating if needed) the cache database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS cache_entries (
		key        TEXT PRIMARY KEY,
		payload    BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		ttl_sec    INTEGER NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) (Entry, bool) {
	var payload []byte
	var createdUnix, ttlSec int64

	row := s.db.QueryRowContext(ctx,
		`SELECT payload, created_at, ttl_sec FROM cache_entries WHERE key = ?`, key)
	if err := row.Scan(&payload, &createdUnix, &ttlSec); err != nil {
		s.misses.Add(1)
		return Entry{}, false
	}

	entry := Entry{
		Payload:   payload,
		CreatedAt: time.Unix(createdUnix, 0),
		TTL:       time.Duration(ttlSec) * time.Second,
	}
	if entry.Expired(time.Now()) {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
		s.misses.Add(1)
		return Entry{}, false
	}

	s.hits.Add(1)
	return entry, true
}

// Set implements Store.
func (s *SQLiteStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache_entries (key, payload, created_at, ttl_sec) VALUES (?, ?, ?, ?)`,
		key, payload, time.Now().Unix(), int64(ttl.Seconds()))
	return err
}

// Invalidate implements Store.
func (s *SQLiteStore) Invalidate(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
	return err
}

// Clear implements Store.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	return err
}

// Stats implements Store.
func (s *SQLiteStore) Stats() Stats {
	var entries int
	row := s.db.QueryRow(`SELECT COUNT(*) FROM cache_entries`)
	_ = row.Scan(&entries)

	return Stats{
		Entries: entries,
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
	}
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
