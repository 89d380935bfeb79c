// Package store is the local durable key-value store backed by SQLite.
// It holds guest data and local preferences between runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Well-known keys.
const (
	KeyGuestTransactions = "guest_transactions"
	KeyCurrency          = "currency"
	KeyGuestPlans        = "guest_plans"
	KeyChallenge         = "challenge"
	KeySession           = "session"
)

// ErrMissing is returned by Get when the key has no value.
var ErrMissing = errors.New("store: key not set")

// Store provides SQLite-backed key-value persistence.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at dbPath and applies migrations.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening store db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating store: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the raw value stored under key.
func (s *Store) Get(key string) (string, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrMissing
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return v, nil
}

// Set replaces the value stored under key.
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(keys ...string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, k := range keys {
		if _, err := tx.Exec("DELETE FROM kv WHERE key = ?", k); err != nil {
			return fmt.Errorf("deleting %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// Has reports whether key holds a value.
func (s *Store) Has(key string) (bool, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM kv WHERE key = ?", key).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetJSON decodes the value under key into v. A missing key leaves v untouched
// and returns ErrMissing.
func (s *Store) GetJSON(key string, v any) error {
	raw, err := s.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it under key.
func (s *Store) SetJSON(key string, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.Set(key, string(buf))
}

// updateJSON decodes the value under key, passes it to fn and stores fn's
// result, all inside one write transaction. BEGIN IMMEDIATE takes the write
// lock up front so another process cannot commit between the read and the
// write. A missing or undecodable value reaches fn as the zero value, the
// same recovery readers apply. If fn fails nothing is written.
func updateJSON[T any](s *Store, key string, fn func(T) (T, error)) (T, error) {
	var zero T
	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return zero, fmt.Errorf("updating %s: %w", key, err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return zero, fmt.Errorf("locking %s: %w", key, err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(ctx, "ROLLBACK")
		}
	}()

	var cur T
	var raw string
	err = conn.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return zero, fmt.Errorf("reading %s: %w", key, err)
	default:
		if err := json.Unmarshal([]byte(raw), &cur); err != nil {
			cur = zero
		}
	}

	next, err := fn(cur)
	if err != nil {
		return zero, err
	}
	buf, err := json.Marshal(next)
	if err != nil {
		return zero, fmt.Errorf("encoding %s: %w", key, err)
	}
	if _, err := conn.ExecContext(ctx, `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(buf), s.now().UTC().Format(time.RFC3339)); err != nil {
		return zero, fmt.Errorf("writing %s: %w", key, err)
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return zero, fmt.Errorf("committing %s: %w", key, err)
	}
	committed = true
	return next, nil
}
