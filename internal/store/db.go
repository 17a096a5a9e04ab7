package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// ErrLocked means another engine process already owns the data directory.
var ErrLocked = errors.New("data directory is locked by another instance")

// Store is the per-channel seen-link set, backed by an embedded sqlite
// database. The flock guards the data dir so two processes never share one
// database file.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
}

func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock data dir: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.Join(dataDir, "seen.db"))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	db.SetMaxOpenConns(1) // sqlite typically wants 1 writer
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	return &Store{db: db, lock: lock}, nil
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS seen (
  channel_id TEXT NOT NULL,
  link TEXT NOT NULL,
  first_seen TEXT NOT NULL,
  PRIMARY KEY (channel_id, link)
);
CREATE INDEX IF NOT EXISTS idx_seen_channel ON seen(channel_id);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}
	return tx.Commit()
}
