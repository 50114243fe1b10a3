package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the default durable tier: a single embedded database file
// with upserts, so every write is atomic.
type SQLiteStore struct {
	readDB  *sql.DB
	writeDB *sql.DB
}

func OpenSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	s := &SQLiteStore{writeDB: writeDB}
	if err := s.init(); err != nil {
		s.Close()
		return nil, err
	}

	readDB, err := sql.Open("sqlite", dbPath+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}
	s.readDB = readDB
	return s, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS cache_entries (
			id         TEXT PRIMARY KEY,
			written_at REAL NOT NULL,
			data       BLOB NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (Record, error) {
	var (
		rec  Record
		data []byte
	)
	err := s.readDB.QueryRowContext(ctx,
		"SELECT written_at, data FROM cache_entries WHERE id = ?", id,
	).Scan(&rec.WrittenAt, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("querying cache entry: %w", err)
	}
	rec.Data = data
	return rec, nil
}

func (s *SQLiteStore) Store(ctx context.Context, id string, rec Record) error {
	_, err := s.writeDB.ExecContext(ctx, `
		INSERT INTO cache_entries (id, written_at, data) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			written_at = excluded.written_at,
			data = excluded.data
	`, id, rec.WrittenAt, []byte(rec.Data))
	if err != nil {
		return fmt.Errorf("upserting cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.writeDB.ExecContext(ctx, "DELETE FROM cache_entries WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Purge(ctx context.Context) error {
	if _, err := s.writeDB.ExecContext(ctx, "DELETE FROM cache_entries"); err != nil {
		return fmt.Errorf("purging cache: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	var errs []error
	if s.readDB != nil {
		errs = append(errs, s.readDB.Close())
	}
	if s.writeDB != nil {
		errs = append(errs, s.writeDB.Close())
	}
	return errors.Join(errs...)
}
