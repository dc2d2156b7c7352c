package sqlitestore

import (
	"context"
	"database/sql"

	"github.com/jrsteele09/mento-client/credentials"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

var _ credentials.Store = (*SQLiteStore)(nil)

// SQLiteStore keeps credentials in a single sqlite table.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

func New(path string) (*SQLiteStore, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "sqlitestore open")
	}
	// A single connection keeps writes serialised and makes ":memory:" usable.
	d.SetMaxOpenConns(1)

	s := &SQLiteStore{db: d, path: path}
	if err := s.init(context.Background()); err != nil {
		d.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS credentials (key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at INTEGER NOT NULL DEFAULT (strftime('%s','now')));`,
	}
	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return errors.Wrap(err, "sqlitestore init")
		}
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM credentials WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "sqlitestore get")
	}
	return &value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, strftime('%s','now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return errors.Wrap(err, "sqlitestore set")
	}
	return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE key = ?`, key); err != nil {
		return errors.Wrap(err, "sqlitestore remove")
	}
	return nil
}

func (s *SQLiteStore) RemoveAll(ctx context.Context, keys []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "sqlitestore begin")
	}
	stmt, err := tx.PrepareContext(ctx, `DELETE FROM credentials WHERE key = ?`)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "sqlitestore prepare")
	}
	defer stmt.Close()

	for _, k := range keys {
		if _, err := stmt.ExecContext(ctx, k); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "sqlitestore remove all")
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "sqlitestore commit")
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
