// Package store persists packages, their owners and versions, and the
// background job queue in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/tsukumogami/squatwatch/internal/typosquat"
)

// Querier is the subset of *sql.DB, *sql.Conn and *sql.Tx the package
// queries need. Code that holds a dedicated connection or a transaction
// passes it in place of the pool.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a handle on the SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Options configures the connection pool.
type Options struct {
	// MaxOpenConns bounds the pool. Detection jobs each hold one
	// connection while they query, so this should be at least the worker
	// concurrency.
	MaxOpenConns int
	// BusyTimeout is how long a connection waits on a locked database.
	BusyTimeout time.Duration
}

// DefaultOptions returns the default pool options.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns: 8,
		BusyTimeout:  5 * time.Second,
	}
}

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, &StoreError{Type: ErrTypeSchema, Key: path, Message: "create database directory", Err: err}
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = DefaultOptions().MaxOpenConns
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = DefaultOptions().BusyTimeout
	}

	// Pragmas in the DSN apply to every connection the pool opens.
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		path, opts.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &StoreError{Type: ErrTypeSchema, Key: path, Message: "open database", Err: err}
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxOpenConns)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, path: path}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DB returns the underlying pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Conn takes a dedicated connection from the pool. The caller must close
// it to return it.
func (s *Store) Conn(ctx context.Context) (*sql.Conn, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, queryError("acquire connection", "", err)
	}
	return conn, nil
}

// Packages returns package queries over the pool.
func (s *Store) Packages() *Packages {
	return NewPackages(s.db)
}

// TopPackages implements typosquat.Source over the pool.
func (s *Store) TopPackages(ctx context.Context, limit int) ([]typosquat.Package, error) {
	return s.Packages().TopPackages(ctx, limit)
}

// UpsertPackages inserts or updates records in a single transaction and
// returns the number written.
func (s *Store) UpsertPackages(ctx context.Context, records []Record) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, queryError("begin transaction", "", err)
	}
	n, err := NewPackages(tx).Upsert(ctx, records)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, queryError("commit transaction", "", err)
	}
	return n, nil
}
