// Package sqlite provides a store.Store on SQLite via Grove ORM.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate" // registers the "sqlite" migration executor
	"github.com/xraph/grove/migrate"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/xraph/attest"
	"github.com/xraph/attest/block"
	"github.com/xraph/attest/digest"
	chainstore "github.com/xraph/attest/store"
)

// compile-time interface check
var _ chainstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
//
// SQLite admits one writer at a time, so appends from this process are
// serialized by mu. Writers in other processes that hold the database lock
// surface as ErrConcurrentAppendConflict.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
	mu  sync.Mutex
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("attest/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("attest/sqlite: %w: %w", attest.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// AppendIfTailMatches implements store.Store. The block_index primary key
// arbitrates between writers racing for the same position.
func (s *Store) AppendIfTailMatches(ctx context.Context, b *block.Block, expected *block.Ref) error {
	if b.Index != chainstore.NextIndex(expected) {
		return fmt.Errorf("attest/sqlite: block %d does not follow expected tail: %w", b.Index, attest.ErrConcurrentAppendConflict)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if expected != nil {
		var n int64
		err := s.sdb.NewRaw(`
			SELECT COUNT(*) FROM attest_blocks
			WHERE block_index = ? AND block_hash = ?
		`, int64(expected.Index), expected.Hash.Hex()).Scan(ctx, &n) //nolint:gosec // chain length stays far below MaxInt64
		if err != nil {
			if isBusy(err) {
				return fmt.Errorf("attest/sqlite: check tail: %w", attest.ErrConcurrentAppendConflict)
			}
			return fmt.Errorf("attest/sqlite: check tail: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("attest/sqlite: expected tail %d not found: %w", expected.Index, attest.ErrConcurrentAppendConflict)
		}
	}

	m, err := toBlockModel(b)
	if err != nil {
		return err
	}
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("attest/sqlite: position %d taken: %w", b.Index, attest.ErrConcurrentAppendConflict)
		}
		if isBusy(err) {
			return fmt.Errorf("attest/sqlite: database locked by another writer: %w", attest.ErrConcurrentAppendConflict)
		}
		return fmt.Errorf("attest/sqlite: insert block: %w", err)
	}
	return nil
}

// ReadAllOrderedByIndex implements store.Store.
func (s *Store) ReadAllOrderedByIndex(ctx context.Context) ([]*block.Block, error) {
	var models []blockModel
	err := s.sdb.NewSelect(&models).
		OrderExpr("block_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("attest/sqlite: read chain: %w", err)
	}

	out := make([]*block.Block, len(models))
	for i := range models {
		b, err := fromBlockModel(&models[i])
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// ReadTail implements store.Store.
func (s *Store) ReadTail(ctx context.Context) (*block.Block, error) {
	m := new(blockModel)
	err := s.sdb.NewSelect(m).
		OrderExpr("block_index DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, attest.ErrChainEmpty
		}
		return nil, fmt.Errorf("attest/sqlite: read tail: %w", err)
	}
	return fromBlockModel(m)
}

// FindByHash implements store.Store.
func (s *Store) FindByHash(ctx context.Context, h digest.Digest) (*block.Block, error) {
	m := new(blockModel)
	err := s.sdb.NewSelect(m).
		Where("block_hash = ?", h.Hex()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, attest.ErrBlockNotFound
		}
		return nil, fmt.Errorf("attest/sqlite: find by hash: %w", err)
	}
	return fromBlockModel(m)
}

// FindByIndex implements store.Store.
func (s *Store) FindByIndex(ctx context.Context, index uint64) (*block.Block, error) {
	m := new(blockModel)
	err := s.sdb.NewSelect(m).
		Where("block_index = ?", int64(index)). //nolint:gosec // chain length stays far below MaxInt64
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, attest.ErrBlockNotFound
		}
		return nil, fmt.Errorf("attest/sqlite: find by index: %w", err)
	}
	return fromBlockModel(m)
}

// Count implements store.Store.
func (s *Store) Count(ctx context.Context) (uint64, error) {
	var n int64
	if err := s.sdb.NewRaw(`SELECT COUNT(*) FROM attest_blocks`).Scan(ctx, &n); err != nil {
		return 0, fmt.Errorf("attest/sqlite: count: %w", err)
	}
	return uint64(n), nil //nolint:gosec // COUNT is never negative
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isConstraintViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}

// isBusy reports whether another connection held the database lock.
func isBusy(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}
