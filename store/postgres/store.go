// Package postgres provides a store.Store on PostgreSQL via Grove ORM.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate" // registers the "pg" migration executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/attest"
	"github.com/xraph/attest/block"
	"github.com/xraph/attest/digest"
	chainstore "github.com/xraph/attest/store"
)

// compile-time interface check
var _ chainstore.Store = (*Store)(nil)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("attest/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("attest/postgres: %w: %w", attest.ErrMigrationFailed, err)
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

// AppendIfTailMatches implements store.Store.
//
// The expected tail row is checked first; rows are never removed, so once it
// exists it keeps existing. The insert then races on the block_index primary
// key: exactly one writer per position succeeds.
func (s *Store) AppendIfTailMatches(ctx context.Context, b *block.Block, expected *block.Ref) error {
	if b.Index != chainstore.NextIndex(expected) {
		return fmt.Errorf("attest/postgres: block %d does not follow expected tail: %w", b.Index, attest.ErrConcurrentAppendConflict)
	}

	if expected != nil {
		var n int64
		err := s.pg.NewRaw(`
			SELECT COUNT(*) FROM attest_blocks
			WHERE block_index = $1 AND block_hash = $2
		`, int64(expected.Index), expected.Hash.Hex()).Scan(ctx, &n) //nolint:gosec // chain length stays far below MaxInt64
		if err != nil {
			return fmt.Errorf("attest/postgres: check tail: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("attest/postgres: expected tail %d not found: %w", expected.Index, attest.ErrConcurrentAppendConflict)
		}
	}

	if _, err := s.pg.NewInsert(toBlockModel(b)).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("attest/postgres: position %d taken: %w", b.Index, attest.ErrConcurrentAppendConflict)
		}
		return fmt.Errorf("attest/postgres: insert block: %w", err)
	}
	return nil
}

// ReadAllOrderedByIndex implements store.Store.
func (s *Store) ReadAllOrderedByIndex(ctx context.Context) ([]*block.Block, error) {
	var models []blockModel
	err := s.pg.NewSelect(&models).
		OrderExpr("block_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("attest/postgres: read chain: %w", err)
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
	err := s.pg.NewSelect(m).
		OrderExpr("block_index DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, attest.ErrChainEmpty
		}
		return nil, fmt.Errorf("attest/postgres: read tail: %w", err)
	}
	return fromBlockModel(m)
}

// FindByHash implements store.Store.
func (s *Store) FindByHash(ctx context.Context, h digest.Digest) (*block.Block, error) {
	m := new(blockModel)
	err := s.pg.NewSelect(m).
		Where("block_hash = $1", h.Hex()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, attest.ErrBlockNotFound
		}
		return nil, fmt.Errorf("attest/postgres: find by hash: %w", err)
	}
	return fromBlockModel(m)
}

// FindByIndex implements store.Store.
func (s *Store) FindByIndex(ctx context.Context, index uint64) (*block.Block, error) {
	m := new(blockModel)
	err := s.pg.NewSelect(m).
		Where("block_index = $1", int64(index)). //nolint:gosec // chain length stays far below MaxInt64
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, attest.ErrBlockNotFound
		}
		return nil, fmt.Errorf("attest/postgres: find by index: %w", err)
	}
	return fromBlockModel(m)
}

// Count implements store.Store.
func (s *Store) Count(ctx context.Context) (uint64, error) {
	var n int64
	if err := s.pg.NewRaw(`SELECT COUNT(*) FROM attest_blocks`).Scan(ctx, &n); err != nil {
		return 0, fmt.Errorf("attest/postgres: count: %w", err)
	}
	return uint64(n), nil //nolint:gosec // COUNT is never negative
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE "+uniqueViolation) ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
