// Package mongo provides a store.Store on MongoDB via Grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/attest"
	"github.com/xraph/attest/block"
	"github.com/xraph/attest/digest"
	chainstore "github.com/xraph/attest/store"
)

const colBlocks = "attest_blocks"

// compile-time interface check
var _ chainstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM. Blocks are keyed
// by index in _id, so the primary key index arbitrates racing appends.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the unique indexes of the blocks collection.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.mdb.Collection(colBlocks).Indexes().CreateMany(ctx, migrationIndexes()); err != nil {
		return fmt.Errorf("attest/mongo: migrate %s indexes: %w: %w", colBlocks, attest.ErrMigrationFailed, err)
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
func (s *Store) AppendIfTailMatches(ctx context.Context, b *block.Block, expected *block.Ref) error {
	if b.Index != chainstore.NextIndex(expected) {
		return fmt.Errorf("attest/mongo: block %d does not follow expected tail: %w", b.Index, attest.ErrConcurrentAppendConflict)
	}

	if expected != nil {
		n, err := s.mdb.Collection(colBlocks).CountDocuments(ctx, bson.M{
			"_id":        int64(expected.Index), //nolint:gosec // chain length stays far below MaxInt64
			"block_hash": expected.Hash.Hex(),
		})
		if err != nil {
			return fmt.Errorf("attest/mongo: check tail: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("attest/mongo: expected tail %d not found: %w", expected.Index, attest.ErrConcurrentAppendConflict)
		}
	}

	if _, err := s.mdb.NewInsert(toBlockModel(b)).Exec(ctx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("attest/mongo: position %d taken: %w", b.Index, attest.ErrConcurrentAppendConflict)
		}
		return fmt.Errorf("attest/mongo: insert block: %w", err)
	}
	return nil
}

// ReadAllOrderedByIndex implements store.Store.
func (s *Store) ReadAllOrderedByIndex(ctx context.Context) ([]*block.Block, error) {
	var models []blockModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("attest/mongo: read chain: %w", err)
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
	var m blockModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: -1}}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, attest.ErrChainEmpty
		}
		return nil, fmt.Errorf("attest/mongo: read tail: %w", err)
	}
	return fromBlockModel(&m)
}

// FindByHash implements store.Store.
func (s *Store) FindByHash(ctx context.Context, h digest.Digest) (*block.Block, error) {
	var m blockModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"block_hash": h.Hex()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, attest.ErrBlockNotFound
		}
		return nil, fmt.Errorf("attest/mongo: find by hash: %w", err)
	}
	return fromBlockModel(&m)
}

// FindByIndex implements store.Store.
func (s *Store) FindByIndex(ctx context.Context, index uint64) (*block.Block, error) {
	var m blockModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": int64(index)}). //nolint:gosec // chain length stays far below MaxInt64
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, attest.ErrBlockNotFound
		}
		return nil, fmt.Errorf("attest/mongo: find by index: %w", err)
	}
	return fromBlockModel(&m)
}

// Count implements store.Store.
func (s *Store) Count(ctx context.Context) (uint64, error) {
	n, err := s.mdb.Collection(colBlocks).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("attest/mongo: count: %w", err)
	}
	return uint64(n), nil //nolint:gosec // document count is never negative
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for the blocks collection.
func migrationIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "block_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "previous_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "record_type", Value: 1}, {Key: "record_id", Value: 1}}},
	}
}
