// Package store defines the persistence contract for the chain.
//
// Backends live in subpackages: memory, leveldb, sqlite, postgres and mongo.
// Every backend makes AppendIfTailMatches atomic: the expected-tail check and
// the write either both happen or neither does, so two writers racing for the
// same position can never both succeed.
package store

import (
	"context"

	"github.com/xraph/attest/block"
	"github.com/xraph/attest/digest"
)

// Store persists blocks. Blocks are never updated or deleted.
//
// Backends report conditions with the attest sentinel errors:
// ErrConcurrentAppendConflict when the tail moved, ErrChainEmpty when
// ReadTail finds no blocks, and ErrBlockNotFound on a lookup miss.
type Store interface {
	// AppendIfTailMatches persists b only if the current tail equals
	// expected. A nil expected means the chain must be empty.
	AppendIfTailMatches(ctx context.Context, b *block.Block, expected *block.Ref) error

	// ReadAllOrderedByIndex returns every block in ascending index order.
	ReadAllOrderedByIndex(ctx context.Context) ([]*block.Block, error)

	// ReadTail returns the block with the highest index.
	ReadTail(ctx context.Context) (*block.Block, error)

	// FindByHash returns the block whose BlockHash equals h.
	FindByHash(ctx context.Context, h digest.Digest) (*block.Block, error)

	// FindByIndex returns the block at position index.
	FindByIndex(ctx context.Context, index uint64) (*block.Block, error)

	// Count returns the number of stored blocks.
	Count(ctx context.Context) (uint64, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// TailMatches reports whether tail satisfies the expected reference.
// Backends that check the tail themselves share this rule.
func TailMatches(tail *block.Block, expected *block.Ref) bool {
	if expected == nil {
		return tail == nil
	}
	if tail == nil {
		return false
	}
	return tail.Index == expected.Index && tail.BlockHash == expected.Hash
}

// NextIndex returns the index a block appended after expected must carry.
func NextIndex(expected *block.Ref) uint64 {
	if expected == nil {
		return 0
	}
	return expected.Index + 1
}
