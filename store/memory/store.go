// Package memory provides an in-process store.Store. It is the default for
// tests and single-process tools; nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/attest"
	"github.com/xraph/attest/block"
	"github.com/xraph/attest/digest"
	chainstore "github.com/xraph/attest/store"
)

// compile-time interface check
var _ chainstore.Store = (*Store)(nil)

// Store keeps blocks in a slice with a hash index. Blocks are copied on the
// way in and on the way out so callers can never alias stored state.
type Store struct {
	mu     sync.RWMutex
	blocks []*block.Block
	byHash map[digest.Digest]uint64
	closed bool
}

// New creates an empty store.
func New() *Store {
	return &Store{
		byHash: make(map[digest.Digest]uint64),
	}
}

// AppendIfTailMatches implements store.Store.
func (s *Store) AppendIfTailMatches(_ context.Context, b *block.Block, expected *block.Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return attest.ErrStoreClosed
	}

	var tail *block.Block
	if n := len(s.blocks); n > 0 {
		tail = s.blocks[n-1]
	}
	if !chainstore.TailMatches(tail, expected) {
		return fmt.Errorf("attest/memory: tail moved: %w", attest.ErrConcurrentAppendConflict)
	}
	if b.Index != uint64(len(s.blocks)) {
		return fmt.Errorf("attest/memory: block index %d does not follow tail: %w", b.Index, attest.ErrConcurrentAppendConflict)
	}
	if _, dup := s.byHash[b.BlockHash]; dup {
		return fmt.Errorf("attest/memory: duplicate block hash: %w", attest.ErrConcurrentAppendConflict)
	}

	s.blocks = append(s.blocks, b.Clone())
	s.byHash[b.BlockHash] = b.Index
	return nil
}

// ReadAllOrderedByIndex implements store.Store.
func (s *Store) ReadAllOrderedByIndex(_ context.Context) ([]*block.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, attest.ErrStoreClosed
	}

	out := make([]*block.Block, len(s.blocks))
	for i, b := range s.blocks {
		out[i] = b.Clone()
	}
	return out, nil
}

// ReadTail implements store.Store.
func (s *Store) ReadTail(_ context.Context) (*block.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, attest.ErrStoreClosed
	}
	if len(s.blocks) == 0 {
		return nil, attest.ErrChainEmpty
	}
	return s.blocks[len(s.blocks)-1].Clone(), nil
}

// FindByHash implements store.Store.
func (s *Store) FindByHash(_ context.Context, h digest.Digest) (*block.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, attest.ErrStoreClosed
	}
	idx, ok := s.byHash[h]
	if !ok {
		return nil, attest.ErrBlockNotFound
	}
	return s.blocks[idx].Clone(), nil
}

// FindByIndex implements store.Store.
func (s *Store) FindByIndex(_ context.Context, index uint64) (*block.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, attest.ErrStoreClosed
	}
	if index >= uint64(len(s.blocks)) {
		return nil, attest.ErrBlockNotFound
	}
	return s.blocks[index].Clone(), nil
}

// Count implements store.Store.
func (s *Store) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, attest.ErrStoreClosed
	}
	return uint64(len(s.blocks)), nil
}

// Tamper rewrites the stored block at index in place, bypassing every
// invariant. It exists for forensic drills and tests that need a corrupted
// chain; the hash index is left pointing at the original hash.
func (s *Store) Tamper(index uint64, fn func(b *block.Block)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index >= uint64(len(s.blocks)) {
		return attest.ErrBlockNotFound
	}
	fn(s.blocks[index])
	return nil
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping implements store.Store.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return attest.ErrStoreClosed
	}
	return nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
