// Package leveldb provides an embedded store.Store on LevelDB.
//
// Layout:
//
//	b/<20-digit index>  -> JSON block
//	h/<hex block hash>  -> 8-byte big-endian index
//	tail                -> 8-byte big-endian index of the last block
//
// LevelDB holds an exclusive file lock on its directory, so a single
// process owns the database; within it a mutex spans the tail check and
// the batched write.
package leveldb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/xraph/attest"
	"github.com/xraph/attest/block"
	"github.com/xraph/attest/digest"
	chainstore "github.com/xraph/attest/store"
)

// compile-time interface check
var _ chainstore.Store = (*Store)(nil)

var (
	blockPrefix = []byte("b/")
	hashPrefix  = []byte("h/")
	tailKey     = []byte("tail")
)

// Store implements store.Store on a LevelDB database.
type Store struct {
	mu sync.Mutex
	db *leveldb.DB
}

// Open opens (or creates) a database at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("attest/leveldb: open %s: %w", path, err)
	}
	return New(db), nil
}

// OpenInMemory opens a database backed by memory only.
func OpenInMemory() (*Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("attest/leveldb: open memory storage: %w", err)
	}
	return New(db), nil
}

// New wraps an open database.
func New(db *leveldb.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database for direct access.
func (s *Store) DB() *leveldb.DB { return s.db }

func blockKey(index uint64) []byte {
	return fmt.Appendf(append([]byte(nil), blockPrefix...), "%020d", index)
}

func hashKey(h digest.Digest) []byte {
	return append(append([]byte(nil), hashPrefix...), h.Hex()...)
}

func encodeIndex(i uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], i)
	return b[:]
}

func decodeIndex(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("attest/leveldb: corrupt index value of %d bytes", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// tailIndex returns the index of the last block; ok is false for an empty chain.
func (s *Store) tailIndex() (uint64, bool, error) {
	raw, err := s.db.Get(tailKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, s.wrap("read tail", err)
	}
	idx, err := decodeIndex(raw)
	if err != nil {
		return 0, false, err
	}
	return idx, true, nil
}

func (s *Store) get(index uint64) (*block.Block, error) {
	raw, err := s.db.Get(blockKey(index), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, attest.ErrBlockNotFound
	}
	if err != nil {
		return nil, s.wrap("get block", err)
	}
	return decodeBlock(raw)
}

func decodeBlock(raw []byte) (*block.Block, error) {
	var b block.Block
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("attest/leveldb: decode block: %w", err)
	}
	return &b, nil
}

// AppendIfTailMatches implements store.Store.
func (s *Store) AppendIfTailMatches(_ context.Context, b *block.Block, expected *block.Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tail *block.Block
	idx, ok, err := s.tailIndex()
	if err != nil {
		return err
	}
	if ok {
		if tail, err = s.get(idx); err != nil {
			return err
		}
	}
	if !chainstore.TailMatches(tail, expected) || b.Index != chainstore.NextIndex(expected) {
		return fmt.Errorf("attest/leveldb: tail moved: %w", attest.ErrConcurrentAppendConflict)
	}
	if has, err := s.db.Has(hashKey(b.BlockHash), nil); err != nil {
		return s.wrap("check hash", err)
	} else if has {
		return fmt.Errorf("attest/leveldb: duplicate block hash: %w", attest.ErrConcurrentAppendConflict)
	}

	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("attest/leveldb: encode block: %w", err)
	}

	batch := new(leveldb.Batch)
	batch.Put(blockKey(b.Index), raw)
	batch.Put(hashKey(b.BlockHash), encodeIndex(b.Index))
	batch.Put(tailKey, encodeIndex(b.Index))
	if err := s.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return s.wrap("write block", err)
	}
	return nil
}

// ReadAllOrderedByIndex implements store.Store. Zero-padded keys iterate
// in index order.
func (s *Store) ReadAllOrderedByIndex(_ context.Context) ([]*block.Block, error) {
	snap, err := s.db.GetSnapshot()
	if err != nil {
		return nil, s.wrap("snapshot", err)
	}
	defer snap.Release()

	iter := snap.NewIterator(util.BytesPrefix(blockPrefix), nil)
	defer iter.Release()

	var out []*block.Block
	for iter.Next() {
		b, err := decodeBlock(iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := iter.Error(); err != nil {
		return nil, s.wrap("iterate blocks", err)
	}
	return out, nil
}

// ReadTail implements store.Store.
func (s *Store) ReadTail(_ context.Context) (*block.Block, error) {
	idx, ok, err := s.tailIndex()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, attest.ErrChainEmpty
	}
	return s.get(idx)
}

// FindByHash implements store.Store.
func (s *Store) FindByHash(_ context.Context, h digest.Digest) (*block.Block, error) {
	raw, err := s.db.Get(hashKey(h), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, attest.ErrBlockNotFound
	}
	if err != nil {
		return nil, s.wrap("find by hash", err)
	}
	idx, err := decodeIndex(raw)
	if err != nil {
		return nil, err
	}
	return s.get(idx)
}

// FindByIndex implements store.Store.
func (s *Store) FindByIndex(_ context.Context, index uint64) (*block.Block, error) {
	return s.get(index)
}

// Count implements store.Store.
func (s *Store) Count(_ context.Context) (uint64, error) {
	idx, ok, err := s.tailIndex()
	if err != nil || !ok {
		return 0, err
	}
	return idx + 1, nil
}

// Migrate is a no-op; the key layout needs no schema.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping checks the database is open and readable.
func (s *Store) Ping(_ context.Context) error {
	_, _, err := s.tailIndex()
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) wrap(op string, err error) error {
	if errors.Is(err, leveldb.ErrClosed) {
		return fmt.Errorf("attest/leveldb: %s: %w", op, attest.ErrStoreClosed)
	}
	return fmt.Errorf("attest/leveldb: %s: %w", op, err)
}
