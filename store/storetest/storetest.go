// Package storetest is a conformance suite every store.Store backend runs
// from its own tests.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/attest"
	"github.com/xraph/attest/block"
	"github.com/xraph/attest/digest"
	"github.com/xraph/attest/signature"
	"github.com/xraph/attest/store"
	"github.com/xraph/attest/types"
)

// Factory returns a fresh, migrated, empty store.
type Factory func(t *testing.T) store.Store

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// NewBlock builds a correctly hashed and signed block following prev
// (nil for genesis).
func NewBlock(prev *block.Block, recordID string) *block.Block {
	b := &block.Block{
		PreviousHash:  digest.Genesis,
		RecordType:    block.RecordPayment,
		RecordID:      recordID,
		OwnerID:       "owner-" + recordID,
		DataHash:      digest.Sum([]byte("payload-" + recordID)),
		DataReference: "blob://" + recordID,
		Metadata:      types.Metadata{"source": "storetest"},
		IsValid:       true,
	}
	if prev != nil {
		b.Index = prev.Index + 1
		b.PreviousHash = prev.BlockHash
	}
	b.Timestamp = epoch.Add(time.Duration(b.Index) * time.Second).Add(123 * time.Millisecond)
	b.BlockHash = b.ComputeHash()
	b.Signature, _ = signature.DigestSigner{}.Sign(b.OwnerID, b.SigningPayload()) //nolint:errcheck // digest signing cannot fail
	return b
}

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("EmptyChain", func(t *testing.T) { testEmptyChain(t, newStore(t)) })
	t.Run("AppendAndRead", func(t *testing.T) { testAppendAndRead(t, newStore(t)) })
	t.Run("StaleTailRejected", func(t *testing.T) { testStaleTail(t, newStore(t)) })
	t.Run("ConcurrentGenesis", func(t *testing.T) { testConcurrentAppend(t, newStore(t), nil) })
	t.Run("ConcurrentAppend", func(t *testing.T) {
		s := newStore(t)
		g := NewBlock(nil, "g")
		require.NoError(t, s.AppendIfTailMatches(context.Background(), g, nil))
		testConcurrentAppend(t, s, g)
	})
	t.Run("Ping", func(t *testing.T) {
		require.NoError(t, newStore(t).Ping(context.Background()))
	})
}

func testEmptyChain(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.ReadTail(ctx)
	require.ErrorIs(t, err, attest.ErrChainEmpty)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	all, err := s.ReadAllOrderedByIndex(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = s.FindByHash(ctx, digest.Sum([]byte("nope")))
	require.ErrorIs(t, err, attest.ErrBlockNotFound)

	_, err = s.FindByIndex(ctx, 0)
	require.ErrorIs(t, err, attest.ErrBlockNotFound)
}

func testAppendAndRead(t *testing.T, s store.Store) {
	ctx := context.Background()

	var prev *block.Block
	var chain []*block.Block
	for i := range 5 {
		b := NewBlock(prev, fmt.Sprintf("r%d", i))
		var expected *block.Ref
		if prev != nil {
			expected = prev.Ref()
		}
		require.NoError(t, s.AppendIfTailMatches(ctx, b, expected))
		chain = append(chain, b)
		prev = b
	}

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)

	tail, err := s.ReadTail(ctx)
	require.NoError(t, err)
	AssertSameBlock(t, chain[4], tail)

	all, err := s.ReadAllOrderedByIndex(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i := range all {
		AssertSameBlock(t, chain[i], all[i])
	}

	got, err := s.FindByHash(ctx, chain[2].BlockHash)
	require.NoError(t, err)
	AssertSameBlock(t, chain[2], got)

	got, err = s.FindByIndex(ctx, 3)
	require.NoError(t, err)
	AssertSameBlock(t, chain[3], got)

	// Stored blocks still verify after the round trip.
	res := attest.NewVerifier(s, signature.DigestSigner{}).Check(all)
	assert.True(t, res.Valid, "reason: %s", res.Reason)
}

func testStaleTail(t *testing.T, s store.Store) {
	ctx := context.Background()

	g := NewBlock(nil, "g")
	require.NoError(t, s.AppendIfTailMatches(ctx, g, nil))

	// A second genesis must fail.
	err := s.AppendIfTailMatches(ctx, NewBlock(nil, "g2"), nil)
	require.ErrorIs(t, err, attest.ErrConcurrentAppendConflict)

	b1 := NewBlock(g, "b1")
	require.NoError(t, s.AppendIfTailMatches(ctx, b1, g.Ref()))

	// Built against the old tail.
	err = s.AppendIfTailMatches(ctx, NewBlock(g, "b1-late"), g.Ref())
	require.ErrorIs(t, err, attest.ErrConcurrentAppendConflict)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func testConcurrentAppend(t *testing.T, s store.Store, tail *block.Block) {
	ctx := context.Background()
	const writers = 8

	var expected *block.Ref
	if tail != nil {
		expected = tail.Ref()
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	start := make(chan struct{})
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := NewBlock(tail, fmt.Sprintf("w%d", i))
			<-start
			err := s.AppendIfTailMatches(ctx, b, expected)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case attest.IsConflict(err):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, writers-1, conflicts)
}

// AssertSameBlock compares every persisted field of two blocks.
func AssertSameBlock(t *testing.T, want, got *block.Block) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.Index, got.Index)
	assert.Equal(t, want.PreviousHash, got.PreviousHash)
	assert.Equal(t, want.RecordType, got.RecordType)
	assert.Equal(t, want.RecordID, got.RecordID)
	assert.Equal(t, want.OwnerID, got.OwnerID)
	assert.True(t, want.Timestamp.Equal(got.Timestamp), "timestamp %s != %s", want.Timestamp, got.Timestamp)
	assert.Equal(t, want.DataHash, got.DataHash)
	assert.Equal(t, want.DataReference, got.DataReference)
	assert.Equal(t, map[string]string(want.Metadata), map[string]string(got.Metadata))
	assert.Equal(t, want.BlockHash, got.BlockHash)
	assert.Equal(t, want.Signature, got.Signature)
	assert.Equal(t, want.IsValid, got.IsValid)
}
