package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/attest"
	"github.com/xraph/attest/block"
	"github.com/xraph/attest/store"
	"github.com/xraph/attest/store/memory"
	"github.com/xraph/attest/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return memory.New() })
}

func TestReturnedBlocksAreCopies(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	g := storetest.NewBlock(nil, "g")
	require.NoError(t, s.AppendIfTailMatches(ctx, g, nil))

	// Mutating the caller's block after append does not reach the store.
	g.RecordID = "changed"

	got, err := s.ReadTail(ctx)
	require.NoError(t, err)
	assert.Equal(t, "g", got.RecordID)

	got.Metadata["source"] = "mutated"
	again, err := s.FindByIndex(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "storetest", again.Metadata["source"])
}

func TestTamper(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.AppendIfTailMatches(ctx, storetest.NewBlock(nil, "g"), nil))

	require.NoError(t, s.Tamper(0, func(b *block.Block) { b.RecordID = "forged" }))
	got, err := s.FindByIndex(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "forged", got.RecordID)

	require.ErrorIs(t, s.Tamper(9, func(*block.Block) {}), attest.ErrBlockNotFound)
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.Close())

	require.ErrorIs(t, s.Ping(ctx), attest.ErrStoreClosed)
	_, err := s.ReadTail(ctx)
	require.ErrorIs(t, err, attest.ErrStoreClosed)
	err = s.AppendIfTailMatches(ctx, storetest.NewBlock(nil, "g"), nil)
	require.ErrorIs(t, err, attest.ErrStoreClosed)
}
