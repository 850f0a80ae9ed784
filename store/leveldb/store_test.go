package leveldb_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/attest"
	"github.com/xraph/attest/store"
	"github.com/xraph/attest/store/leveldb"
	"github.com/xraph/attest/store/storetest"
)

func openMem(t *testing.T) store.Store {
	t.Helper()
	s, err := leveldb.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, openMem)
}

func TestReopenPreservesChain(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "chain")

	s, err := leveldb.Open(dir)
	require.NoError(t, err)

	g := storetest.NewBlock(nil, "g")
	b1 := storetest.NewBlock(g, "b1")
	require.NoError(t, s.AppendIfTailMatches(ctx, g, nil))
	require.NoError(t, s.AppendIfTailMatches(ctx, b1, g.Ref()))
	require.NoError(t, s.Close())

	s, err = leveldb.Open(dir)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	tail, err := s.ReadTail(ctx)
	require.NoError(t, err)
	storetest.AssertSameBlock(t, b1, tail)

	got, err := s.FindByHash(ctx, g.BlockHash)
	require.NoError(t, err)
	storetest.AssertSameBlock(t, g, got)
}

func TestClosedStore(t *testing.T) {
	s, err := leveldb.OpenInMemory()
	require.NoError(t, err)
	require.NoError(t, s.Close())

	require.ErrorIs(t, s.Ping(context.Background()), attest.ErrStoreClosed)
}
