package sqlite

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/attest/store/storetest"
)

func TestBlockModelRoundTrip(t *testing.T) {
	g := storetest.NewBlock(nil, "g")
	b := storetest.NewBlock(g, "b1")

	m, err := toBlockModel(b)
	require.NoError(t, err)
	assert.Equal(t, b.Timestamp.UnixMilli(), m.RecordedAtMS)

	back, err := fromBlockModel(m)
	require.NoError(t, err)
	storetest.AssertSameBlock(t, b, back)
	assert.Equal(t, b.ComputeHash(), back.ComputeHash())
}

func TestBlockModelEmptyMetadata(t *testing.T) {
	b := storetest.NewBlock(nil, "g")
	b.Metadata = nil

	m, err := toBlockModel(b)
	require.NoError(t, err)
	assert.Equal(t, "{}", m.Metadata)

	back, err := fromBlockModel(m)
	require.NoError(t, err)
	assert.Nil(t, back.Metadata)
}

func TestIsConstraintViolationFallback(t *testing.T) {
	assert.True(t, isConstraintViolation(errors.New("constraint failed: UNIQUE constraint failed: attest_blocks.block_index (1555)")))
	assert.False(t, isConstraintViolation(errors.New("database is locked")))
}

func TestIsBusyFallback(t *testing.T) {
	assert.True(t, isBusy(errors.New("sqlitedriver: exec: database is locked (5) (SQLITE_BUSY)")))
	assert.False(t, isBusy(errors.New("UNIQUE constraint failed: attest_blocks.block_hash")))
}

func TestMigrationExecutorRegistered(t *testing.T) {
	_, err := migrate.NewExecutorFor(sqlitedriver.New())
	require.NoError(t, err)
}
