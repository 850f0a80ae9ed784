package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/attest/store/storetest"
)

func TestBlockModelRoundTrip(t *testing.T) {
	g := storetest.NewBlock(nil, "g")
	b := storetest.NewBlock(g, "b1")

	back, err := fromBlockModel(toBlockModel(b))
	require.NoError(t, err)
	storetest.AssertSameBlock(t, b, back)
	assert.Equal(t, b.ComputeHash(), back.ComputeHash())
}

func TestBlockModelRejectsCorruptHash(t *testing.T) {
	m := toBlockModel(storetest.NewBlock(nil, "g"))
	m.BlockHash = "not-a-digest"
	_, err := fromBlockModel(m)
	require.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "attest_blocks_pkey"`)))
	assert.False(t, isUniqueViolation(errors.New("connection reset")))
}

func TestMigrationExecutorRegistered(t *testing.T) {
	_, err := migrate.NewExecutorFor(pgdriver.New())
	require.NoError(t, err)
}
