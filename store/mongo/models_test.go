package mongo

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"

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

func TestBlockModelCopiesMetadata(t *testing.T) {
	b := storetest.NewBlock(nil, "g")
	m := toBlockModel(b)
	m.Metadata["source"] = "changed"
	assert.Equal(t, "storetest", b.Metadata["source"])
}

func TestMigrationIndexesUnique(t *testing.T) {
	idx := migrationIndexes()
	require.Len(t, idx, 3)
	assert.NotNil(t, idx[0].Options)
	assert.NotNil(t, idx[1].Options)
}

func TestIsNoDocuments(t *testing.T) {
	assert.True(t, isNoDocuments(fmt.Errorf("find: %w", mongo.ErrNoDocuments)))
	assert.False(t, isNoDocuments(fmt.Errorf("timeout")))
}
