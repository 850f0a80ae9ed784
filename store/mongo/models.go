package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/attest/block"
	"github.com/xraph/attest/digest"
	"github.com/xraph/attest/types"
)

type blockModel struct {
	grove.BaseModel `grove:"table:attest_blocks"`

	Index         int64             `grove:"block_index,pk"  bson:"_id"`
	PreviousHash  string            `grove:"previous_hash"   bson:"previous_hash"`
	RecordType    string            `grove:"record_type"     bson:"record_type"`
	RecordID      string            `grove:"record_id"       bson:"record_id"`
	OwnerID       string            `grove:"owner_id"        bson:"owner_id"`
	RecordedAt    time.Time         `grove:"recorded_at"     bson:"recorded_at"`
	DataHash      string            `grove:"data_hash"       bson:"data_hash"`
	DataReference string            `grove:"data_reference"  bson:"data_reference"`
	Metadata      map[string]string `grove:"metadata"        bson:"metadata,omitempty"`
	BlockHash     string            `grove:"block_hash"      bson:"block_hash"`
	Signature     []byte            `grove:"signature"       bson:"signature"`
	IsValid       bool              `grove:"is_valid"        bson:"is_valid"`
}

func toBlockModel(b *block.Block) *blockModel {
	return &blockModel{
		Index:         int64(b.Index), //nolint:gosec // chain length stays far below MaxInt64
		PreviousHash:  b.PreviousHash.Hex(),
		RecordType:    string(b.RecordType),
		RecordID:      b.RecordID,
		OwnerID:       b.OwnerID,
		RecordedAt:    b.Timestamp.UTC(),
		DataHash:      b.DataHash.Hex(),
		DataReference: b.DataReference,
		Metadata:      b.Metadata.Clone(),
		BlockHash:     b.BlockHash.Hex(),
		Signature:     b.Signature,
		IsValid:       b.IsValid,
	}
}

func fromBlockModel(m *blockModel) (*block.Block, error) {
	prev, err := digest.Parse(m.PreviousHash)
	if err != nil {
		return nil, fmt.Errorf("attest/mongo: block %d previous_hash: %w", m.Index, err)
	}
	dataHash, err := digest.Parse(m.DataHash)
	if err != nil {
		return nil, fmt.Errorf("attest/mongo: block %d data_hash: %w", m.Index, err)
	}
	blockHash, err := digest.Parse(m.BlockHash)
	if err != nil {
		return nil, fmt.Errorf("attest/mongo: block %d block_hash: %w", m.Index, err)
	}

	var md types.Metadata
	if len(m.Metadata) > 0 {
		md = types.Metadata(m.Metadata).Clone()
	}

	return &block.Block{
		Index:         uint64(m.Index), //nolint:gosec // _id is never negative
		PreviousHash:  prev,
		RecordType:    block.RecordType(m.RecordType),
		RecordID:      m.RecordID,
		OwnerID:       m.OwnerID,
		Timestamp:     block.Normalize(m.RecordedAt),
		DataHash:      dataHash,
		DataReference: m.DataReference,
		Metadata:      md,
		BlockHash:     blockHash,
		Signature:     m.Signature,
		IsValid:       m.IsValid,
	}, nil
}
