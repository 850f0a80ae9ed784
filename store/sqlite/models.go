package sqlite

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/attest/block"
	"github.com/xraph/attest/digest"
	"github.com/xraph/attest/types"
)

// Timestamps are stored as Unix milliseconds so they round-trip exactly
// regardless of how the driver formats TEXT datetimes.
type blockModel struct {
	grove.BaseModel `grove:"table:attest_blocks"`

	Index         int64  `grove:"block_index,pk"`
	PreviousHash  string `grove:"previous_hash"`
	RecordType    string `grove:"record_type"`
	RecordID      string `grove:"record_id"`
	OwnerID       string `grove:"owner_id"`
	RecordedAtMS  int64  `grove:"recorded_at_ms"`
	DataHash      string `grove:"data_hash"`
	DataReference string `grove:"data_reference"`
	Metadata      string `grove:"metadata"`
	BlockHash     string `grove:"block_hash"`
	Signature     []byte `grove:"signature"`
	IsValid       bool   `grove:"is_valid"`
}

func toBlockModel(b *block.Block) (*blockModel, error) {
	md, err := b.Metadata.Value()
	if err != nil {
		return nil, fmt.Errorf("attest/sqlite: encode metadata: %w", err)
	}
	mdText, _ := md.(string)

	return &blockModel{
		Index:         int64(b.Index), //nolint:gosec // chain length stays far below MaxInt64
		PreviousHash:  b.PreviousHash.Hex(),
		RecordType:    string(b.RecordType),
		RecordID:      b.RecordID,
		OwnerID:       b.OwnerID,
		RecordedAtMS:  b.Timestamp.UnixMilli(),
		DataHash:      b.DataHash.Hex(),
		DataReference: b.DataReference,
		Metadata:      mdText,
		BlockHash:     b.BlockHash.Hex(),
		Signature:     b.Signature,
		IsValid:       b.IsValid,
	}, nil
}

func fromBlockModel(m *blockModel) (*block.Block, error) {
	prev, err := digest.Parse(m.PreviousHash)
	if err != nil {
		return nil, fmt.Errorf("attest/sqlite: block %d previous_hash: %w", m.Index, err)
	}
	dataHash, err := digest.Parse(m.DataHash)
	if err != nil {
		return nil, fmt.Errorf("attest/sqlite: block %d data_hash: %w", m.Index, err)
	}
	blockHash, err := digest.Parse(m.BlockHash)
	if err != nil {
		return nil, fmt.Errorf("attest/sqlite: block %d block_hash: %w", m.Index, err)
	}

	var md types.Metadata
	if err := md.Scan(m.Metadata); err != nil {
		return nil, fmt.Errorf("attest/sqlite: block %d: %w", m.Index, err)
	}

	return &block.Block{
		Index:         uint64(m.Index), //nolint:gosec // block_index is never negative
		PreviousHash:  prev,
		RecordType:    block.RecordType(m.RecordType),
		RecordID:      m.RecordID,
		OwnerID:       m.OwnerID,
		Timestamp:     time.UnixMilli(m.RecordedAtMS).UTC(),
		DataHash:      dataHash,
		DataReference: m.DataReference,
		Metadata:      md,
		BlockHash:     blockHash,
		Signature:     m.Signature,
		IsValid:       m.IsValid,
	}, nil
}
