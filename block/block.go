// Package block defines the unit of the hash-linked chain.
//
// A Block is immutable once persisted. Its BlockHash commits to the link,
// position, record identity, payload digest, off-chain reference, timestamp
// and metadata; its Signature commits to the BlockHash, owner and timestamp.
package block

import (
	"time"

	"github.com/xraph/attest/digest"
	"github.com/xraph/attest/types"
)

// SystemOwner is the OwnerID of records produced by the ledger itself.
const SystemOwner = "SYSTEM"

// Block is a single entry of the chain.
type Block struct {
	Index         uint64         `json:"index"`
	PreviousHash  digest.Digest  `json:"previous_hash"`
	RecordType    RecordType     `json:"record_type"`
	RecordID      string         `json:"record_id"`
	OwnerID       string         `json:"owner_id"`
	Timestamp     time.Time      `json:"timestamp"`
	DataHash      digest.Digest  `json:"data_hash"`
	DataReference string         `json:"data_reference,omitempty"`
	Metadata      types.Metadata `json:"metadata,omitempty"`
	BlockHash     digest.Digest  `json:"block_hash"`
	Signature     []byte         `json:"signature"`

	// IsValid is a cached flag set at construction. It is not hashed and
	// carries no authority; only recomputation proves integrity.
	IsValid bool `json:"is_valid"`
}

// Ref identifies a block by position and hash. Stores compare the expected
// tail Ref against the current tail when appending.
type Ref struct {
	Index uint64
	Hash  digest.Digest
}

// ComputeHash recomputes the block hash from the stored fields.
func (b *Block) ComputeHash() digest.Digest {
	return digest.NewEncoder(digest.DomainBlock).
		Digest(b.PreviousHash).
		Uint64(b.Index).
		String(string(b.RecordType)).
		String(b.RecordID).
		Digest(b.DataHash).
		String(b.DataReference).
		Time(b.Timestamp).
		Map(b.Metadata).
		Sum()
}

// SigningPayload returns the bytes the owner signs for this block.
func (b *Block) SigningPayload() []byte {
	return SigningPayload(b.BlockHash, b.OwnerID, b.Timestamp)
}

// SigningPayload encodes the signed content {blockHash, ownerID, timestamp}.
func SigningPayload(blockHash digest.Digest, ownerID string, ts time.Time) []byte {
	return digest.NewEncoder(digest.DomainSignature).
		Digest(blockHash).
		String(ownerID).
		Time(ts).
		Encoded()
}

// Ref returns the position/hash pair of b.
func (b *Block) Ref() *Ref {
	return &Ref{Index: b.Index, Hash: b.BlockHash}
}

// IsGenesis reports whether b is the first block of a chain.
func (b *Block) IsGenesis() bool {
	return b.Index == 0
}

// Clone returns a deep copy.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	c := *b
	c.Metadata = b.Metadata.Clone()
	if b.Signature != nil {
		c.Signature = append([]byte(nil), b.Signature...)
	}
	return &c
}

// Normalize returns t in the form stored in a block: UTC, millisecond precision.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
