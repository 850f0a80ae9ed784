package block_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/attest/block"
	"github.com/xraph/attest/digest"
	"github.com/xraph/attest/types"
)

func sample() *block.Block {
	b := &block.Block{
		Index:         3,
		PreviousHash:  digest.Sum([]byte("prev")),
		RecordType:    block.RecordPayment,
		RecordID:      "pay-42",
		OwnerID:       "user-7",
		Timestamp:     time.Date(2025, 6, 1, 9, 30, 0, 123_000_000, time.UTC),
		DataHash:      digest.Sum([]byte("payload")),
		DataReference: "s3://bucket/pay-42",
		Metadata:      types.Metadata{"currency": "EUR"},
	}
	b.BlockHash = b.ComputeHash()
	b.Signature = []byte("sig")
	return b
}

func TestComputeHashDeterministic(t *testing.T) {
	a, b := sample(), sample()
	assert.Equal(t, a.ComputeHash(), b.ComputeHash())
}

func TestComputeHashCoversEveryField(t *testing.T) {
	base := sample().ComputeHash()

	mutations := map[string]func(*block.Block){
		"Index":         func(b *block.Block) { b.Index++ },
		"PreviousHash":  func(b *block.Block) { b.PreviousHash[0] ^= 1 },
		"RecordType":    func(b *block.Block) { b.RecordType = block.RecordMedicalTreatment },
		"RecordID":      func(b *block.Block) { b.RecordID += "x" },
		"DataHash":      func(b *block.Block) { b.DataHash[31] ^= 0x80 },
		"DataReference": func(b *block.Block) { b.DataReference = "" },
		"Timestamp":     func(b *block.Block) { b.Timestamp = b.Timestamp.Add(time.Millisecond) },
		"MetadataValue": func(b *block.Block) { b.Metadata["currency"] = "USD" },
		"MetadataKey":   func(b *block.Block) { b.Metadata["extra"] = "" },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			b := sample()
			mutate(b)
			assert.NotEqual(t, base, b.ComputeHash())
		})
	}
}

func TestComputeHashIgnoresCachedFlagAndSignature(t *testing.T) {
	b := sample()
	before := b.ComputeHash()
	b.IsValid = !b.IsValid
	b.Signature = []byte("other")
	assert.Equal(t, before, b.ComputeHash())
}

func TestSigningPayloadBindsOwnerAndTime(t *testing.T) {
	b := sample()
	p := b.SigningPayload()

	c := sample()
	c.OwnerID = "user-8"
	assert.NotEqual(t, p, c.SigningPayload())

	d := sample()
	d.Timestamp = d.Timestamp.Add(time.Millisecond)
	assert.NotEqual(t, p, d.SigningPayload())
}

func TestCloneIsDeep(t *testing.T) {
	b := sample()
	c := b.Clone()
	c.Metadata["currency"] = "GBP"
	c.Signature[0] = 'X'
	assert.Equal(t, "EUR", b.Metadata["currency"])
	assert.Equal(t, byte('s'), b.Signature[0])

	var nilBlock *block.Block
	assert.Nil(t, nilBlock.Clone())
}

func TestNormalize(t *testing.T) {
	in := time.Date(2025, 1, 1, 0, 0, 0, 1_999_999, time.FixedZone("x", 7200))
	out := block.Normalize(in)
	assert.Equal(t, time.UTC, out.Location())
	assert.Equal(t, 1_000_000, out.Nanosecond())
}

func TestRecordTypeValid(t *testing.T) {
	tests := []struct {
		rt   block.RecordType
		want bool
	}{
		{block.RecordMedicalTreatment, true},
		{block.RecordPayment, true},
		{block.RecordAuditBatch, true},
		{block.RecordHealthToken, true},
		{block.RecordHealthProbe, true},
		{"LAB_RESULT_V2", true},
		{"", false},
		{"payment", false},
		{"1PAYMENT", false},
		{"PAY-MENT", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.rt), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rt.Valid())
		})
	}
}

func TestRef(t *testing.T) {
	b := sample()
	ref := b.Ref()
	require.NotNil(t, ref)
	assert.Equal(t, b.Index, ref.Index)
	assert.Equal(t, b.BlockHash, ref.Hash)
	assert.False(t, b.IsGenesis())
}
