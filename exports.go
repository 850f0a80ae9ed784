package attest

import (
	"github.com/xraph/attest/block"
	"github.com/xraph/attest/digest"
	"github.com/xraph/attest/types"
)

// Re-export common types for convenience so callers don't have to import
// the block and digest packages for everyday use.

// Block is re-exported from the block package.
type Block = block.Block

// RecordType is re-exported from the block package.
type RecordType = block.RecordType

// Digest is re-exported from the digest package.
type Digest = digest.Digest

// Metadata is re-exported from the types package.
type Metadata = types.Metadata

// Re-export well-known record types.
const (
	RecordMedicalTreatment = block.RecordMedicalTreatment
	RecordPayment          = block.RecordPayment
	RecordAuditBatch       = block.RecordAuditBatch
	RecordHealthToken      = block.RecordHealthToken
	RecordHealthProbe      = block.RecordHealthProbe
)

// Re-export digest helpers.
var (
	Genesis     = digest.Genesis
	ParseDigest = digest.Parse
)
