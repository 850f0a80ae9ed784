package attest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/xraph/attest/block"
	"github.com/xraph/attest/digest"
	"github.com/xraph/attest/signature"
	"github.com/xraph/attest/store"
)

// VerificationResult is the outcome of a whole-chain check.
type VerificationResult struct {
	Valid bool `json:"valid"`

	// FirstInvalidIndex is the position of the first block that failed,
	// nil when the chain is valid.
	FirstInvalidIndex *uint64 `json:"first_invalid_index,omitempty"`

	// Reason is the first check that block failed.
	Reason ViolationKind `json:"reason,omitempty"`

	// Checked counts the blocks that passed every check.
	Checked uint64 `json:"checked"`

	// Length is the number of blocks read.
	Length uint64 `json:"length"`
}

// Violation returns the failure as an error, or nil for a valid chain.
func (r *VerificationResult) Violation() *IntegrityViolation {
	if r.Valid || r.FirstInvalidIndex == nil {
		return nil
	}
	return &IntegrityViolation{Index: *r.FirstInvalidIndex, Kind: r.Reason}
}

// Verifier checks chain integrity. It never writes.
type Verifier struct {
	store  store.Store
	signer signature.Signer
}

// NewVerifier returns a verifier that checks signatures with signer.
func NewVerifier(s store.Store, signer signature.Signer) *Verifier {
	return &Verifier{store: s, signer: signer}
}

// VerifyChain reads the chain and checks every block from genesis.
//
// For each position i, in order: the block's Index must equal i, its hash
// must recompute, its signature must verify, and its PreviousHash must equal
// the hash of block i-1 (the genesis sentinel for i = 0). The first failure
// ends the walk. An empty chain is valid.
//
// A violation is a finding, not an error: the error return is reserved for
// failures to read the store.
func (v *Verifier) VerifyChain(ctx context.Context) (*VerificationResult, error) {
	blocks, err := v.store.ReadAllOrderedByIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("attest: read chain: %w", err)
	}
	return v.Check(blocks), nil
}

// Check verifies an already loaded chain.
func (v *Verifier) Check(blocks []*block.Block) *VerificationResult {
	res := &VerificationResult{Length: uint64(len(blocks))}

	prev := digest.Genesis
	for i, b := range blocks {
		pos := uint64(i) //nolint:gosec // slice index is non-negative
		if kind := v.checkAt(pos, prev, b); kind != ViolationNone {
			res.FirstInvalidIndex = &pos
			res.Reason = kind
			return res
		}
		prev = b.BlockHash
		res.Checked++
	}

	res.Valid = true
	return res
}

func (v *Verifier) checkAt(pos uint64, prev digest.Digest, b *block.Block) ViolationKind {
	if b.Index != pos {
		return ViolationIndexGap
	}
	if kind := v.checkContent(b); kind != ViolationNone {
		return kind
	}
	if b.PreviousHash != prev {
		return ViolationLinkMismatch
	}
	return ViolationNone
}

func (v *Verifier) checkContent(b *block.Block) ViolationKind {
	if b.ComputeHash() != b.BlockHash {
		return ViolationHashMismatch
	}
	if err := v.signer.Verify(b.OwnerID, b.SigningPayload(), b.Signature); err != nil {
		return ViolationSignatureMismatch
	}
	return ViolationNone
}

// VerifyBlock checks a single block's hash and signature, without its link.
func (v *Verifier) VerifyBlock(b *block.Block) error {
	if kind := v.checkContent(b); kind != ViolationNone {
		return &IntegrityViolation{Index: b.Index, Kind: kind}
	}
	return nil
}

// VerifyByHash looks up the block with the given hash. It makes no claim
// about the validity of the chain around it.
func (v *Verifier) VerifyByHash(ctx context.Context, h digest.Digest) (*block.Block, error) {
	b, err := v.store.FindByHash(ctx, h)
	if err != nil {
		if errors.Is(err, ErrBlockNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("attest: find by hash: %w", err)
	}
	return b, nil
}

// ──────────────────────────────────────────────────
// Ledger verification entry points
// ──────────────────────────────────────────────────

// VerifyChain verifies the whole chain, logging and emitting the outcome.
func (l *Ledger) VerifyChain(ctx context.Context) (*VerificationResult, error) {
	ctx, span := l.tracer.Start(ctx, "attest.VerifyChain")
	defer span.End()

	start := time.Now()
	res, err := l.verifier.VerifyChain(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.logger.Error("attest: chain verification could not read store", "error", err)
		return nil, err
	}
	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.Bool("attest.valid", res.Valid),
		attribute.Int64("attest.checked", int64(res.Checked)), //nolint:gosec // chain length stays far below MaxInt64
	)

	if v := res.Violation(); v != nil {
		span.SetStatus(codes.Error, v.Error())
		l.logger.Error("attest: integrity violation detected",
			"index", v.Index,
			"kind", v.Kind,
			"length", res.Length,
		)
		l.plugins.EmitIntegrityViolation(ctx, v.Index, string(v.Kind))
	} else {
		l.logger.Debug("attest: chain verified",
			"length", res.Length,
			"elapsed", elapsed,
		)
	}
	l.plugins.EmitChainVerified(ctx, res.Valid, res.Checked, elapsed)

	return res, nil
}

// VerifyByHash returns the block with hash h, or ErrBlockNotFound.
func (l *Ledger) VerifyByHash(ctx context.Context, h digest.Digest) (*block.Block, error) {
	return l.verifier.VerifyByHash(ctx, h)
}

// VerifyBlock checks a single block's hash and signature.
func (l *Ledger) VerifyBlock(b *block.Block) error {
	return l.verifier.VerifyBlock(b)
}
