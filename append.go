package attest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/attest/block"
	"github.com/xraph/attest/digest"
	"github.com/xraph/attest/store"
	"github.com/xraph/attest/types"
)

// AppendRequest describes a record to fingerprint.
//
// Payload is hashed and discarded; only its digest is stored. It must be
// non-nil but may be empty.
type AppendRequest struct {
	Payload       []byte           `validate:"required"`
	RecordType    block.RecordType `validate:"recordtype"`
	RecordID      string           `validate:"required,max=256"`
	OwnerID       string           `validate:"required,max=256"`
	DataReference string           `validate:"max=2048"`
	Metadata      types.Metadata   `validate:"metadata"`
}

// RetryPolicy bounds AppendWithRetry.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxTries:        8,
		InitialInterval: 5 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxTries == 0 {
		p.MaxTries = d.MaxTries
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = d.InitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = d.MaxInterval
	}
	return p
}

// Append fingerprints req and links it after the current tail.
//
// It returns ErrInvalidInput (as a ValidationError) for malformed requests,
// ErrConcurrentAppendConflict when another writer claimed the position
// first, and ErrLedgerInternal when the block could not be signed. A failed
// append leaves no trace in the store.
func (l *Ledger) Append(ctx context.Context, req AppendRequest) (*block.Block, error) {
	ctx, span := l.tracer.Start(ctx, "attest.Append",
		trace.WithAttributes(
			attribute.String("attest.record_type", string(req.RecordType)),
			attribute.String("attest.record_id", req.RecordID),
		),
	)
	defer span.End()

	if err := l.validateRequest(req); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if l.serialize {
		l.appendMu.Lock()
		defer l.appendMu.Unlock()
	}

	b, expected, err := l.appendOnce(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		if errors.Is(err, ErrConcurrentAppendConflict) {
			l.logger.Debug("attest: append conflict",
				"index", store.NextIndex(expected),
				"record_id", req.RecordID,
			)
			l.plugins.EmitAppendConflict(ctx, store.NextIndex(expected), req.RecordID)
			return nil, err
		}

		l.logger.Error("attest: append failed",
			"record_type", req.RecordType,
			"record_id", req.RecordID,
			"error", err,
		)
		l.plugins.EmitAppendFailed(ctx, req.RecordType, req.RecordID, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("attest.index", int64(b.Index)), //nolint:gosec // chain length stays far below MaxInt64
		attribute.String("attest.block_hash", b.BlockHash.Hex()),
	)

	l.logger.Debug("attest: block appended",
		"index", b.Index,
		"record_type", b.RecordType,
		"record_id", b.RecordID,
		"block_hash", b.BlockHash.Hex(),
	)
	l.plugins.EmitBlockAppended(ctx, b)

	return b.Clone(), nil
}

// appendOnce performs a single read-build-persist attempt. It returns the
// tail reference the block was built against, for conflict reporting.
func (l *Ledger) appendOnce(ctx context.Context, req AppendRequest) (*block.Block, *block.Ref, error) {
	var (
		expected *block.Ref
		prev     = digest.Genesis
	)

	tail, err := l.store.ReadTail(ctx)
	switch {
	case err == nil:
		expected = tail.Ref()
		prev = tail.BlockHash
	case errors.Is(err, ErrChainEmpty):
	default:
		return nil, nil, fmt.Errorf("attest: read tail: %w", err)
	}

	md := req.Metadata.Clone()
	if len(md) == 0 {
		md = nil
	}

	b := &block.Block{
		Index:         store.NextIndex(expected),
		PreviousHash:  prev,
		RecordType:    req.RecordType,
		RecordID:      req.RecordID,
		OwnerID:       req.OwnerID,
		Timestamp:     block.Normalize(l.clock()),
		DataHash:      digest.Sum(req.Payload),
		DataReference: req.DataReference,
		Metadata:      md,
	}
	b.BlockHash = b.ComputeHash()

	sig, err := l.signer.Sign(b.OwnerID, b.SigningPayload())
	if err != nil {
		return nil, expected, fmt.Errorf("%w: sign block %d: %v", ErrLedgerInternal, b.Index, err)
	}
	b.Signature = sig
	b.IsValid = true

	if err := l.store.AppendIfTailMatches(ctx, b, expected); err != nil {
		return nil, expected, err
	}
	return b, expected, nil
}

// AppendWithRetry calls Append, retrying with exponential backoff only when
// another writer won the race for the tail. Every other error is returned
// immediately.
func (l *Ledger) AppendWithRetry(ctx context.Context, req AppendRequest) (*block.Block, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = l.retry.InitialInterval
	bo.MaxInterval = l.retry.MaxInterval

	attempt := 0
	op := func() (*block.Block, error) {
		attempt++
		b, err := l.Append(ctx, req)
		if err == nil {
			return b, nil
		}
		if IsConflict(err) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	b, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(l.retry.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			l.logger.Debug("attest: retrying append",
				"record_id", req.RecordID,
				"attempt", attempt,
				"next", next,
				"error", err,
			)
		}),
	)
	if err != nil {
		if IsConflict(err) {
			l.logger.Warn("attest: append retries exhausted",
				"record_id", req.RecordID,
				"attempts", attempt,
			)
		}
		return nil, err
	}
	return b, nil
}
