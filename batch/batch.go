// Package batch aggregates external audit records into a single ledger
// block per time window.
//
// A Hasher is an ordinary ledger client: every batch goes through
// AppendWithRetry with the same validation and conflict handling as any
// other producer.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/xraph/attest"
	"github.com/xraph/attest/block"
	"github.com/xraph/attest/digest"
	"github.com/xraph/attest/id"
	"github.com/xraph/attest/plugin"
	"github.com/xraph/attest/types"
)

// DomainBatch tags the canonical encoding of a batch payload.
const DomainBatch = "attest/batch/v1"

// RecordIDPrefix prefixes the record id of every batch block.
const RecordIDPrefix = "BATCH-"

// Metadata keys set on batch blocks.
const (
	MetaRecordCount = "record_count"
	MetaWindowStart = "window_start"
	MetaWindowEnd   = "window_end"
	MetaBatchID     = "batch_id"
)

// ExternalRecord is an audit record produced outside the ledger. Only the
// fields below contribute to the batch payload, in this order.
type ExternalRecord struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Type      string    `json:"type"`
	Subject   string    `json:"subject"`
	Timestamp time.Time `json:"timestamp"`
	Origin    string    `json:"origin"`
}

// Appender is the ledger surface a Hasher needs.
type Appender interface {
	AppendWithRetry(ctx context.Context, req attest.AppendRequest) (*block.Block, error)
}

// RecordSource supplies the records of a window.
type RecordSource interface {
	Records(ctx context.Context, windowStart, windowEnd time.Time) ([]ExternalRecord, error)
}

// RecordSourceFunc adapts a function to a RecordSource.
type RecordSourceFunc func(ctx context.Context, windowStart, windowEnd time.Time) ([]ExternalRecord, error)

// Records implements RecordSource.
func (f RecordSourceFunc) Records(ctx context.Context, windowStart, windowEnd time.Time) ([]ExternalRecord, error) {
	return f(ctx, windowStart, windowEnd)
}

// Hasher commits batches of external records to a ledger.
type Hasher struct {
	appender Appender
	plugins  *plugin.Registry
	logger   *slog.Logger
}

// New creates a Hasher appending through a. When a is an *attest.Ledger its
// plugin registry and logger are used unless overridden by options.
func New(a Appender, opts ...Option) *Hasher {
	h := &Hasher{
		appender: a,
		logger:   slog.Default(),
	}
	if l, ok := a.(*attest.Ledger); ok {
		h.plugins = l.Plugins()
		h.logger = l.Logger()
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.plugins == nil {
		h.plugins = plugin.NewRegistry().WithLogger(h.logger)
	}
	return h
}

// CommitBatch appends one AUDIT_BATCH block fingerprinting records.
//
// An empty batch creates no block and returns (nil, nil). Committing the
// same window twice with a changed record set creates a second block; the
// ledger does not deduplicate.
func (h *Hasher) CommitBatch(ctx context.Context, records []ExternalRecord, windowStart, windowEnd time.Time) (*block.Block, error) {
	if windowEnd.Before(windowStart) {
		return nil, attest.ValidationError{
			Field:   "windowEnd",
			Message: fmt.Sprintf("window end %s is before start %s", windowEnd.UTC().Format(time.RFC3339), windowStart.UTC().Format(time.RFC3339)),
		}
	}

	if len(records) == 0 {
		h.logger.Debug("batch: empty window, nothing to commit",
			"window_start", windowStart,
			"window_end", windowEnd,
		)
		h.plugins.EmitBatchSkipped(ctx, windowStart, windowEnd)
		return nil, nil
	}

	batchID := id.NewBatchID()
	req := attest.AppendRequest{
		Payload:    Payload(records),
		RecordType: block.RecordAuditBatch,
		RecordID:   RecordID(windowStart),
		OwnerID:    block.SystemOwner,
		Metadata: types.Metadata{
			MetaRecordCount: strconv.Itoa(len(records)),
			MetaWindowStart: windowStart.UTC().Format(time.RFC3339Nano),
			MetaWindowEnd:   windowEnd.UTC().Format(time.RFC3339Nano),
			MetaBatchID:     batchID.String(),
		},
	}

	b, err := h.appender.AppendWithRetry(ctx, req)
	if err != nil {
		h.logger.Error("batch: commit failed, audit coverage lost for window",
			"batch_id", batchID.String(),
			"record_id", req.RecordID,
			"record_count", len(records),
			"error", err,
		)
		return nil, fmt.Errorf("batch: commit %s: %w", req.RecordID, err)
	}

	h.logger.Info("batch: committed",
		"batch_id", batchID.String(),
		"index", b.Index,
		"record_count", len(records),
		"block_hash", b.BlockHash.Hex(),
	)
	h.plugins.EmitBatchCommitted(ctx, b, len(records))
	return b, nil
}

// CommitWindow pulls the records of [windowStart, windowEnd] from src and
// commits them.
func (h *Hasher) CommitWindow(ctx context.Context, src RecordSource, windowStart, windowEnd time.Time) (*block.Block, error) {
	records, err := src.Records(ctx, windowStart, windowEnd)
	if err != nil {
		h.logger.Error("batch: could not load window records",
			"window_start", windowStart,
			"window_end", windowEnd,
			"error", err,
		)
		return nil, fmt.Errorf("batch: load records: %w", err)
	}
	return h.CommitBatch(ctx, records, windowStart, windowEnd)
}

// Payload returns the canonical encoding of records. Equal record
// sequences always produce equal payloads. Record timestamps are encoded at
// nanosecond precision.
func Payload(records []ExternalRecord) []byte {
	enc := digest.NewEncoder(DomainBatch).Uint64(uint64(len(records)))
	for _, r := range records {
		enc.String(r.ID).
			String(r.Owner).
			String(r.Type).
			String(r.Subject).
			Instant(r.Timestamp).
			String(r.Origin)
	}
	return enc.Encoded()
}

// RecordID returns the ledger record id of the batch starting at windowStart.
func RecordID(windowStart time.Time) string {
	return RecordIDPrefix + windowStart.UTC().Format(time.DateOnly)
}
