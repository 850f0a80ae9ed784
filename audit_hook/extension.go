// Package audithook bridges attest ledger events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/attest/block"
	"github.com/xraph/attest/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin               = (*Extension)(nil)
	_ plugin.OnBlockAppended      = (*Extension)(nil)
	_ plugin.OnAppendConflict     = (*Extension)(nil)
	_ plugin.OnAppendFailed       = (*Extension)(nil)
	_ plugin.OnChainVerified      = (*Extension)(nil)
	_ plugin.OnIntegrityViolation = (*Extension)(nil)
	_ plugin.OnBatchCommitted     = (*Extension)(nil)
	_ plugin.OnBatchSkipped       = (*Extension)(nil)
	_ plugin.OnHealthChecked      = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Append hooks
// ──────────────────────────────────────────────────

// OnBlockAppended implements plugin.OnBlockAppended.
func (e *Extension) OnBlockAppended(ctx context.Context, b *block.Block) error {
	return e.record(ctx, ActionBlockAppended, SeverityInfo, OutcomeSuccess,
		ResourceBlock, b.BlockHash.Hex(), CategoryLedger, nil,
		"index", b.Index,
		"record_type", string(b.RecordType),
		"record_id", b.RecordID,
		"owner_id", b.OwnerID,
	)
}

// OnAppendConflict implements plugin.OnAppendConflict.
func (e *Extension) OnAppendConflict(ctx context.Context, index uint64, recordID string) error {
	return e.record(ctx, ActionAppendConflict, SeverityWarning, OutcomeFailure,
		ResourceBlock, "", CategoryLedger, nil,
		"index", index,
		"record_id", recordID,
	)
}

// OnAppendFailed implements plugin.OnAppendFailed.
func (e *Extension) OnAppendFailed(ctx context.Context, recordType block.RecordType, recordID string, err error) error {
	return e.record(ctx, ActionAppendFailed, SeverityError, OutcomeFailure,
		ResourceBlock, "", CategoryLedger, err,
		"record_type", string(recordType),
		"record_id", recordID,
	)
}

// ──────────────────────────────────────────────────
// Verification hooks
// ──────────────────────────────────────────────────

// OnChainVerified implements plugin.OnChainVerified. Only failed
// verifications are audited unless the action is explicitly enabled.
func (e *Extension) OnChainVerified(ctx context.Context, valid bool, checked uint64, elapsed time.Duration) error {
	if valid && e.enabled == nil {
		return nil
	}
	severity, outcome := SeverityInfo, OutcomeSuccess
	if !valid {
		severity, outcome = SeverityCritical, OutcomeFailure
	}
	return e.record(ctx, ActionChainVerified, severity, outcome,
		ResourceChain, "", CategoryIntegrity, nil,
		"valid", valid,
		"checked", checked,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnIntegrityViolation implements plugin.OnIntegrityViolation.
func (e *Extension) OnIntegrityViolation(ctx context.Context, index uint64, kind string) error {
	return e.record(ctx, ActionIntegrityViolation, SeverityCritical, OutcomeFailure,
		ResourceChain, fmt.Sprintf("%d", index), CategoryIntegrity, nil,
		"index", index,
		"kind", kind,
	)
}

// ──────────────────────────────────────────────────
// Batch hooks
// ──────────────────────────────────────────────────

// OnBatchCommitted implements plugin.OnBatchCommitted.
func (e *Extension) OnBatchCommitted(ctx context.Context, b *block.Block, recordCount int) error {
	return e.record(ctx, ActionBatchCommitted, SeverityInfo, OutcomeSuccess,
		ResourceBatch, b.RecordID, CategoryLedger, nil,
		"index", b.Index,
		"record_count", recordCount,
		"block_hash", b.BlockHash.Hex(),
	)
}

// OnBatchSkipped implements plugin.OnBatchSkipped.
func (e *Extension) OnBatchSkipped(ctx context.Context, windowStart, windowEnd time.Time) error {
	return e.record(ctx, ActionBatchSkipped, SeverityInfo, OutcomePartial,
		ResourceBatch, "", CategoryLedger, nil,
		"window_start", windowStart.UTC().Format(time.RFC3339),
		"window_end", windowEnd.UTC().Format(time.RFC3339),
	)
}

// ──────────────────────────────────────────────────
// Health hooks
// ──────────────────────────────────────────────────

// OnHealthChecked implements plugin.OnHealthChecked. Healthy probes are
// skipped unless the action is explicitly enabled.
func (e *Extension) OnHealthChecked(ctx context.Context, healthy bool, chainLength uint64, elapsed time.Duration) error {
	if healthy && e.enabled == nil {
		return nil
	}
	severity, outcome := SeverityInfo, OutcomeSuccess
	if !healthy {
		severity, outcome = SeverityError, OutcomeFailure
	}
	return e.record(ctx, ActionHealthChecked, severity, outcome,
		ResourceHealth, "", CategoryOperational, nil,
		"healthy", healthy,
		"chain_length", chainLength,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
