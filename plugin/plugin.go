// Package plugin provides an extensible plugin system for attest.
// Plugins can hook into ledger lifecycle events to extend functionality.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/attest/block"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Append hooks
// ──────────────────────────────────────────────────

// OnBlockAppended is called after a block is durably appended.
type OnBlockAppended interface {
	Plugin
	OnBlockAppended(ctx context.Context, b *block.Block) error
}

// OnAppendConflict is called when another writer claimed the position
// an append was built for.
type OnAppendConflict interface {
	Plugin
	OnAppendConflict(ctx context.Context, index uint64, recordID string) error
}

// OnAppendFailed is called when an append fails for any reason other than
// a conflict.
type OnAppendFailed interface {
	Plugin
	OnAppendFailed(ctx context.Context, recordType block.RecordType, recordID string, err error) error
}

// ──────────────────────────────────────────────────
// Verification hooks
// ──────────────────────────────────────────────────

// OnChainVerified is called after every full-chain verification.
type OnChainVerified interface {
	Plugin
	OnChainVerified(ctx context.Context, valid bool, checked uint64, elapsed time.Duration) error
}

// OnIntegrityViolation is called when verification finds an invalid block.
type OnIntegrityViolation interface {
	Plugin
	OnIntegrityViolation(ctx context.Context, index uint64, kind string) error
}

// ──────────────────────────────────────────────────
// Batch hooks
// ──────────────────────────────────────────────────

// OnBatchCommitted is called after an audit batch block is appended.
type OnBatchCommitted interface {
	Plugin
	OnBatchCommitted(ctx context.Context, b *block.Block, recordCount int) error
}

// OnBatchSkipped is called when a batch window had no records.
type OnBatchSkipped interface {
	Plugin
	OnBatchSkipped(ctx context.Context, windowStart, windowEnd time.Time) error
}

// ──────────────────────────────────────────────────
// Health hooks
// ──────────────────────────────────────────────────

// OnHealthChecked is called after every health probe run.
type OnHealthChecked interface {
	Plugin
	OnHealthChecked(ctx context.Context, healthy bool, chainLength uint64, elapsed time.Duration) error
}
