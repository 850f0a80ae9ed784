// Package observability provides a metrics extension for attest that records
// ledger event counts via a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/attest/block"
	"github.com/xraph/attest/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin               = (*MetricsExtension)(nil)
	_ plugin.OnInit               = (*MetricsExtension)(nil)
	_ plugin.OnBlockAppended      = (*MetricsExtension)(nil)
	_ plugin.OnAppendConflict     = (*MetricsExtension)(nil)
	_ plugin.OnAppendFailed       = (*MetricsExtension)(nil)
	_ plugin.OnChainVerified      = (*MetricsExtension)(nil)
	_ plugin.OnIntegrityViolation = (*MetricsExtension)(nil)
	_ plugin.OnBatchCommitted     = (*MetricsExtension)(nil)
	_ plugin.OnBatchSkipped       = (*MetricsExtension)(nil)
	_ plugin.OnHealthChecked      = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records ledger metrics.
// Register it as a ledger plugin to track appends, verification and health.
type MetricsExtension struct {
	factory MetricFactory

	// Append metrics
	BlocksAppended  Counter
	AppendConflicts Counter
	AppendFailures  Counter

	// Verification metrics
	ChainVerifications  Counter
	IntegrityViolations Counter
	VerifyLatency       Histogram
	VerifiedBlocks      Histogram

	// Batch metrics
	BatchesCommitted Counter
	BatchesSkipped   Counter
	BatchSize        Histogram

	// Health metrics
	HealthChecks   Counter
	HealthFailures Counter
	HealthLatency  Histogram
	ChainLength    Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		BlocksAppended:  factory.Counter("attest.block.appended"),
		AppendConflicts: factory.Counter("attest.append.conflicts"),
		AppendFailures:  factory.Counter("attest.append.failures"),

		ChainVerifications:  factory.Counter("attest.chain.verifications"),
		IntegrityViolations: factory.Counter("attest.integrity.violations"),
		VerifyLatency:       factory.Histogram("attest.chain.verify.latency_ms"),
		VerifiedBlocks:      factory.Histogram("attest.chain.verify.blocks"),

		BatchesCommitted: factory.Counter("attest.batch.committed"),
		BatchesSkipped:   factory.Counter("attest.batch.skipped"),
		BatchSize:        factory.Histogram("attest.batch.size"),

		HealthChecks:   factory.Counter("attest.health.checks"),
		HealthFailures: factory.Counter("attest.health.failures"),
		HealthLatency:  factory.Histogram("attest.health.latency_ms"),
		ChainLength:    factory.Histogram("attest.chain.length"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// OnBlockAppended implements plugin.OnBlockAppended.
func (m *MetricsExtension) OnBlockAppended(_ context.Context, _ *block.Block) error {
	m.BlocksAppended.Inc()
	return nil
}

// OnAppendConflict implements plugin.OnAppendConflict.
func (m *MetricsExtension) OnAppendConflict(_ context.Context, _ uint64, _ string) error {
	m.AppendConflicts.Inc()
	return nil
}

// OnAppendFailed implements plugin.OnAppendFailed.
func (m *MetricsExtension) OnAppendFailed(_ context.Context, _ block.RecordType, _ string, _ error) error {
	m.AppendFailures.Inc()
	return nil
}

// OnChainVerified implements plugin.OnChainVerified.
func (m *MetricsExtension) OnChainVerified(_ context.Context, _ bool, checked uint64, elapsed time.Duration) error {
	m.ChainVerifications.Inc()
	m.VerifyLatency.Observe(float64(elapsed.Milliseconds()))
	m.VerifiedBlocks.Observe(float64(checked))
	return nil
}

// OnIntegrityViolation implements plugin.OnIntegrityViolation.
func (m *MetricsExtension) OnIntegrityViolation(_ context.Context, _ uint64, _ string) error {
	m.IntegrityViolations.Inc()
	return nil
}

// OnBatchCommitted implements plugin.OnBatchCommitted.
func (m *MetricsExtension) OnBatchCommitted(_ context.Context, _ *block.Block, recordCount int) error {
	m.BatchesCommitted.Inc()
	m.BatchSize.Observe(float64(recordCount))
	return nil
}

// OnBatchSkipped implements plugin.OnBatchSkipped.
func (m *MetricsExtension) OnBatchSkipped(_ context.Context, _, _ time.Time) error {
	m.BatchesSkipped.Inc()
	return nil
}

// OnHealthChecked implements plugin.OnHealthChecked.
func (m *MetricsExtension) OnHealthChecked(_ context.Context, healthy bool, chainLength uint64, elapsed time.Duration) error {
	m.HealthChecks.Inc()
	if !healthy {
		m.HealthFailures.Inc()
	}
	m.HealthLatency.Observe(float64(elapsed.Milliseconds()))
	m.ChainLength.Observe(float64(chainLength))
	return nil
}
