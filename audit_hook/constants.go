package audithook

// Action constants for audit events.
const (
	// Append actions
	ActionBlockAppended  = "block.appended"
	ActionAppendConflict = "append.conflict"
	ActionAppendFailed   = "append.failed"

	// Verification actions
	ActionChainVerified      = "chain.verified"
	ActionIntegrityViolation = "integrity.violation"

	// Batch actions
	ActionBatchCommitted = "batch.committed"
	ActionBatchSkipped   = "batch.skipped"

	// Health actions
	ActionHealthChecked = "health.checked"
)

// Resource constants for audit events.
const (
	ResourceBlock  = "block"
	ResourceChain  = "chain"
	ResourceBatch  = "batch"
	ResourceHealth = "health"
)

// Category constants for audit events.
const (
	CategoryLedger      = "ledger"
	CategoryIntegrity   = "integrity"
	CategoryOperational = "operational"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
