package attest

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// Append errors
	ErrConcurrentAppendConflict = errors.New("attest: concurrent append conflict")
	ErrLedgerInternal           = errors.New("attest: internal ledger error")
	ErrInvalidInput             = errors.New("attest: invalid input")

	// Lookup errors
	ErrChainEmpty    = errors.New("attest: chain is empty")
	ErrBlockNotFound = errors.New("attest: block not found")

	// Integrity errors
	ErrIntegrityViolation = errors.New("attest: integrity violation")

	// Store errors
	ErrStoreNotReady   = errors.New("attest: store not ready")
	ErrStoreClosed     = errors.New("attest: store is closed")
	ErrMigrationFailed = errors.New("attest: migration failed")
)

// ViolationKind names the first check a block failed during verification.
type ViolationKind string

// Violation kinds, in the order they are checked for each block.
const (
	ViolationNone              ViolationKind = ""
	ViolationIndexGap          ViolationKind = "INDEX_GAP"
	ViolationHashMismatch      ViolationKind = "HASH_MISMATCH"
	ViolationSignatureMismatch ViolationKind = "SIGNATURE_MISMATCH"
	ViolationLinkMismatch      ViolationKind = "LINK_MISMATCH"
)

// IntegrityViolation reports the first invalid block found.
type IntegrityViolation struct {
	Index uint64
	Kind  ViolationKind
}

func (e *IntegrityViolation) Error() string {
	return fmt.Sprintf("attest: integrity violation at index %d: %s", e.Index, e.Kind)
}

// Is lets errors.Is(err, ErrIntegrityViolation) match.
func (e *IntegrityViolation) Is(target error) bool {
	return target == ErrIntegrityViolation
}

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("attest: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap makes every ValidationError an ErrInvalidInput.
func (e ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "attest: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("attest: %d errors occurred: %v", len(e.Errors), e.Errors[0])
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error {
	return e.Errors
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBlockNotFound) ||
		errors.Is(err, ErrChainEmpty)
}

// IsConflict returns true if another writer won the race for the tail.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentAppendConflict)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentAppendConflict) ||
		errors.Is(err, ErrStoreNotReady)
}
