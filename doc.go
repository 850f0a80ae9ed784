// Package attest provides an append-only, hash-linked integrity ledger for
// Go applications.
//
// Attest records cryptographic fingerprints of sensitive events (medical
// treatments, payment confirmations, periodic audit batches) so that later
// tampering with the referenced off-chain data, or with the ledger itself,
// is detectable. It is a library, not a service. It provides:
//
//   - Deterministic block hashing over a frozen canonical encoding
//   - Per-owner signatures (Ed25519, or an unkeyed digest placeholder)
//   - Optimistic compare-and-swap appends with bounded retry
//   - Whole-chain verification that reports the first invalid block
//   - Daily batch fingerprints of external audit records
//   - A health probe with an optional write check
//   - Memory, LevelDB, PostgreSQL, SQLite and MongoDB stores
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/attest"
//	    "github.com/xraph/attest/store/memory"
//	)
//
//	l := attest.New(memory.New())
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
//	b, err := l.AppendWithRetry(ctx, attest.AppendRequest{
//	    Payload:    treatmentJSON,
//	    RecordType: attest.RecordMedicalTreatment,
//	    RecordID:   "treatment-4711",
//	    OwnerID:    "patient-42",
//	})
//
// Only the payload's SHA-256 digest is stored. The payload itself stays
// wherever the caller keeps it, optionally referenced by DataReference.
//
// # Verification
//
//	res, err := l.VerifyChain(ctx)
//	if err != nil {
//	    // the store could not be read
//	}
//	if v := res.Violation(); v != nil {
//	    // v.Index is the first tampered block, v.Kind the failed check
//	}
//
// A violation is a finding, not an error: verification never mutates the
// chain and never blocks new appends.
//
// # Concurrency
//
// Every append reads the tail, builds the next block and asks the store to
// persist it only if the tail is unchanged. A writer that loses the race gets
// ErrConcurrentAppendConflict; AppendWithRetry retries it with exponential
// backoff. Indices are never reused and the chain never forks.
//
// # Integration
//
//   - extension: Forge extension registering the ledger, batch hasher and probe
//   - audit_hook: Chronicle-style audit events for ledger activity
//   - observability: metrics via a MetricFactory, with a Prometheus adapter
//
// # TypeID
//
// Generated identifiers (probe records, batches) use TypeID:
//
//	probe_01h2xcejqtf2nbrexx3vqjhp41  // Health probe record ID
//	batch_01h455vb4pex5vsknk084sn02q  // Batch ID
package attest
