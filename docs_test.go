package attest_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/attest"
	"github.com/xraph/attest/batch"
	"github.com/xraph/attest/health"
	"github.com/xraph/attest/store/memory"
)

// TestDocumentationExamples verifies that the package documentation examples work.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		ctx := context.Background()

		// Memory for demo, use PostgreSQL or LevelDB in production.
		l := attest.New(memory.New(), attest.WithLogger(slog.Default()))
		if err := l.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer l.Stop()

		b, err := l.AppendWithRetry(ctx, attest.AppendRequest{
			Payload:       []byte(`{"treatment":"x-ray"}`),
			RecordType:    attest.RecordMedicalTreatment,
			RecordID:      "treatment-4711",
			OwnerID:       "patient-42",
			DataReference: "ipfs://bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi",
		})
		if err != nil {
			t.Fatal(err)
		}
		if b.Index != 0 || !b.PreviousHash.IsZero() {
			t.Errorf("first block = index %d prev %s, want genesis", b.Index, b.PreviousHash)
		}

		res, err := l.VerifyChain(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if v := res.Violation(); v != nil {
			t.Errorf("unexpected violation: %v", v)
		}

		found, err := l.VerifyByHash(ctx, b.BlockHash)
		if err != nil {
			t.Fatal(err)
		}
		if found.RecordID != "treatment-4711" {
			t.Errorf("VerifyByHash returned %q", found.RecordID)
		}
	})

	t.Run("BatchAndHealthExample", func(t *testing.T) {
		ctx := context.Background()
		l := attest.New(memory.New())

		start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		b, err := batch.New(l).CommitBatch(ctx, []batch.ExternalRecord{
			{ID: "login-1", Owner: "user-1", Type: "LOGIN", Timestamp: start.Add(time.Minute)},
		}, start, start.Add(24*time.Hour))
		if err != nil {
			t.Fatal(err)
		}
		if b.RecordID != "BATCH-2025-01-01" {
			t.Errorf("RecordID = %q", b.RecordID)
		}

		rep := health.New(l).Check(ctx)
		if !rep.Healthy() {
			t.Errorf("unhealthy: %v", rep.Errors)
		}
	})
}
