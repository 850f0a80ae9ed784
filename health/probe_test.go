package health_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/attest"
	"github.com/xraph/attest/block"
	"github.com/xraph/attest/digest"
	"github.com/xraph/attest/health"
	"github.com/xraph/attest/store/memory"
)

func seed(t *testing.T, l *attest.Ledger, n int) {
	t.Helper()
	for i := range n {
		_, err := l.Append(context.Background(), attest.AppendRequest{
			Payload:    []byte{byte(i)},
			RecordType: attest.RecordHealthToken,
			RecordID:   string(rune('a' + i)),
			OwnerID:    "owner",
		})
		require.NoError(t, err)
	}
}

type healthWatcher struct {
	calls   atomic.Int32
	healthy atomic.Bool
}

func (w *healthWatcher) Name() string { return "health-watcher" }

func (w *healthWatcher) OnHealthChecked(_ context.Context, healthy bool, _ uint64, _ time.Duration) error {
	w.calls.Add(1)
	w.healthy.Store(healthy)
	return nil
}

func TestProbeHealthyChain(t *testing.T) {
	w := &healthWatcher{}
	l := attest.New(memory.New(), attest.WithPlugin(w))
	seed(t, l, 3)

	rep := health.New(l).Check(context.Background())
	assert.True(t, rep.Healthy())
	assert.True(t, rep.ChainReachable)
	assert.True(t, rep.ChainValid)
	assert.False(t, rep.WriteChecked)
	assert.Equal(t, uint64(3), rep.ChainLength)
	assert.Empty(t, rep.Errors)
	assert.False(t, rep.LastCheckedAt.IsZero())

	assert.Equal(t, int32(1), w.calls.Load())
	assert.True(t, w.healthy.Load())
}

func TestProbeEmptyChainIsHealthy(t *testing.T) {
	rep := health.New(attest.New(memory.New())).Check(context.Background())
	assert.True(t, rep.Healthy())
	assert.Zero(t, rep.ChainLength)
}

func TestProbeDetectsTamper(t *testing.T) {
	st := memory.New()
	l := attest.New(st)
	seed(t, l, 3)
	require.NoError(t, st.Tamper(2, func(b *block.Block) { b.OwnerID = "mallory" }))

	rep := health.New(l).Check(context.Background())
	assert.False(t, rep.Healthy())
	assert.True(t, rep.ChainReachable)
	assert.False(t, rep.ChainValid)
	require.NotNil(t, rep.FirstInvalidIndex)
	assert.Equal(t, uint64(2), *rep.FirstInvalidIndex)
	assert.Equal(t, attest.ViolationSignatureMismatch, rep.Reason)
	assert.Len(t, rep.Errors, 1)
}

func TestProbeWriteCheck(t *testing.T) {
	ctx := context.Background()
	l := attest.New(memory.New())
	seed(t, l, 1)

	rep := health.New(l, health.WithWriteCheck(true)).Check(ctx)
	assert.True(t, rep.Healthy())
	assert.True(t, rep.WriteChecked)
	assert.True(t, rep.Writable)

	tail, err := l.Tail(ctx)
	require.NoError(t, err)
	assert.Equal(t, block.RecordHealthProbe, tail.RecordType)
	assert.Equal(t, block.SystemOwner, tail.OwnerID)
	assert.Contains(t, tail.RecordID, "probe_")

	res, err := l.VerifyChain(ctx)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, uint64(2), res.Length)
}

func TestProbeClosedStore(t *testing.T) {
	st := memory.New()
	l := attest.New(st)
	require.NoError(t, st.Close())

	rep := health.New(l, health.WithWriteCheck(true)).Check(context.Background())
	assert.False(t, rep.Healthy())
	assert.False(t, rep.ChainReachable)
	assert.False(t, rep.ChainValid)
	assert.False(t, rep.Writable)
	assert.Len(t, rep.Errors, 3)
}

type panickyLedger struct{}

func (panickyLedger) Length(context.Context) (uint64, error) { panic("length exploded") }

func (panickyLedger) VerifyChain(context.Context) (*attest.VerificationResult, error) {
	return nil, errors.New("unreachable")
}

func (panickyLedger) AppendWithRetry(context.Context, attest.AppendRequest) (*block.Block, error) {
	panic("append exploded")
}

func (panickyLedger) VerifyByHash(context.Context, digest.Digest) (*block.Block, error) {
	return nil, attest.ErrBlockNotFound
}

func (panickyLedger) VerifyBlock(*block.Block) error { return nil }

func TestProbeRecoversPanics(t *testing.T) {
	var rep health.Report
	require.NotPanics(t, func() {
		rep = health.New(panickyLedger{}, health.WithWriteCheck(true)).Check(context.Background())
	})
	assert.False(t, rep.Healthy())
	assert.Len(t, rep.Errors, 3)
	assert.Contains(t, rep.Errors, "length: panic: length exploded")
}

func TestProbeUsesClock(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rep := health.New(attest.New(memory.New()), health.WithClock(func() time.Time { return now })).
		Check(context.Background())
	assert.Equal(t, now, rep.LastCheckedAt)
	assert.Zero(t, rep.Duration)
}
