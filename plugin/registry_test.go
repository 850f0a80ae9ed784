package plugin_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/attest/block"
	"github.com/xraph/attest/plugin"
)

type recorder struct {
	name     string
	appended atomic.Int32
	verified atomic.Int32
	fail     bool
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) OnBlockAppended(_ context.Context, _ *block.Block) error {
	r.appended.Add(1)
	if r.fail {
		return errors.New("boom")
	}
	return nil
}

func (r *recorder) OnChainVerified(_ context.Context, _ bool, _ uint64, _ time.Duration) error {
	r.verified.Add(1)
	return nil
}

type slowPlugin struct{}

func (slowPlugin) Name() string { return "slow" }

func (slowPlugin) OnBlockAppended(ctx context.Context, _ *block.Block) error {
	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
	}
	return nil
}

type panicPlugin struct{}

func (panicPlugin) Name() string { return "panicky" }

func (panicPlugin) OnBlockAppended(context.Context, *block.Block) error {
	panic("hook exploded")
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := plugin.NewRegistry()
	require.NoError(t, r.Register(&recorder{name: "a"}))
	require.Error(t, r.Register(&recorder{name: "a"}))
	assert.Equal(t, 1, r.Count())
	assert.NotNil(t, r.Get("a"))
	assert.Nil(t, r.Get("b"))
	assert.Len(t, r.List(), 1)
}

func TestEmitDispatchesByInterface(t *testing.T) {
	r := plugin.NewRegistry()
	p := &recorder{name: "rec"}
	require.NoError(t, r.Register(p))

	ctx := context.Background()
	r.EmitBlockAppended(ctx, &block.Block{Index: 1})
	r.EmitBlockAppended(ctx, &block.Block{Index: 2})
	r.EmitChainVerified(ctx, true, 2, time.Millisecond)
	r.EmitBatchSkipped(ctx, time.Now(), time.Now())

	assert.Equal(t, int32(2), p.appended.Load())
	assert.Equal(t, int32(1), p.verified.Load())
}

func TestEmitSwallowsHookFailures(t *testing.T) {
	r := plugin.NewRegistry().WithTimeout(50 * time.Millisecond)
	failing := &recorder{name: "failing", fail: true}
	healthy := &recorder{name: "healthy"}
	require.NoError(t, r.Register(failing))
	require.NoError(t, r.Register(slowPlugin{}))
	require.NoError(t, r.Register(panicPlugin{}))
	require.NoError(t, r.Register(healthy))

	start := time.Now()
	r.EmitBlockAppended(context.Background(), &block.Block{})

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, int32(1), failing.appended.Load())
	assert.Equal(t, int32(1), healthy.appended.Load())
}
