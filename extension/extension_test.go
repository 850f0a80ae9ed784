package extension

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/attest"
	"github.com/xraph/attest/block"
	"github.com/xraph/attest/signature"
	"github.com/xraph/attest/store/memory"
)

func TestMergeWithDefaults(t *testing.T) {
	e := New()
	cfg := e.mergeWithDefaults(Config{WriteCheck: true})

	assert.True(t, cfg.WriteCheck)
	assert.Equal(t, uint(8), cfg.RetryMaxTries)
	assert.Equal(t, 5*time.Millisecond, cfg.RetryInitialInterval)
	assert.Equal(t, signature.DefaultSeedEnv, cfg.SeedEnv)
	assert.Empty(t, cfg.Signer)
}

func TestMergeConfigurations(t *testing.T) {
	e := New()

	yaml := Config{RetryMaxTries: 3}
	prog := Config{
		DisableMigrate:       true,
		RetryMaxTries:        20,
		RetryInitialInterval: time.Second,
	}
	cfg := e.mergeConfigurations(yaml, prog)

	assert.True(t, cfg.DisableMigrate)
	assert.Equal(t, uint(3), cfg.RetryMaxTries)
	assert.Equal(t, time.Second, cfg.RetryInitialInterval)
	assert.False(t, cfg.WriteCheck)

	cfg = e.mergeConfigurations(Config{}, Config{Signer: signature.KindEd25519, SeedEnv: "APP_SEED"})
	assert.Equal(t, signature.KindEd25519, cfg.Signer)
	assert.Equal(t, "APP_SEED", cfg.SeedEnv)

	cfg = e.mergeConfigurations(Config{Signer: signature.KindDigest}, Config{Signer: signature.KindEd25519})
	assert.Equal(t, signature.KindDigest, cfg.Signer)
	assert.Equal(t, signature.DefaultSeedEnv, cfg.SeedEnv)
}

func TestOptions(t *testing.T) {
	st := memory.New()
	e := New(
		WithStore(st),
		WithWriteCheck(),
		WithSerializedAppends(),
		WithRetry(4, 10*time.Millisecond),
		WithDisableMigrate(),
		WithRequireConfig(true),
		WithSigner(signature.KindEd25519, "APP_SEED"),
	)

	assert.Same(t, st, e.store)
	assert.True(t, e.config.WriteCheck)
	assert.True(t, e.config.SerializedAppends)
	assert.True(t, e.config.DisableMigrate)
	assert.True(t, e.config.RequireConfig)
	assert.Equal(t, uint(4), e.config.RetryMaxTries)
	assert.Equal(t, signature.KindEd25519, e.config.Signer)
	assert.Equal(t, "APP_SEED", e.config.SeedEnv)
}

func TestBuildWiresComponents(t *testing.T) {
	ctx := context.Background()
	e := New(WithStore(memory.New()), WithWriteCheck())
	e.config = e.mergeWithDefaults(e.config)
	require.NoError(t, e.build())

	require.NotNil(t, e.Engine())
	require.NotNil(t, e.Hasher())
	require.NotNil(t, e.Probe())

	_, err := e.Engine().AppendWithRetry(ctx, attest.AppendRequest{
		Payload:    []byte("x"),
		RecordType: block.RecordPayment,
		RecordID:   "pay-1",
		OwnerID:    "acct-1",
	})
	require.NoError(t, err)

	require.NoError(t, e.Health(ctx))

	n, err := e.Engine().Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestHealthUnhealthy(t *testing.T) {
	st := memory.New()
	e := New(WithStore(st))
	e.config = e.mergeWithDefaults(e.config)
	require.NoError(t, e.build())

	require.NoError(t, st.Close())
	err := e.Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unhealthy")
}

func TestBuildSigner(t *testing.T) {
	t.Setenv("TEST_ATTEST_EXT_SEED", strings.Repeat("5a", 32))

	tests := []struct {
		name    string
		signer  string
		seedEnv string
		scheme  string
		wantErr bool
	}{
		{"seed present selects ed25519", "", "TEST_ATTEST_EXT_SEED", "ed25519", false},
		{"no seed falls back to digest", "", "TEST_ATTEST_EXT_UNSET", "sha256", false},
		{"explicit digest ignores seed", signature.KindDigest, "TEST_ATTEST_EXT_SEED", "sha256", false},
		{"explicit ed25519", signature.KindEd25519, "TEST_ATTEST_EXT_SEED", "ed25519", false},
		{"ed25519 without seed", signature.KindEd25519, "TEST_ATTEST_EXT_UNSET", "", true},
		{"unknown scheme", "rsa", "TEST_ATTEST_EXT_SEED", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(WithStore(memory.New()), WithSigner(tt.signer, tt.seedEnv))
			e.config = e.mergeWithDefaults(e.config)

			err := e.build()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.scheme, e.Engine().Signer().Scheme())

			ctx := context.Background()
			b, err := e.Engine().Append(ctx, attest.AppendRequest{
				Payload:    []byte("x"),
				RecordType: block.RecordPayment,
				RecordID:   "pay-1",
				OwnerID:    "acct-1",
			})
			require.NoError(t, err)
			require.NoError(t, e.Engine().VerifyBlock(b))
		})
	}
}

func TestLedgerOptionSignerOverridesConfig(t *testing.T) {
	t.Setenv("TEST_ATTEST_EXT_SEED", strings.Repeat("5a", 32))
	e := New(
		WithStore(memory.New()),
		WithSigner("", "TEST_ATTEST_EXT_SEED"),
		WithLedgerOption(attest.WithSigner(signature.DigestSigner{})),
	)
	e.config = e.mergeWithDefaults(e.config)
	require.NoError(t, e.build())
	assert.Equal(t, "sha256", e.Engine().Signer().Scheme())
}
