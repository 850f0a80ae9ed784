package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/attest/signature"
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "attest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_path: /var/lib/attest\nsigner: ed25519\nwrite_check: true\n"), 0o600))

	cfg, err := loadConfig(path, true)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/attest", cfg.DBPath)
	assert.Equal(t, signerEd25519, cfg.Signer)
	assert.True(t, cfg.WriteCheck)
	assert.Equal(t, "ATTEST_SIGNING_SEED", cfg.SeedEnv)
	assert.Equal(t, uint(8), cfg.RetryMaxTries)
}

func TestLoadConfigMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	cfg, err := loadConfig(missing, false)
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)

	_, err = loadConfig(missing, true)
	require.Error(t, err)
}

func TestNewSigner(t *testing.T) {
	s, err := newSigner(config{Signer: signerDigest})
	require.NoError(t, err)
	assert.Equal(t, signature.DigestSigner{}.Scheme(), s.Scheme())

	t.Setenv("TEST_ATTEST_SEED", strings.Repeat("ab", 32))
	s, err = newSigner(config{Signer: signerEd25519, SeedEnv: "TEST_ATTEST_SEED"})
	require.NoError(t, err)
	assert.Equal(t, "ed25519", s.Scheme())

	_, err = newSigner(config{Signer: signerEd25519, SeedEnv: "TEST_ATTEST_UNSET_SEED"})
	require.Error(t, err)

	_, err = newSigner(config{Signer: "rsa"})
	require.Error(t, err)
}

func TestReadRecords(t *testing.T) {
	in := `{"id":"ev-1","owner":"u1","type":"LOGIN","subject":"s","timestamp":"2025-03-14T01:00:00Z","origin":"10.0.0.1"}

{"id":"ev-2","owner":"u2","type":"EXPORT","subject":"r","timestamp":"2025-03-14T02:00:00Z","origin":"10.0.0.2"}
`
	records, err := readRecords(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "ev-2", records[1].ID)
	assert.Equal(t, time.Date(2025, 3, 14, 2, 0, 0, 0, time.UTC), records[1].Timestamp)

	_, err = readRecords(strings.NewReader("{not json}\n"))
	require.ErrorContains(t, err, "line 1")
}

func TestParseWindowTime(t *testing.T) {
	d, err := parseWindowTime("2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), d)

	ts, err := parseWindowTime("2025-03-14T06:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 6, ts.Hour())

	_, err = parseWindowTime("yesterday")
	require.Error(t, err)
}

func TestCommandsEndToEnd(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "ledger")
	base := []string{"--config", "", "--db", db}

	require.NoError(t, run(t, append(base, "append", "--id", "tx-1", "--owner", "acct-9", "--type", "PAYMENT", "--payload", "paid 10", "--meta", "currency=EUR")...))
	require.NoError(t, run(t, append(base, "append", "--id", "tx-2", "--owner", "acct-9", "--type", "PAYMENT", "--payload", "paid 20")...))
	require.NoError(t, run(t, append(base, "append", "--owner", "acct-9", "--type", "PAYMENT", "--payload", "paid 30")...))
	require.NoError(t, run(t, append(base, "verify")...))
	require.NoError(t, run(t, append(base, "show", "--index", "2")...))
	require.Error(t, run(t, append(base, "show", "--index", "7")...))

	records := filepath.Join(dir, "records.jsonl")
	require.NoError(t, os.WriteFile(records, []byte(`{"id":"ev-1","owner":"u1","type":"LOGIN","timestamp":"2025-03-14T01:00:00Z"}`+"\n"), 0o600))
	require.NoError(t, run(t, append(base, "batch", "--records", records, "--from", "2025-03-14", "--to", "2025-03-15")...))

	require.NoError(t, run(t, append(base, "health", "--write")...))
	require.NoError(t, run(t, append(base, "verify")...))
}

func TestAppendRejectsInvalidType(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger")
	err := run(t, "--config", "", "--db", db, "append", "--id", "x", "--owner", "o", "--type", "lowercase")
	require.Error(t, err)
}
