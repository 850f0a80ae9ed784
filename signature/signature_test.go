package signature_test

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/attest/signature"
)

var seed = bytes.Repeat([]byte{0x42}, 32)

func TestDigestSigner(t *testing.T) {
	s := signature.DigestSigner{}
	msg := []byte("block-hash|owner|ts")

	sig, err := s.Sign("user-1", msg)
	require.NoError(t, err)
	require.NoError(t, s.Verify("user-1", msg, sig))

	require.ErrorIs(t, s.Verify("user-1", []byte("other"), sig), signature.ErrMismatch)

	sig[0] ^= 1
	require.ErrorIs(t, s.Verify("user-1", msg, sig), signature.ErrMismatch)
}

func TestEd25519DerivedKeys(t *testing.T) {
	ring, err := signature.NewDerivedKeyRing(seed)
	require.NoError(t, err)
	s := signature.NewEd25519(ring)
	msg := []byte("payload")

	sig, err := s.Sign("alice", msg)
	require.NoError(t, err)
	require.NoError(t, s.Verify("alice", msg, sig))

	// Another owner's key does not verify alice's signature.
	require.ErrorIs(t, s.Verify("bob", msg, sig), signature.ErrMismatch)

	// Derivation is stable across key rings with the same seed.
	ring2, err := signature.NewDerivedKeyRing(seed)
	require.NoError(t, err)
	require.NoError(t, signature.NewEd25519(ring2).Verify("alice", msg, sig))
}

func TestEd25519ShortSeed(t *testing.T) {
	_, err := signature.NewDerivedKeyRing([]byte("short"))
	require.Error(t, err)
}

func TestEd25519ExplicitKeys(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	signRing := signature.NewKeyRing()
	signRing.Add("clinic", priv)
	sig, err := signature.NewEd25519(signRing).Sign("clinic", []byte("m"))
	require.NoError(t, err)

	verifyRing := signature.NewKeyRing()
	verifyRing.AddPublic("clinic", pub)
	v := signature.NewEd25519(verifyRing)
	require.NoError(t, v.Verify("clinic", []byte("m"), sig))

	_, err = v.Sign("clinic", []byte("m"))
	require.ErrorIs(t, err, signature.ErrUnknownOwner)

	err = v.Verify("stranger", []byte("m"), sig)
	require.ErrorIs(t, err, signature.ErrUnknownOwner)
}

func TestSchemes(t *testing.T) {
	assert.Equal(t, "sha256", signature.DigestSigner{}.Scheme())
	assert.Equal(t, "ed25519", signature.NewEd25519(signature.NewKeyRing()).Scheme())
}

func TestFromSeed(t *testing.T) {
	hexSeed := strings.Repeat("42", 32)

	tests := []struct {
		name    string
		kind    string
		seed    string
		scheme  string
		wantErr error
	}{
		{"digest", signature.KindDigest, "", "sha256", nil},
		{"ed25519", signature.KindEd25519, hexSeed, "ed25519", nil},
		{"case insensitive", "ED25519", hexSeed, "ed25519", nil},
		{"ed25519 without seed", signature.KindEd25519, "  ", "", signature.ErrNoSeed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := signature.FromSeed(tt.kind, tt.seed)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.scheme, s.Scheme())
		})
	}

	_, err := signature.FromSeed(signature.KindEd25519, "zz")
	require.Error(t, err)
	_, err = signature.FromSeed(signature.KindEd25519, "abcd")
	require.Error(t, err)
	_, err = signature.FromSeed("rsa", hexSeed)
	require.Error(t, err)
}

func TestFromSeedMatchesDerivedKeyRing(t *testing.T) {
	s, err := signature.FromSeed(signature.KindEd25519, hex.EncodeToString(seed))
	require.NoError(t, err)
	ring, err := signature.NewDerivedKeyRing(seed)
	require.NoError(t, err)

	msg := []byte("block")
	sig, err := s.Sign("patient-42", msg)
	require.NoError(t, err)
	require.NoError(t, signature.NewEd25519(ring).Verify("patient-42", msg, sig))
}

func TestFromEnv(t *testing.T) {
	t.Setenv("TEST_ATTEST_SEED", strings.Repeat("ab", 32))

	s, err := signature.FromEnv("", "TEST_ATTEST_SEED")
	require.NoError(t, err)
	assert.Equal(t, "ed25519", s.Scheme())

	s, err = signature.FromEnv("", "TEST_ATTEST_UNSET_SEED")
	require.NoError(t, err)
	assert.Equal(t, "sha256", s.Scheme())

	s, err = signature.FromEnv(signature.KindDigest, "TEST_ATTEST_SEED")
	require.NoError(t, err)
	assert.Equal(t, "sha256", s.Scheme())

	_, err = signature.FromEnv(signature.KindEd25519, "TEST_ATTEST_UNSET_SEED")
	require.ErrorIs(t, err, signature.ErrNoSeed)
	assert.Contains(t, err.Error(), "$TEST_ATTEST_UNSET_SEED")
}
