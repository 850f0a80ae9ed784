package signature

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Signer kinds selectable by name in configuration files.
const (
	KindDigest  = "digest"
	KindEd25519 = "ed25519"
)

// DefaultSeedEnv is the environment variable holding the hex master seed.
const DefaultSeedEnv = "ATTEST_SIGNING_SEED"

// ErrNoSeed is returned when an Ed25519 signer is requested without a seed.
var ErrNoSeed = errors.New("signature: no signing seed")

// FromSeed builds the signer of the given kind. Ed25519 keys are derived
// per owner from hexSeed.
func FromSeed(kind, hexSeed string) (Signer, error) {
	switch strings.ToLower(kind) {
	case KindDigest:
		return DigestSigner{}, nil
	case KindEd25519:
		hexSeed = strings.TrimSpace(hexSeed)
		if hexSeed == "" {
			return nil, ErrNoSeed
		}
		seed, err := hex.DecodeString(hexSeed)
		if err != nil {
			return nil, fmt.Errorf("signature: decode seed: %w", err)
		}
		ring, err := NewDerivedKeyRing(seed)
		if err != nil {
			return nil, err
		}
		return NewEd25519(ring), nil
	default:
		return nil, fmt.Errorf("signature: unknown signer %q (want %s or %s)", kind, KindDigest, KindEd25519)
	}
}

// FromEnv is FromSeed with the seed read from the environment variable
// seedEnv (DefaultSeedEnv when empty). An empty kind selects Ed25519 when
// the seed is set and DigestSigner otherwise.
func FromEnv(kind, seedEnv string) (Signer, error) {
	if seedEnv == "" {
		seedEnv = DefaultSeedEnv
	}
	seed := os.Getenv(seedEnv)
	if kind == "" {
		kind = KindDigest
		if strings.TrimSpace(seed) != "" {
			kind = KindEd25519
		}
	}
	s, err := FromSeed(kind, seed)
	if err != nil {
		return nil, fmt.Errorf("%w (seed variable $%s)", err, seedEnv)
	}
	return s, nil
}
