// Package digest provides the fixed-size SHA-256 digest type used for every
// hash in the chain and the canonical encoder that frames hashed content.
//
// Digests are rendered as 64 lowercase hex characters. The all-zero digest is
// the genesis sentinel: the PreviousHash of block 0.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// Size is the length of a digest in bytes.
const Size = sha256.Size

// Digest is a SHA-256 value.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receiver for UnmarshalText.
type Digest [Size]byte

// Genesis is the PreviousHash of the first block in every chain.
var Genesis Digest

// ErrMalformed is returned when a hex string does not decode to a digest.
var ErrMalformed = errors.New("digest: malformed hex digest")

// Sum returns the SHA-256 digest of b.
func Sum(b []byte) Digest {
	return sha256.Sum256(b)
}

// Parse decodes a 64-character hex string.
func Parse(s string) (Digest, error) {
	var d Digest
	if len(s) != hex.EncodedLen(Size) {
		return d, fmt.Errorf("%w: length %d", ErrMalformed, len(s))
	}
	if _, err := hex.Decode(d[:], []byte(s)); err != nil {
		return d, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return d, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded values.
func MustParse(s string) Digest {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FromBytes copies a 32-byte slice into a Digest.
func FromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != Size {
		return d, fmt.Errorf("%w: %d bytes", ErrMalformed, len(b))
	}
	copy(d[:], b)
	return d, nil
}

// Hex returns the lowercase hex encoding.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// String implements fmt.Stringer.
func (d Digest) String() string { return d.Hex() }

// Bytes returns a copy of the digest as a slice.
func (d Digest) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, d[:])
	return b
}

// IsZero reports whether d is the genesis sentinel.
func (d Digest) IsZero() bool {
	return d == Genesis
}

// Equal reports whether two digests are identical.
func (d Digest) Equal(o Digest) bool {
	return d == o
}

// MarshalText implements encoding.TextMarshaler.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
