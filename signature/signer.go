// Package signature provides the pluggable signing schemes that bind a block
// to its owner.
//
// Two schemes ship with the module: an unkeyed digest scheme that only proves
// the signed content was not altered, and an Ed25519 scheme that resolves a
// per-owner key pair.
package signature

import "errors"

var (
	// ErrMismatch is returned when a signature does not verify.
	ErrMismatch = errors.New("signature: mismatch")

	// ErrUnknownOwner is returned when no key can be resolved for an owner.
	ErrUnknownOwner = errors.New("signature: unknown owner")
)

// Signer produces and checks block signatures.
type Signer interface {
	// Scheme names the signing scheme, e.g. "sha256" or "ed25519".
	Scheme() string

	// Sign returns the signature of msg on behalf of ownerID.
	Sign(ownerID string, msg []byte) ([]byte, error)

	// Verify returns nil when sig is a valid signature of msg by ownerID.
	Verify(ownerID string, msg, sig []byte) error
}
