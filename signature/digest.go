package signature

import (
	"crypto/subtle"

	"github.com/xraph/attest/digest"
)

// DigestSigner is the unkeyed scheme: the signature is the SHA-256 of the
// signing payload. It detects alteration of the signed fields but anyone can
// produce it, so it is not proof of authorship.
type DigestSigner struct{}

var _ Signer = DigestSigner{}

// Scheme implements Signer.
func (DigestSigner) Scheme() string { return "sha256" }

// Sign implements Signer.
func (DigestSigner) Sign(_ string, msg []byte) ([]byte, error) {
	return digest.Sum(msg).Bytes(), nil
}

// Verify implements Signer.
func (DigestSigner) Verify(_ string, msg, sig []byte) error {
	want := digest.Sum(msg)
	if subtle.ConstantTimeCompare(want[:], sig) != 1 {
		return ErrMismatch
	}
	return nil
}
