package signature

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/hkdf"
)

// KeyResolver maps an owner to its key pair.
type KeyResolver interface {
	PrivateKey(ownerID string) (ed25519.PrivateKey, error)
	PublicKey(ownerID string) (ed25519.PublicKey, error)
}

// Ed25519Signer signs with the owner's Ed25519 key.
type Ed25519Signer struct {
	keys KeyResolver
}

var _ Signer = (*Ed25519Signer)(nil)

// NewEd25519 returns a signer that resolves keys through r.
func NewEd25519(r KeyResolver) *Ed25519Signer {
	return &Ed25519Signer{keys: r}
}

// Scheme implements Signer.
func (s *Ed25519Signer) Scheme() string { return "ed25519" }

// Sign implements Signer.
func (s *Ed25519Signer) Sign(ownerID string, msg []byte) ([]byte, error) {
	priv, err := s.keys.PrivateKey(ownerID)
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(priv, msg), nil
}

// Verify implements Signer.
func (s *Ed25519Signer) Verify(ownerID string, msg, sig []byte) error {
	pub, err := s.keys.PublicKey(ownerID)
	if err != nil {
		return err
	}
	if len(sig) != ed25519.SignatureSize || !ed25519.Verify(pub, msg, sig) {
		return ErrMismatch
	}
	return nil
}

// KeyRing is a KeyResolver holding explicit key pairs and, optionally, a
// master seed from which per-owner keys are derived on demand.
//
// Derived keys are HKDF-SHA256(seed, salt="attest/owner-key/v1", info=ownerID).
// A verifier that only holds public keys uses AddPublic and no seed.
type KeyRing struct {
	mu      sync.RWMutex
	seed    []byte
	private map[string]ed25519.PrivateKey
	public  map[string]ed25519.PublicKey
}

var _ KeyResolver = (*KeyRing)(nil)

const derivationSalt = "attest/owner-key/v1"

// NewKeyRing creates an empty key ring.
func NewKeyRing() *KeyRing {
	return &KeyRing{
		private: make(map[string]ed25519.PrivateKey),
		public:  make(map[string]ed25519.PublicKey),
	}
}

// NewDerivedKeyRing creates a key ring deriving keys from seed.
func NewDerivedKeyRing(seed []byte) (*KeyRing, error) {
	if len(seed) < 32 {
		return nil, fmt.Errorf("signature: master seed must be at least 32 bytes, got %d", len(seed))
	}
	r := NewKeyRing()
	r.seed = append([]byte(nil), seed...)
	return r, nil
}

// Add registers an explicit key pair for ownerID.
func (r *KeyRing) Add(ownerID string, priv ed25519.PrivateKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.private[ownerID] = priv
	r.public[ownerID] = priv.Public().(ed25519.PublicKey) //nolint:errcheck,forcetypeassert // ed25519 always returns its own type
}

// AddPublic registers a verify-only key for ownerID.
func (r *KeyRing) AddPublic(ownerID string, pub ed25519.PublicKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.public[ownerID] = pub
}

// PrivateKey implements KeyResolver.
func (r *KeyRing) PrivateKey(ownerID string) (ed25519.PrivateKey, error) {
	r.mu.RLock()
	priv, ok := r.private[ownerID]
	r.mu.RUnlock()
	if ok {
		return priv, nil
	}
	return r.derive(ownerID)
}

// PublicKey implements KeyResolver.
func (r *KeyRing) PublicKey(ownerID string) (ed25519.PublicKey, error) {
	r.mu.RLock()
	pub, ok := r.public[ownerID]
	r.mu.RUnlock()
	if ok {
		return pub, nil
	}
	priv, err := r.derive(ownerID)
	if err != nil {
		return nil, err
	}
	return priv.Public().(ed25519.PublicKey), nil //nolint:forcetypeassert // ed25519 always returns its own type
}

func (r *KeyRing) derive(ownerID string) (ed25519.PrivateKey, error) {
	if r.seed == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOwner, ownerID)
	}

	kdf := hkdf.New(sha256.New, r.seed, []byte(derivationSalt), []byte(ownerID))
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(kdf, seed); err != nil {
		return nil, fmt.Errorf("signature: derive key for %q: %w", ownerID, err)
	}
	priv := ed25519.NewKeyFromSeed(seed)

	r.mu.Lock()
	r.private[ownerID] = priv
	r.public[ownerID] = priv.Public().(ed25519.PublicKey) //nolint:forcetypeassert // ed25519 always returns its own type
	r.mu.Unlock()

	return priv, nil
}
