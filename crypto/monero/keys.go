// Package monero implements the Monero-curve (ed25519) key material the
// role state machines exchange and sum: private/public spend and view
// keys, and the key-summation operations that derive the joint account
// both parties control once the handshake completes, plus the
// hash-and-reveal commitment to a public key pair (commitment.go). The
// rest of the cryptographic primitive library (adaptor signatures,
// discrete-log-equality proofs) lives in the sibling crypto/secp256k1 and
// crypto/dleq packages; this package only knows about the Monero side.
package monero

import (
	"fmt"

	"filippo.io/edwards25519"
)

// PrivateKey is one half (spend or view) of a Monero-style ed25519 scalar
// key.
type PrivateKey struct {
	scalar *edwards25519.Scalar
}

// NewPrivateKeyFromCanonicalBytes interprets b as a little-endian scalar.
// b must already be reduced modulo the ed25519 group order.
func NewPrivateKeyFromCanonicalBytes(b [32]byte) (*PrivateKey, error) {
	s, err := edwards25519.NewScalar().SetCanonicalBytes(b[:])
	if err != nil {
		return nil, fmt.Errorf("invalid private key bytes: %w", err)
	}
	return &PrivateKey{scalar: s}, nil
}

// GeneratePrivateKey derives a fresh private key from 64 bytes of
// randomness supplied by an externalized random source (spec §9,
// "externalized randomness"), using the standard wide-reduction every
// ed25519-based scheme uses to turn arbitrary entropy into a uniform
// scalar.
func GeneratePrivateKey(randomness [64]byte) (*PrivateKey, error) {
	s, err := edwards25519.NewScalar().SetUniformBytes(randomness[:])
	if err != nil {
		return nil, fmt.Errorf("failed to reduce randomness into a scalar: %w", err)
	}
	return &PrivateKey{scalar: s}, nil
}

// Public returns the public point k*G.
func (k *PrivateKey) Public() *PublicKey {
	return &PublicKey{point: new(edwards25519.Point).ScalarBaseMult(k.scalar)}
}

// Bytes returns the canonical 32-byte little-endian scalar encoding.
func (k *PrivateKey) Bytes() [32]byte {
	var out [32]byte
	copy(out[:], k.scalar.Bytes())
	return out
}

// Add returns k + other mod the ed25519 group order, used to derive a
// joint private spend key once both halves are locally known (only ever
// true after the swap's execution phase reveals the counterparty's
// secret; within this negotiation core, Add is only ever applied to
// public keys).
func (k *PrivateKey) Add(other *PrivateKey) *PrivateKey {
	return &PrivateKey{scalar: edwards25519.NewScalar().Add(k.scalar, other.scalar)}
}

// PublicKey is a Monero-style ed25519 curve point.
type PublicKey struct {
	point *edwards25519.Point
}

// NewPublicKeyFromBytes decodes a compressed ed25519 point.
func NewPublicKeyFromBytes(b [32]byte) (*PublicKey, error) {
	p, err := new(edwards25519.Point).SetBytes(b[:])
	if err != nil {
		return nil, fmt.Errorf("invalid public key bytes: %w", err)
	}
	return &PublicKey{point: p}, nil
}

// PublicKeyFromPoint wraps an already-computed point.
func PublicKeyFromPoint(p *edwards25519.Point) *PublicKey {
	return &PublicKey{point: p}
}

// Bytes returns the compressed point encoding.
func (k *PublicKey) Bytes() [32]byte {
	var out [32]byte
	copy(out[:], k.point.Bytes())
	return out
}

// Add returns k + other, the group operation used to sum two parties'
// public key shares into the joint public key (spec §4.6's "Alice never
// sees Bob's private spend key, only derives their joint public key").
func (k *PublicKey) Add(other *PublicKey) *PublicKey {
	return &PublicKey{point: new(edwards25519.Point).Add(k.point, other.point)}
}

// PrivateKeyPair is one party's spend and view keys for a Monero account.
type PrivateKeyPair struct {
	Spend *PrivateKey
	View  *PrivateKey
}

// Public returns the public halves of both keys.
func (p *PrivateKeyPair) Public() *PublicKeyPair {
	return &PublicKeyPair{Spend: p.Spend.Public(), View: p.View.Public()}
}

// PublicKeyPair is the public spend and view key pair that addresses a
// Monero account.
type PublicKeyPair struct {
	Spend *PublicKey
	View  *PublicKey
}

// SumPublicKeyPairs derives the joint account's public keys from each
// side's public key share. This is how Alice computes the address she
// expects Bob to lock XMR into, and how Bob computes the address he
// expects to reclaim XMR from after Alice redeems the Bitcoin side.
func SumPublicKeyPairs(a, b *PublicKeyPair) *PublicKeyPair {
	return &PublicKeyPair{Spend: a.Spend.Add(b.Spend), View: a.View.Add(b.View)}
}
