// Package secp256k1 implements the Bitcoin-curve key material and
// adaptor-signature mechanics the role state machines use to let Alice
// claim BTC without ever seeing Bob's raw signing key, and to let Bob
// later recover Alice's Monero spend key from the signature she publishes
// on-chain -- the core cryptographic trick that makes the swap atomic.
package secp256k1

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

// PrivateKey wraps a Bitcoin-curve private key.
type PrivateKey struct {
	key *btcec.PrivateKey
}

// GeneratePrivateKey samples a fresh private key from an externalized
// random source (spec §9), not process-wide randomness.
func GeneratePrivateKey(rng interface{ Read([]byte) (int, error) }) (*PrivateKey, error) {
	var buf [32]byte
	if _, err := rng.Read(buf[:]); err != nil {
		return nil, fmt.Errorf("failed to sample private key randomness: %w", err)
	}

	return &PrivateKey{key: btcec.PrivKeyFromBytes(buf[:])}, nil
}

// NewPrivateKeyFromBytes builds a private key from a 32-byte big-endian
// scalar.
func NewPrivateKeyFromBytes(b [32]byte) *PrivateKey {
	return &PrivateKey{key: btcec.PrivKeyFromBytes(b[:])}
}

// Public returns the corresponding public key.
func (k *PrivateKey) Public() *PublicKey {
	return &PublicKey{key: k.key.PubKey()}
}

// Bytes returns the 32-byte big-endian scalar encoding.
func (k *PrivateKey) Bytes() [32]byte {
	var out [32]byte
	b := k.key.Serialize()
	copy(out[:], b)
	return out
}

// Add returns k + other mod the secp256k1 group order.
func (k *PrivateKey) Add(other *PrivateKey) *PrivateKey {
	var a, b btcec.ModNScalar
	a.SetByteSlice(k.key.Serialize())
	b.SetByteSlice(other.key.Serialize())
	a.Add(&b)
	sumBytes := a.Bytes()
	return &PrivateKey{key: btcec.PrivKeyFromBytes(sumBytes[:])}
}

// PublicKey wraps a Bitcoin-curve public key.
type PublicKey struct {
	key *btcec.PublicKey
}

// NewPublicKeyFromBytes decodes a compressed secp256k1 public key.
func NewPublicKeyFromBytes(b []byte) (*PublicKey, error) {
	key, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("invalid public key bytes: %w", err)
	}
	return &PublicKey{key: key}, nil
}

// Bytes returns the compressed point encoding.
func (k *PublicKey) Bytes() []byte {
	return k.key.SerializeCompressed()
}

// Add returns k + other, the point addition used by Sign to offset the
// nonce commitment by the adaptor point and by the discrete-log-equality
// proof's verification.
func (k *PublicKey) Add(other *PublicKey) *PublicKey {
	var p1, p2, sum btcec.JacobianPoint
	k.key.AsJacobian(&p1)
	other.key.AsJacobian(&p2)
	btcec.AddNonConst(&p1, &p2, &sum)
	sum.ToAffine()
	return &PublicKey{key: btcec.NewPublicKey(&sum.X, &sum.Y)}
}

// ScalarMult returns scalar*k, used by the discrete-log-equality proof to
// check a Fiat-Shamir response against a committed point.
func (k *PublicKey) ScalarMult(scalar *PrivateKey) *PublicKey {
	var s btcec.ModNScalar
	s.SetByteSlice(scalar.key.Serialize())

	var p, result btcec.JacobianPoint
	k.key.AsJacobian(&p)
	btcec.ScalarMultNonConst(&s, &p, &result)
	result.ToAffine()
	return &PublicKey{key: btcec.NewPublicKey(&result.X, &result.Y)}
}
