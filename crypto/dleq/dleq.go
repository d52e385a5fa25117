// Package dleq implements a discrete-log-equality proof binding a
// secp256k1 key to an ed25519 key: a proof that the same secret scalar x
// is simultaneously the discrete log of a Bitcoin-curve public key and of
// a Monero-curve public key. Alice uses this to convince Bob that the
// adaptor point his Bitcoin signature is encrypted under has the same
// secret as her ed25519 contribution to the joint Monero spend key, so
// that Alice's eventual Bitcoin redemption reveals the exact secret Bob
// needs; Bob verifies the proof before relying on it (spec
// §4.6's "verified before being incorporated" invariant).
//
// The scalar is restricted to the interval [0, scalarBound), which is
// comfortably smaller than both curves' group orders; any such scalar is
// therefore a single, unambiguous value in both groups at once, which is
// what lets one Fiat-Shamir proof bind both base-point multiplications
// together.
package dleq

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"

	"filippo.io/edwards25519"

	"github.com/noot/xmrswap/crypto/monero"
	"github.com/noot/xmrswap/crypto/secp256k1"
)

// scalarBound is 2^252, below both the secp256k1 order (~2^256) and the
// ed25519 order l (just above 2^252), so every scalar drawn below it is valid
// and has the same integer value in both groups.
var scalarBound = new(big.Int).Lsh(big.NewInt(1), 252)

// Proof is a Fiat-Shamir sigma-protocol proof that a single scalar is the
// discrete log of both a secp256k1 public key and an ed25519 public key
// (the two keys Verify is given).
type Proof struct {
	Secp256k1Commitment *secp256k1.PublicKey
	Ed25519Commitment   *monero.PublicKey
	Response            [32]byte
}

// Secret is a scalar known to be valid simultaneously in both groups.
type Secret struct {
	value *big.Int
}

// GenerateSecret samples a fresh dual-group scalar.
func GenerateSecret() (*Secret, error) {
	v, err := rand.Int(rand.Reader, scalarBound)
	if err != nil {
		return nil, fmt.Errorf("failed to sample dual-group scalar: %w", err)
	}
	return &Secret{value: v}, nil
}

// SecretFromBytes interprets 32 big-endian bytes as a dual-group scalar.
// It fails if the value is not below scalarBound.
func SecretFromBytes(b [32]byte) (*Secret, error) {
	v := new(big.Int).SetBytes(b[:])
	if v.Cmp(scalarBound) >= 0 {
		return nil, fmt.Errorf("scalar exceeds the dual-group bound")
	}
	return &Secret{value: v}, nil
}

// Secp256k1Key returns x as a Bitcoin-curve private key.
func (x *Secret) Secp256k1Key() *secp256k1.PrivateKey {
	var b [32]byte
	x.value.FillBytes(b[:])
	return secp256k1.NewPrivateKeyFromBytes(b)
}

// Ed25519Key returns x as a Monero-curve private key.
func (x *Secret) Ed25519Key() (*monero.PrivateKey, error) {
	var leBytes [32]byte
	bigEndian := make([]byte, 32)
	x.value.FillBytes(bigEndian)
	for i := 0; i < 32; i++ {
		leBytes[i] = bigEndian[31-i]
	}
	return monero.NewPrivateKeyFromCanonicalBytes(leBytes)
}

// Prove constructs a Proof that x is the discrete log of both x's
// secp256k1 public key and x's ed25519 public key.
func Prove(x *Secret) (*Proof, error) {
	r, err := rand.Int(rand.Reader, scalarBound)
	if err != nil {
		return nil, fmt.Errorf("failed to sample nonce: %w", err)
	}

	var rBE [32]byte
	r.FillBytes(rBE[:])
	rSecp := secp256k1.NewPrivateKeyFromBytes(rBE)

	var rLE [32]byte
	for i := 0; i < 32; i++ {
		rLE[i] = rBE[31-i]
	}
	rEd, err := monero.NewPrivateKeyFromCanonicalBytes(rLE)
	if err != nil {
		return nil, fmt.Errorf("failed to build ed25519 nonce scalar: %w", err)
	}

	secpPub := x.Secp256k1Key().Public()
	edKey, err := x.Ed25519Key()
	if err != nil {
		return nil, fmt.Errorf("failed to build ed25519 secret scalar: %w", err)
	}
	edPub := edKey.Public()

	secpCommitment := rSecp.Public()
	edCommitment := rEd.Public()

	challenge := fiatShamirChallenge(secpPub, edPub, secpCommitment, edCommitment)

	// response = r + challenge*x, computed over the integers; challenge*x
	// can exceed 256 bits, so the low 256 bits are kept and each group's
	// own scalar parser reduces further modulo that group's order. The
	// verifier performs the identical truncation, so both sides agree.
	resp := new(big.Int).Add(r, new(big.Int).Mul(challenge, x.value))
	respBytes := lowBytes32(resp)

	return &Proof{
		Secp256k1Commitment: secpCommitment,
		Ed25519Commitment:   edCommitment,
		Response:            respBytes,
	}, nil
}

// Verify checks proof against the claimed public keys.
func (p *Proof) Verify(secpPub *secp256k1.PublicKey, edPub *monero.PublicKey) error {
	challenge := fiatShamirChallenge(secpPub, edPub, p.Secp256k1Commitment, p.Ed25519Commitment)

	// response*G =? commitment + challenge*pub, checked independently in
	// each group.
	respSecp := secp256k1.NewPrivateKeyFromBytes(p.Response).Public()
	cSecp := secp256k1.NewPrivateKeyFromBytes(bigIntToBytes32(challenge))
	rhsSecp := p.Secp256k1Commitment.Add(scalarMultSecp(cSecp, secpPub))
	if !bytesEqual(respSecp.Bytes(), rhsSecp.Bytes()) {
		return fmt.Errorf("secp256k1 leg of discrete-log-equality proof failed to verify")
	}

	// The response is the low 256 bits of an unreduced sum and is not
	// guaranteed to be canonically below the ed25519 order, so it is
	// parsed with the wide reduction every ed25519 scheme uses to accept
	// arbitrary-magnitude input rather than the strict canonical parser.
	respEdBytes := reverse32(p.Response)
	var respEdWide [64]byte
	copy(respEdWide[:32], respEdBytes[:])
	respEdScalar, err := edwards25519.NewScalar().SetUniformBytes(respEdWide[:])
	if err != nil {
		return fmt.Errorf("invalid ed25519 response scalar: %w", err)
	}
	respEdPoint := new(edwards25519.Point).ScalarBaseMult(respEdScalar)
	respEd := monero.PublicKeyFromPoint(respEdPoint)

	cEdBytes := reverse32(bigIntToBytes32(challenge))
	cEdScalar, err := edwards25519.NewScalar().SetCanonicalBytes(cEdBytes[:])
	if err != nil {
		return fmt.Errorf("invalid ed25519 challenge scalar: %w", err)
	}
	cEdPoint := new(edwards25519.Point).ScalarMult(cEdScalar, edPubPoint(edPub))
	rhsEd := p.Ed25519Commitment.Add(monero.PublicKeyFromPoint(cEdPoint))

	if !bytesEqual(respEd.Bytes(), rhsEd.Bytes()) {
		return fmt.Errorf("ed25519 leg of discrete-log-equality proof failed to verify")
	}

	return nil
}

func fiatShamirChallenge(secpPub *secp256k1.PublicKey, edPub *monero.PublicKey, secpCommit *secp256k1.PublicKey, edCommit *monero.PublicKey) *big.Int {
	h := sha256.New()
	h.Write(secpPub.Bytes())
	edBytes := edPub.Bytes()
	h.Write(edBytes[:])
	h.Write(secpCommit.Bytes())
	edCommitBytes := edCommit.Bytes()
	h.Write(edCommitBytes[:])

	sum := h.Sum(nil)
	c := new(big.Int).SetBytes(sum)
	return c.Mod(c, scalarBound)
}

func bigIntToBytes32(v *big.Int) [32]byte {
	var out [32]byte
	v.FillBytes(out[:])
	return out
}

// lowBytes32 returns the low 256 bits of v as a big-endian array, without
// panicking when v does not fit (unlike big.Int.FillBytes).
func lowBytes32(v *big.Int) [32]byte {
	var out [32]byte
	b := v.Bytes()
	if len(b) >= 32 {
		copy(out[:], b[len(b)-32:])
	} else {
		copy(out[32-len(b):], b)
	}
	return out
}

func reverse32(b [32]byte) [32]byte {
	var out [32]byte
	for i := 0; i < 32; i++ {
		out[i] = b[31-i]
	}
	return out
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func scalarMultSecp(scalar *secp256k1.PrivateKey, pub *secp256k1.PublicKey) *secp256k1.PublicKey {
	return pub.ScalarMult(scalar)
}

func edPubPoint(pub *monero.PublicKey) *edwards25519.Point {
	b := pub.Bytes()
	p, _ := new(edwards25519.Point).SetBytes(b[:])
	return p
}
