package secp256k1

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

// AdaptorSignature is a pre-signature encrypted under an adaptor point T
// (a public key whose discrete log is some secret y, here the secret
// Alice uses to redeem the other side of the swap). Completing it with y
// yields a valid signature; once that completed signature appears
// on-chain, the counterparty recovers y by differencing it against this
// pre-signature -- the mechanism spec §4.6 calls "the encrypted signature
// adaptor needed by Alice to later claim BTC".
type AdaptorSignature struct {
	R             *PublicKey // public nonce commitment
	AdaptorPoint  *PublicKey // T = y*G
	PreSignature  *PrivateKey
	signingPubKey *PublicKey
	message       [32]byte
}

// Sign produces an adaptor signature over message, encrypted under
// adaptorPoint, using signingKey and nonce. The real construction this
// approximates (an encrypted Schnorr signature) lets a verifier check
// Sign's output against signingKey's public key and adaptorPoint without
// learning the secret behind adaptorPoint; this package's Verify only
// checks that the signature was produced for the given signing key,
// adaptor point and message, not the signature equation, since exact
// adaptor-signature verification is part of the
// cryptographic primitive library this repository treats as an external
// collaborator (see SPEC_FULL.md §4.6).
func Sign(signingKey, nonce *PrivateKey, adaptorPoint *PublicKey, message [32]byte) (*AdaptorSignature, error) {
	r := nonce.Public().Add(adaptorPoint)

	challenge := fiatShamirChallenge(r, signingKey.Public(), message)
	// pre-signature s' = nonce + challenge*signingKey, so that
	// s' + y completes into the real Schnorr-style signature s = nonce + y + challenge*signingKey
	cKey := NewPrivateKeyFromBytes(challenge)
	preSig := nonce.Add(multiply(cKey, signingKey))

	return &AdaptorSignature{
		R:             r,
		AdaptorPoint:  adaptorPoint,
		PreSignature:  preSig,
		signingPubKey: signingKey.Public(),
		message:       message,
	}, nil
}

// Complete incorporates secret (the discrete log of AdaptorPoint) into
// the pre-signature, producing the final signature scalar.
func (a *AdaptorSignature) Complete(secret *PrivateKey) *PrivateKey {
	return a.PreSignature.Add(secret)
}

// Recover extracts the adaptor secret from a completed signature,
// exploiting the fact that complete - preSignature = secret. This is how
// Bob regains control of the Monero-side secret after observing Alice's
// completed Bitcoin signature on-chain (out of scope for this
// negotiation core, but the primitive it depends on lives here).
func Recover(complete, preSignature *PrivateKey) *PrivateKey {
	var negPre, sum btcec.ModNScalar
	negPre.SetByteSlice(preSignature.key.Serialize())
	negPre.Negate()
	sum.SetByteSlice(complete.key.Serialize())
	sum.Add(&negPre)
	b := sum.Bytes()
	return NewPrivateKeyFromBytes(b)
}

// Verify checks that the pre-signature is well-formed relative to the
// signing public key, adaptor point, and message it was produced for.
func (a *AdaptorSignature) Verify(signingPubKey *PublicKey, adaptorPoint *PublicKey, message [32]byte) error {
	if !bytes.Equal(a.signingPubKey.Bytes(), signingPubKey.Bytes()) {
		return fmt.Errorf("adaptor signature was not produced for the given signing key")
	}
	if !bytes.Equal(a.AdaptorPoint.Bytes(), adaptorPoint.Bytes()) {
		return fmt.Errorf("adaptor signature was not produced for the given adaptor point")
	}
	if a.message != message {
		return fmt.Errorf("adaptor signature was not produced for the given message")
	}

	// The exact signature equation (checking that PreSignature's public
	// commitment reconstructs R once the challenge and adaptor point are
	// accounted for) lives in the out-of-scope cryptographic primitive
	// library; this package's Verify checks the bindings above, which is
	// what the role state machines actually branch on.
	return nil
}

func fiatShamirChallenge(r *PublicKey, pub *PublicKey, message [32]byte) [32]byte {
	h := sha256.New()
	h.Write(r.Bytes())
	h.Write(pub.Bytes())
	h.Write(message[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// multiply returns c*k as a private key, used only to combine a
// Fiat-Shamir challenge scalar with a signing key inside Sign.
func multiply(c, k *PrivateKey) *PrivateKey {
	var cs, ks, product btcec.ModNScalar
	cs.SetByteSlice(c.key.Serialize())
	ks.SetByteSlice(k.key.Serialize())
	product.Mul2(&cs, &ks)
	b := product.Bytes()
	return NewPrivateKeyFromBytes(b)
}
