package monero

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
)

// Commitment binds a party to a public key pair before they reveal it, so
// that the counterparty can later check the revealed keys match what was
// committed to (spec §4.6, State0 "computes public commitments").
type Commitment struct {
	Digest [32]byte
	Nonce  [32]byte
}

// Commit produces a commitment to keys with fresh randomness.
func Commit(keys *PublicKeyPair) (*Commitment, error) {
	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to sample commitment nonce: %w", err)
	}

	return &Commitment{Digest: digest(keys, nonce), Nonce: nonce}, nil
}

// Verify reports whether the revealed keys and the nonce used to commit
// to them are consistent with the original commitment.
func (c *Commitment) Verify(keys *PublicKeyPair, nonce [32]byte) bool {
	return bytes.Equal(c.Digest[:], digest(keys, nonce)[:])
}

func digest(keys *PublicKeyPair, nonce [32]byte) [32]byte {
	spend := keys.Spend.Bytes()
	view := keys.View.Bytes()

	h := sha256.New()
	h.Write(spend[:])
	h.Write(view[:])
	h.Write(nonce[:])

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
