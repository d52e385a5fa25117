// Package alice implements Alice's role state machine (spec §4.6): she
// holds XMR and wants BTC. Her dual-group adaptor secret is the same
// scalar as her Monero spend key share, so that completing Bob's
// encrypted Bitcoin signature to claim BTC necessarily reveals the secret
// Bob needs to later recover his share of the joint Monero output.
package alice

import (
	"io"

	"github.com/noot/xmrswap/common"
	"github.com/noot/xmrswap/crypto/dleq"
	"github.com/noot/xmrswap/crypto/monero"
	"github.com/noot/xmrswap/crypto/secp256k1"
)

// State0 holds Alice's freshly sampled secrets and the public commitment
// derived from them, plus the swap's negotiated parameters.
type State0 struct {
	Amounts        common.Amounts
	RefundTimelock uint64
	PunishTimelock uint64
	RedeemAddress  string
	PunishAddress  string

	moneroKeys    *monero.PrivateKeyPair
	commitment    *monero.Commitment
	dleqSecret    *dleq.Secret
	adaptorPubKey *secp256k1.PublicKey
	dleqProof     *dleq.Proof
}

// NewState0 samples fresh secrets and computes Alice's public commitment
// (spec §4.6, "State0::new ... samples fresh secrets and computes public
// commitments").
func NewState0(rng io.Reader, amounts common.Amounts, refundTimelock, punishTimelock uint64, redeemAddress, punishAddress string) (*State0, error) {
	dleqSecret, err := dleq.GenerateSecret()
	if err != nil {
		return nil, &common.CryptoError{Op: "generate dual-group adaptor secret", Err: err}
	}

	spendKey, err := dleqSecret.Ed25519Key()
	if err != nil {
		return nil, &common.CryptoError{Op: "derive monero spend key from adaptor secret", Err: err}
	}

	var viewRandomness [64]byte
	if _, err := io.ReadFull(rng, viewRandomness[:]); err != nil {
		return nil, &common.CryptoError{Op: "sample view key randomness", Err: err}
	}
	viewKey, err := monero.GeneratePrivateKey(viewRandomness)
	if err != nil {
		return nil, &common.CryptoError{Op: "derive monero view key", Err: err}
	}

	moneroKeys := &monero.PrivateKeyPair{Spend: spendKey, View: viewKey}

	commitment, err := monero.Commit(moneroKeys.Public())
	if err != nil {
		return nil, &common.CryptoError{Op: "commit to monero key pair", Err: err}
	}

	proof, err := dleq.Prove(dleqSecret)
	if err != nil {
		return nil, &common.CryptoError{Op: "prove discrete-log-equality", Err: err}
	}

	return &State0{
		Amounts:        amounts,
		RefundTimelock: refundTimelock,
		PunishTimelock: punishTimelock,
		RedeemAddress:  redeemAddress,
		PunishAddress:  punishAddress,
		moneroKeys:     moneroKeys,
		commitment:     commitment,
		dleqSecret:     dleqSecret,
		adaptorPubKey:  dleqSecret.Secp256k1Key().Public(),
		dleqProof:      proof,
	}, nil
}

// CommitmentDigest is the value Alice sends in message0.
func (s *State0) CommitmentDigest() [32]byte {
	return s.commitment.Digest
}

// Receive stores Bob's message0 commitment and refund key (spec §4.6,
// "State0::receive(m0_b) validates Bob's commitments and stores them").
// The commitment is only stored, not opened, at this stage; validation
// happens in State1::Receive once Bob reveals the keys behind it.
func (s *State0) Receive(bobCommitmentDigest [32]byte, bobRefundPubKey *secp256k1.PublicKey) (*State1, error) {
	return &State1{
		state0:              s,
		bobCommitmentDigest: bobCommitmentDigest,
		bobRefundPubKey:     bobRefundPubKey,
	}, nil
}

// State1 has exchanged commitments with Bob but not yet opened them.
type State1 struct {
	state0              *State0
	bobCommitmentDigest [32]byte
	bobRefundPubKey     *secp256k1.PublicKey
}

// NextMessage produces the reveal and adaptor material Alice sends in
// message1.
func (s *State1) NextMessage() (keys *monero.PublicKeyPair, nonce [32]byte, adaptorPoint *secp256k1.PublicKey, proof *dleq.Proof) {
	return s.state0.moneroKeys.Public(), s.state0.commitment.Nonce, s.state0.adaptorPubKey, s.state0.dleqProof
}

// Receive opens Bob's commitment against his revealed keys and nonce,
// deriving the joint Monero account (spec §4.6, "State1::receive(m1_b)
// validates Bob's key shares and adaptor material").
func (s *State1) Receive(bobKeys *monero.PublicKeyPair, bobNonce [32]byte) (*State2, error) {
	c := &monero.Commitment{Digest: s.bobCommitmentDigest}
	if !c.Verify(bobKeys, bobNonce) {
		return nil, &common.ProtocolViolation{Reason: "Bob's revealed keys do not match his message0 commitment"}
	}

	jointKeys := monero.SumPublicKeyPairs(s.state0.moneroKeys.Public(), bobKeys)

	return &State2{
		state1:    s,
		bobKeys:   bobKeys,
		jointKeys: jointKeys,
	}, nil
}

// State2 has a fully derived joint Monero account and awaits Bob's
// encrypted Bitcoin signature.
type State2 struct {
	state1    *State1
	bobKeys   *monero.PublicKeyPair
	jointKeys *monero.PublicKeyPair
}

// JointKeys returns the joint Monero account's public key pair.
func (s *State2) JointKeys() *monero.PublicKeyPair {
	return s.jointKeys
}

// Receive stores Bob's encrypted Bitcoin signature adaptor, completing
// the handshake (spec §4.3 step 7, "transition to State3").
func (s *State2) Receive(r *secp256k1.PublicKey, preSignature *secp256k1.PrivateKey) *State3 {
	return &State3{
		state2:          s,
		bobSignatureR:   r,
		bobPreSignature: preSignature,
	}
}

// State3 is the terminal state this negotiation core produces: everything
// needed to complete the Bitcoin claim signature lives here, ready for the
// (out-of-scope) execution phase to use.
type State3 struct {
	state2          *State2
	bobSignatureR   *secp256k1.PublicKey
	bobPreSignature *secp256k1.PrivateKey
}

// AdaptorSecret returns the dual-group secret whose Bitcoin-side half
// completes Bob's pre-signature, and whose Monero-side half is Alice's
// contribution to the joint spend key.
func (s *State3) AdaptorSecret() *dleq.Secret {
	return s.state2.state1.state0.dleqSecret
}

// JointKeys returns the joint Monero account's public key pair.
func (s *State3) JointKeys() *monero.PublicKeyPair {
	return s.state2.jointKeys
}

// PreSignature returns Bob's pre-signature components, as delivered in
// message2.
func (s *State3) PreSignature() (r *secp256k1.PublicKey, preSignature *secp256k1.PrivateKey) {
	return s.bobSignatureR, s.bobPreSignature
}
