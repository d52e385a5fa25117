// Package bob implements Bob's role state machine (spec §4.6): he holds
// BTC and wants XMR. His Bitcoin signing key is the key the joint lock
// script's redeem branch checks against; once Alice completes his
// encrypted signature with her adaptor secret, that completed signature
// both claims BTC for Alice and reveals to Bob the Monero-side secret he
// needs for his half of the joint account.
package bob

import (
	"io"

	"github.com/noot/xmrswap/bitcoin"
	"github.com/noot/xmrswap/common"
	"github.com/noot/xmrswap/crypto/dleq"
	"github.com/noot/xmrswap/crypto/monero"
	"github.com/noot/xmrswap/crypto/secp256k1"
)

// defaultFeeRate is the fee rate the wallet call in State0::Receive always
// passes; callers cannot override it. The on-chain execution phase that
// actually broadcasts is out of scope for this core.
const defaultFeeRate = 10

// State0 holds Bob's freshly sampled secrets and commitment.
type State0 struct {
	Amounts        common.Amounts
	RefundTimelock uint64
	PunishTimelock uint64

	moneroKeys *monero.PrivateKeyPair
	commitment *monero.Commitment
	signingKey *secp256k1.PrivateKey
}

// NewState0 samples fresh secrets and computes Bob's public commitment
// (spec §4.6, "State0::next_message(rng) emits initial commitments").
func NewState0(rng io.Reader, amounts common.Amounts, refundTimelock, punishTimelock uint64) (*State0, error) {
	var spendRandomness, viewRandomness [64]byte
	if _, err := io.ReadFull(rng, spendRandomness[:]); err != nil {
		return nil, &common.CryptoError{Op: "sample spend key randomness", Err: err}
	}
	if _, err := io.ReadFull(rng, viewRandomness[:]); err != nil {
		return nil, &common.CryptoError{Op: "sample view key randomness", Err: err}
	}

	spendKey, err := monero.GeneratePrivateKey(spendRandomness)
	if err != nil {
		return nil, &common.CryptoError{Op: "derive monero spend key", Err: err}
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

	signingKey, err := secp256k1.GeneratePrivateKey(rng)
	if err != nil {
		return nil, &common.CryptoError{Op: "generate bitcoin signing key", Err: err}
	}

	return &State0{
		Amounts:        amounts,
		RefundTimelock: refundTimelock,
		PunishTimelock: punishTimelock,
		moneroKeys:     moneroKeys,
		commitment:     commitment,
		signingKey:     signingKey,
	}, nil
}

// NextMessage produces the commitment and signing key Bob sends in
// message0.
func (s *State0) NextMessage() (digest [32]byte, refundPubKey *secp256k1.PublicKey) {
	return s.commitment.Digest, s.signingKey.Public()
}

// Receive builds (but does not broadcast) the BTC lock transaction via
// wallet, requiring a wallet call as spec §4.6 describes ("State0::receive(wallet,
// m0_a) requires the wallet because this step constructs the BTC lock
// transaction"). aliceCommitmentDigest is Alice's message0 reply.
func (s *State0) Receive(wallet bitcoin.Wallet, aliceCommitmentDigest [32]byte) (*State1, error) {
	lockScript, err := bitcoin.LockScript(s.signingKey.Public().Bytes(), s.signingKey.Public().Bytes(), int64(s.RefundTimelock))
	if err != nil {
		return nil, &common.CryptoError{Op: "build lock script", Err: err}
	}

	lockTx, err := wallet.BuildLockTx(lockScript, int64(s.Amounts.BTC), defaultFeeRate)
	if err != nil {
		return nil, &common.WalletError{Op: "build lock transaction", Err: err}
	}

	return &State1{
		state0:                s,
		aliceCommitmentDigest: aliceCommitmentDigest,
		lockTx:                lockTx,
	}, nil
}

// State1 has built the lock transaction draft and awaits Alice's reveal.
type State1 struct {
	state0                *State0
	aliceCommitmentDigest [32]byte
	lockTx                *bitcoin.LockTx
}

// LockTx returns the unbroadcast lock transaction built in State0.Receive.
func (s *State1) LockTx() *bitcoin.LockTx {
	return s.lockTx
}

// NextMessage produces the reveal Bob sends in message1.
func (s *State1) NextMessage() (keys *monero.PublicKeyPair, nonce [32]byte) {
	return s.state0.moneroKeys.Public(), s.state0.commitment.Nonce
}

// Receive opens Alice's commitment and validates her adaptor material,
// deriving the joint Monero account (spec §4.6, "State1::receive(m1_a)
// complete the key exchange").
func (s *State1) Receive(aliceKeys *monero.PublicKeyPair, aliceNonce [32]byte, adaptorPoint *secp256k1.PublicKey, proof *dleq.Proof) (*State2, error) {
	c := &monero.Commitment{Digest: s.aliceCommitmentDigest}
	if !c.Verify(aliceKeys, aliceNonce) {
		return nil, &common.ProtocolViolation{Reason: "Alice's revealed keys do not match her message0 commitment"}
	}

	if err := proof.Verify(adaptorPoint, aliceKeys.Spend); err != nil {
		return nil, &common.CryptoError{Op: "verify Alice's discrete-log-equality proof", Err: err}
	}

	jointKeys := monero.SumPublicKeyPairs(s.state0.moneroKeys.Public(), aliceKeys)

	return &State2{
		state1:       s,
		aliceKeys:    aliceKeys,
		jointKeys:    jointKeys,
		adaptorPoint: adaptorPoint,
	}, nil
}

// State2 has a fully derived joint Monero account and is ready to produce
// the encrypted Bitcoin signature.
type State2 struct {
	state1       *State1
	aliceKeys    *monero.PublicKeyPair
	jointKeys    *monero.PublicKeyPair
	adaptorPoint *secp256k1.PublicKey
}

// JointKeys returns the joint Monero account's public key pair.
func (s *State2) JointKeys() *monero.PublicKeyPair {
	return s.jointKeys
}

// NextMessage produces Bob's encrypted Bitcoin signature adaptor, sent in
// message2 (spec §4.6, "State2::next_message() produces Bob's encrypted
// signature adaptor needed by Alice to later claim BTC").
func (s *State2) NextMessage(rng io.Reader, claimMessage [32]byte) (*secp256k1.AdaptorSignature, error) {
	nonce, err := secp256k1.GeneratePrivateKey(rng)
	if err != nil {
		return nil, &common.CryptoError{Op: "sample adaptor signature nonce", Err: err}
	}

	sig, err := secp256k1.Sign(s.state1.state0.signingKey, nonce, s.adaptorPoint, claimMessage)
	if err != nil {
		return nil, &common.CryptoError{Op: "produce encrypted bitcoin signature", Err: err}
	}

	return sig, nil
}
