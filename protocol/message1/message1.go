// Package message1 implements the second cryptographic exchange: both
// sides reveal the Monero key pair and nonce behind their message0
// commitment, and Alice additionally announces the Bitcoin adaptor point
// Bob will encrypt his claim signature under, bound to her Monero spend
// key by a discrete-log-equality proof, so that Alice completing Bob's
// signature later reveals exactly the secret Bob needs (spec §4.6's
// "State1::receive(m1_b) validates Bob's key shares and adaptor material"
// -- from Bob's perspective, the adaptor material he validates here is
// Alice's).
package message1

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/noot/xmrswap/common"
	"github.com/noot/xmrswap/crypto/dleq"
	"github.com/noot/xmrswap/crypto/monero"
	"github.com/noot/xmrswap/crypto/secp256k1"
	"github.com/noot/xmrswap/net/message"
	"github.com/noot/xmrswap/net/reqresp"
)

// Label identifies this sub-protocol in logs and errors.
const Label = "message1"

// Reveal is the Monero key pair and commitment-opening nonce common to
// both directions.
type Reveal struct {
	SpendPubKey [32]byte `json:"spend_pub_key"`
	ViewPubKey  [32]byte `json:"view_pub_key"`
	Nonce       [32]byte `json:"nonce"`
}

// BobPayload is the concrete content of a Message1Bob envelope.
type BobPayload struct {
	Reveal
}

// AlicePayload is the concrete content of a Message1Alice envelope.
type AlicePayload struct {
	Reveal
	AdaptorPoint        []byte   `json:"adaptor_point"`
	DLEqSecp256k1Commit []byte   `json:"dleq_secp_commit"`
	DLEqEd25519Commit   [32]byte `json:"dleq_ed_commit"`
	DLEqResponse        [32]byte `json:"dleq_response"`
}

func encode(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, &common.CodecError{Err: err}
	}
	return b, nil
}

// keys extracts the revealed Monero public key pair from a Reveal.
func (r *Reveal) keys() (*monero.PublicKeyPair, error) {
	spend, err := monero.NewPublicKeyFromBytes(r.SpendPubKey)
	if err != nil {
		return nil, &common.CryptoError{Op: "parse revealed spend key", Err: err}
	}
	view, err := monero.NewPublicKeyFromBytes(r.ViewPubKey)
	if err != nil {
		return nil, &common.CryptoError{Op: "parse revealed view key", Err: err}
	}
	return &monero.PublicKeyPair{Spend: spend, View: view}, nil
}

// AliceReveal bundles everything Bob learns from Alice's message1, decoded
// but not cryptographically verified (bob.State1.Receive checks it).
type AliceReveal struct {
	Keys         *monero.PublicKeyPair
	Nonce        [32]byte
	AdaptorPoint *secp256k1.PublicKey
	DLEqProof    *dleq.Proof
}

// BobReveal bundles everything Alice learns from Bob's message1.
type BobReveal struct {
	Keys  *monero.PublicKeyPair
	Nonce [32]byte
}

// Bob is the requesting side.
type Bob struct {
	engine *reqresp.Engine
}

// NewBob builds message1's requesting side.
func NewBob(dialer reqresp.Dialer, timeout time.Duration) *Bob {
	return &Bob{engine: reqresp.New(dialer, timeout, Label)}
}

// Send delivers Bob's revealed keys to alice, returning Alice's revealed
// keys and adaptor material.
func (b *Bob) Send(ctx context.Context, alice peer.ID, keys *monero.PublicKeyPair, nonce [32]byte) (*AliceReveal, error) {
	payload, err := encode(&BobPayload{Reveal: Reveal{
		SpendPubKey: keys.Spend.Bytes(),
		ViewPubKey:  keys.View.Bytes(),
		Nonce:       nonce,
	}})
	if err != nil {
		return nil, err
	}

	resp, err := b.engine.Request(ctx, alice, &message.Message1Bob{Payload: payload})
	if err != nil {
		return nil, err
	}

	m1a, ok := resp.(*message.Message1Alice)
	if !ok {
		return nil, &common.ProtocolViolation{
			Reason: fmt.Sprintf("expected Message1Alice response, got %s", resp.Type()),
		}
	}

	var alicePayload AlicePayload
	if err := json.Unmarshal(m1a.Payload, &alicePayload); err != nil {
		return nil, &common.CodecError{Err: err}
	}

	keysOut, err := alicePayload.keys()
	if err != nil {
		return nil, err
	}

	adaptorPoint, err := secp256k1.NewPublicKeyFromBytes(alicePayload.AdaptorPoint)
	if err != nil {
		return nil, &common.CryptoError{Op: "parse Alice's adaptor point", Err: err}
	}

	secpCommit, err := secp256k1.NewPublicKeyFromBytes(alicePayload.DLEqSecp256k1Commit)
	if err != nil {
		return nil, &common.CryptoError{Op: "parse DLEq secp256k1 commitment", Err: err}
	}

	edCommit, err := monero.NewPublicKeyFromBytes(alicePayload.DLEqEd25519Commit)
	if err != nil {
		return nil, &common.CryptoError{Op: "parse DLEq ed25519 commitment", Err: err}
	}

	proof := &dleq.Proof{
		Secp256k1Commitment: secpCommit,
		Ed25519Commitment:   edCommit,
		Response:            alicePayload.DLEqResponse,
	}

	// Verifying the proof is the role state machine's job (State1.Receive),
	// which holds the keys it binds against; this layer only decodes the
	// wire envelope.
	return &AliceReveal{Keys: keysOut, Nonce: alicePayload.Nonce, AdaptorPoint: adaptorPoint, DLEqProof: proof}, nil
}

// Alice is the responding side.
type Alice struct {
	responder *reqresp.Responder
}

// NewAlice builds message1's responding side.
func NewAlice() *Alice {
	return &Alice{responder: reqresp.NewResponder(message.TypeMessage1Bob, Label, true)}
}

// Responder exposes the underlying Responder for dispatcher registration.
func (a *Alice) Responder() *reqresp.Responder { return a.responder }

// Next blocks for Bob's revealed keys.
func (a *Alice) Next(ctx context.Context) (reveal *BobReveal, reply *reqresp.ReplyChannel, err error) {
	in, err := a.responder.Next(ctx)
	if err != nil {
		return nil, nil, err
	}

	m1b, ok := in.Msg.(*message.Message1Bob)
	if !ok {
		return nil, nil, &common.ProtocolViolation{
			Reason: fmt.Sprintf("expected Message1Bob, got %s", in.Msg.Type()),
		}
	}

	var bobPayload BobPayload
	if err := json.Unmarshal(m1b.Payload, &bobPayload); err != nil {
		return nil, nil, &common.CodecError{Err: err}
	}

	keys, err := bobPayload.keys()
	if err != nil {
		return nil, nil, err
	}

	return &BobReveal{Keys: keys, Nonce: bobPayload.Nonce}, in.Reply, nil
}

// Reply sends Alice's revealed keys and adaptor material back through
// reply.
func Reply(reply *reqresp.ReplyChannel, keys *monero.PublicKeyPair, nonce [32]byte, adaptorPoint *secp256k1.PublicKey, proof *dleq.Proof) error {
	payload, err := encode(&AlicePayload{
		Reveal: Reveal{
			SpendPubKey: keys.Spend.Bytes(),
			ViewPubKey:  keys.View.Bytes(),
			Nonce:       nonce,
		},
		AdaptorPoint:        adaptorPoint.Bytes(),
		DLEqSecp256k1Commit: proof.Secp256k1Commitment.Bytes(),
		DLEqEd25519Commit:   proof.Ed25519Commitment.Bytes(),
		DLEqResponse:        proof.Response,
	})
	if err != nil {
		return err
	}
	reply.Reply(&message.Message1Alice{Payload: payload})
	return nil
}
