// Package message2 implements the third and final cryptographic message:
// Bob sends his encrypted Bitcoin signature adaptor, encrypted under the
// adaptor point announced in message1, which Alice needs to later
// complete and publish on-chain to claim BTC (spec §4.4's "State2::next_message
// produces Bob's encrypted signature adaptor"). Alice never responds; the
// driver observes delivery success or failure on the outbound side only.
package message2

import (
	"context"
	"encoding/json"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/noot/xmrswap/common"
	"github.com/noot/xmrswap/crypto/secp256k1"
	"github.com/noot/xmrswap/net/message"
	"github.com/noot/xmrswap/net/reqresp"
)

// Label identifies this sub-protocol in logs and errors.
const Label = "message2"

// BobPayload is the concrete content of a Message2Bob envelope.
type BobPayload struct {
	R            []byte   `json:"r"`
	PreSignature [32]byte `json:"pre_signature"`
}

// Bob is the sending side. Message2 is fire-and-forget: Alice does not
// reply, so Bob uses Send rather than Request.
type Bob struct {
	engine *reqresp.Engine
}

// NewBob builds message2's sending side.
func NewBob(dialer reqresp.Dialer, timeout time.Duration) *Bob {
	return &Bob{engine: reqresp.New(dialer, timeout, Label)}
}

// Send delivers Bob's adaptor signature to alice. A delivery failure
// (timeout or transport error) surfaces to the caller; there is no
// automatic retry, matching the protocol's exactly-once commitment
// discipline.
func (b *Bob) Send(ctx context.Context, alice peer.ID, sig *secp256k1.AdaptorSignature) error {
	b64, err := json.Marshal(&BobPayload{
		R:            sig.R.Bytes(),
		PreSignature: sig.PreSignature.Bytes(),
	})
	if err != nil {
		return &common.CodecError{Err: err}
	}

	return b.engine.Send(ctx, alice, &message.Message2Bob{Payload: b64})
}

// Alice is the receiving side.
type Alice struct {
	responder *reqresp.Responder
}

// NewAlice builds message2's receiving side. It never replies.
func NewAlice() *Alice {
	return &Alice{responder: reqresp.NewResponder(message.TypeMessage2Bob, Label, false)}
}

// Responder exposes the underlying Responder for dispatcher registration.
func (a *Alice) Responder() *reqresp.Responder { return a.responder }

// Received is Bob's adaptor signature material, decoded and parsed.
type Received struct {
	R            *secp256k1.PublicKey
	PreSignature *secp256k1.PrivateKey
}

// Next blocks for Bob's final message.
func (a *Alice) Next(ctx context.Context) (*Received, error) {
	in, err := a.responder.Next(ctx)
	if err != nil {
		return nil, err
	}

	m2b, ok := in.Msg.(*message.Message2Bob)
	if !ok {
		return nil, &common.ProtocolViolation{Reason: "expected Message2Bob"}
	}

	var payload BobPayload
	if err := json.Unmarshal(m2b.Payload, &payload); err != nil {
		return nil, &common.CodecError{Err: err}
	}

	r, err := secp256k1.NewPublicKeyFromBytes(payload.R)
	if err != nil {
		return nil, &common.CryptoError{Op: "parse Bob's adaptor signature nonce commitment", Err: err}
	}

	return &Received{
		R:            r,
		PreSignature: secp256k1.NewPrivateKeyFromBytes(payload.PreSignature),
	}, nil
}
