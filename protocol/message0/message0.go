// Package message0 implements the first cryptographic exchange: each
// side commits to its Monero public key pair before revealing it, and Bob
// additionally announces the Bitcoin public key his refund path will use
// (spec §4.3 step 3, §4.4 step 116's "State0::next_message emits initial
// commitments").
package message0

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/noot/xmrswap/common"
	"github.com/noot/xmrswap/crypto/monero"
	"github.com/noot/xmrswap/crypto/secp256k1"
	"github.com/noot/xmrswap/net/message"
	"github.com/noot/xmrswap/net/reqresp"
)

// Label identifies this sub-protocol in logs and errors.
const Label = "message0"

// BobPayload is the concrete content of a Message0Bob envelope.
type BobPayload struct {
	CommitmentDigest [32]byte `json:"commitment_digest"`
	RefundPubKey     []byte   `json:"refund_pub_key"`
}

// AlicePayload is the concrete content of a Message0Alice envelope.
type AlicePayload struct {
	CommitmentDigest [32]byte `json:"commitment_digest"`
}

func encode(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, &common.CodecError{Err: err}
	}
	return b, nil
}

// Bob is the requesting side: it sends its own commitment and refund
// public key, and receives Alice's commitment in reply.
type Bob struct {
	engine *reqresp.Engine
}

// NewBob builds message0's requesting side.
func NewBob(dialer reqresp.Dialer, timeout time.Duration) *Bob {
	return &Bob{engine: reqresp.New(dialer, timeout, Label)}
}

// Send delivers Bob's commitment and refund key to alice, returning
// Alice's commitment digest.
func (b *Bob) Send(ctx context.Context, alice peer.ID, commitment *monero.Commitment, refundKey *secp256k1.PublicKey) ([32]byte, error) {
	payload, err := encode(&BobPayload{CommitmentDigest: commitment.Digest, RefundPubKey: refundKey.Bytes()})
	if err != nil {
		return [32]byte{}, err
	}

	resp, err := b.engine.Request(ctx, alice, &message.Message0Bob{Payload: payload})
	if err != nil {
		return [32]byte{}, err
	}

	m0a, ok := resp.(*message.Message0Alice)
	if !ok {
		return [32]byte{}, &common.ProtocolViolation{
			Reason: fmt.Sprintf("expected Message0Alice response, got %s", resp.Type()),
		}
	}

	var alicePayload AlicePayload
	if err := json.Unmarshal(m0a.Payload, &alicePayload); err != nil {
		return [32]byte{}, &common.CodecError{Err: err}
	}

	return alicePayload.CommitmentDigest, nil
}

// Alice is the responding side: it receives Bob's commitment and refund
// key, then replies with its own commitment.
type Alice struct {
	responder *reqresp.Responder
}

// NewAlice builds message0's responding side.
func NewAlice() *Alice {
	return &Alice{responder: reqresp.NewResponder(message.TypeMessage0Bob, Label, true)}
}

// Responder exposes the underlying Responder for dispatcher registration.
func (a *Alice) Responder() *reqresp.Responder { return a.responder }

// Next blocks for Bob's commitment and refund key.
func (a *Alice) Next(ctx context.Context) (digest [32]byte, refundKey *secp256k1.PublicKey, reply *reqresp.ReplyChannel, err error) {
	in, err := a.responder.Next(ctx)
	if err != nil {
		return [32]byte{}, nil, nil, err
	}

	m0b, ok := in.Msg.(*message.Message0Bob)
	if !ok {
		return [32]byte{}, nil, nil, &common.ProtocolViolation{
			Reason: fmt.Sprintf("expected Message0Bob, got %s", in.Msg.Type()),
		}
	}

	var bobPayload BobPayload
	if err := json.Unmarshal(m0b.Payload, &bobPayload); err != nil {
		return [32]byte{}, nil, nil, &common.CodecError{Err: err}
	}

	refundKey, err = secp256k1.NewPublicKeyFromBytes(bobPayload.RefundPubKey)
	if err != nil {
		return [32]byte{}, nil, nil, &common.CryptoError{Op: "parse Bob's refund public key", Err: err}
	}

	return bobPayload.CommitmentDigest, refundKey, in.Reply, nil
}

// Reply sends Alice's own commitment digest back through reply.
func Reply(reply *reqresp.ReplyChannel, commitment *monero.Commitment) error {
	payload, err := encode(&AlicePayload{CommitmentDigest: commitment.Digest})
	if err != nil {
		return err
	}
	reply.Reply(&message.Message0Alice{Payload: payload})
	return nil
}
