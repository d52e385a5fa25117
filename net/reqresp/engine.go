// Package reqresp implements the generic request/response sub-protocol
// engine shared by the amounts, message0, message1, and message2
// sub-protocols (spec §4.2): one engine configured with the wire codec,
// full protocol support (dial and listen), and a request timeout T.
package reqresp

import (
	"context"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/noot/xmrswap/common"
	"github.com/noot/xmrswap/net/message"
)

var log = logging.Logger("reqresp")

// Dialer opens a fresh stream to a peer over the swap's single protocol
// identifier. *net.Host satisfies this.
type Dialer interface {
	NewStream(ctx context.Context, p peer.ID) (network.Stream, error)
}

// Engine is the requesting side of one sub-protocol. Bob instantiates one
// per sub-protocol; Alice never sends requests (spec §8, "Alice
// quiescence"), so she never constructs an Engine.
type Engine struct {
	dialer  Dialer
	timeout time.Duration
	label   string
}

// New builds an Engine that dials through dialer and enforces timeout on
// every request/response pair.
func New(dialer Dialer, timeout time.Duration, label string) *Engine {
	return &Engine{dialer: dialer, timeout: timeout, label: label}
}

// Request opens a stream to p, writes req, and blocks for exactly one
// response frame within the engine's timeout. A timeout or stream failure
// is an outbound failure per spec §4.2 and is returned to the caller,
// which the driver surfaces as a swap abort.
func (e *Engine) Request(ctx context.Context, p peer.ID, req message.Message) (message.Message, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	s, err := e.dialer.NewStream(reqCtx, p)
	if err != nil {
		return nil, &common.TransportError{Op: e.label + "-dial", Err: err}
	}
	defer s.Close()

	if dl, ok := reqCtx.Deadline(); ok {
		_ = s.SetDeadline(dl)
	}

	encoded, err := message.Encode(req)
	if err != nil {
		return nil, &common.CodecError{Err: err}
	}

	if _, err := s.Write(encoded); err != nil {
		return nil, &common.TransportError{Op: e.label + "-write", Err: err}
	}

	resp, err := message.Decode(s)
	if err != nil {
		if reqCtx.Err() != nil {
			log.Errorf("%s: timed out awaiting response from %s", e.label, p)
			return nil, &common.TimeoutError{SubProtocol: e.label}
		}
		return nil, &common.CodecError{Err: err}
	}

	return resp, nil
}

// Send opens a stream to p, writes req, and returns without awaiting a
// response. It is used only by message2, which spec §2 defines as having
// no reply.
func (e *Engine) Send(ctx context.Context, p peer.ID, req message.Message) error {
	sendCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	s, err := e.dialer.NewStream(sendCtx, p)
	if err != nil {
		return &common.TransportError{Op: e.label + "-dial", Err: err}
	}
	defer s.Close()

	encoded, err := message.Encode(req)
	if err != nil {
		return &common.CodecError{Err: err}
	}

	if _, err := s.Write(encoded); err != nil {
		return &common.TransportError{Op: e.label + "-write", Err: err}
	}

	return nil
}
