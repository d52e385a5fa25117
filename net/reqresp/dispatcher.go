package reqresp

import (
	"context"

	"github.com/libp2p/go-libp2p/core/network"

	"github.com/noot/xmrswap/net/message"
)

// Dispatcher is installed as the Host's single application-level stream
// handler. Every sub-protocol shares the one protocol identifier (spec
// §4.1); Dispatcher reads the one request frame a stream carries, reads
// its envelope type, and routes it to whichever Responder registered for
// that type. A request whose type no Responder claims, or whose type is
// not a legal BobToAlice request in the first place, is a protocol
// violation: the peer is considered Byzantine and the stream is reset.
type Dispatcher struct {
	ctx        context.Context
	responders map[message.Type]*Responder
}

// NewDispatcher builds a Dispatcher that runs registered Responders under
// ctx; cancelling ctx unblocks any Responder waiting on a driver reply.
func NewDispatcher(ctx context.Context) *Dispatcher {
	return &Dispatcher{ctx: ctx, responders: make(map[message.Type]*Responder)}
}

// Register installs r to handle request envelopes of type t.
func (d *Dispatcher) Register(t message.Type, r *Responder) {
	d.responders[t] = r
}

// HandleStream decodes the single request frame on s and dispatches it.
// It is the function passed to Host.SetStreamHandler.
func (d *Dispatcher) HandleStream(s network.Stream) {
	msg, err := message.Decode(s)
	if err != nil {
		log.Errorf("failed to decode inbound frame: %s", err)
		_ = s.Reset()
		return
	}

	if !message.IsBobToAlice(msg.Type()) {
		log.Errorf("protocol violation: peer %s sent response-only type %s as a request", s.Conn().RemotePeer(), msg.Type())
		_ = s.Reset()
		return
	}

	r, ok := d.responders[msg.Type()]
	if !ok {
		log.Errorf("protocol violation: no responder registered for request type %s", msg.Type())
		_ = s.Reset()
		return
	}

	if err := r.Accept(d.ctx, s, msg); err != nil {
		log.Errorf("%s: %s", msg.Type(), err)
	}
}
