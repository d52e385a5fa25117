package reqresp

import (
	"context"

	"github.com/libp2p/go-libp2p/core/network"

	"github.com/noot/xmrswap/common"
	"github.com/noot/xmrswap/net/message"
)

// ReplyChannel is a single-use handle that must be fulfilled exactly once
// with the response paired to one inbound request (spec §9, "response
// channel handles"). Fulfilling it twice is a programming error.
type ReplyChannel struct {
	respCh chan message.Message
	used   bool
}

func newReplyChannel() *ReplyChannel {
	return &ReplyChannel{respCh: make(chan message.Message, 1)}
}

// Reply fulfils the channel with resp. Calling it a second time panics:
// this is a programming error in the driver, not a runtime condition to
// recover from.
func (r *ReplyChannel) Reply(resp message.Message) {
	if r.used {
		panic("reqresp: reply channel fulfilled twice")
	}
	r.used = true
	r.respCh <- resp
}

// Inbound pairs one received request with the reply handle the driver
// must consume exactly once (or, for a request-only-no-reply sub-protocol
// such as message2, not at all).
type Inbound struct {
	Msg   message.Message
	Reply *ReplyChannel
}

// Responder is the responding side of one sub-protocol: it buffers
// inbound requests of a single envelope type in a pending queue and emits
// them to the driver via Next, mirroring the upcalled out-event described
// in spec §4.2.
type Responder struct {
	want         message.Type
	label        string
	wantsReply   bool
	inCh         chan Inbound
}

// NewResponder builds a Responder for request envelopes of type want.
// wantsReply is false for message2, whose requests never get a response.
func NewResponder(want message.Type, label string, wantsReply bool) *Responder {
	return &Responder{want: want, label: label, wantsReply: wantsReply, inCh: make(chan Inbound, 4)}
}

// Accept is called by the Dispatcher once it has decoded msg as matching
// this Responder's type. It buffers the request, and if wantsReply, blocks
// until the driver supplies a response (or ctx is cancelled) before
// writing it back over s.
func (r *Responder) Accept(ctx context.Context, s network.Stream, msg message.Message) error {
	defer s.Close()

	reply := newReplyChannel()

	select {
	case r.inCh <- Inbound{Msg: msg, Reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}

	if !r.wantsReply {
		return nil
	}

	select {
	case resp := <-reply.respCh:
		encoded, err := message.Encode(resp)
		if err != nil {
			return &common.CodecError{Err: err}
		}
		if _, err := s.Write(encoded); err != nil {
			return &common.TransportError{Op: r.label + "-respond", Err: err}
		}
		return nil
	case <-ctx.Done():
		log.Warnf("%s: driver never replied before the stream's context closed", r.label)
		return ctx.Err()
	}
}

// Next blocks for the next inbound request of this Responder's type.
func (r *Responder) Next(ctx context.Context) (Inbound, error) {
	select {
	case in := <-r.inCh:
		return in, nil
	case <-ctx.Done():
		return Inbound{}, ctx.Err()
	}
}
