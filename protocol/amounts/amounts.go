// Package amounts implements the rate-quote sub-protocol (spec §2.2):
// Bob requests a quote for a BTC amount; Alice responds with the (BTC,
// XMR) pair. It shares the generic request/response engine every other
// sub-protocol uses (spec §4.2).
package amounts

import (
	"context"
	"fmt"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/noot/xmrswap/common"
	"github.com/noot/xmrswap/net/message"
	"github.com/noot/xmrswap/net/reqresp"
)

// Label identifies this sub-protocol in logs and errors.
const Label = "amounts"

// Bob is the requesting side.
type Bob struct {
	engine *reqresp.Engine
}

// NewBob builds the amounts sub-protocol's requesting side.
func NewBob(dialer reqresp.Dialer, timeout time.Duration) *Bob {
	return &Bob{engine: reqresp.New(dialer, timeout, Label)}
}

// Request asks alice for a quote on btc satoshis.
func (b *Bob) Request(ctx context.Context, alice peer.ID, btc uint64) (common.Amounts, error) {
	resp, err := b.engine.Request(ctx, alice, &message.AmountsRequest{BTC: btc})
	if err != nil {
		return common.Amounts{}, err
	}

	a, ok := resp.(*message.Amounts)
	if !ok {
		return common.Amounts{}, &common.ProtocolViolation{
			Reason: fmt.Sprintf("expected Amounts response, got %s", resp.Type()),
		}
	}

	return common.Amounts{BTC: a.BTC, XMR: a.XMR}, nil
}

// Alice is the responding side.
type Alice struct {
	responder *reqresp.Responder
}

// NewAlice builds the amounts sub-protocol's responding side.
func NewAlice() *Alice {
	return &Alice{responder: reqresp.NewResponder(message.TypeAmountsRequest, Label, true)}
}

// Responder exposes the underlying Responder so the Host's dispatcher can
// register it.
func (a *Alice) Responder() *reqresp.Responder { return a.responder }

// Next blocks for the next amounts request from Bob.
func (a *Alice) Next(ctx context.Context) (btc uint64, reply *reqresp.ReplyChannel, err error) {
	in, err := a.responder.Next(ctx)
	if err != nil {
		return 0, nil, err
	}

	req, ok := in.Msg.(*message.AmountsRequest)
	if !ok {
		return 0, nil, &common.ProtocolViolation{
			Reason: fmt.Sprintf("expected AmountsRequest, got %s", in.Msg.Type()),
		}
	}

	return req.BTC, in.Reply, nil
}

// Reply sends amounts back through reply. It must be called exactly once
// per Next call.
func Reply(reply *reqresp.ReplyChannel, amounts common.Amounts) {
	reply.Reply(&message.Amounts{BTC: amounts.BTC, XMR: amounts.XMR})
}
