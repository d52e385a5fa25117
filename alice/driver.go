package alice

import (
	"context"
	"io"

	logging "github.com/ipfs/go-log/v2"

	"github.com/noot/xmrswap/common"
	"github.com/noot/xmrswap/crypto/monero"
	"github.com/noot/xmrswap/net"
	"github.com/noot/xmrswap/net/message"
	"github.com/noot/xmrswap/net/reqresp"
	"github.com/noot/xmrswap/protocol/amounts"
	"github.com/noot/xmrswap/protocol/message0"
	"github.com/noot/xmrswap/protocol/message1"
	"github.com/noot/xmrswap/protocol/message2"
	"github.com/noot/xmrswap/protocol/peer"
)

var log = logging.Logger("alice")

// Session wires together every sub-protocol responder Alice's driver
// needs and registers them on host's dispatcher (spec §4.3's "single
// unified event stream").
type Session struct {
	tracker  *peer.Tracker
	amounts  *amounts.Alice
	message0 *message0.Alice
	message1 *message1.Alice
	message2 *message2.Alice
	cfg      *net.Config

	lastAmounts common.Amounts
}

// NewSession registers Alice's responders on dispatcher and returns a
// Session ready to Run.
func NewSession(host *net.Host, dispatcher *reqresp.Dispatcher, cfg *net.Config) *Session {
	s := &Session{
		tracker:  peer.New(host),
		amounts:  amounts.NewAlice(),
		message0: message0.NewAlice(),
		message1: message1.NewAlice(),
		message2: message2.NewAlice(),
		cfg:      cfg,
	}

	dispatcher.Register(message.TypeAmountsRequest, s.amounts.Responder())
	dispatcher.Register(message.TypeMessage0Bob, s.message0.Responder())
	dispatcher.Register(message.TypeMessage1Bob, s.message1.Responder())
	dispatcher.Register(message.TypeMessage2Bob, s.message2.Responder())

	return s
}

// Run executes Alice's driver sequence (spec §4.3) to completion, using
// rng as the externalized randomness source for State0. It returns the
// terminal State3 once Bob's encrypted signature has arrived.
func (s *Session) Run(ctx context.Context, rng io.Reader) (*State3, error) {
	bobPeer, err := s.tracker.Next(ctx)
	if err != nil {
		return nil, err
	}
	log.Infof("connection established with %s", bobPeer.PeerID)

	if err := s.awaitAmountsRequest(ctx); err != nil {
		return nil, err
	}

	bobDigest, bobRefundPubKey, m0reply, err := s.message0.Next(ctx)
	if err != nil {
		return nil, err
	}

	state0, err := NewState0(rng, s.lastAmounts, s.cfg.RefundTimelock, s.cfg.PunishTimelock, s.cfg.RedeemAddress, s.cfg.PunishAddress)
	if err != nil {
		return nil, err
	}

	if err := message0.Reply(m0reply, &monero.Commitment{Digest: state0.CommitmentDigest()}); err != nil {
		return nil, err
	}

	state1, err := state0.Receive(bobDigest, bobRefundPubKey)
	if err != nil {
		return nil, err
	}

	bobReveal, m1reply, err := s.message1.Next(ctx)
	if err != nil {
		return nil, err
	}

	state2, err := state1.Receive(bobReveal.Keys, bobReveal.Nonce)
	if err != nil {
		return nil, err
	}

	keys, nonce, adaptorPoint, proof := state1.NextMessage()
	if err := message1.Reply(m1reply, keys, nonce, adaptorPoint, proof); err != nil {
		return nil, err
	}

	received, err := s.message2.Next(ctx)
	if err != nil {
		return nil, err
	}

	return state2.Receive(received.R, received.PreSignature), nil
}

// awaitAmountsRequest computes and replies to Bob's rate quote request,
// remembering the result for State0's construction (spec §4.3 step 2's
// "remember amounts").
func (s *Session) awaitAmountsRequest(ctx context.Context) error {
	btc, reply, err := s.amounts.Next(ctx)
	if err != nil {
		return err
	}

	computed, err := common.Calculate(btc, s.cfg.RateXMRPerBTC)
	if err != nil {
		return err
	}

	s.lastAmounts = computed
	amounts.Reply(reply, computed)
	return nil
}
