package bob

import (
	"context"
	"io"
	"time"

	logging "github.com/ipfs/go-log/v2"
	libp2ppeer "github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/noot/xmrswap/bitcoin"
	"github.com/noot/xmrswap/common"
	"github.com/noot/xmrswap/crypto/monero"
	"github.com/noot/xmrswap/net"
	"github.com/noot/xmrswap/protocol/amounts"
	"github.com/noot/xmrswap/protocol/message0"
	"github.com/noot/xmrswap/protocol/message1"
	"github.com/noot/xmrswap/protocol/message2"
)

var log = logging.Logger("bob")

// Negotiate runs Bob's imperative, request-initiated driver to completion
// (spec §4.4): dial, exchange every sub-protocol in order, and return the
// terminal State2. expectedAmounts is the quote Bob insists on; any
// mismatch in Alice's response aborts the session (policy: exact
// equality, spec §4.4 step 4).
func Negotiate(ctx context.Context, host *net.Host, cfg *net.Config, addr ma.Multiaddr, rng io.Reader,
	wallet bitcoin.Wallet, btc uint64, expectedAmounts common.Amounts, claimMessage [32]byte) (*State2, error) {

	alicePeer, err := host.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	log.Infof("dialed alice at %s", alicePeer)

	if err := waitForConnection(ctx, host, alicePeer); err != nil {
		return nil, err
	}

	amountsBob := amounts.NewBob(host, cfg.RequestTimeout)
	gotAmounts, err := amountsBob.Request(ctx, alicePeer, btc)
	if err != nil {
		return nil, err
	}
	if gotAmounts != expectedAmounts {
		return nil, &common.ProtocolViolation{Reason: "alice's quote did not match the pre-configured expectation"}
	}

	state0, err := NewState0(rng, gotAmounts, cfg.RefundTimelock, cfg.PunishTimelock)
	if err != nil {
		return nil, err
	}

	message0Bob := message0.NewBob(host, cfg.RequestTimeout)
	digest, refundKey := state0.NextMessage()
	aliceDigest, err := message0Bob.Send(ctx, alicePeer, &monero.Commitment{Digest: digest}, refundKey)
	if err != nil {
		return nil, err
	}

	state1, err := state0.Receive(wallet, aliceDigest)
	if err != nil {
		return nil, err
	}

	message1Bob := message1.NewBob(host, cfg.RequestTimeout)
	keys, nonce := state1.NextMessage()
	aliceReveal, err := message1Bob.Send(ctx, alicePeer, keys, nonce)
	if err != nil {
		return nil, err
	}

	state2, err := state1.Receive(aliceReveal.Keys, aliceReveal.Nonce, aliceReveal.AdaptorPoint, aliceReveal.DLEqProof)
	if err != nil {
		return nil, err
	}

	sig, err := state2.NextMessage(rng, claimMessage)
	if err != nil {
		return nil, err
	}

	message2Bob := message2.NewBob(host, cfg.RequestTimeout)
	if err := message2Bob.Send(ctx, alicePeer, sig); err != nil {
		return nil, err
	}

	return state2, nil
}

// waitForConnection blocks until host reports a newly established
// connection, or 30 seconds pass, or ctx expires (spec §4.4 step 2,
// "recv_conn_established"). A connection from a peer other than alicePeer
// is logged as a warning but still ends the wait.
func waitForConnection(ctx context.Context, host *net.Host, alicePeer libp2ppeer.ID) error {
	timeout := 30 * time.Second
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case id := <-host.ConnectionEstablished():
		if id != alicePeer {
			log.Warnf("connection established with unexpected peer %s", id)
		}
		return nil
	case <-waitCtx.Done():
		return &common.TimeoutError{SubProtocol: "connection-established"}
	}
}
