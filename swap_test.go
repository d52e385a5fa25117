// Package xmrswap_test exercises the full Alice/Bob handshake end to end
// over two real libp2p hosts on loopback, the way net/host_test.go already
// does for the bare amounts sub-protocol.
package xmrswap_test

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"path"
	"testing"
	"time"

	ma "github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/require"

	"github.com/noot/xmrswap/alice"
	"github.com/noot/xmrswap/bitcoin"
	"github.com/noot/xmrswap/bob"
	"github.com/noot/xmrswap/common"
	xmrnet "github.com/noot/xmrswap/net"
	"github.com/noot/xmrswap/net/reqresp"
)

func testConfig(t *testing.T, rate uint64) *xmrnet.Config {
	t.Helper()
	tmpDir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return &xmrnet.Config{
		Ctx:            ctx,
		Env:            common.Development,
		DataDir:        tmpDir,
		Port:           0,
		KeyFile:        path.Join(tmpDir, "node.key"),
		ListenIP:       "127.0.0.1",
		RequestTimeout: 5 * time.Second,
		RefundTimelock: 100,
		PunishTimelock: 200,
		RedeemAddress:  "bcrt1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4",
		PunishAddress:  "bcrt1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4",
		RateXMRPerBTC:  rate,
	}
}

func newHost(t *testing.T, cfg *xmrnet.Config) *xmrnet.Host {
	t.Helper()
	h, err := xmrnet.NewHost(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, h.Stop()) })
	return h
}

func addrOf(t *testing.T, h *xmrnet.Host) ma.Multiaddr {
	t.Helper()
	comp, err := ma.NewMultiaddr(fmt.Sprintf("/p2p/%s", h.PeerID().String()))
	require.NoError(t, err)
	return h.Addrs()[0].Encapsulate(comp)
}

func fundedMockWallet() *bitcoin.MockWallet {
	return &bitcoin.MockWallet{
		BalanceFunc: func() (int64, error) { return 10_000_000, nil },
		BuildLockTxFunc: func(lockScript []byte, amount, feeRate int64) (*bitcoin.LockTx, error) {
			return &bitcoin.LockTx{Fee: 1000, Value: amount}, nil
		},
	}
}

// TestFullHandshakeHappyPath runs Alice's session driver and Bob's
// negotiation driver concurrently over real libp2p hosts and checks both
// sides land on the same joint Monero account and that Alice ends up
// holding Bob's encrypted Bitcoin signature and her adaptor secret.
func TestFullHandshakeHappyPath(t *testing.T) {
	const rate = 100
	const btcAmount = uint64(1_000_000)

	aliceCfg := testConfig(t, rate)
	bobCfg := testConfig(t, rate)

	aliceHost := newHost(t, aliceCfg)
	bobHost := newHost(t, bobCfg)

	dispatcher := reqresp.NewDispatcher(context.Background())
	session := alice.NewSession(aliceHost, dispatcher, aliceCfg)
	aliceHost.SetStreamHandler(dispatcher.HandleStream)

	expectedAmounts, err := common.Calculate(btcAmount, rate)
	require.NoError(t, err)

	claimMessage := sha256.Sum256([]byte("claim transaction"))

	type aliceResult struct {
		state *alice.State3
		err   error
	}
	aliceDone := make(chan aliceResult, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s, err := session.Run(ctx, rand.Reader)
		aliceDone <- aliceResult{state: s, err: err}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bobState, err := bob.Negotiate(ctx, bobHost, bobCfg, addrOf(t, aliceHost), rand.Reader,
		fundedMockWallet(), btcAmount, expectedAmounts, claimMessage)
	require.NoError(t, err)

	var res aliceResult
	select {
	case res = <-aliceDone:
	case <-time.After(10 * time.Second):
		t.Fatal("alice's session never completed")
	}
	require.NoError(t, res.err)

	require.Equal(t, bobState.JointKeys().Spend.Bytes(), res.state.JointKeys().Spend.Bytes())
	require.Equal(t, bobState.JointKeys().View.Bytes(), res.state.JointKeys().View.Bytes())

	r, preSig := res.state.PreSignature()
	require.NotNil(t, r)
	require.NotNil(t, preSig)
	require.NotNil(t, res.state.AdaptorSecret())
}

// TestFullHandshakeRejectsQuoteMismatch checks that Bob aborts when Alice's
// quote does not match his pre-configured expectation.
func TestFullHandshakeRejectsQuoteMismatch(t *testing.T) {
	const rate = 100
	const btcAmount = uint64(1_000_000)

	aliceCfg := testConfig(t, rate)
	bobCfg := testConfig(t, rate)

	aliceHost := newHost(t, aliceCfg)
	bobHost := newHost(t, bobCfg)

	dispatcher := reqresp.NewDispatcher(context.Background())
	session := alice.NewSession(aliceHost, dispatcher, aliceCfg)
	aliceHost.SetStreamHandler(dispatcher.HandleStream)

	wrongAmounts := common.Amounts{BTC: btcAmount, XMR: 1}
	claimMessage := sha256.Sum256([]byte("claim transaction"))

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = session.Run(ctx, rand.Reader)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := bob.Negotiate(ctx, bobHost, bobCfg, addrOf(t, aliceHost), rand.Reader,
		fundedMockWallet(), btcAmount, wrongAmounts, claimMessage)
	require.Error(t, err)
}
