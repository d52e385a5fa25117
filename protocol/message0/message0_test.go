package message0

import (
	"context"
	"crypto/rand"
	"fmt"
	"path"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/require"

	"github.com/noot/xmrswap/common"
	"github.com/noot/xmrswap/crypto/monero"
	"github.com/noot/xmrswap/crypto/secp256k1"
	xmrnet "github.com/noot/xmrswap/net"
	"github.com/noot/xmrswap/net/message"
	"github.com/noot/xmrswap/net/reqresp"
)

func testHostConfig(t *testing.T) *xmrnet.Config {
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
	}
}

func newTestHost(t *testing.T) *xmrnet.Host {
	t.Helper()
	h, err := xmrnet.NewHost(testHostConfig(t))
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

func dial(t *testing.T, from, to *xmrnet.Host) peer.ID {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	id, err := from.Dial(ctx, addrOf(t, to))
	require.NoError(t, err)
	return id
}

func sampleCommitment(t *testing.T) (*monero.Commitment, *monero.PublicKeyPair) {
	t.Helper()
	var spendR, viewR [64]byte
	_, err := rand.Read(spendR[:])
	require.NoError(t, err)
	_, err = rand.Read(viewR[:])
	require.NoError(t, err)

	spend, err := monero.GeneratePrivateKey(spendR)
	require.NoError(t, err)
	view, err := monero.GeneratePrivateKey(viewR)
	require.NoError(t, err)

	pair := &monero.PrivateKeyPair{Spend: spend, View: view}
	c, err := monero.Commit(pair.Public())
	require.NoError(t, err)
	return c, pair.Public()
}

func TestMessage0RoundTrip(t *testing.T) {
	aliceHost := newTestHost(t)
	bobHost := newTestHost(t)

	alice := NewAlice()
	disp := reqresp.NewDispatcher(context.Background())
	disp.Register(message.TypeMessage0Bob, alice.Responder())
	aliceHost.SetStreamHandler(disp.HandleStream)

	bobPeer := dial(t, bobHost, aliceHost)

	aliceCommitment, _ := sampleCommitment(t)
	bobCommitment, _ := sampleCommitment(t)
	bobRefundKey, err := secp256k1.GeneratePrivateKey(rand.Reader)
	require.NoError(t, err)

	go func() {
		digest, refundKey, reply, err := alice.Next(context.Background())
		require.NoError(t, err)
		require.Equal(t, bobCommitment.Digest, digest)
		require.Equal(t, bobRefundKey.Public().Bytes(), refundKey.Bytes())
		require.NoError(t, Reply(reply, aliceCommitment))
	}()

	bob := NewBob(bobHost, 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	gotDigest, err := bob.Send(ctx, bobPeer, bobCommitment, bobRefundKey.Public())
	require.NoError(t, err)
	require.Equal(t, aliceCommitment.Digest, gotDigest)
}
