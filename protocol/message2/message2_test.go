package message2

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"path"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/require"

	"github.com/noot/xmrswap/common"
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

func TestMessage2Delivery(t *testing.T) {
	aliceHost := newTestHost(t)
	bobHost := newTestHost(t)

	alice := NewAlice()
	disp := reqresp.NewDispatcher(context.Background())
	disp.Register(message.TypeMessage2Bob, alice.Responder())
	aliceHost.SetStreamHandler(disp.HandleStream)

	bobPeer := dial(t, bobHost, aliceHost)

	signingKey, err := secp256k1.GeneratePrivateKey(rand.Reader)
	require.NoError(t, err)
	nonce, err := secp256k1.GeneratePrivateKey(rand.Reader)
	require.NoError(t, err)
	secret, err := secp256k1.GeneratePrivateKey(rand.Reader)
	require.NoError(t, err)
	claimMessage := sha256.Sum256([]byte("claim transaction"))

	sig, err := secp256k1.Sign(signingKey, nonce, secret.Public(), claimMessage)
	require.NoError(t, err)

	received := make(chan *Received, 1)
	go func() {
		r, err := alice.Next(context.Background())
		require.NoError(t, err)
		received <- r
	}()

	bob := NewBob(bobHost, 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, bob.Send(ctx, bobPeer, sig))

	select {
	case r := <-received:
		require.Equal(t, sig.R.Bytes(), r.R.Bytes())
		require.Equal(t, sig.PreSignature.Bytes(), r.PreSignature.Bytes())
	case <-time.After(5 * time.Second):
		t.Fatal("alice never received message2")
	}
}
