package message1

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
	"github.com/noot/xmrswap/crypto/dleq"
	"github.com/noot/xmrswap/crypto/monero"
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

func sampleMoneroKeys(t *testing.T) *monero.PublicKeyPair {
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

	return (&monero.PrivateKeyPair{Spend: spend, View: view}).Public()
}

func TestMessage1RoundTrip(t *testing.T) {
	aliceHost := newTestHost(t)
	bobHost := newTestHost(t)

	alice := NewAlice()
	disp := reqresp.NewDispatcher(context.Background())
	disp.Register(message.TypeMessage1Bob, alice.Responder())
	aliceHost.SetStreamHandler(disp.HandleStream)

	bobPeer := dial(t, bobHost, aliceHost)

	bobKeys := sampleMoneroKeys(t)
	bobNonce := [32]byte{0x01, 0x02}

	aliceSecret, err := dleq.GenerateSecret()
	require.NoError(t, err)
	aliceSpend, err := aliceSecret.Ed25519Key()
	require.NoError(t, err)
	var aliceViewR [64]byte
	_, err = rand.Read(aliceViewR[:])
	require.NoError(t, err)
	aliceView, err := monero.GeneratePrivateKey(aliceViewR)
	require.NoError(t, err)
	aliceKeys := (&monero.PrivateKeyPair{Spend: aliceSpend, View: aliceView}).Public()
	aliceNonce := [32]byte{0x03, 0x04}
	adaptorPoint := aliceSecret.Secp256k1Key().Public()
	proof, err := dleq.Prove(aliceSecret)
	require.NoError(t, err)

	go func() {
		reveal, reply, err := alice.Next(context.Background())
		require.NoError(t, err)
		require.Equal(t, bobNonce, reveal.Nonce)
		require.Equal(t, bobKeys.Spend.Bytes(), reveal.Keys.Spend.Bytes())
		require.NoError(t, Reply(reply, aliceKeys, aliceNonce, adaptorPoint, proof))
	}()

	bob := NewBob(bobHost, 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := bob.Send(ctx, bobPeer, bobKeys, bobNonce)
	require.NoError(t, err)
	require.Equal(t, aliceNonce, got.Nonce)
	require.Equal(t, aliceKeys.Spend.Bytes(), got.Keys.Spend.Bytes())
	require.Equal(t, adaptorPoint.Bytes(), got.AdaptorPoint.Bytes())
}

// TestMessage1DecodesProofWithoutVerifying confirms this sub-protocol stays
// opaque to the cryptographic material it ferries: a DLEq proof that does
// not actually correspond to the claimed adaptor point decodes and reaches
// the caller unchanged rather than being rejected here. Verifying it is
// bob/state.go's State1.Receive's job, since that is the layer holding the
// keys the proof is checked against (see bob/state_test.go's
// TestState1ReceiveRejectsBadDLEqProof for the rejection path).
func TestMessage1DecodesProofWithoutVerifying(t *testing.T) {
	aliceHost := newTestHost(t)
	bobHost := newTestHost(t)

	alice := NewAlice()
	disp := reqresp.NewDispatcher(context.Background())
	disp.Register(message.TypeMessage1Bob, alice.Responder())
	aliceHost.SetStreamHandler(disp.HandleStream)

	bobPeer := dial(t, bobHost, aliceHost)

	bobKeys := sampleMoneroKeys(t)
	bobNonce := [32]byte{0x01}

	aliceSecret, err := dleq.GenerateSecret()
	require.NoError(t, err)
	aliceSpend, err := aliceSecret.Ed25519Key()
	require.NoError(t, err)
	var aliceViewR [64]byte
	_, err = rand.Read(aliceViewR[:])
	require.NoError(t, err)
	aliceView, err := monero.GeneratePrivateKey(aliceViewR)
	require.NoError(t, err)
	aliceKeys := (&monero.PrivateKeyPair{Spend: aliceSpend, View: aliceView}).Public()
	aliceNonce := [32]byte{0x02}
	adaptorPoint := aliceSecret.Secp256k1Key().Public()

	otherSecret, err := dleq.GenerateSecret()
	require.NoError(t, err)
	wrongProof, err := dleq.Prove(otherSecret)
	require.NoError(t, err)

	go func() {
		_, reply, err := alice.Next(context.Background())
		require.NoError(t, err)
		require.NoError(t, Reply(reply, aliceKeys, aliceNonce, adaptorPoint, wrongProof))
	}()

	bob := NewBob(bobHost, 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := bob.Send(ctx, bobPeer, bobKeys, bobNonce)
	require.NoError(t, err)
	require.Equal(t, wrongProof.Response, got.DLEqProof.Response)
}
