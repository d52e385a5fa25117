// Package net provides the peer-to-peer transport the swap negotiation
// core runs over: a libp2p host, a single application protocol identifier,
// and peer-connection tracking. Sub-protocol framing lives in net/message
// and net/reqresp; this package only dials, listens, and routes streams.
package net

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	logging "github.com/ipfs/go-log/v2"
	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/noot/xmrswap/common"
)

var log = logging.Logger("net")

// ProtocolID is the single application-level protocol identifier that
// names the swap on the wire (spec §6). Every sub-protocol's
// request/response pair is framed over a stream opened under this ID.
const ProtocolID = protocol.ID("/xmrswap/1.0.0")

// Host wraps a libp2p host with the one thing the swap core needs beyond
// raw dial/listen: a single stream protocol and a channel of newly
// established peer connections feeding the peer tracker.
type Host struct {
	ctx context.Context
	h   host.Host

	connEstablished chan peer.ID
}

// NewHost builds and starts listening a libp2p host per cfg. Authenticated
// encryption and stream multiplexing are provided by libp2p's default
// security and muxer stack; this core only configures identity and the
// listen address.
func NewHost(cfg *Config) (*Host, error) {
	priv, err := loadOrGenerateKey(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load identity key: %w", err)
	}

	listenAddr, err := ma.NewMultiaddr(fmt.Sprintf("/ip4/%s/tcp/%d", cfg.ListenIP, cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to construct listen address: %w", err)
	}

	h, err := libp2p.New(
		libp2p.Identity(priv),
		libp2p.ListenAddrs(listenAddr),
	)
	if err != nil {
		return nil, &common.TransportError{Op: "listen", Err: err}
	}

	hn := &Host{
		ctx:             cfg.Ctx,
		h:               h,
		connEstablished: make(chan peer.ID, 16),
	}

	h.Network().Notify(&connNotifee{host: hn})

	log.Infof("initialized host: peer id=%s addrs=%v", h.ID(), h.Addrs())
	return hn, nil
}

// Addrs returns the multiaddrs this host is reachable on.
func (hn *Host) Addrs() []ma.Multiaddr { return hn.h.Addrs() }

// PeerID returns this host's own peer identifier.
func (hn *Host) PeerID() peer.ID { return hn.h.ID() }

// SetStreamHandler installs the application's single stream handler.
// Every sub-protocol shares it; dispatch by envelope type happens inside
// handler (see net/reqresp.Dispatcher).
func (hn *Host) SetStreamHandler(handler network.StreamHandler) {
	hn.h.SetStreamHandler(ProtocolID, handler)
}

// Dial connects to the peer addressed by addr and returns its peer ID.
func (hn *Host) Dial(ctx context.Context, addr ma.Multiaddr) (peer.ID, error) {
	info, err := peer.AddrInfoFromP2pAddr(addr)
	if err != nil {
		return "", &common.TransportError{Op: "dial", Err: err}
	}

	if err := hn.h.Connect(ctx, *info); err != nil {
		return "", &common.TransportError{Op: "dial", Err: err}
	}

	return info.ID, nil
}

// NewStream opens a fresh stream to p under the swap protocol. It
// satisfies net/reqresp.Dialer.
func (hn *Host) NewStream(ctx context.Context, p peer.ID) (network.Stream, error) {
	s, err := hn.h.NewStream(ctx, p, ProtocolID)
	if err != nil {
		return nil, &common.TransportError{Op: "new-stream", Err: err}
	}
	return s, nil
}

// ConnectionEstablished returns the channel the peer tracker reads newly
// established connections from.
func (hn *Host) ConnectionEstablished() <-chan peer.ID {
	return hn.connEstablished
}

// Stop tears down the host and all of its open connections.
func (hn *Host) Stop() error {
	return hn.h.Close()
}

type connNotifee struct {
	host *Host
}

func (n *connNotifee) Connected(_ network.Network, c network.Conn) {
	select {
	case n.host.connEstablished <- c.RemotePeer():
	default:
		log.Warnf("connection-established channel full, dropping event for %s", c.RemotePeer())
	}
}

func (n *connNotifee) Disconnected(network.Network, network.Conn) {}
func (n *connNotifee) Listen(network.Network, ma.Multiaddr)       {}
func (n *connNotifee) ListenClose(network.Network, ma.Multiaddr)  {}

func loadOrGenerateKey(path string) (crypto.PrivKey, error) {
	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			return crypto.UnmarshalPrivateKey(data)
		}
	}

	priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return nil, err
	}

	if path == "" {
		return priv, nil
	}

	data, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, err
	}

	return priv, nil
}
