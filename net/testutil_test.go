package net

import (
	"fmt"
	"testing"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// mustAddrComponent builds the /p2p/<id> multiaddr component appended to a
// listen address so the dialer can address a specific peer.
func mustAddrComponent(t *testing.T, id peer.ID) ma.Multiaddr {
	t.Helper()

	c, err := ma.NewMultiaddr(fmt.Sprintf("/p2p/%s", id.String()))
	if err != nil {
		t.Fatalf("failed to build /p2p component: %s", err)
	}

	return c
}
