// Package peer implements the peer tracker sub-behavior (spec §4.5): a
// leaf component that does nothing but re-emit the transport's
// connection-established events as a typed out-event.
package peer

import (
	"context"

	libp2ppeer "github.com/libp2p/go-libp2p/core/peer"
)

// OutEvent is the peer tracker's single event variant.
type OutEvent struct {
	PeerID libp2ppeer.ID
}

// Source is satisfied by anything that reports newly established
// connections. *net.Host satisfies it.
type Source interface {
	ConnectionEstablished() <-chan libp2ppeer.ID
}

// Tracker holds no state beyond its event source; it is a pure
// observation channel for the driver.
type Tracker struct {
	source Source
}

// New builds a Tracker over source.
func New(source Source) *Tracker {
	return &Tracker{source: source}
}

// Next blocks until the transport reports a newly established connection,
// or ctx is done.
func (t *Tracker) Next(ctx context.Context) (OutEvent, error) {
	select {
	case id := <-t.source.ConnectionEstablished():
		return OutEvent{PeerID: id}, nil
	case <-ctx.Done():
		return OutEvent{}, ctx.Err()
	}
}
