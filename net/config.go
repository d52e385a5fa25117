package net

import (
	"context"
	"time"

	"github.com/noot/xmrswap/common"
)

// Config gathers every value a Host and the role drivers built on top of
// it need (spec §6). It carries no behavior; it is read once at swap
// startup and not mutated afterwards.
type Config struct {
	Ctx context.Context

	Env     common.Environment
	DataDir string

	// ListenIP and Port address this node's own listener (Alice).
	ListenIP string
	Port     uint16

	// KeyFile persists the node's long-lived identity key; if empty, or if
	// the file does not yet exist, a fresh key is generated in memory and,
	// when KeyFile is non-empty, written out.
	KeyFile string

	// Bootnodes are multiaddrs dialed at startup to join the network; the
	// swap negotiation core itself only ever dials one direct peer (Bob's
	// counterparty), so this is plumbing for a future discovery layer.
	Bootnodes []string

	IsRelayer bool

	// RequestTimeout is T, the single timeout applied to every
	// sub-protocol's request/response pair.
	RequestTimeout time.Duration

	RefundTimelock uint64
	PunishTimelock uint64

	RedeemAddress string
	PunishAddress string

	RateXMRPerBTC uint64
}
