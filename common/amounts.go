// Package common holds types shared across the swap negotiation core:
// amount units, chain environments, and the typed session errors.
package common

import "math/big"

// SatsPerBTC is the number of satoshis in one bitcoin.
const SatsPerBTC = 1e8

// PiconerosPerXMR is the number of piconero in one monero.
const PiconerosPerXMR = 1e12

// MaxBTCSupply is the maximum number of satoshis that will ever exist
// (21,000,000 BTC), used as a boundary check on quote inputs.
const MaxBTCSupply uint64 = 21_000_000 * SatsPerBTC

// satPerPicoScale converts a BTC amount in satoshis into a per-unit XMR/BTC
// rate expressed in piconero: piconero = sat * 10^(12-8) * rate.
const satPerPicoScale = PiconerosPerXMR / SatsPerBTC // = 10^4

// Amounts is the (BTC, XMR) pair exchanged by the amounts sub-protocol.
// BTC is denominated in satoshis, XMR in piconero.
type Amounts struct {
	BTC uint64
	XMR uint64
}

// Calculate implements the quote function: xmr = btc * 10^4 * rate.
// It is deterministic in (btc, rate) and has no side effects. The
// multiplication is performed with arbitrary-precision arithmetic so that
// btc = MaxBTCSupply cannot silently overflow a uint64 product; if the
// result does not fit in a uint64, Calculate returns an error rather than
// truncating.
func Calculate(btc uint64, rateXMRPerBTC uint64) (Amounts, error) {
	product := new(big.Int).Mul(new(big.Int).SetUint64(btc), big.NewInt(satPerPicoScale))
	product.Mul(product, new(big.Int).SetUint64(rateXMRPerBTC))

	maxUint64 := new(big.Int).SetUint64(^uint64(0))
	if product.Cmp(maxUint64) > 0 {
		return Amounts{}, ErrAmountOverflow
	}

	return Amounts{BTC: btc, XMR: product.Uint64()}, nil
}
