// Package bitcoin provides the Wallet interface the Bob-side state machine
// calls into while building (but never broadcasting) the BTC lock
// transaction, plus a concrete implementation over btcsuite/btcd. The
// underlying wallet (key custody, broadcasting, chain watching) is an
// external collaborator this negotiation core only reads from -- see
// SPEC_FULL.md §4.6.
package bitcoin

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// Utxo is a spendable output the wallet knows about.
type Utxo struct {
	Outpoint wire.OutPoint
	Value    int64
	PkScript []byte
}

// LockTx is an unbroadcast transaction paying amount to lockScript, along
// with the inputs the wallet selected and the fee it charged.
type LockTx struct {
	Tx    *wire.MsgTx
	Fee   int64
	Value int64
}

// Wallet is the read/build surface Bob's state machine calls into. It
// never broadcasts: spec §4.5 restricts the core to "async read/build
// operations" only.
type Wallet interface {
	// Balance returns the wallet's total spendable balance, in satoshis.
	Balance() (int64, error)

	// BuildLockTx constructs (but does not sign or broadcast) a
	// transaction paying amount satoshis to lockScript, selecting inputs
	// and a change output as needed.
	BuildLockTx(lockScript []byte, amount int64, feeRate int64) (*LockTx, error)

	// Sign signs every input of tx that the wallet controls, returning
	// the signed transaction.
	Sign(tx *wire.MsgTx) (*wire.MsgTx, error)
}

// LocalWallet is a minimal Wallet backed by an in-memory UTXO set and a
// single signing key, suitable for the swap driver's own tests and for a
// development deployment where a full node-backed wallet is overkill.
type LocalWallet struct {
	params *chaincfg.Params
	utxos  []Utxo
	signer AddressSigner
}

// AddressSigner signs a transaction input given the previous output's
// script and value; the concrete implementation outside this package
// holds the private keys.
type AddressSigner interface {
	SignInput(tx *wire.MsgTx, idx int, prevScript []byte, prevValue int64) ([]byte, error)
}

// NewLocalWallet constructs a LocalWallet over a fixed UTXO set.
func NewLocalWallet(params *chaincfg.Params, utxos []Utxo, signer AddressSigner) *LocalWallet {
	return &LocalWallet{params: params, utxos: utxos, signer: signer}
}

// Balance sums every known UTXO's value.
func (w *LocalWallet) Balance() (int64, error) {
	var total int64
	for _, u := range w.utxos {
		total += u.Value
	}
	return total, nil
}

// BuildLockTx selects UTXOs greedily until amount+fee is covered, adding a
// change output back to the first selected input's script if there's
// change left over.
func (w *LocalWallet) BuildLockTx(lockScript []byte, amount int64, feeRate int64) (*LockTx, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("lock amount must be positive")
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxOut(wire.NewTxOut(amount, lockScript))

	var selected int64
	var changeScript []byte
	var n int
	for _, u := range w.utxos {
		in := wire.NewTxIn(&u.Outpoint, nil, nil)
		tx.AddTxIn(in)
		selected += u.Value
		if changeScript == nil {
			changeScript = u.PkScript
		}
		n++

		fee := estimateFee(n, len(tx.TxOut), feeRate)
		if selected >= amount+fee {
			change := selected - amount - fee
			if change > 0 {
				tx.AddTxOut(wire.NewTxOut(change, changeScript))
			}
			return &LockTx{Tx: tx, Fee: fee, Value: amount}, nil
		}
	}

	return nil, fmt.Errorf("insufficient funds to cover %d satoshis plus fees", amount)
}

// Sign signs every input using the configured signer.
func (w *LocalWallet) Sign(tx *wire.MsgTx) (*wire.MsgTx, error) {
	if w.signer == nil {
		return nil, fmt.Errorf("no signer configured for local wallet")
	}

	for i, in := range tx.TxIn {
		u := w.findUtxo(in.PreviousOutPoint)
		if u == nil {
			return nil, fmt.Errorf("no known utxo for input %d", i)
		}

		sig, err := w.signer.SignInput(tx, i, u.PkScript, u.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to sign input %d: %w", i, err)
		}
		in.SignatureScript = sig
	}

	return tx, nil
}

func (w *LocalWallet) findUtxo(op wire.OutPoint) *Utxo {
	for i := range w.utxos {
		if w.utxos[i].Outpoint == op {
			return &w.utxos[i]
		}
	}
	return nil
}

// estimateFee approximates a transaction's fee at feeRate sats/vbyte using
// the conventional P2WSH-ish size heuristic, good enough for an
// unbroadcast lock transaction the swap driver only needs a plausible fee
// for.
func estimateFee(numInputs, numOutputs int, feeRate int64) int64 {
	const baseOverhead = 11
	const perInput = 68
	const perOutput = 31
	size := baseOverhead + numInputs*perInput + numOutputs*perOutput
	return int64(size) * feeRate
}

// RedeemAddressScript decodes a Bitcoin address into the script Bob's
// lock transaction should pay once Alice has committed to it.
func RedeemAddressScript(address string, params *chaincfg.Params) ([]byte, error) {
	addr, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", address, err)
	}
	return txscript.PayToAddrScript(addr)
}

// LockScript builds the adaptor-signature lock script: a single CHECKSIG
// against jointPubKey, with a CHECKLOCKTIMEVERIFY refund branch to
// refundPubKey after refundLockTime. No joint secp256k1 key is derived in
// this core; bob.State0.Receive passes Bob's own signing key for both
// branches.
func LockScript(jointPubKey []byte, refundPubKey []byte, refundLockTime int64) ([]byte, error) {
	builder := txscript.NewScriptBuilder()

	builder.AddOp(txscript.OP_IF)
	builder.AddData(jointPubKey)
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ELSE)
	builder.AddInt64(refundLockTime)
	builder.AddOp(txscript.OP_CHECKLOCKTIMEVERIFY)
	builder.AddOp(txscript.OP_DROP)
	builder.AddData(refundPubKey)
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ENDIF)

	return builder.Script()
}

// FundingTxHash is a convenience wrapper so callers outside this package
// never need to import chainhash directly just to reference a prior
// transaction.
func FundingTxHash(tx *wire.MsgTx) chainhash.Hash {
	return tx.TxHash()
}
