package bitcoin

import (
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// LocalSigner is the concrete AddressSigner a LocalWallet signs its own
// funding inputs with: a single compressed-pubkey key controlling the
// legacy pay-to-pubkey-hash UTXOs the wallet spends to fund a lock
// transaction. It never signs the swap's joint lock output itself --
// spending that output is the (out-of-scope) execution phase's job.
type LocalSigner struct {
	key *secp256k1.PrivateKey
}

// NewLocalSigner wraps a raw secp256k1 private key for use as an
// AddressSigner.
func NewLocalSigner(key *secp256k1.PrivateKey) *LocalSigner {
	return &LocalSigner{key: key}
}

// PublicKey returns the signer's compressed public key.
func (s *LocalSigner) PublicKey() []byte {
	return s.key.PubKey().SerializeCompressed()
}

// SignInput signs tx's idx'th input against prevScript using SIGHASH_ALL
// and returns a standard pay-to-pubkey-hash scriptSig: <sig> <pubkey>.
func (s *LocalSigner) SignInput(tx *wire.MsgTx, idx int, prevScript []byte, prevValue int64) ([]byte, error) {
	hash, err := txscript.CalcSignatureHash(prevScript, txscript.SigHashAll, tx, idx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute signature hash: %w", err)
	}

	sig := ecdsa.Sign(s.key, hash)
	sigBytes := append(sig.Serialize(), byte(txscript.SigHashAll))

	builder := txscript.NewScriptBuilder()
	builder.AddData(sigBytes)
	builder.AddData(s.PublicKey())
	return builder.Script()
}
