package bitcoin

import "github.com/btcsuite/btcd/wire"

// MockWallet is a hand-written test double for Wallet, mirroring the
// teacher's gomock-generated backend mocks without pulling in the code
// generator: the swap driver's tests only need canned responses and call
// recording, not a full mock framework.
type MockWallet struct {
	BalanceFunc     func() (int64, error)
	BuildLockTxFunc func(lockScript []byte, amount int64, feeRate int64) (*LockTx, error)
	SignFunc        func(tx *wire.MsgTx) (*wire.MsgTx, error)

	BuildLockTxCalls int
	SignCalls        int
}

// Balance defers to BalanceFunc.
func (m *MockWallet) Balance() (int64, error) {
	return m.BalanceFunc()
}

// BuildLockTx defers to BuildLockTxFunc and counts invocations.
func (m *MockWallet) BuildLockTx(lockScript []byte, amount int64, feeRate int64) (*LockTx, error) {
	m.BuildLockTxCalls++
	return m.BuildLockTxFunc(lockScript, amount, feeRate)
}

// Sign defers to SignFunc and counts invocations.
func (m *MockWallet) Sign(tx *wire.MsgTx) (*wire.MsgTx, error) {
	m.SignCalls++
	return m.SignFunc(tx)
}
