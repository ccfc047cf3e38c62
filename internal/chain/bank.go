package chain

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// ErrTransferRejected is returned when the recipient refuses a transfer.
var ErrTransferRejected = errors.New("recipient rejected transfer")

// Bank keeps the balances of accounts outside the lottery. It models the
// payout side only: ticket payments arrive with the call and are never
// debited from a Bank account, so balances grow by prizes received.
type Bank struct {
	mu        sync.RWMutex
	balances  map[common.Address]*big.Int
	rejecting map[common.Address]bool
}

// NewBank returns an empty bank.
func NewBank() *Bank {
	return &Bank{
		balances:  make(map[common.Address]*big.Int),
		rejecting: make(map[common.Address]bool),
	}
}

// Transfer credits amount to the recipient.
func (b *Bank) Transfer(to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("invalid transfer amount %v", amount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rejecting[to] {
		return fmt.Errorf("%w: %s", ErrTransferRejected, to.Hex())
	}
	bal, ok := b.balances[to]
	if !ok {
		bal = new(big.Int)
		b.balances[to] = bal
	}
	bal.Add(bal, amount)
	return nil
}

// BalanceOf returns a copy of the balance held by addr.
func (b *Bank) BalanceOf(addr common.Address) *big.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if bal, ok := b.balances[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// SetRejecting makes transfers to addr fail until cleared.
func (b *Bank) SetRejecting(addr common.Address, reject bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if reject {
		b.rejecting[addr] = true
		return
	}
	delete(b.rejecting, addr)
}
