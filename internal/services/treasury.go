package services

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Transferer moves funds out of the lottery. Implementations must not call
// back into the Lottery: the transfer runs inside the lottery's critical
// section.
type Transferer interface {
	Transfer(to common.Address, amount *big.Int) error
}

// Treasury holds the pooled ticket payments of the active round.
type Treasury struct {
	balance *big.Int
	out     Transferer
}

// NewTreasury returns an empty treasury paying out through out.
func NewTreasury(out Transferer) *Treasury {
	return &Treasury{balance: new(big.Int), out: out}
}

// RecordEntry accepts one ticket payment. The amount must equal price exactly.
func (t *Treasury) RecordEntry(amount, price *big.Int) error {
	if amount == nil || price == nil || amount.Cmp(price) != 0 {
		return ErrIncorrectPrice
	}
	t.balance.Add(t.balance, amount)
	return nil
}

// Balance returns a copy of the pooled funds.
func (t *Treasury) Balance() *big.Int {
	return new(big.Int).Set(t.balance)
}

// Payout sends the entire balance to recipient. The balance is zeroed before
// the transfer and restored if the transfer fails.
func (t *Treasury) Payout(recipient common.Address) (*big.Int, error) {
	amount := t.balance
	t.balance = new(big.Int)
	if err := t.out.Transfer(recipient, new(big.Int).Set(amount)); err != nil {
		t.balance = amount
		return nil, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return amount, nil
}

func (t *Treasury) setBalance(v *big.Int) {
	t.balance = new(big.Int).Set(v)
}
