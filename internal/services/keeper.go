package services

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/logger"
)

// Keeper is an off-contract actor that calls ForceDraw once a round's
// deadline has passed. It holds no privileges; ForceDraw is open to anyone.
type Keeper struct {
	lottery  *Lottery
	caller   common.Address
	interval time.Duration
}

// NewKeeper returns a keeper polling every interval as caller.
func NewKeeper(l *Lottery, caller common.Address, interval time.Duration) *Keeper {
	return &Keeper{lottery: l, caller: caller, interval: interval}
}

// Tick forces a draw if one is due and reports whether it did.
func (k *Keeper) Tick() bool {
	if !k.lottery.DrawDue() {
		return false
	}
	receipt, err := k.lottery.ForceDraw(k.caller)
	if err != nil {
		// Another caller may have drawn the round between the check and the call.
		logger.Warningf("keeper force draw failed: %v", err)
		return false
	}
	logger.Infof("keeper forced draw in block %d (tx %s)", receipt.Block, receipt.TxID)
	return true
}

// Run ticks until ctx is done.
func (k *Keeper) Run(ctx context.Context) {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.Tick()
		}
	}
}
