// Package chain simulates the serialized ledger the lottery executes on:
// a block clock that produces block metadata and a bank of account balances.
package chain

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Block is the metadata visible to a call executing in that block.
type Block struct {
	Number     uint64      `json:"number"`
	Time       time.Time   `json:"time"`
	Hash       common.Hash `json:"hash"`
	ParentHash common.Hash `json:"parentHash"`
	PrevRandao common.Hash `json:"prevRandao"`
}

// Chain exposes the pending block to executing calls and seals it once a
// call commits.
type Chain interface {
	// Head returns the block the next call executes in.
	Head() Block
	// Mine seals pending, the block a call executed in, and returns it.
	Mine(pending Block) Block
}

// Simulated is an in-process Chain. Block time follows the wall clock plus
// any offset added with IncreaseTime.
type Simulated struct {
	mu     sync.Mutex
	now    func() time.Time
	offset time.Duration
	number uint64
	parent common.Hash
}

// NewSimulated creates a chain following the wall clock. The first block is 1.
func NewSimulated() *Simulated {
	return NewSimulatedWithClock(time.Now)
}

// NewSimulatedWithClock creates a chain that reads time from now.
func NewSimulatedWithClock(now func() time.Time) *Simulated {
	return &Simulated{
		now:    now,
		number: 1,
		parent: crypto.Keccak256Hash([]byte("blocklucky-genesis")),
	}
}

// Head implements Chain.
func (s *Simulated) Head() Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.head()
}

// Mine implements Chain. The sealed block keeps the time and hash it was
// read with, even if the clock moved since.
func (s *Simulated) Mine(pending Block) Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parent = pending.Hash
	s.number = pending.Number + 1
	return pending
}

// IncreaseTime moves block time forward by d.
func (s *Simulated) IncreaseTime(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset += d
}

func (s *Simulated) head() Block {
	ts := s.now().Add(s.offset).Truncate(time.Second)
	num := make([]byte, 8)
	binary.BigEndian.PutUint64(num, s.number)
	stamp := make([]byte, 8)
	binary.BigEndian.PutUint64(stamp, uint64(ts.Unix()))
	return Block{
		Number:     s.number,
		Time:       ts,
		ParentHash: s.parent,
		Hash:       crypto.Keccak256Hash(s.parent.Bytes(), num, stamp),
		PrevRandao: crypto.Keccak256Hash([]byte("prevrandao"), s.parent.Bytes(), num),
	}
}
