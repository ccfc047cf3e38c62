package services

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/theotime2005/blocklucky/internal/chain"
)

// RandomnessSource picks the winning ticket index for draws that have no
// commitment: auto-draws, forced draws and the legacy owner draw.
//
// None of the sources in this package are unpredictable. Block metadata can
// be biased by whoever produces the block; plug an external verifiable
// source in here if fairness matters.
type RandomnessSource interface {
	WinnerIndex(b chain.Block, count int) (uint64, error)
}

// BlockRandomness derives the index from the executing block:
// keccak256(timestamp, prevrandao, count) mod count.
type BlockRandomness struct{}

// WinnerIndex implements RandomnessSource.
func (BlockRandomness) WinnerIndex(b chain.Block, count int) (uint64, error) {
	if count <= 0 {
		return 0, ErrNoPlayers
	}
	h := crypto.Keccak256(
		uint256(big.NewInt(b.Time.Unix())),
		b.PrevRandao.Bytes(),
		uint256(big.NewInt(int64(count))),
	)
	return reduce(h, count), nil
}

// CommitmentFor returns the commitment the owner submits for seed.
func CommitmentFor(seed string) common.Hash {
	return crypto.Keccak256Hash([]byte(seed))
}

// CommitReveal is the two-phase randomness protocol. The owner commits to
// keccak256(seed) and later reveals seed within the reveal window.
type CommitReveal struct {
	hash      common.Hash
	timestamp time.Time
	active    bool
	window    time.Duration
}

// NewCommitReveal returns a protocol with the given reveal window.
func NewCommitReveal(window time.Duration) *CommitReveal {
	return &CommitReveal{window: window}
}

// Commit stores hash as the pending commitment.
func (c *CommitReveal) Commit(hash common.Hash, now time.Time, entries int) error {
	if entries == 0 {
		return ErrNoPlayers
	}
	if c.active {
		return ErrAlreadyCommitted
	}
	c.hash = hash
	c.timestamp = now
	c.active = true
	return nil
}

// Verify checks seed against the pending commitment. A failed check leaves
// the commitment untouched.
func (c *CommitReveal) Verify(seed string, now time.Time) error {
	if !c.active {
		return ErrNoActiveCommitment
	}
	if CommitmentFor(seed) != c.hash {
		return ErrSeedMismatch
	}
	if c.Expired(now) {
		return ErrRevealDeadlinePassed
	}
	return nil
}

// Index derives the winning index from a verified seed and the executing
// block: keccak256(seed, parentHash, timestamp, count) mod count. The count
// is the entry count at reveal time.
func (c *CommitReveal) Index(seed string, b chain.Block, count int) (uint64, error) {
	if count <= 0 {
		return 0, ErrNoPlayers
	}
	h := crypto.Keccak256(
		[]byte(seed),
		b.ParentHash.Bytes(),
		uint256(big.NewInt(b.Time.Unix())),
		uint256(big.NewInt(int64(count))),
	)
	return reduce(h, count), nil
}

// Expired reports whether the reveal window of the pending commitment has
// passed at now.
func (c *CommitReveal) Expired(now time.Time) bool {
	return c.active && now.After(c.timestamp.Add(c.window))
}

// Clear drops the pending commitment.
func (c *CommitReveal) Clear() {
	c.hash = common.Hash{}
	c.timestamp = time.Time{}
	c.active = false
}

// Active reports whether a commitment is pending.
func (c *CommitReveal) Active() bool { return c.active }

// Hash returns the pending commitment.
func (c *CommitReveal) Hash() common.Hash { return c.hash }

// Timestamp returns when the pending commitment was made.
func (c *CommitReveal) Timestamp() time.Time { return c.timestamp }

// Window returns how long a commitment may stay unrevealed.
func (c *CommitReveal) Window() time.Duration { return c.window }

func uint256(v *big.Int) []byte {
	return common.BigToHash(v).Bytes()
}

func reduce(h []byte, count int) uint64 {
	n := new(big.Int).SetBytes(h)
	return n.Mod(n, big.NewInt(int64(count))).Uint64()
}
