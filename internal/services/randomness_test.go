package services

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/theotime2005/blocklucky/internal/chain"
)

func testBlock(n uint64) chain.Block {
	c := chain.NewSimulatedWithClock(func() time.Time { return time.Unix(1_700_000_000, 0) })
	for i := uint64(1); i < n; i++ {
		c.Mine(c.Head())
	}
	return c.Head()
}

func TestCommitmentFor(t *testing.T) {
	// keccak256("") is a well-known constant.
	require.Equal(t,
		common.HexToHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"),
		CommitmentFor(""))
	require.NotEqual(t, CommitmentFor("seed1"), CommitmentFor("seed2"))
}

func TestBlockRandomness(t *testing.T) {
	var src BlockRandomness

	_, err := src.WinnerIndex(testBlock(1), 0)
	require.ErrorIs(t, err, ErrNoPlayers)

	b := testBlock(3)
	first, err := src.WinnerIndex(b, 7)
	require.NoError(t, err)
	require.Less(t, first, uint64(7))

	again, err := src.WinnerIndex(b, 7)
	require.NoError(t, err)
	require.Equal(t, first, again, "same block must give the same index")

	seen := make(map[uint64]bool)
	for n := uint64(1); n <= 64; n++ {
		idx, err := src.WinnerIndex(testBlock(n), 4)
		require.NoError(t, err)
		require.Less(t, idx, uint64(4))
		seen[idx] = true
	}
	require.Greater(t, len(seen), 1, "index should vary across blocks")
}

func TestCommitReveal(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := NewCommitReveal(time.Hour)

	require.ErrorIs(t, c.Verify("seed", now), ErrNoActiveCommitment)
	require.ErrorIs(t, c.Commit(CommitmentFor("seed"), now, 0), ErrNoPlayers)
	require.NoError(t, c.Commit(CommitmentFor("seed"), now, 2))
	require.True(t, c.Active())
	require.Equal(t, now, c.Timestamp())
	require.ErrorIs(t, c.Commit(CommitmentFor("again"), now, 2), ErrAlreadyCommitted)

	require.ErrorIs(t, c.Verify("wrong", now), ErrSeedMismatch)
	require.True(t, c.Active(), "mismatch must keep the commitment")
	require.NoError(t, c.Verify("seed", now.Add(time.Hour)), "reveal at the window edge is accepted")
	require.ErrorIs(t, c.Verify("seed", now.Add(time.Hour+time.Second)), ErrRevealDeadlinePassed)
	require.True(t, c.Expired(now.Add(time.Hour+time.Second)))

	idx, err := c.Index("seed", testBlock(2), 3)
	require.NoError(t, err)
	require.Less(t, idx, uint64(3))

	c.Clear()
	require.False(t, c.Active())
	require.False(t, c.Expired(now.Add(48*time.Hour)))
}
