package services

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/theotime2005/blocklucky/internal/chain"
	"github.com/theotime2005/blocklucky/internal/models"
)

func TestTreasury(t *testing.T) {
	bank := chain.NewBank()
	tr := NewTreasury(bank)
	price := models.MustParseEther("0.1")

	require.ErrorIs(t, tr.RecordEntry(models.MustParseEther("0.2"), price), ErrIncorrectPrice)
	require.NoError(t, tr.RecordEntry(price, price))
	require.NoError(t, tr.RecordEntry(price, price))
	require.Equal(t, 0, tr.Balance().Cmp(models.MustParseEther("0.2")))

	bank.SetRejecting(player1, true)
	_, err := tr.Payout(player1)
	require.ErrorIs(t, err, ErrTransferFailed)
	require.True(t, errors.Is(err, chain.ErrTransferRejected))
	require.Equal(t, 0, tr.Balance().Cmp(models.MustParseEther("0.2")), "failed payout keeps funds")

	paid, err := tr.Payout(player2)
	require.NoError(t, err)
	require.Equal(t, 0, paid.Cmp(models.MustParseEther("0.2")))
	require.Equal(t, 0, tr.Balance().Sign())
	require.Equal(t, 0, bank.BalanceOf(player2).Cmp(paid))
}

func TestEntryRegistry(t *testing.T) {
	r := NewEntryRegistry()

	i, err := r.Add(player1)
	require.NoError(t, err)
	require.Equal(t, 0, i)
	i, err = r.Add(player1)
	require.NoError(t, err)
	require.Equal(t, 1, i)
	require.Equal(t, 2, r.Count())

	got, err := r.At(1)
	require.NoError(t, err)
	require.Equal(t, player1, got)
	_, err = r.At(2)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = r.At(-1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)

	r.Freeze()
	_, err = r.Add(player2)
	require.ErrorIs(t, err, ErrRoundLocked)
	r.Unfreeze()

	entries := r.Entries()
	entries[0] = player3
	first, _ := r.At(0)
	require.Equal(t, player1, first, "Entries must return a copy")

	r.Clear()
	require.Equal(t, 0, r.Count())
}

func TestHistory(t *testing.T) {
	h := NewHistory()
	_, err := h.Latest()
	require.ErrorIs(t, err, ErrNoHistory)

	idx := h.Append(models.RoundSummary{RoundID: 1, Winner: player1, Prize: big.NewInt(3), TicketCount: 3})
	require.Equal(t, 0, idx)
	idx = h.Append(models.RoundSummary{RoundID: 2, Winner: player2, Prize: big.NewInt(2), TicketCount: 2})
	require.Equal(t, 1, idx)
	require.Equal(t, 2, h.Count())

	latest, err := h.Latest()
	require.NoError(t, err)
	require.Equal(t, uint64(2), latest.RoundID)

	_, err = h.At(5)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestConfigManager(t *testing.T) {
	m, err := NewConfigManager(DefaultConfiguration(), DefaultMinRoundDuration)
	require.NoError(t, err)

	cur := m.Current()
	cur.TicketPrice.SetInt64(1)
	require.Equal(t, 0, m.Current().TicketPrice.Cmp(DefaultTicketPrice), "Current must return a copy")

	err = m.Update(models.Configuration{TicketPrice: big.NewInt(1), MaxParticipants: 2, RoundDuration: 4 * time.Minute})
	require.ErrorIs(t, err, ErrInvalidConfiguration)
	require.Equal(t, ClassConfiguration, ClassOf(err))

	require.NoError(t, m.Update(models.Configuration{TicketPrice: big.NewInt(1), MaxParticipants: 2, RoundDuration: 5 * time.Minute}))
	require.Equal(t, uint64(2), m.Current().MaxParticipants)

	_, err = NewConfigManager(models.Configuration{}, time.Minute)
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestEventBus(t *testing.T) {
	bus := NewEventBus()
	ch, cancel := bus.Subscribe(1)

	bus.Publish(models.Event{Kind: models.EventRoundOpened}, models.Event{Kind: models.EventTicketPurchased})
	ev := <-ch
	require.Equal(t, models.EventRoundOpened, ev.Kind)
	select {
	case extra := <-ch:
		t.Fatalf("full subscriber should have dropped %+v", extra)
	default:
	}

	cancel()
	cancel()
	_, open := <-ch
	require.False(t, open)
	bus.Publish(models.Event{Kind: models.EventRoundOpened})
}
