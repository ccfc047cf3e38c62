package services

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/theotime2005/blocklucky/internal/models"
)

// Owner returns the deploying identity.
func (l *Lottery) Owner() common.Address {
	return l.owner
}

// TicketPrice returns the exact amount a ticket costs, in wei.
func (l *Lottery) TicketPrice() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config.Current().TicketPrice
}

// MaxParticipants returns the ticket count that triggers a draw.
func (l *Lottery) MaxParticipants() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config.Current().MaxParticipants
}

// RoundDuration returns the length of a round.
func (l *Lottery) RoundDuration() time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config.Current().RoundDuration
}

// Configuration returns a copy of the current configuration.
func (l *Lottery) Configuration() models.Configuration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config.Current()
}

// LastWinner returns the winner of the most recent round, or the zero address.
func (l *Lottery) LastWinner() common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastWinner
}

// Players returns every ticket of the active round in purchase order.
func (l *Lottery) Players() []common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.entries.Entries()
}

// Balance returns the treasury balance.
func (l *Lottery) Balance() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.treasury.Balance()
}

// Phase returns the state of the active round.
func (l *Lottery) Phase() models.Phase {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.phase
}

// CurrentLotteryPhase returns the phase as shown on the dashboard.
func (l *Lottery) CurrentLotteryPhase() string {
	return l.Phase().String()
}

// LotteryInProgress reports whether the round is locked behind a commitment.
func (l *Lottery) LotteryInProgress() bool {
	return l.Phase() == models.PhaseLocked
}

// CommitmentActive reports whether a commitment is pending.
func (l *Lottery) CommitmentActive() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.commitment.Active()
}

// CommitmentTimestamp returns when the pending commitment was made.
func (l *Lottery) CommitmentTimestamp() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.commitment.Timestamp()
}

// RevealDeadline is the reveal window measured from the commitment.
func (l *Lottery) RevealDeadline() time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.commitment.Window()
}

// RoundID returns the id of the active round.
func (l *Lottery) RoundID() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.roundID
}

// RoundActive reports whether the round accepts entries.
func (l *Lottery) RoundActive() bool {
	return l.Phase() == models.PhaseOpen
}

// RoundDeadline returns when the active round becomes drawable by anyone.
func (l *Lottery) RoundDeadline() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.deadline
}

// RoundCount returns the number of completed rounds.
func (l *Lottery) RoundCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.history.Count()
}

// RoundSummary returns the completed round at index.
func (l *Lottery) RoundSummary(index int) (models.RoundSummary, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.history.At(index)
}

// LatestRound returns the most recently completed round.
func (l *Lottery) LatestRound() (models.RoundSummary, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.history.Latest()
}

// Rounds returns up to limit of the most recent summaries, oldest first.
// A non-positive limit returns the whole history.
func (l *Lottery) Rounds(limit int) []models.RoundSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := l.history.Count()
	start := 0
	if limit > 0 && n > limit {
		start = n - limit
	}
	out := make([]models.RoundSummary, 0, n-start)
	for i := start; i < n; i++ {
		s, _ := l.history.At(i)
		out = append(out, s)
	}
	return out
}

// DrawDue reports whether ForceDraw would currently succeed.
func (l *Lottery) DrawDue() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.phase == models.PhaseOpen && l.entries.Count() > 0 &&
		!l.chain.Head().Time.Before(l.deadline)
}

// Snapshot reads every accessor at once.
func (l *Lottery) Snapshot() models.Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cfg := l.config.Current()
	var committedAt int64
	if l.commitment.Active() {
		committedAt = l.commitment.Timestamp().Unix()
	}
	return models.Snapshot{
		Owner:               l.owner,
		TicketPrice:         cfg.TicketPrice,
		Balance:             l.treasury.Balance(),
		Players:             l.entries.Entries(),
		LastWinner:          l.lastWinner,
		Phase:               l.phase.String(),
		LotteryInProgress:   l.phase == models.PhaseLocked,
		CommitmentActive:    l.commitment.Active(),
		CommitmentTimestamp: committedAt,
		RevealDeadline:      int64(l.commitment.Window() / time.Second),
		RoundID:             l.roundID,
		RoundActive:         l.phase == models.PhaseOpen,
		MaxParticipants:     cfg.MaxParticipants,
		RoundDuration:       int64(cfg.RoundDuration / time.Second),
		RoundDeadline:       l.deadline.Unix(),
		RoundCount:          l.history.Count(),
		BlockNumber:         l.chain.Head().Number,
	}
}
