package services

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/logger"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/theotime2005/blocklucky/internal/chain"
	"github.com/theotime2005/blocklucky/internal/models"
)

// Archive persists completed rounds outside the process.
type Archive interface {
	Append(index int, s models.RoundSummary) error
	All() ([]models.RoundSummary, error)
}

// Options configure a deployment.
type Options struct {
	Owner  common.Address
	Chain  chain.Chain
	Payout Transferer

	// Config is the initial configuration; zero fields take defaults.
	Config           models.Configuration
	RevealWindow     time.Duration
	MinRoundDuration time.Duration

	// ManualReset leaves the round in PhaseDrawn after every draw until the
	// owner calls ResetToPhase1. Otherwise the next round opens immediately.
	ManualReset bool

	// Randomness picks winners for draws without a commitment. Defaults to
	// BlockRandomness.
	Randomness RandomnessSource

	Archive Archive
}

// Lottery is the deployed contract: one aggregate owning the treasury, the
// entries, the commitment, the configuration and the round history.
// Every mutating call runs under a single lock and either commits all of its
// effects or none of them.
type Lottery struct {
	mu sync.RWMutex

	owner       common.Address
	chain       chain.Chain
	treasury    *Treasury
	entries     *EntryRegistry
	commitment  *CommitReveal
	history     *History
	config      *ConfigManager
	randomness  RandomnessSource
	archive     Archive
	bus         *EventBus
	manualReset bool

	phase      models.Phase
	roundID    uint64
	deadline   time.Time
	lastWinner common.Address

	// per-call buffers, flushed only when the call commits
	pending  []models.Event
	archived []int
}

// state is everything a reverted call must restore.
type state struct {
	balance    *big.Int
	entries    []common.Address
	frozen     bool
	commitment CommitReveal
	historyLen int
	config     models.Configuration
	phase      models.Phase
	roundID    uint64
	deadline   time.Time
	lastWinner common.Address
}

// NewLottery deploys a lottery owned by opts.Owner.
func NewLottery(opts Options) (*Lottery, error) {
	if opts.Chain == nil {
		return nil, errors.New("lottery requires a chain")
	}
	if opts.Payout == nil {
		return nil, errors.New("lottery requires a payout transferer")
	}
	if opts.RevealWindow <= 0 {
		opts.RevealWindow = DefaultRevealWindow
	}
	if opts.MinRoundDuration <= 0 {
		opts.MinRoundDuration = DefaultMinRoundDuration
	}
	if opts.Randomness == nil {
		opts.Randomness = BlockRandomness{}
	}
	cfg := withDefaults(opts.Config)
	config, err := NewConfigManager(cfg, opts.MinRoundDuration)
	if err != nil {
		return nil, err
	}

	l := &Lottery{
		owner:       opts.Owner,
		chain:       opts.Chain,
		treasury:    NewTreasury(opts.Payout),
		entries:     NewEntryRegistry(),
		commitment:  NewCommitReveal(opts.RevealWindow),
		history:     NewHistory(),
		config:      config,
		randomness:  opts.Randomness,
		archive:     opts.Archive,
		bus:         NewEventBus(),
		manualReset: opts.ManualReset,
		phase:       models.PhaseOpen,
		roundID:     1,
	}
	if err := l.loadArchive(); err != nil {
		return nil, err
	}
	l.deadline = opts.Chain.Head().Time.Add(cfg.RoundDuration)

	logger.Infof("Lottery deployed: owner=%s round=%d price=%s ETH max=%d duration=%s",
		l.owner.Hex(), l.roundID, models.FormatEther(cfg.TicketPrice), cfg.MaxParticipants, cfg.RoundDuration)
	return l, nil
}

func withDefaults(cfg models.Configuration) models.Configuration {
	def := DefaultConfiguration()
	if cfg.TicketPrice == nil {
		cfg.TicketPrice = def.TicketPrice
	}
	if cfg.MaxParticipants == 0 {
		cfg.MaxParticipants = def.MaxParticipants
	}
	if cfg.RoundDuration == 0 {
		cfg.RoundDuration = def.RoundDuration
	}
	return cfg
}

func (l *Lottery) loadArchive() error {
	if l.archive == nil {
		return nil
	}
	rounds, err := l.archive.All()
	if err != nil {
		return fmt.Errorf("loading round archive: %w", err)
	}
	for _, s := range rounds {
		l.history.Append(s)
	}
	if len(rounds) > 0 {
		last := rounds[len(rounds)-1]
		l.roundID = last.RoundID + 1
		l.lastWinner = last.Winner
		logger.Infof("Restored %d archived rounds, resuming at round %d", len(rounds), l.roundID)
	}
	return nil
}

// Events returns the bus emitted notifications are published on.
func (l *Lottery) Events() *EventBus {
	return l.bus
}

// BuyTicket enters caller once into the active round. value must equal the
// ticket price. Reaching the participant threshold, or buying after the round
// deadline, draws the round within the same call.
func (l *Lottery) BuyTicket(caller common.Address, value *big.Int) (*models.Receipt, error) {
	return l.execute("buyTicket", caller, func(b chain.Block) error {
		switch l.phase {
		case models.PhaseLocked:
			return ErrCannotBuyDuringActiveLottery
		case models.PhaseDrawn:
			return ErrRoundLocked
		}
		cfg := l.config.Current()
		if err := l.treasury.RecordEntry(value, cfg.TicketPrice); err != nil {
			return err
		}
		index, err := l.entries.Add(caller)
		if err != nil {
			return err
		}
		l.emit(models.Event{
			Kind:        models.EventTicketPurchased,
			Player:      caller,
			RoundID:     l.roundID,
			TicketIndex: uint64(index),
			Amount:      new(big.Int).Set(value),
		})

		if uint64(l.entries.Count()) >= cfg.MaxParticipants || !b.Time.Before(l.deadline) {
			return l.draw(b, func(count int) (uint64, error) {
				return l.randomness.WinnerIndex(b, count)
			})
		}
		return nil
	})
}

// CommitRandomness locks the round behind the owner's commitment.
func (l *Lottery) CommitRandomness(caller common.Address, commitment common.Hash) (*models.Receipt, error) {
	return l.execute("commitRandomness", caller, func(b chain.Block) error {
		if err := l.onlyOwner(caller); err != nil {
			return err
		}
		if l.phase == models.PhaseDrawn {
			return ErrRoundLocked
		}
		if err := l.commitment.Commit(commitment, b.Time, l.entries.Count()); err != nil {
			return err
		}
		l.phase = models.PhaseLocked
		l.entries.Freeze()
		l.emit(models.Event{
			Kind:       models.EventCommitmentMade,
			RoundID:    l.roundID,
			Commitment: commitment,
			Timestamp:  b.Time.Unix(),
		})
		return nil
	})
}

// RevealAndPickWinner checks seed against the pending commitment and draws
// the round with randomness derived from it.
func (l *Lottery) RevealAndPickWinner(caller common.Address, seed string) (*models.Receipt, error) {
	return l.execute("revealAndPickWinner", caller, func(b chain.Block) error {
		if err := l.onlyOwner(caller); err != nil {
			return err
		}
		if err := l.commitment.Verify(seed, b.Time); err != nil {
			return err
		}
		l.commitment.Clear()
		return l.draw(b, func(count int) (uint64, error) {
			return l.commitment.Index(seed, b, count)
		})
	})
}

// VoidExpiredCommitment discards a commitment whose reveal window has
// passed and reopens the round with its entries intact. Anyone may call it.
func (l *Lottery) VoidExpiredCommitment(caller common.Address) (*models.Receipt, error) {
	return l.execute("voidExpiredCommitment", caller, func(b chain.Block) error {
		if !l.commitment.Active() {
			return ErrNoActiveCommitment
		}
		if !l.commitment.Expired(b.Time) {
			return ErrRevealWindowOpen
		}
		voided := l.commitment.Hash()
		l.commitment.Clear()
		l.phase = models.PhaseOpen
		l.entries.Unfreeze()
		l.emit(models.Event{
			Kind:       models.EventCommitmentVoided,
			RoundID:    l.roundID,
			Commitment: voided,
			Timestamp:  b.Time.Unix(),
		})
		return nil
	})
}

// ForceDraw draws an open round whose deadline has passed. Anyone may call it.
func (l *Lottery) ForceDraw(caller common.Address) (*models.Receipt, error) {
	return l.execute("forceDraw", caller, func(b chain.Block) error {
		if l.phase != models.PhaseOpen {
			return ErrRoundLocked
		}
		if b.Time.Before(l.deadline) {
			return ErrDeadlineNotReached
		}
		return l.draw(b, func(count int) (uint64, error) {
			return l.randomness.WinnerIndex(b, count)
		})
	})
}

// PickWinner is the legacy owner draw using block randomness.
func (l *Lottery) PickWinner(caller common.Address) (*models.Receipt, error) {
	return l.execute("pickWinner", caller, func(b chain.Block) error {
		if err := l.onlyOwner(caller); err != nil {
			return err
		}
		if l.phase != models.PhaseOpen {
			return ErrRoundLocked
		}
		return l.draw(b, func(count int) (uint64, error) {
			return l.randomness.WinnerIndex(b, count)
		})
	})
}

// ResetToPhase1 opens the next round after a draw. It fails while a
// commitment is pending and does nothing when the round is already open.
func (l *Lottery) ResetToPhase1(caller common.Address) (*models.Receipt, error) {
	return l.execute("resetToPhase1", caller, func(b chain.Block) error {
		if err := l.onlyOwner(caller); err != nil {
			return err
		}
		switch l.phase {
		case models.PhaseLocked:
			return ErrStillInProgress
		case models.PhaseDrawn:
			l.openRound(b)
		}
		return nil
	})
}

// UpdateConfiguration replaces the parameters of the active round and
// restarts its deadline from the current block.
func (l *Lottery) UpdateConfiguration(caller common.Address, cfg models.Configuration) (*models.Receipt, error) {
	return l.execute("updateConfiguration", caller, func(b chain.Block) error {
		if err := l.onlyOwner(caller); err != nil {
			return err
		}
		if err := l.config.Update(cfg); err != nil {
			return err
		}
		l.deadline = b.Time.Add(cfg.RoundDuration)
		logger.Infof("Configuration updated: price=%s ETH max=%d duration=%s deadline=%s",
			models.FormatEther(cfg.TicketPrice), cfg.MaxParticipants, cfg.RoundDuration, l.deadline.Format(time.RFC3339))
		return nil
	})
}

// draw settles the active round. Every round-state effect is applied before
// the payout transfer; a failed transfer reverts the whole call.
func (l *Lottery) draw(b chain.Block, pick func(count int) (uint64, error)) error {
	count := l.entries.Count()
	if count == 0 {
		return ErrNoPlayers
	}
	index, err := pick(count)
	if err != nil {
		return err
	}
	winner, err := l.entries.At(int(index))
	if err != nil {
		return err
	}

	summary := models.RoundSummary{
		RoundID:     l.roundID,
		Winner:      winner,
		Prize:       l.treasury.Balance(),
		TicketCount: uint64(count),
		CompletedAt: b.Time,
	}
	l.archived = append(l.archived, l.history.Append(summary))
	l.entries.Clear()
	l.lastWinner = winner
	l.roundID++
	l.emit(models.Event{
		Kind:        models.EventWinnerSelected,
		RoundID:     summary.RoundID,
		Winner:      winner,
		Prize:       new(big.Int).Set(summary.Prize),
		RandomIndex: index,
	})
	if l.manualReset {
		l.phase = models.PhaseDrawn
		l.entries.Freeze()
	} else {
		l.openRound(b)
	}

	if _, err := l.treasury.Payout(winner); err != nil {
		return err
	}
	logger.Infof("Round %d drawn: winner=%s prize=%s ETH tickets=%d index=%d",
		summary.RoundID, winner.Hex(), models.FormatEther(summary.Prize), count, index)
	return nil
}

func (l *Lottery) openRound(b chain.Block) {
	l.phase = models.PhaseOpen
	l.entries.Unfreeze()
	l.deadline = b.Time.Add(l.config.Current().RoundDuration)
	l.emit(models.Event{
		Kind:     models.EventRoundOpened,
		RoundID:  l.roundID,
		Deadline: l.deadline.Unix(),
	})
}

func (l *Lottery) onlyOwner(caller common.Address) error {
	if caller != l.owner {
		return ErrUnauthorized
	}
	return nil
}

func (l *Lottery) emit(ev models.Event) {
	l.pending = append(l.pending, ev)
}

// execute runs fn as one atomic call. On error every effect of fn is
// reverted and nothing is emitted; on success the block is mined, buffered
// events are published and new history records are archived.
func (l *Lottery) execute(name string, caller common.Address, fn func(b chain.Block) error) (*models.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	head := l.chain.Head()
	saved := l.save()
	l.pending = nil
	l.archived = nil

	if err := fn(head); err != nil {
		l.restore(saved)
		l.pending = nil
		l.archived = nil
		logger.Warningf("%s from %s reverted: %v", name, caller.Hex(), err)
		return nil, err
	}

	block := l.chain.Mine(head)
	events := l.pending
	for i := range events {
		events[i].Block = block.Number
	}
	l.pending = nil
	l.persist(l.archived)
	l.archived = nil
	l.bus.Publish(events...)

	txID, err := gonanoid.New()
	if err != nil {
		txID = block.Hash.Hex()
	}
	return &models.Receipt{TxID: txID, Block: block.Number, Time: block.Time.Unix(), Events: events}, nil
}

func (l *Lottery) persist(indexes []int) {
	if l.archive == nil {
		return
	}
	for _, i := range indexes {
		s, err := l.history.At(i)
		if err != nil {
			continue
		}
		if err := l.archive.Append(i, s); err != nil {
			logger.Errorf("archiving round %d failed: %v", s.RoundID, err)
		}
	}
}

func (l *Lottery) save() state {
	return state{
		balance:    l.treasury.Balance(),
		entries:    l.entries.Entries(),
		frozen:     l.entries.frozen,
		commitment: *l.commitment,
		historyLen: l.history.Count(),
		config:     l.config.Current(),
		phase:      l.phase,
		roundID:    l.roundID,
		deadline:   l.deadline,
		lastWinner: l.lastWinner,
	}
}

func (l *Lottery) restore(s state) {
	l.treasury.setBalance(s.balance)
	l.entries.restore(s.entries, s.frozen)
	*l.commitment = s.commitment
	l.history.truncate(s.historyLen)
	l.config.cfg = s.config
	l.phase = s.phase
	l.roundID = s.roundID
	l.deadline = s.deadline
	l.lastWinner = s.lastWinner
}
