package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Phase is the state of the active round.
type Phase int

const (
	// PhaseOpen accepts ticket purchases.
	PhaseOpen Phase = iota
	// PhaseLocked has a pending randomness commitment; entries are frozen.
	PhaseLocked
	// PhaseDrawn has a paid-out winner and waits for the next round to open.
	PhaseDrawn
)

// String returns the human-readable phase shown by the dashboard.
func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "Phase 1: Open for ticket sales"
	case PhaseLocked:
		return "Phase 2: Commitment locked, awaiting reveal"
	case PhaseDrawn:
		return "Phase 3: Winner selected"
	default:
		return "Unknown phase"
	}
}

// Configuration holds the owner-controlled parameters of the lottery.
type Configuration struct {
	TicketPrice     *big.Int      `json:"ticketPrice"`
	MaxParticipants uint64        `json:"maxParticipants"`
	RoundDuration   time.Duration `json:"roundDuration"`
}

// RoundSummary is the immutable record of one completed round.
type RoundSummary struct {
	RoundID     uint64         `json:"roundId"`
	Winner      common.Address `json:"winner"`
	Prize       *big.Int       `json:"prize"`
	TicketCount uint64         `json:"ticketCount"`
	CompletedAt time.Time      `json:"completedAt"`
}

// Snapshot is a consistent read of every public accessor at one block.
// Durations are in seconds and timestamps in unix seconds.
type Snapshot struct {
	Owner               common.Address   `json:"owner"`
	TicketPrice         *big.Int         `json:"ticketPrice"`
	Balance             *big.Int         `json:"balance"`
	Players             []common.Address `json:"players"`
	LastWinner          common.Address   `json:"lastWinner"`
	Phase               string           `json:"currentLotteryPhase"`
	LotteryInProgress   bool             `json:"lotteryInProgress"`
	CommitmentActive    bool             `json:"commitmentActive"`
	CommitmentTimestamp int64            `json:"commitmentTimestamp"`
	RevealDeadline      int64            `json:"revealDeadline"`
	RoundID             uint64           `json:"roundId"`
	RoundActive         bool             `json:"roundActive"`
	MaxParticipants     uint64           `json:"maxParticipants"`
	RoundDuration       int64            `json:"roundDuration"`
	RoundDeadline       int64            `json:"roundDeadline"`
	RoundCount          int              `json:"roundCount"`
	BlockNumber         uint64           `json:"blockNumber"`
}

// EventKind names a notification emitted by a successful call.
type EventKind string

const (
	EventTicketPurchased  EventKind = "TicketPurchased"
	EventCommitmentMade   EventKind = "CommitmentMade"
	EventCommitmentVoided EventKind = "CommitmentVoided"
	EventWinnerSelected   EventKind = "WinnerSelected"
	EventRoundOpened      EventKind = "RoundOpened"
)

// Event is an emitted notification. Only the fields relevant to Kind are set.
type Event struct {
	Kind        EventKind      `json:"kind"`
	Block       uint64         `json:"block"`
	RoundID     uint64         `json:"roundId,omitempty"`
	Player      common.Address `json:"player"`
	TicketIndex uint64         `json:"ticketIndex"`
	Amount      *big.Int       `json:"amount,omitempty"`
	Commitment  common.Hash    `json:"commitment"`
	Timestamp   int64          `json:"timestamp,omitempty"`
	Winner      common.Address `json:"winner"`
	Prize       *big.Int       `json:"prize,omitempty"`
	RandomIndex uint64         `json:"randomIndex"`
	Deadline    int64          `json:"deadline,omitempty"`
}

// Receipt describes a successfully executed mutating call. Time is the
// unix timestamp of the sealed block.
type Receipt struct {
	TxID   string  `json:"txId"`
	Block  uint64  `json:"block"`
	Time   int64   `json:"time"`
	Events []Event `json:"events"`
}
