package services

import (
	"math/big"

	"github.com/theotime2005/blocklucky/internal/models"
)

// History is the append-only archive of completed rounds.
type History struct {
	rounds []models.RoundSummary
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{rounds: make([]models.RoundSummary, 0)}
}

// Append records one completed round and returns its index.
func (h *History) Append(s models.RoundSummary) int {
	h.rounds = append(h.rounds, cloneSummary(s))
	return len(h.rounds) - 1
}

// Count returns the number of recorded rounds.
func (h *History) Count() int {
	return len(h.rounds)
}

// At returns the summary at index.
func (h *History) At(index int) (models.RoundSummary, error) {
	if index < 0 || index >= len(h.rounds) {
		return models.RoundSummary{}, ErrIndexOutOfRange
	}
	return cloneSummary(h.rounds[index]), nil
}

// Latest returns the most recent summary.
func (h *History) Latest() (models.RoundSummary, error) {
	if len(h.rounds) == 0 {
		return models.RoundSummary{}, ErrNoHistory
	}
	return cloneSummary(h.rounds[len(h.rounds)-1]), nil
}

// truncate drops records past n. Only used to revert a failed call.
func (h *History) truncate(n int) {
	h.rounds = h.rounds[:n]
}

func cloneSummary(s models.RoundSummary) models.RoundSummary {
	if s.Prize != nil {
		s.Prize = new(big.Int).Set(s.Prize)
	}
	return s
}
