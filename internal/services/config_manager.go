package services

import (
	"fmt"
	"math/big"
	"time"

	"github.com/theotime2005/blocklucky/internal/models"
)

const (
	DefaultMaxParticipants  = 5
	DefaultRoundDuration    = time.Hour
	DefaultRevealWindow     = 24 * time.Hour
	DefaultMinRoundDuration = 5 * time.Minute
	minParticipants         = 2
)

// DefaultTicketPrice is 0.1 ether.
var DefaultTicketPrice = models.MustParseEther("0.1")

// DefaultConfiguration returns the parameters a fresh deployment starts with.
func DefaultConfiguration() models.Configuration {
	return models.Configuration{
		TicketPrice:     new(big.Int).Set(DefaultTicketPrice),
		MaxParticipants: DefaultMaxParticipants,
		RoundDuration:   DefaultRoundDuration,
	}
}

// ConfigManager owns the lottery parameters.
type ConfigManager struct {
	cfg         models.Configuration
	minDuration time.Duration
}

// NewConfigManager validates initial and returns a manager holding it.
func NewConfigManager(initial models.Configuration, minDuration time.Duration) (*ConfigManager, error) {
	m := &ConfigManager{minDuration: minDuration}
	if err := m.Validate(initial); err != nil {
		return nil, err
	}
	m.cfg = cloneConfig(initial)
	return m, nil
}

// Validate rejects a zero price, fewer than two participants, and round
// durations shorter than the configured minimum.
func (m *ConfigManager) Validate(cfg models.Configuration) error {
	if cfg.TicketPrice == nil || cfg.TicketPrice.Sign() <= 0 {
		return fmt.Errorf("%w: ticket price must be positive", ErrInvalidConfiguration)
	}
	if cfg.MaxParticipants < minParticipants {
		return fmt.Errorf("%w: max participants must be at least %d", ErrInvalidConfiguration, minParticipants)
	}
	if cfg.RoundDuration < m.minDuration || cfg.RoundDuration <= 0 {
		return fmt.Errorf("%w: round duration must be at least %s", ErrInvalidConfiguration, m.minDuration)
	}
	return nil
}

// Current returns a copy of the active parameters.
func (m *ConfigManager) Current() models.Configuration {
	return cloneConfig(m.cfg)
}

// Update validates cfg and makes it current.
func (m *ConfigManager) Update(cfg models.Configuration) error {
	if err := m.Validate(cfg); err != nil {
		return err
	}
	m.cfg = cloneConfig(cfg)
	return nil
}

func cloneConfig(cfg models.Configuration) models.Configuration {
	if cfg.TicketPrice != nil {
		cfg.TicketPrice = new(big.Int).Set(cfg.TicketPrice)
	}
	return cfg
}
