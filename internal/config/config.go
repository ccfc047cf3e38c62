// Package config loads deployment settings from the environment, an optional
// .env file and an optional TOML deployment file.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/theotime2005/blocklucky/internal/models"
)

const (
	envAddr           = "BLOCKLUCKY_ADDR"
	envOwner          = "BLOCKLUCKY_OWNER"
	envDB             = "BLOCKLUCKY_DB"
	envDeploy         = "BLOCKLUCKY_DEPLOY"
	envKeeperInterval = "BLOCKLUCKY_KEEPER_INTERVAL"
	envDev            = "BLOCKLUCKY_DEV"
)

// Config is the resolved server configuration.
type Config struct {
	Addr           string
	Owner          common.Address
	DBPath         string
	KeeperInterval time.Duration
	DevMode        bool
	Lottery        Lottery
}

// Lottery holds the deployment parameters. Zero values mean "use the
// contract default".
type Lottery struct {
	TicketPrice      *big.Int
	MaxParticipants  uint64
	RoundDuration    time.Duration
	RevealWindow     time.Duration
	MinRoundDuration time.Duration
	ManualReset      bool
}

type deployFile struct {
	Lottery struct {
		TicketPrice      string   `toml:"ticket_price"`
		MaxParticipants  uint64   `toml:"max_participants"`
		RoundDuration    duration `toml:"round_duration"`
		RevealWindow     duration `toml:"reveal_window"`
		MinRoundDuration duration `toml:"min_round_duration"`
		ManualReset      bool     `toml:"manual_reset"`
	} `toml:"lottery"`
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Load reads .env (if present) and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{Addr: ":8080"}
	if v := getenv(envAddr); v != "" {
		cfg.Addr = v
	}

	owner := getenv(envOwner)
	if owner == "" {
		return nil, errors.New(envOwner + " must be set")
	}
	if !common.IsHexAddress(owner) {
		return nil, fmt.Errorf("%s is not a valid address: %q", envOwner, owner)
	}
	cfg.Owner = common.HexToAddress(owner)
	cfg.DBPath = getenv(envDB)

	if v := getenv(envKeeperInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", envKeeperInterval, err)
		}
		cfg.KeeperInterval = d
	}
	if v := getenv(envDev); v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", envDev, err)
		}
		cfg.DevMode = dev
	}

	if path := getenv(envDeploy); path != "" {
		l, err := LoadDeployFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Lottery = *l
	}
	return cfg, nil
}

// LoadDeployFile parses a TOML deployment file.
func LoadDeployFile(path string) (*Lottery, error) {
	var f deployFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("reading deployment file %s: %w", path, err)
	}
	return f.lottery()
}

// ParseDeploy parses TOML deployment settings from a string.
func ParseDeploy(data string) (*Lottery, error) {
	var f deployFile
	if _, err := toml.Decode(data, &f); err != nil {
		return nil, fmt.Errorf("parsing deployment settings: %w", err)
	}
	return f.lottery()
}

func (f *deployFile) lottery() (*Lottery, error) {
	l := &Lottery{
		MaxParticipants:  f.Lottery.MaxParticipants,
		RoundDuration:    f.Lottery.RoundDuration.Duration,
		RevealWindow:     f.Lottery.RevealWindow.Duration,
		MinRoundDuration: f.Lottery.MinRoundDuration.Duration,
		ManualReset:      f.Lottery.ManualReset,
	}
	if f.Lottery.TicketPrice != "" {
		price, err := models.ParseEther(f.Lottery.TicketPrice)
		if err != nil {
			return nil, fmt.Errorf("ticket_price: %w", err)
		}
		l.TicketPrice = price
	}
	return l, nil
}
