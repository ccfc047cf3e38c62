package models

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

var errInvalidAmount = errors.New("invalid ether amount")

var weiPerEther = big.NewInt(params.Ether)

// ParseEther converts a decimal ether string such as "0.1" into wei.
// Amounts that are negative or finer than one wei are rejected.
func ParseEther(s string) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return nil, fmt.Errorf("%w: %q", errInvalidAmount, s)
	}
	if r.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q is negative", errInvalidAmount, s)
	}
	r.Mul(r, new(big.Rat).SetInt(weiPerEther))
	if !r.IsInt() {
		return nil, fmt.Errorf("%w: %q has more than 18 decimals", errInvalidAmount, s)
	}
	return new(big.Int).Set(r.Num()), nil
}

// MustParseEther is ParseEther for constants; it panics on malformed input.
func MustParseEther(s string) *big.Int {
	v, err := ParseEther(s)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseWei parses a base-10 wei amount.
func ParseWei(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", errInvalidAmount, s)
	}
	return v, nil
}

// FormatEther renders wei as a trimmed decimal ether string.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	r := new(big.Rat).SetFrac(wei, weiPerEther)
	out := strings.TrimRight(r.FloatString(18), "0")
	return strings.TrimSuffix(out, ".")
}
