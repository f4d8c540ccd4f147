// Package bet validates and builds the transaction requests a wallet signs
// for betting on and resolving markets.
package bet

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/liamashdown/suimarket/internal/market"
)

// Move call target of the prediction market package
const (
	Module           = "market"
	PlaceBetFunction = "place_bet"
)

var (
	ErrInvalidStake         = errors.New("stake must be a non-negative whole number of MIST")
	ErrOutcomeOutOfRange    = errors.New("outcome index out of range")
	ErrMarketResolved       = errors.New("market is already resolved")
	ErrMissingMarketAddress = errors.New("market has no on-chain address")
	ErrInvalidPackage       = errors.New("package id must be a 0x-prefixed object id")
)

var objectIDPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}$`)

// Intent is a validated bet, ready for a wallet to turn into a transaction:
// split Stake MIST from the gas coin, then call Package::market::place_bet(Market, coin, Outcome).
type Intent struct {
	Package     string
	Module      string
	Function    string
	Market      string
	MarketID    int64
	Stake       uint64 // MIST
	Outcome     uint8
	OutcomeName string
}

// Target returns the fully qualified Move function
func (i *Intent) Target() string {
	return fmt.Sprintf("%s::%s::%s", i.Package, i.Module, i.Function)
}

// Build validates a bet on a market and returns the intent.
// It performs no I/O; every failure wraps one of the Err* sentinels.
func Build(packageID string, c market.Contract, outcome int, stakeText string) (*Intent, error) {
	stake, err := ParseStake(stakeText)
	if err != nil {
		return nil, err
	}

	options := market.ParseOptions(c.Options)
	if outcome < 0 || outcome >= len(options) || outcome > math.MaxUint8 {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrOutcomeOutOfRange, outcome, len(options))
	}
	if c.Resolved {
		return nil, fmt.Errorf("%w: market %d", ErrMarketResolved, c.ID)
	}
	if err := ValidateObjectID(c.Address); err != nil {
		return nil, fmt.Errorf("%w: market %d", ErrMissingMarketAddress, c.ID)
	}
	if err := ValidateObjectID(packageID); err != nil {
		return nil, err
	}

	return &Intent{
		Package:     packageID,
		Module:      Module,
		Function:    PlaceBetFunction,
		Market:      c.Address,
		MarketID:    c.ID,
		Stake:       stake,
		Outcome:     uint8(outcome),
		OutcomeName: options[outcome],
	}, nil
}

// ParseStake parses a stake typed by the user as whole MIST.
func ParseStake(text string) (uint64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidStake)
	}
	stake, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStake, text)
	}
	return stake, nil
}

// ValidateObjectID checks a Sui object id or address
func ValidateObjectID(id string) error {
	if !objectIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidPackage, id)
	}
	return nil
}

// Resolution is a validated oracle resolution request
type Resolution struct {
	MarketID   int64
	Market     string
	Winner     int
	WinnerName string
}

// BuildResolve validates an oracle resolution of market c in favour of winner.
func BuildResolve(c market.Contract, winner int) (*Resolution, error) {
	if c.Resolved {
		return nil, fmt.Errorf("%w: market %d", ErrMarketResolved, c.ID)
	}
	options := market.ParseOptions(c.Options)
	if winner < 0 || winner >= len(options) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrOutcomeOutOfRange, winner, len(options))
	}
	if !objectIDPattern.MatchString(c.Address) {
		return nil, fmt.Errorf("%w: market %d", ErrMissingMarketAddress, c.ID)
	}
	return &Resolution{
		MarketID:   c.ID,
		Market:     c.Address,
		Winner:     winner,
		WinnerName: options[winner],
	}, nil
}

// BuildCancel validates a cancellation of market c and returns its on-chain address
func BuildCancel(c market.Contract) (string, error) {
	if c.Resolved {
		return "", fmt.Errorf("%w: market %d", ErrMarketResolved, c.ID)
	}
	if !objectIDPattern.MatchString(c.Address) {
		return "", fmt.Errorf("%w: market %d", ErrMissingMarketAddress, c.ID)
	}
	return c.Address, nil
}
