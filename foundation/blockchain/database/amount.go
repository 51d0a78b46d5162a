package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// CoinDecimals is the number of fractional digits in one coin.
const CoinDecimals = 8

// unitsPerCoin is the number of base units in one coin.
var unitsPerCoin = uint256.NewInt(100_000_000)

// ErrInvalidAmount is returned when a coin value can't be parsed.
var ErrInvalidAmount = errors.New("invalid amount")

// Amount is a non-negative quantity of base units. It marshals to JSON as
// a decimal string so values above 2^53 survive the round trip.
type Amount struct {
	v uint256.Int
}

// NewAmount constructs an amount of base units.
func NewAmount(units uint64) Amount {
	var a Amount
	a.v.SetUint64(units)
	return a
}

// ParseCoins parses a decimal coin value such as "1.5" into base units.
// More than eight fractional digits is rejected.
func ParseCoins(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > CoinDecimals {
		return Amount{}, fmt.Errorf("%w: more than %d decimals: %q", ErrInvalidAmount, CoinDecimals, s)
	}
	frac += strings.Repeat("0", CoinDecimals-len(frac))

	digits := strings.TrimLeft(whole+frac, "0")
	if digits == "" {
		digits = "0"
	}

	v, err := uint256.FromDecimal(digits)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q: %s", ErrInvalidAmount, s, err)
	}

	return Amount{v: *v}, nil
}

// Add returns a + b. The bool is false on overflow.
func (a Amount) Add(b Amount) (Amount, bool) {
	var r Amount
	_, overflow := r.v.AddOverflow(&a.v, &b.v)
	return r, !overflow
}

// Sub returns a - b. The bool is false when b is larger than a.
func (a Amount) Sub(b Amount) (Amount, bool) {
	var r Amount
	_, underflow := r.v.SubOverflow(&a.v, &b.v)
	return r, !underflow
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

// Float64 returns the base units as a float for ranking purposes.
func (a Amount) Float64() float64 {
	f, _ := new(big.Float).SetInt(a.v.ToBig()).Float64()
	return f
}

// String returns the base units in decimal.
func (a Amount) String() string {
	return a.v.Dec()
}

// Coins renders the amount as coins with exactly eight fractional digits.
func (a Amount) Coins() string {
	var whole, frac uint256.Int
	whole.DivMod(&a.v, unitsPerCoin, &frac)

	return fmt.Sprintf("%s.%08d", whole.Dec(), frac.Uint64())
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.v.Dec())
}

// UnmarshalJSON implements json.Unmarshaler. Both quoted and bare
// decimal integers are accepted.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		a.v.Clear()
		return nil
	}

	v, err := uint256.FromDecimal(s)
	if err != nil {
		return fmt.Errorf("%w: %q: %s", ErrInvalidAmount, s, err)
	}
	a.v = *v

	return nil
}
