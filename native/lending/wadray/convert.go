package wadray

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const (
	// RayDecimals is the number of decimal places carried by a ray.
	RayDecimals int32 = 27
	// WadDecimals is the number of decimal places carried by a wad.
	WadDecimals int32 = 18
)

var (
	errUint256Overflow = errors.New("wadray: value does not fit in 256 bits")
	errNegative        = errors.New("wadray: negative value")
	errPrecision       = errors.New("wadray: value exceeds the target precision")
)

// MaxUint256 is the "entire balance" sentinel accepted by withdraw and repay.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Max returns a fresh copy of the MaxUint256 sentinel.
func Max() *big.Int { return new(big.Int).Set(MaxUint256) }

// IsMax reports whether x equals the MaxUint256 sentinel, ignoring sign.
func IsMax(x *big.Int) bool {
	if x == nil {
		return false
	}
	return new(big.Int).Abs(x).Cmp(MaxUint256) == 0
}

// FromUint256 converts an on-chain word into a big integer.
func FromUint256(x *uint256.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return x.ToBig()
}

// ParseWord parses a base-10 on-chain word. Unlike ParseAmount it has no
// sentinel spellings: negative, non-numeric and over-wide values are errors.
func ParseWord(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return new(big.Int), nil
	}
	word, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("wadray: invalid word %q: %w", value, err)
	}
	return FromUint256(word), nil
}

// ToUint256 converts x into an on-chain word. Negative values and values wider
// than 256 bits are rejected.
func ToUint256(x *big.Int) (*uint256.Int, error) {
	if x == nil {
		return new(uint256.Int), nil
	}
	if x.Sign() < 0 {
		return nil, errNegative
	}
	word, overflow := uint256.FromBig(x)
	if overflow {
		return nil, errUint256Overflow
	}
	return word, nil
}

// Format renders a fixed-point integer with the given number of decimals,
// trimming trailing zeros. Format(2e25, RayDecimals) == "0.02".
func Format(x *big.Int, decimals int32) string {
	return decimal.NewFromBigInt(Clone(x), -decimals).String()
}

// ParseDecimal converts a human-readable decimal ("0.04", "1e-2", "125") into a
// fixed-point integer with the given number of decimals.
func ParseDecimal(value string, decimals int32) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return new(big.Int), nil
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("wadray: parse %q: %w", value, err)
	}
	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: %q with %d decimals", errPrecision, value, decimals)
	}
	return scaled.BigInt(), nil
}

// ParseAmount parses a raw integer amount. "max" and "all" select the
// MaxUint256 sentinel.
func ParseAmount(value string) (*big.Int, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	switch trimmed {
	case "":
		return new(big.Int), nil
	case "max", "all", "-1":
		return Max(), nil
	}
	v, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("wadray: invalid amount %q", value)
	}
	return v, nil
}
