// Package strategy models the two-slope interest rate strategy attached to each
// lending reserve and the bookkeeping rates derived from it.
package strategy

import (
	"errors"
	"fmt"
	"math/big"

	"lendoracle/native/lending/wadray"
)

var (
	errOptimalUtilization = errors.New("strategy: optimal utilization must be within (0, 1]")
	errReserveFactor      = errors.New("strategy: reserve factor exceeds 10000 bps")
	errNegativeParam      = errors.New("strategy: rate parameters must not be negative")
)

// Params captures the static interest rate configuration of a reserve. Every
// rate is an annualised ray.
type Params struct {
	// OptimalUtilizationRate is the kink of the curve.
	OptimalUtilizationRate *big.Int
	// BaseVariableBorrowRate is the variable rate at zero utilization.
	BaseVariableBorrowRate *big.Int
	// VariableRateSlope1 is the variable rate added between zero and the kink.
	VariableRateSlope1 *big.Int
	// VariableRateSlope2 is the variable rate added between the kink and full
	// utilization.
	VariableRateSlope2 *big.Int
	// StableRateSlope1 is the stable rate added between zero and the kink.
	StableRateSlope1 *big.Int
	// StableRateSlope2 is the stable rate added above the kink.
	StableRateSlope2 *big.Int
	// ReserveFactor is the share of borrow interest kept by the protocol,
	// expressed in basis points.
	ReserveFactor uint64
}

// Clone returns a deep copy of the parameters.
func (p Params) Clone() Params {
	return Params{
		OptimalUtilizationRate: wadray.Clone(p.OptimalUtilizationRate),
		BaseVariableBorrowRate: wadray.Clone(p.BaseVariableBorrowRate),
		VariableRateSlope1:     wadray.Clone(p.VariableRateSlope1),
		VariableRateSlope2:     wadray.Clone(p.VariableRateSlope2),
		StableRateSlope1:       wadray.Clone(p.StableRateSlope1),
		StableRateSlope2:       wadray.Clone(p.StableRateSlope2),
		ReserveFactor:          p.ReserveFactor,
	}
}

// Validate checks that the curve is well formed.
func (p Params) Validate() error {
	opt := p.OptimalUtilizationRate
	if opt == nil || opt.Sign() <= 0 || opt.Cmp(wadray.RAY) > 0 {
		return errOptimalUtilization
	}
	for _, v := range []*big.Int{
		p.BaseVariableBorrowRate,
		p.VariableRateSlope1,
		p.VariableRateSlope2,
		p.StableRateSlope1,
		p.StableRateSlope2,
	} {
		if v != nil && v.Sign() < 0 {
			return errNegativeParam
		}
	}
	if p.ReserveFactor > wadray.PercentageFactor.Uint64() {
		return fmt.Errorf("%w: %d", errReserveFactor, p.ReserveFactor)
	}
	return nil
}

func percentRay(pct int64) *big.Int {
	v := new(big.Int).Mul(wadray.RAY, big.NewInt(pct))
	return v.Quo(v, big.NewInt(100))
}

// DefaultParams is the curve used for most stablecoin reserves: kink at 80%,
// 4%/75% variable slopes and 2%/75% stable slopes.
func DefaultParams() Params {
	return Params{
		OptimalUtilizationRate: percentRay(80),
		BaseVariableBorrowRate: big.NewInt(0),
		VariableRateSlope1:     percentRay(4),
		VariableRateSlope2:     percentRay(75),
		StableRateSlope1:       percentRay(2),
		StableRateSlope2:       percentRay(75),
		ReserveFactor:          1_000,
	}
}

// StablecoinParams is a flatter curve with a 90% kink for deep stablecoin
// markets.
func StablecoinParams() Params {
	return Params{
		OptimalUtilizationRate: percentRay(90),
		BaseVariableBorrowRate: big.NewInt(0),
		VariableRateSlope1:     percentRay(4),
		VariableRateSlope2:     percentRay(60),
		StableRateSlope1:       percentRay(2),
		StableRateSlope2:       percentRay(60),
		ReserveFactor:          1_000,
	}
}

// VolatileParams prices volatile collateral assets with a 65% kink and steep
// second slopes.
func VolatileParams() Params {
	return Params{
		OptimalUtilizationRate: percentRay(65),
		BaseVariableBorrowRate: big.NewInt(0),
		VariableRateSlope1:     percentRay(8),
		VariableRateSlope2:     percentRay(100),
		StableRateSlope1:       percentRay(10),
		StableRateSlope2:       percentRay(100),
		ReserveFactor:          2_000,
	}
}

// Preset resolves a named preset.
func Preset(name string) (Params, bool) {
	switch name {
	case "default":
		return DefaultParams(), true
	case "stablecoin":
		return StablecoinParams(), true
	case "volatile":
		return VolatileParams(), true
	}
	return Params{}, false
}
