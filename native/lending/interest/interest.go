// Package interest implements the time-based growth factors applied to lending
// indexes. Both functions return a ray multiplier and take annualised ray rates.
package interest

import (
	"math/big"

	"lendoracle/native/lending/wadray"
)

// SecondsPerYear is the fixed 365 day year used to annualise rates.
const SecondsPerYear = 31_536_000

var (
	secondsPerYear = big.NewInt(SecondsPerYear)
	two            = big.NewInt(2)
	six            = big.NewInt(6)
)

// Elapsed returns to-from, or zero when to does not lie after from.
func Elapsed(from, to uint64) uint64 {
	if to <= from {
		return 0
	}
	return to - from
}

// Linear returns RAY + rate*(to-from)/SecondsPerYear. Supplier balances grow
// by this simple-interest factor between two index updates.
func Linear(rate *big.Int, from, to uint64) *big.Int {
	dt := Elapsed(from, to)
	if dt == 0 || rate == nil || rate.Sign() == 0 {
		return new(big.Int).Set(wadray.RAY)
	}
	accrued := new(big.Int).Mul(rate, new(big.Int).SetUint64(dt))
	accrued.Quo(accrued, secondsPerYear)
	return accrued.Add(accrued, wadray.RAY)
}

// Compounded approximates (1 + rate/SecondsPerYear)^(to-from) with the first
// three terms of the binomial expansion.
func Compounded(rate *big.Int, from, to uint64) *big.Int {
	dt := Elapsed(from, to)
	if dt == 0 || rate == nil || rate.Sign() == 0 {
		return new(big.Int).Set(wadray.RAY)
	}

	exp := new(big.Int).SetUint64(dt)
	expMinusOne := new(big.Int).SetUint64(dt - 1)
	expMinusTwo := new(big.Int)
	if dt > 2 {
		expMinusTwo.SetUint64(dt - 2)
	}

	ratePerSecond := new(big.Int).Quo(rate, secondsPerYear)
	basePowerTwo := wadray.RayMul(ratePerSecond, ratePerSecond)
	basePowerThree := wadray.RayMul(basePowerTwo, ratePerSecond)

	secondTerm := new(big.Int).Mul(exp, expMinusOne)
	secondTerm.Mul(secondTerm, basePowerTwo)
	secondTerm.Quo(secondTerm, two)

	thirdTerm := new(big.Int).Mul(exp, expMinusOne)
	thirdTerm.Mul(thirdTerm, expMinusTwo)
	thirdTerm.Mul(thirdTerm, basePowerThree)
	thirdTerm.Quo(thirdTerm, six)

	out := new(big.Int).Mul(ratePerSecond, exp)
	out.Add(out, wadray.RAY)
	out.Add(out, secondTerm)
	return out.Add(out, thirdTerm)
}

// Accrue applies a ray growth factor to an amount.
func Accrue(amount, factor *big.Int) *big.Int {
	return wadray.RayMul(amount, factor)
}
