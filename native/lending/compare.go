package lending

import (
	"fmt"
	"math/big"
	"strconv"

	"lendoracle/native/lending/wadray"
)

// Tolerance is the largest absolute difference, in base units, for which a
// projected value still matches an observed one.
const Tolerance = 2

var tolerance = big.NewInt(Tolerance)

// AlmostEqual reports whether |a-b| <= Tolerance. Nil is read as zero.
func AlmostEqual(a, b *big.Int) bool {
	diff := new(big.Int).Sub(wadray.Clone(a), wadray.Clone(b))
	return diff.Abs(diff).Cmp(tolerance) <= 0
}

// Mismatch describes one field whose observed value falls outside tolerance.
type Mismatch struct {
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: expected %s, got %s", m.Field, m.Expected, m.Actual)
}

type reserveField struct {
	name string
	get  func(*ReserveSnapshot) *big.Int
}

var reserveFields = []reserveField{
	{"availableLiquidity", func(r *ReserveSnapshot) *big.Int { return r.AvailableLiquidity }},
	{"totalLiquidity", func(r *ReserveSnapshot) *big.Int { return r.TotalLiquidity }},
	{"totalStableDebt", func(r *ReserveSnapshot) *big.Int { return r.TotalStableDebt }},
	{"principalStableDebt", func(r *ReserveSnapshot) *big.Int { return r.PrincipalStableDebt }},
	{"averageStableBorrowRate", func(r *ReserveSnapshot) *big.Int { return r.AverageStableBorrowRate }},
	{"scaledVariableDebt", func(r *ReserveSnapshot) *big.Int { return r.ScaledVariableDebt }},
	{"totalVariableDebt", func(r *ReserveSnapshot) *big.Int { return r.TotalVariableDebt }},
	{"liquidityIndex", func(r *ReserveSnapshot) *big.Int { return r.LiquidityIndex }},
	{"variableBorrowIndex", func(r *ReserveSnapshot) *big.Int { return r.VariableBorrowIndex }},
	{"liquidityRate", func(r *ReserveSnapshot) *big.Int { return r.LiquidityRate }},
	{"stableBorrowRate", func(r *ReserveSnapshot) *big.Int { return r.StableBorrowRate }},
	{"variableBorrowRate", func(r *ReserveSnapshot) *big.Int { return r.VariableBorrowRate }},
	{"utilizationRate", func(r *ReserveSnapshot) *big.Int { return r.UtilizationRate }},
}

type userField struct {
	name string
	get  func(*UserReserveData) *big.Int
}

var userFields = []userField{
	{"scaledATokenBalance", func(u *UserReserveData) *big.Int { return u.ScaledATokenBalance }},
	{"currentATokenBalance", func(u *UserReserveData) *big.Int { return u.CurrentATokenBalance }},
	{"principalStableDebt", func(u *UserReserveData) *big.Int { return u.PrincipalStableDebt }},
	{"currentStableDebt", func(u *UserReserveData) *big.Int { return u.CurrentStableDebt }},
	{"stableBorrowRate", func(u *UserReserveData) *big.Int { return u.StableBorrowRate }},
	{"scaledVariableDebt", func(u *UserReserveData) *big.Int { return u.ScaledVariableDebt }},
	{"currentVariableDebt", func(u *UserReserveData) *big.Int { return u.CurrentVariableDebt }},
	{"liquidityRate", func(u *UserReserveData) *big.Int { return u.LiquidityRate }},
	{"walletBalance", func(u *UserReserveData) *big.Int { return u.WalletBalance }},
}

// CompareReserve lists every field of actual that differs from expected by
// more than Tolerance. Timestamps must match exactly.
func CompareReserve(expected, actual *ReserveSnapshot) []Mismatch {
	if expected == nil || actual == nil {
		if expected == actual {
			return nil
		}
		return []Mismatch{{Field: "reserve", Expected: presence(expected != nil), Actual: presence(actual != nil)}}
	}
	var out []Mismatch
	for _, field := range reserveFields {
		want, got := field.get(expected), field.get(actual)
		if !AlmostEqual(want, got) {
			out = append(out, Mismatch{Field: field.name, Expected: wadray.Clone(want).String(), Actual: wadray.Clone(got).String()})
		}
	}
	out = appendTimestamp(out, "lastUpdateTimestamp", expected.LastUpdateTimestamp, actual.LastUpdateTimestamp)
	out = appendTimestamp(out, "totalStableDebtLastUpdated", expected.TotalStableDebtLastUpdated, actual.TotalStableDebtLastUpdated)
	return out
}

// CompareUser lists every field of actual that differs from expected by more
// than Tolerance. Timestamps and the collateral flag must match exactly.
func CompareUser(expected, actual *UserReserveData) []Mismatch {
	if expected == nil || actual == nil {
		if expected == actual {
			return nil
		}
		return []Mismatch{{Field: "user", Expected: presence(expected != nil), Actual: presence(actual != nil)}}
	}
	var out []Mismatch
	for _, field := range userFields {
		want, got := field.get(expected), field.get(actual)
		if !AlmostEqual(want, got) {
			out = append(out, Mismatch{Field: field.name, Expected: wadray.Clone(want).String(), Actual: wadray.Clone(got).String()})
		}
	}
	out = appendTimestamp(out, "stableRateLastUpdated", expected.StableRateLastUpdated, actual.StableRateLastUpdated)
	if expected.UsageAsCollateralEnabled != actual.UsageAsCollateralEnabled {
		out = append(out, Mismatch{
			Field:    "usageAsCollateralEnabled",
			Expected: strconv.FormatBool(expected.UsageAsCollateralEnabled),
			Actual:   strconv.FormatBool(actual.UsageAsCollateralEnabled),
		})
	}
	return out
}

func appendTimestamp(out []Mismatch, field string, expected, actual uint64) []Mismatch {
	if expected == actual {
		return out
	}
	return append(out, Mismatch{
		Field:    field,
		Expected: strconv.FormatUint(expected, 10),
		Actual:   strconv.FormatUint(actual, 10),
	})
}

func presence(ok bool) string {
	if ok {
		return "present"
	}
	return "missing"
}
