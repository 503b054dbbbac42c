package lending

import (
	"math/big"

	"lendoracle/native/lending/interest"
	"lendoracle/native/lending/strategy"
	"lendoracle/native/lending/wadray"
)

// Projector derives the reserve and user state that a single action should
// leave behind. It holds only the strategy parameters of the reserve it
// projects and never mutates its inputs, so one Projector may be shared
// across goroutines.
type Projector struct {
	params strategy.Params
}

// NewProjector constructs a projector for a reserve governed by params.
func NewProjector(params strategy.Params) *Projector {
	return &Projector{params: params.Clone()}
}

// Params returns a copy of the strategy parameters used by the projector.
func (p *Projector) Params() strategy.Params {
	if p == nil {
		return strategy.Params{}
	}
	return p.params.Clone()
}

// Project runs the reserve projection followed by the user projection.
func (p *Projector) Project(req Request, reserve *ReserveSnapshot, user *UserReserveData) (*ReserveSnapshot, *UserReserveData, error) {
	after, err := p.Reserve(req, reserve, user)
	if err != nil {
		return nil, nil, err
	}
	userAfter, err := p.User(req, reserve, after, user)
	if err != nil {
		return nil, nil, err
	}
	return after, userAfter, nil
}

// ExpectedLiquidityIndex rolls the liquidity index forward to ts with linear
// interest. An unutilised reserve earns nothing, so its index is unchanged.
func ExpectedLiquidityIndex(r *ReserveSnapshot, ts uint64) *big.Int {
	if isZero(r.UtilizationRate) {
		return wadray.Clone(r.LiquidityIndex)
	}
	factor := interest.Linear(r.LiquidityRate, r.LastUpdateTimestamp, ts)
	return wadray.RayMul(factor, r.LiquidityIndex)
}

// ExpectedVariableBorrowIndex rolls the variable borrow index forward to ts
// with compounded interest. The index is frozen while no variable debt exists.
func ExpectedVariableBorrowIndex(r *ReserveSnapshot, ts uint64) *big.Int {
	if isZero(r.TotalVariableDebt) {
		return wadray.Clone(r.VariableBorrowIndex)
	}
	factor := interest.Compounded(r.VariableBorrowRate, r.LastUpdateTimestamp, ts)
	return wadray.RayMul(factor, r.VariableBorrowIndex)
}

// ExpectedTotalStableDebt compounds the stable principal at the average
// stable rate between from and to. A pool that was never written (from == 0)
// has accrued nothing.
func ExpectedTotalStableDebt(principal, averageRate *big.Int, from, to uint64) *big.Int {
	return StableDebtBalance(principal, averageRate, from, to)
}

// NormalizedIncome is the liquidity index as observed at ts.
func NormalizedIncome(r *ReserveSnapshot, ts uint64) *big.Int {
	if isZero(r.LiquidityRate) {
		return wadray.Clone(r.LiquidityIndex)
	}
	factor := interest.Linear(r.LiquidityRate, r.LastUpdateTimestamp, ts)
	return wadray.RayMul(factor, r.LiquidityIndex)
}

// NormalizedDebt is a variable borrow index, last written at from, as
// observed at to.
func NormalizedDebt(rate, index *big.Int, from, to uint64) *big.Int {
	if isZero(rate) {
		return wadray.Clone(index)
	}
	factor := interest.Compounded(rate, from, to)
	return wadray.RayMul(factor, index)
}

// StableDebtBalance is a stable position compounded from its last update to
// ts. Positions without a rate or a start time carry no interest.
func StableDebtBalance(principal, rate *big.Int, lastUpdated, ts uint64) *big.Int {
	if isZero(rate) || lastUpdated == 0 || lastUpdated == ts {
		return wadray.Clone(principal)
	}
	return interest.Accrue(principal, interest.Compounded(rate, lastUpdated, ts))
}

// ATokenBalance is the user's supplied balance in reserve r at ts.
func ATokenBalance(r *ReserveSnapshot, u *UserReserveData, ts uint64) *big.Int {
	return wadray.RayMul(u.ScaledATokenBalance, NormalizedIncome(r, ts))
}

// VariableDebtBalance is the user's variable debt in reserve r at ts.
func VariableDebtBalance(r *ReserveSnapshot, u *UserReserveData, ts uint64) *big.Int {
	index := NormalizedDebt(r.VariableBorrowRate, r.VariableBorrowIndex, r.LastUpdateTimestamp, ts)
	return wadray.RayMul(u.ScaledVariableDebt, index)
}

func userStableDebt(u *UserReserveData, ts uint64) *big.Int {
	return StableDebtBalance(u.PrincipalStableDebt, u.StableBorrowRate, u.StableRateLastUpdated, ts)
}

// repayAmount resolves the amount a repay actually moves: the max sentinel
// selects the whole debt of the chosen mode and larger amounts are capped at
// the debt.
func repayAmount(req Request, reserve *ReserveSnapshot, user *UserReserveData) *big.Int {
	var owed *big.Int
	if req.RateMode == RateModeStable {
		owed = userStableDebt(user, req.TxTimestamp)
	} else {
		owed = VariableDebtBalance(reserve, user, req.TxTimestamp)
	}
	if wadray.IsMax(req.Amount) || req.Amount.Cmp(owed) > 0 {
		return owed
	}
	return wadray.Clone(req.Amount)
}

// withdrawAmount resolves the max sentinel to the user's full supplied
// balance and caps larger amounts at that balance.
func withdrawAmount(req Request, reserve *ReserveSnapshot, user *UserReserveData) *big.Int {
	balance := ATokenBalance(reserve, user, req.TxTimestamp)
	if wadray.IsMax(req.Amount) || req.Amount.Cmp(balance) > 0 {
		return balance
	}
	return wadray.Clone(req.Amount)
}

func emptyUser(user *UserReserveData) *UserReserveData {
	if user == nil {
		return (&UserReserveData{}).Clone()
	}
	return user.Clone()
}

func isZero(x *big.Int) bool {
	return x == nil || x.Sign() == 0
}

func add(a, b *big.Int) *big.Int {
	return new(big.Int).Add(wadray.Clone(a), wadray.Clone(b))
}

func sub(a, b *big.Int) *big.Int {
	return new(big.Int).Sub(wadray.Clone(a), wadray.Clone(b))
}
