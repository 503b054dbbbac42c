package lending

import (
	"errors"
	"fmt"
	"math/big"

	"lendoracle/native/lending/strategy"
	"lendoracle/native/lending/wadray"
)

var errInvalidIndex = errors.New("lending projector: reserve indexes must be positive")

// Reserve projects the reserve snapshot an action leaves behind. user is the
// acting position before the action; it resolves max amounts and carries the
// personal stable rate for repay, swap and rebalance. A nil user is treated as
// an empty position.
func (p *Projector) Reserve(req Request, before *ReserveSnapshot, user *UserReserveData) (*ReserveSnapshot, error) {
	if before == nil {
		return nil, errNilReserve
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	if !positive(before.LiquidityIndex) || !positive(before.VariableBorrowIndex) {
		return nil, errInvalidIndex
	}
	prior := before.Clone()
	position := emptyUser(user)

	after := prior.Clone()
	after.LiquidityIndex = ExpectedLiquidityIndex(prior, req.TxTimestamp)
	after.VariableBorrowIndex = ExpectedVariableBorrowIndex(prior, req.TxTimestamp)
	after.LastUpdateTimestamp = req.TxTimestamp

	switch req.Action {
	case ActionDeposit:
		after.AvailableLiquidity = add(prior.AvailableLiquidity, req.Amount)
		p.settle(after, prior, req.TxTimestamp)
	case ActionWithdraw:
		amount := withdrawAmount(req, prior, position)
		after.AvailableLiquidity = sub(prior.AvailableLiquidity, amount)
		p.settle(after, prior, req.TxTimestamp)
	case ActionSetUseAsCollateral:
		p.settle(after, prior, req.TxTimestamp)
	case ActionBorrow:
		after.AvailableLiquidity = sub(prior.AvailableLiquidity, req.Amount)
		projection := p.borrow(req, prior, after)
		projection.merge(after)
		after.TotalLiquidity = totalLiquidity(after)
		after.UtilizationRate = strategy.Utilization(after.TotalStableDebt, after.TotalVariableDebt, after.TotalLiquidity)
	case ActionRepay:
		p.repay(req, prior, position, after)
	case ActionSwapRateMode:
		p.swap(req, prior, position, after)
	case ActionRebalanceStableRate:
		p.rebalance(req, prior, position, after)
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupportedAction, req.Action)
	}
	return after, nil
}

// settle recomputes the debt totals at ts for actions that leave the debt
// principals untouched, then refreshes totals and rates.
func (p *Projector) settle(after, prior *ReserveSnapshot, ts uint64) {
	after.TotalStableDebt = ExpectedTotalStableDebt(prior.PrincipalStableDebt, prior.AverageStableBorrowRate, prior.TotalStableDebtLastUpdated, ts)
	after.TotalVariableDebt = wadray.RayMul(prior.ScaledVariableDebt, after.VariableBorrowIndex)
	p.refresh(after)
}

// refresh derives total liquidity, utilization and the rate triple from the
// balances already written to r.
func (p *Projector) refresh(r *ReserveSnapshot) {
	r.TotalLiquidity = totalLiquidity(r)
	r.UtilizationRate = strategy.Utilization(r.TotalStableDebt, r.TotalVariableDebt, r.TotalLiquidity)
	p.applyRates(r, p.params.Rates(strategy.CurveInput{
		Utilization:             r.UtilizationRate,
		MarketStableRate:        r.MarketStableRate,
		TotalStableDebt:         r.TotalStableDebt,
		TotalVariableDebt:       r.TotalVariableDebt,
		AverageStableBorrowRate: r.AverageStableBorrowRate,
	}))
}

func (p *Projector) applyRates(r *ReserveSnapshot, rates strategy.Rates) {
	r.LiquidityRate = rates.Liquidity
	r.StableBorrowRate = rates.StableBorrow
	r.VariableBorrowRate = rates.VariableBorrow
}

// BorrowProjection is the mode specific part of a borrow. Stable and variable
// borrows touch disjoint fields; each variant writes only its own.
type BorrowProjection interface {
	merge(r *ReserveSnapshot)
}

// StableBorrow is the effect of a stable rate borrow.
type StableBorrow struct {
	PrincipalStableDebt     *big.Int
	AverageStableBorrowRate *big.Int
	TotalStableDebt         *big.Int
	TotalVariableDebt       *big.Int
	StableDebtLastUpdated   uint64
	Rates                   strategy.Rates
}

func (b StableBorrow) merge(r *ReserveSnapshot) {
	r.PrincipalStableDebt = b.PrincipalStableDebt
	r.AverageStableBorrowRate = b.AverageStableBorrowRate
	r.TotalStableDebt = b.TotalStableDebt
	r.TotalVariableDebt = b.TotalVariableDebt
	r.TotalStableDebtLastUpdated = b.StableDebtLastUpdated
	r.LiquidityRate = b.Rates.Liquidity
	r.StableBorrowRate = b.Rates.StableBorrow
	r.VariableBorrowRate = b.Rates.VariableBorrow
}

// VariableBorrow is the effect of a variable rate borrow.
type VariableBorrow struct {
	ScaledVariableDebt *big.Int
	TotalStableDebt    *big.Int
	TotalVariableDebt  *big.Int
	Rates              strategy.Rates
}

func (b VariableBorrow) merge(r *ReserveSnapshot) {
	r.ScaledVariableDebt = b.ScaledVariableDebt
	r.TotalStableDebt = b.TotalStableDebt
	r.TotalVariableDebt = b.TotalVariableDebt
	r.LiquidityRate = b.Rates.Liquidity
	r.StableBorrowRate = b.Rates.StableBorrow
	r.VariableBorrowRate = b.Rates.VariableBorrow
}

// borrow prices the new debt at the transaction timestamp and reports the
// debt totals accrued to the observation timestamp under the new rates.
// after already carries the new indexes and available liquidity.
func (p *Projector) borrow(req Request, prior, after *ReserveSnapshot) BorrowProjection {
	tx, now := req.TxTimestamp, req.currentTimestamp()
	if req.RateMode == RateModeStable {
		stableUntilTx := ExpectedTotalStableDebt(prior.PrincipalStableDebt, prior.AverageStableBorrowRate, prior.TotalStableDebtLastUpdated, tx)
		principal := add(stableUntilTx, req.Amount)
		average := strategy.AverageStableRate(prior.AverageStableBorrowRate, stableUntilTx, req.Amount, prior.StableBorrowRate)
		variableAtTx := wadray.RayMul(prior.ScaledVariableDebt, after.VariableBorrowIndex)

		rates := p.ratesAt(after.AvailableLiquidity, principal, variableAtTx, average, prior.MarketStableRate)
		index := NormalizedDebt(rates.VariableBorrow, after.VariableBorrowIndex, tx, now)
		return StableBorrow{
			PrincipalStableDebt:     principal,
			AverageStableBorrowRate: average,
			TotalStableDebt:         ExpectedTotalStableDebt(principal, average, tx, now),
			TotalVariableDebt:       wadray.RayMul(prior.ScaledVariableDebt, index),
			StableDebtLastUpdated:   tx,
			Rates:                   rates,
		}
	}

	stableAtTx := ExpectedTotalStableDebt(prior.PrincipalStableDebt, prior.AverageStableBorrowRate, prior.TotalStableDebtLastUpdated, tx)
	scaled := add(prior.ScaledVariableDebt, wadray.RayDiv(req.Amount, after.VariableBorrowIndex))
	variableAtTx := wadray.RayMul(scaled, after.VariableBorrowIndex)

	rates := p.ratesAt(after.AvailableLiquidity, stableAtTx, variableAtTx, prior.AverageStableBorrowRate, prior.MarketStableRate)
	index := NormalizedDebt(rates.VariableBorrow, after.VariableBorrowIndex, tx, now)
	return VariableBorrow{
		ScaledVariableDebt: scaled,
		TotalStableDebt:    ExpectedTotalStableDebt(prior.PrincipalStableDebt, prior.AverageStableBorrowRate, prior.TotalStableDebtLastUpdated, now),
		TotalVariableDebt:  wadray.RayMul(scaled, index),
		Rates:              rates,
	}
}

// ratesAt evaluates the curve for the given balances.
func (p *Projector) ratesAt(available, stableDebt, variableDebt, averageStableRate, marketStableRate *big.Int) strategy.Rates {
	total := add(add(available, stableDebt), variableDebt)
	return p.params.Rates(strategy.CurveInput{
		Utilization:             strategy.Utilization(stableDebt, variableDebt, total),
		MarketStableRate:        marketStableRate,
		TotalStableDebt:         stableDebt,
		TotalVariableDebt:       variableDebt,
		AverageStableBorrowRate: averageStableRate,
	})
}

func (p *Projector) repay(req Request, prior *ReserveSnapshot, user *UserReserveData, after *ReserveSnapshot) {
	tx := req.TxTimestamp
	amount := repayAmount(req, prior, user)
	after.AvailableLiquidity = add(prior.AvailableLiquidity, amount)

	if req.RateMode == RateModeStable {
		expected := ExpectedTotalStableDebt(prior.PrincipalStableDebt, prior.AverageStableBorrowRate, prior.TotalStableDebtLastUpdated, tx)
		remaining := sub(expected, amount)
		average := new(big.Int)
		if remaining.Sign() > 0 {
			average = strategy.AverageStableRate(prior.AverageStableBorrowRate, expected, new(big.Int).Neg(amount), user.StableBorrowRate)
		}
		if remaining.Sign() <= 0 || average.Sign() < 0 {
			remaining, average = new(big.Int), new(big.Int)
		}
		after.PrincipalStableDebt = remaining
		after.TotalStableDebt = wadray.Clone(remaining)
		after.AverageStableBorrowRate = average
		after.TotalStableDebtLastUpdated = tx
		after.TotalVariableDebt = wadray.RayMul(prior.ScaledVariableDebt, after.VariableBorrowIndex)
	} else {
		scaled := sub(prior.ScaledVariableDebt, wadray.RayDiv(amount, after.VariableBorrowIndex))
		if scaled.Sign() < 0 {
			scaled = new(big.Int)
		}
		after.ScaledVariableDebt = scaled
		after.TotalVariableDebt = wadray.RayMul(scaled, after.VariableBorrowIndex)
		after.TotalStableDebt = ExpectedTotalStableDebt(prior.PrincipalStableDebt, prior.AverageStableBorrowRate, prior.TotalStableDebtLastUpdated, tx)
	}
	p.refresh(after)
}

// swap moves the user's whole debt out of req.RateMode into the other mode.
func (p *Projector) swap(req Request, prior *ReserveSnapshot, user *UserReserveData, after *ReserveSnapshot) {
	tx := req.TxTimestamp
	stableUntilTx := ExpectedTotalStableDebt(prior.PrincipalStableDebt, prior.AverageStableBorrowRate, prior.TotalStableDebtLastUpdated, tx)

	var principal, average, scaled *big.Int
	if req.RateMode == RateModeStable {
		moved := userStableDebt(user, tx)
		principal = sub(stableUntilTx, moved)
		average = strategy.AverageStableRate(prior.AverageStableBorrowRate, stableUntilTx, new(big.Int).Neg(moved), user.StableBorrowRate)
		scaled = add(prior.ScaledVariableDebt, wadray.RayDiv(moved, after.VariableBorrowIndex))
	} else {
		moved := VariableDebtBalance(prior, user, tx)
		principal = add(stableUntilTx, moved)
		average = strategy.AverageStableRate(prior.AverageStableBorrowRate, stableUntilTx, moved, prior.StableBorrowRate)
		scaled = sub(prior.ScaledVariableDebt, wadray.RayDiv(moved, after.VariableBorrowIndex))
		if scaled.Sign() < 0 {
			scaled = new(big.Int)
		}
	}
	if principal.Sign() <= 0 || average.Sign() < 0 {
		principal, average = new(big.Int), new(big.Int)
	}
	after.PrincipalStableDebt = principal
	after.TotalStableDebt = wadray.Clone(principal)
	after.AverageStableBorrowRate = average
	after.TotalStableDebtLastUpdated = tx
	after.ScaledVariableDebt = scaled
	after.TotalVariableDebt = wadray.RayMul(scaled, after.VariableBorrowIndex)
	p.refresh(after)
}

// rebalance re-prices the user's stable debt at the reserve's current stable
// rate: the debt leaves the average at its old rate and re-enters at the new.
func (p *Projector) rebalance(req Request, prior *ReserveSnapshot, user *UserReserveData, after *ReserveSnapshot) {
	tx := req.TxTimestamp
	total := ExpectedTotalStableDebt(prior.PrincipalStableDebt, prior.AverageStableBorrowRate, prior.TotalStableDebtLastUpdated, tx)
	debt := userStableDebt(user, tx)

	withoutUser := strategy.AverageStableRate(prior.AverageStableBorrowRate, total, new(big.Int).Neg(debt), user.StableBorrowRate)
	average := strategy.AverageStableRate(withoutUser, sub(total, debt), debt, prior.StableBorrowRate)
	if average.Sign() < 0 {
		average = new(big.Int)
	}

	after.PrincipalStableDebt = total
	after.TotalStableDebt = wadray.Clone(total)
	after.AverageStableBorrowRate = average
	after.TotalStableDebtLastUpdated = tx
	after.TotalVariableDebt = wadray.RayMul(prior.ScaledVariableDebt, after.VariableBorrowIndex)
	p.refresh(after)
}

func totalLiquidity(r *ReserveSnapshot) *big.Int {
	return add(add(r.AvailableLiquidity, r.TotalStableDebt), r.TotalVariableDebt)
}

func positive(x *big.Int) bool {
	return x != nil && x.Sign() > 0
}
