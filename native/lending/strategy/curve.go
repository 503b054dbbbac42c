package strategy

import (
	"math/big"

	"lendoracle/native/lending/wadray"
)

// CurveInput is the reserve state the rate curve is evaluated against. Debt
// totals are in token units, rates and utilization are rays.
type CurveInput struct {
	Utilization             *big.Int
	MarketStableRate        *big.Int
	TotalStableDebt         *big.Int
	TotalVariableDebt       *big.Int
	AverageStableBorrowRate *big.Int
}

// Rates is the triple produced by a single curve evaluation. The three values
// depend on each other through utilization and the overall borrow rate, so
// they are always computed together.
type Rates struct {
	Liquidity      *big.Int
	StableBorrow   *big.Int
	VariableBorrow *big.Int
}

// Utilization returns (stable+variable)/totalLiquidity as a ray, or zero when
// the reserve carries no debt.
func Utilization(totalStableDebt, totalVariableDebt, totalLiquidity *big.Int) *big.Int {
	debt := new(big.Int).Add(wadray.Clone(totalStableDebt), wadray.Clone(totalVariableDebt))
	if debt.Sign() == 0 {
		return new(big.Int)
	}
	if totalLiquidity == nil || totalLiquidity.Sign() == 0 {
		return new(big.Int)
	}
	return wadray.RayDiv(debt, totalLiquidity)
}

// Rates evaluates the curve.
func (p Params) Rates(in CurveInput) Rates {
	utilization := wadray.Clone(in.Utilization)
	optimal := wadray.Clone(p.OptimalUtilizationRate)

	var stable, variable *big.Int
	if optimal.Sign() == 0 || utilization.Cmp(optimal) > 0 {
		excessRatio := p.ExcessUtilizationRatio(utilization)
		stable, variable = p.aboveKink(in.MarketStableRate, excessRatio)
	} else {
		stable, variable = p.belowKink(in.MarketStableRate, utilization)
	}

	overall := OverallBorrowRate(in.TotalStableDebt, in.TotalVariableDebt, variable, in.AverageStableBorrowRate)
	liquidity := wadray.PercentMul(wadray.RayMul(overall, utilization), p.supplierShare())

	return Rates{
		Liquidity:      liquidity,
		StableBorrow:   stable,
		VariableBorrow: variable,
	}
}

// ExcessUtilizationRatio returns (U - optimal) / (RAY - optimal), zero when
// utilization has not passed the kink.
func (p Params) ExcessUtilizationRatio(utilization *big.Int) *big.Int {
	optimal := wadray.Clone(p.OptimalUtilizationRate)
	excess := new(big.Int).Sub(wadray.Clone(utilization), optimal)
	if excess.Sign() <= 0 {
		return new(big.Int)
	}
	span := new(big.Int).Sub(wadray.RAY, optimal)
	if span.Sign() <= 0 {
		return new(big.Int)
	}
	return wadray.RayDiv(excess, span)
}

func (p Params) belowKink(marketStableRate, utilization *big.Int) (*big.Int, *big.Int) {
	ratio := wadray.RayDiv(utilization, p.OptimalUtilizationRate)
	stable := new(big.Int).Add(wadray.Clone(marketStableRate), wadray.RayMul(p.StableRateSlope1, ratio))
	variable := new(big.Int).Add(wadray.Clone(p.BaseVariableBorrowRate), wadray.RayMul(ratio, p.VariableRateSlope1))
	return stable, variable
}

func (p Params) aboveKink(marketStableRate, excessRatio *big.Int) (*big.Int, *big.Int) {
	stable := new(big.Int).Add(wadray.Clone(marketStableRate), wadray.Clone(p.StableRateSlope1))
	stable.Add(stable, wadray.RayMul(p.StableRateSlope2, excessRatio))

	variable := new(big.Int).Add(wadray.Clone(p.BaseVariableBorrowRate), wadray.Clone(p.VariableRateSlope1))
	variable.Add(variable, wadray.RayMul(p.VariableRateSlope2, excessRatio))
	return stable, variable
}

func (p Params) supplierShare() *big.Int {
	share := new(big.Int).Sub(wadray.PercentageFactor, new(big.Int).SetUint64(p.ReserveFactor))
	if share.Sign() < 0 {
		return new(big.Int)
	}
	return share
}

// OverallBorrowRate is the debt weighted mean of the variable rate and the
// average stable rate. It is zero when nothing is borrowed.
func OverallBorrowRate(totalStableDebt, totalVariableDebt, variableRate, averageStableRate *big.Int) *big.Int {
	stableDebt := wadray.Clone(totalStableDebt)
	variableDebt := wadray.Clone(totalVariableDebt)
	total := new(big.Int).Add(stableDebt, variableDebt)
	if total.Sign() == 0 {
		return new(big.Int)
	}
	weightedVariable := wadray.RayMul(wadray.WadToRay(variableDebt), variableRate)
	weightedStable := wadray.RayMul(wadray.WadToRay(stableDebt), averageStableRate)
	return wadray.RayDiv(weightedVariable.Add(weightedVariable, weightedStable), wadray.WadToRay(total))
}

// AverageStableRate re-weights the pool's average stable rate after delta is
// added to (or, when negative, removed from) a stable debt total of
// totalBefore at the given rate. The result truncates toward zero and may be
// negative; it is zero when the resulting total is zero.
func AverageStableRate(averageBefore, totalBefore, delta, rate *big.Int) *big.Int {
	weightedTotal := new(big.Int).Mul(wadray.Clone(averageBefore), wadray.Clone(totalBefore))
	weightedDelta := new(big.Int).Mul(wadray.Clone(rate), wadray.Clone(delta))
	total := new(big.Int).Add(wadray.Clone(totalBefore), wadray.Clone(delta))
	if total.Sign() == 0 {
		return new(big.Int)
	}
	weightedTotal.Add(weightedTotal, weightedDelta)
	return weightedTotal.Quo(weightedTotal, total)
}

// UserStableRate is the personal stable rate of a borrower holding
// balanceBefore at rateBefore who adds amount at rateNew.
func UserStableRate(balanceBefore, rateBefore, amount, rateNew *big.Int) *big.Int {
	return AverageStableRate(rateBefore, balanceBefore, amount, rateNew)
}
