package lending

import (
	"fmt"
	"math/big"

	"lendoracle/native/lending/strategy"
	"lendoracle/native/lending/wadray"
)

// User projects the position of the beneficiary of req. reserveBefore is the
// reserve snapshot the action was applied to and reserveAfter the snapshot
// Reserve derived from it. Balances are reported at the request's observation
// timestamp.
func (p *Projector) User(req Request, reserveBefore, reserveAfter *ReserveSnapshot, before *UserReserveData) (*UserReserveData, error) {
	if reserveBefore == nil {
		return nil, errNilReserve
	}
	if reserveAfter == nil {
		return nil, errNilProjected
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	if !positive(reserveAfter.LiquidityIndex) || !positive(reserveAfter.VariableBorrowIndex) {
		return nil, errInvalidIndex
	}
	prior := emptyUser(before)
	tx, now := req.TxTimestamp, req.currentTimestamp()

	out := prior.Clone()
	out.LiquidityRate = wadray.Clone(reserveAfter.LiquidityRate)

	switch req.Action {
	case ActionDeposit:
		out.ScaledATokenBalance = add(prior.ScaledATokenBalance, wadray.RayDiv(req.Amount, reserveAfter.LiquidityIndex))
		if isZero(prior.CurrentATokenBalance) && isZero(prior.ScaledATokenBalance) {
			out.UsageAsCollateralEnabled = true
		}
		if req.selfInitiated() {
			out.WalletBalance = sub(prior.WalletBalance, req.Amount)
		}

	case ActionWithdraw:
		amount := withdrawAmount(req, reserveBefore, prior)
		scaled := sub(prior.ScaledATokenBalance, wadray.RayDiv(amount, reserveAfter.LiquidityIndex))
		if scaled.Sign() < 0 || amount.Cmp(ATokenBalance(reserveBefore, prior, tx)) == 0 {
			scaled = new(big.Int)
		}
		out.ScaledATokenBalance = scaled
		if req.selfInitiated() {
			out.WalletBalance = add(prior.WalletBalance, amount)
		}

	case ActionBorrow:
		if req.RateMode == RateModeStable {
			debt := userStableDebt(prior, tx)
			out.PrincipalStableDebt = add(debt, req.Amount)
			out.StableBorrowRate = strategy.UserStableRate(debt, prior.StableBorrowRate, req.Amount, reserveBefore.StableBorrowRate)
			out.StableRateLastUpdated = tx
		} else {
			out.ScaledVariableDebt = add(prior.ScaledVariableDebt, wadray.RayDiv(req.Amount, reserveAfter.VariableBorrowIndex))
		}
		if req.selfInitiated() {
			out.WalletBalance = add(prior.WalletBalance, req.Amount)
		}

	case ActionRepay:
		amount := repayAmount(req, reserveBefore, prior)
		if req.RateMode == RateModeStable {
			remaining := sub(userStableDebt(prior, tx), amount)
			if remaining.Sign() < 0 {
				remaining = new(big.Int)
			}
			out.PrincipalStableDebt = remaining
			out.StableRateLastUpdated = tx
		} else {
			scaled := sub(prior.ScaledVariableDebt, wadray.RayDiv(amount, reserveAfter.VariableBorrowIndex))
			if scaled.Sign() < 0 || wadray.IsMax(req.Amount) {
				scaled = new(big.Int)
			}
			out.ScaledVariableDebt = scaled
		}
		if req.selfInitiated() {
			out.WalletBalance = sub(prior.WalletBalance, amount)
		}

	case ActionSwapRateMode:
		stable := userStableDebt(prior, tx)
		if req.RateMode == RateModeStable {
			out.PrincipalStableDebt = new(big.Int)
			out.StableBorrowRate = new(big.Int)
			out.StableRateLastUpdated = 0
			out.ScaledVariableDebt = add(prior.ScaledVariableDebt, wadray.RayDiv(stable, reserveAfter.VariableBorrowIndex))
		} else {
			variable := VariableDebtBalance(reserveBefore, prior, tx)
			out.PrincipalStableDebt = add(stable, variable)
			out.StableBorrowRate = strategy.UserStableRate(stable, prior.StableBorrowRate, variable, reserveBefore.StableBorrowRate)
			out.StableRateLastUpdated = tx
			out.ScaledVariableDebt = new(big.Int)
		}

	case ActionRebalanceStableRate:
		out.PrincipalStableDebt = userStableDebt(prior, tx)
		out.StableBorrowRate = wadray.Clone(reserveBefore.StableBorrowRate)
		out.StableRateLastUpdated = tx

	case ActionSetUseAsCollateral:
		out.UsageAsCollateralEnabled = req.UseAsCollateral

	default:
		return nil, fmt.Errorf("%w: %q", errUnsupportedAction, req.Action)
	}

	out.CurrentATokenBalance = ATokenBalance(reserveAfter, out, now)
	out.CurrentStableDebt = userStableDebt(out, now)
	out.CurrentVariableDebt = VariableDebtBalance(reserveAfter, out, now)
	if req.Action == ActionWithdraw && out.CurrentATokenBalance.Sign() == 0 {
		out.UsageAsCollateralEnabled = false
	}
	if out.PrincipalStableDebt.Sign() == 0 {
		out.StableBorrowRate = new(big.Int)
		out.StableRateLastUpdated = 0
	}
	return out, nil
}
