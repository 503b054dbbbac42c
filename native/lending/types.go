package lending

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"lendoracle/native/lending/wadray"
)

// ReserveSnapshot captures the accounting state of one reserve at a point in
// time. Token amounts use the reserve's own decimals; rates, indexes and
// utilization are rays. Snapshots are treated as immutable values: every
// projection clones its input before deriving a new snapshot.
type ReserveSnapshot struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`

	// AvailableLiquidity is the underlying balance held by the reserve.
	AvailableLiquidity *big.Int `json:"availableLiquidity"`
	// TotalLiquidity is AvailableLiquidity plus both debt totals.
	TotalLiquidity *big.Int `json:"totalLiquidity"`

	// TotalStableDebt is the stable debt supply including accrued interest.
	TotalStableDebt *big.Int `json:"totalStableDebt"`
	// PrincipalStableDebt is the stable debt supply at the last update.
	PrincipalStableDebt *big.Int `json:"principalStableDebt"`
	// TotalStableDebtLastUpdated is when PrincipalStableDebt was last written.
	TotalStableDebtLastUpdated uint64 `json:"totalStableDebtLastUpdated"`
	// AverageStableBorrowRate is the debt weighted mean of all stable rates.
	AverageStableBorrowRate *big.Int `json:"averageStableBorrowRate"`
	// ScaledVariableDebt is the variable debt supply divided by the index.
	ScaledVariableDebt *big.Int `json:"scaledVariableDebt"`
	// TotalVariableDebt is ScaledVariableDebt multiplied by the live index.
	TotalVariableDebt *big.Int `json:"totalVariableDebt"`

	LiquidityIndex      *big.Int `json:"liquidityIndex"`
	VariableBorrowIndex *big.Int `json:"variableBorrowIndex"`

	LiquidityRate      *big.Int `json:"liquidityRate"`
	StableBorrowRate   *big.Int `json:"stableBorrowRate"`
	VariableBorrowRate *big.Int `json:"variableBorrowRate"`
	// MarketStableRate is the externally quoted base for the stable curve.
	MarketStableRate *big.Int `json:"marketStableRate"`

	UtilizationRate     *big.Int `json:"utilizationRate"`
	LastUpdateTimestamp uint64   `json:"lastUpdateTimestamp"`
}

// Clone returns a deep copy of the snapshot with nil amounts normalised to
// zero.
func (r *ReserveSnapshot) Clone() *ReserveSnapshot {
	if r == nil {
		return nil
	}
	return &ReserveSnapshot{
		Address:                    r.Address,
		Symbol:                     r.Symbol,
		Decimals:                   r.Decimals,
		AvailableLiquidity:         wadray.Clone(r.AvailableLiquidity),
		TotalLiquidity:             wadray.Clone(r.TotalLiquidity),
		TotalStableDebt:            wadray.Clone(r.TotalStableDebt),
		PrincipalStableDebt:        wadray.Clone(r.PrincipalStableDebt),
		TotalStableDebtLastUpdated: r.TotalStableDebtLastUpdated,
		AverageStableBorrowRate:    wadray.Clone(r.AverageStableBorrowRate),
		ScaledVariableDebt:         wadray.Clone(r.ScaledVariableDebt),
		TotalVariableDebt:          wadray.Clone(r.TotalVariableDebt),
		LiquidityIndex:             wadray.Clone(r.LiquidityIndex),
		VariableBorrowIndex:        wadray.Clone(r.VariableBorrowIndex),
		LiquidityRate:              wadray.Clone(r.LiquidityRate),
		StableBorrowRate:           wadray.Clone(r.StableBorrowRate),
		VariableBorrowRate:         wadray.Clone(r.VariableBorrowRate),
		MarketStableRate:           wadray.Clone(r.MarketStableRate),
		UtilizationRate:            wadray.Clone(r.UtilizationRate),
		LastUpdateTimestamp:        r.LastUpdateTimestamp,
	}
}

// LiquidityGap returns TotalLiquidity - (available + stable + variable). It is
// zero for every snapshot the projector produces.
func (r *ReserveSnapshot) LiquidityGap() *big.Int {
	sum := new(big.Int).Add(wadray.Clone(r.AvailableLiquidity), wadray.Clone(r.TotalStableDebt))
	sum.Add(sum, wadray.Clone(r.TotalVariableDebt))
	return sum.Sub(wadray.Clone(r.TotalLiquidity), sum)
}

// UserReserveData is one user's position in one reserve.
type UserReserveData struct {
	// ScaledATokenBalance is the supplied principal divided by the liquidity
	// index at deposit time.
	ScaledATokenBalance  *big.Int `json:"scaledATokenBalance"`
	CurrentATokenBalance *big.Int `json:"currentATokenBalance"`

	PrincipalStableDebt   *big.Int `json:"principalStableDebt"`
	CurrentStableDebt     *big.Int `json:"currentStableDebt"`
	StableBorrowRate      *big.Int `json:"stableBorrowRate"`
	StableRateLastUpdated uint64   `json:"stableRateLastUpdated"`

	ScaledVariableDebt  *big.Int `json:"scaledVariableDebt"`
	CurrentVariableDebt *big.Int `json:"currentVariableDebt"`

	// LiquidityRate mirrors the reserve's supply rate after the action.
	LiquidityRate *big.Int `json:"liquidityRate"`

	UsageAsCollateralEnabled bool `json:"usageAsCollateralEnabled"`
	// WalletBalance is the user's underlying token balance outside the
	// protocol.
	WalletBalance *big.Int `json:"walletBalance"`
}

// Clone returns a deep copy of the user data with nil amounts normalised to
// zero.
func (u *UserReserveData) Clone() *UserReserveData {
	if u == nil {
		return nil
	}
	return &UserReserveData{
		ScaledATokenBalance:      wadray.Clone(u.ScaledATokenBalance),
		CurrentATokenBalance:     wadray.Clone(u.CurrentATokenBalance),
		PrincipalStableDebt:      wadray.Clone(u.PrincipalStableDebt),
		CurrentStableDebt:        wadray.Clone(u.CurrentStableDebt),
		StableBorrowRate:         wadray.Clone(u.StableBorrowRate),
		StableRateLastUpdated:    u.StableRateLastUpdated,
		ScaledVariableDebt:       wadray.Clone(u.ScaledVariableDebt),
		CurrentVariableDebt:      wadray.Clone(u.CurrentVariableDebt),
		LiquidityRate:            wadray.Clone(u.LiquidityRate),
		UsageAsCollateralEnabled: u.UsageAsCollateralEnabled,
		WalletBalance:            wadray.Clone(u.WalletBalance),
	}
}
