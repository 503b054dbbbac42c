package lending

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAlmostEqual(t *testing.T) {
	require.True(t, AlmostEqual(big.NewInt(100), big.NewInt(102)))
	require.True(t, AlmostEqual(big.NewInt(102), big.NewInt(100)))
	require.False(t, AlmostEqual(big.NewInt(100), big.NewInt(103)))
	require.True(t, AlmostEqual(nil, big.NewInt(-2)))
	require.False(t, AlmostEqual(nil, big.NewInt(3)))
}

func TestCompareReserveReportsFieldsOutsideTolerance(t *testing.T) {
	expected := fundedReserve()
	actual := fundedReserve()
	actual.AvailableLiquidity = new(big.Int).Add(actual.AvailableLiquidity, big.NewInt(2))
	require.Empty(t, CompareReserve(expected, actual))

	actual.LiquidityRate = big.NewInt(5)
	actual.LastUpdateTimestamp++
	mismatches := CompareReserve(expected, actual)
	require.Len(t, mismatches, 2)
	require.Equal(t, "liquidityRate", mismatches[0].Field)
	require.Equal(t, "0", mismatches[0].Expected)
	require.Equal(t, "5", mismatches[0].Actual)
	require.Equal(t, "lastUpdateTimestamp", mismatches[1].Field)

	require.Len(t, CompareReserve(expected, nil), 1)
	require.Empty(t, CompareReserve(nil, nil))
}

func TestCompareUser(t *testing.T) {
	expected := &UserReserveData{CurrentATokenBalance: big.NewInt(1_000), UsageAsCollateralEnabled: true}
	actual := &UserReserveData{CurrentATokenBalance: big.NewInt(999)}
	mismatches := CompareUser(expected, actual)
	require.Len(t, mismatches, 1)
	require.Equal(t, "usageAsCollateralEnabled", mismatches[0].Field)
	require.Equal(t, "usageAsCollateralEnabled: expected true, got false", mismatches[0].String())

	actual.UsageAsCollateralEnabled = true
	actual.StableRateLastUpdated = 7
	mismatches = CompareUser(expected, actual)
	require.Len(t, mismatches, 1)
	require.Equal(t, "stableRateLastUpdated", mismatches[0].Field)
}
