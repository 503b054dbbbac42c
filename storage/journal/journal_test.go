package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"lendoracle/native/lending"
	"lendoracle/native/lending/verify"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	store, err := Open(DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleReport(symbol string, tx uint64, drift bool) verify.Report {
	report := verify.Report{
		ID:              uuid.New(),
		Symbol:          symbol,
		Action:          lending.ActionBorrow,
		RateMode:        "variable",
		User:            common.HexToAddress("0x00000000000000000000000000000000000a11ce"),
		TxTimestamp:     tx,
		CheckedAt:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		ExpectedReserve: &lending.ReserveSnapshot{Symbol: symbol, AvailableLiquidity: new(big.Int).Lsh(big.NewInt(1), 200)},
		ExpectedUser:    &lending.UserReserveData{CurrentVariableDebt: big.NewInt(42)},
	}
	if drift {
		report.ReserveMismatches = []lending.Mismatch{{Field: "liquidityRate", Expected: "1", Actual: "9"}}
	}
	return report
}

func TestRecordAndGet(t *testing.T) {
	store := setupTestStore(t)
	report := sampleReport("dai", 100, true)
	require.NoError(t, store.Record(context.Background(), report))

	entry, err := store.Get(context.Background(), report.ID)
	require.NoError(t, err)
	require.Equal(t, "DAI", entry.Symbol)
	require.Equal(t, "borrow", entry.Action)
	require.False(t, entry.Passed)
	require.Equal(t, 1, entry.MismatchCount)
	require.Equal(t, report.User.Hex(), entry.UserAddress)

	var reserve lending.ReserveSnapshot
	require.NoError(t, json.Unmarshal([]byte(entry.ExpectedReserve), &reserve))
	require.Zero(t, reserve.AvailableLiquidity.Cmp(new(big.Int).Lsh(big.NewInt(1), 200)))
	require.Contains(t, entry.Mismatches, "liquidityRate")

	_, err = store.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListFilters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Record(ctx, sampleReport("DAI", 100, false)))
	require.NoError(t, store.Record(ctx, sampleReport("DAI", 200, true)))
	require.NoError(t, store.Record(ctx, sampleReport("WETH", 300, true)))

	all, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, uint64(300), all[0].TxTimestamp)

	dai, err := store.List(ctx, Filter{Symbol: "dai"})
	require.NoError(t, err)
	require.Len(t, dai, 2)

	failed, err := store.List(ctx, Filter{Symbol: "DAI", OnlyFailed: true})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	require.Equal(t, uint64(200), failed[0].TxTimestamp)

	limited, err := store.List(ctx, Filter{Limit: 1, Action: "borrow"})
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestRecordRejectsDuplicateID(t *testing.T) {
	store := setupTestStore(t)
	report := sampleReport("DAI", 1, false)
	require.NoError(t, store.Record(context.Background(), report))
	require.Error(t, store.Record(context.Background(), report))
}

func TestOpenValidation(t *testing.T) {
	_, err := Open(DriverSQLite, "")
	require.Error(t, err)
	_, err = Open("mysql", "file::memory:")
	require.ErrorContains(t, err, "unsupported driver")
	_, err = New(nil)
	require.Error(t, err)
}
