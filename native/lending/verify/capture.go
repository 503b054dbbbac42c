package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"lendoracle/native/lending"
)

var errInconsistentRead = errors.New("verify: block advanced while reading state")

// StateReader exposes the protocol state the oracle observes. Implementations
// typically wrap a data provider contract; the projector never calls one.
type StateReader interface {
	ReserveData(ctx context.Context, asset common.Address) (*lending.ReserveSnapshot, error)
	UserReserveData(ctx context.Context, asset, user common.Address) (*lending.UserReserveData, error)
	BlockTimestamp(ctx context.Context) (uint64, error)
}

// Snapshot is a reserve and user state pair read at one block timestamp.
type Snapshot struct {
	Reserve   *lending.ReserveSnapshot
	User      *lending.UserReserveData
	Timestamp uint64
}

// Capture reads the reserve and user state for asset and user. The block
// timestamp is read before and after; if it moved, the pair may straddle two
// blocks and errInconsistentRead is returned so the caller can retry.
func Capture(ctx context.Context, reader StateReader, asset, user common.Address) (Snapshot, error) {
	if reader == nil {
		return Snapshot{}, errors.New("verify: state reader required")
	}
	before, err := reader.BlockTimestamp(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("verify: read block timestamp: %w", err)
	}
	reserve, err := reader.ReserveData(ctx, asset)
	if err != nil {
		return Snapshot{}, fmt.Errorf("verify: read reserve %s: %w", asset.Hex(), err)
	}
	position, err := reader.UserReserveData(ctx, asset, user)
	if err != nil {
		return Snapshot{}, fmt.Errorf("verify: read user %s in %s: %w", user.Hex(), asset.Hex(), err)
	}
	after, err := reader.BlockTimestamp(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("verify: read block timestamp: %w", err)
	}
	if after != before {
		return Snapshot{}, fmt.Errorf("%w: %d -> %d", errInconsistentRead, before, after)
	}
	return Snapshot{Reserve: reserve, User: position, Timestamp: before}, nil
}

// Observe pairs two captures around a transaction into an Observation. The
// request's CurrentTimestamp defaults to the post-transaction capture time.
func Observe(symbol string, req lending.Request, before, after Snapshot) Observation {
	if req.CurrentTimestamp == 0 {
		req.CurrentTimestamp = after.Timestamp
	}
	return Observation{
		Symbol:          symbol,
		Request:         req,
		ReserveBefore:   before.Reserve,
		UserBefore:      before.User,
		ReserveObserved: after.Reserve,
		UserObserved:    after.User,
	}
}
