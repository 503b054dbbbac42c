package lending

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"lendoracle/native/lending/wadray"
)

var (
	errNilReserve        = errors.New("lending projector: reserve snapshot required")
	errNilProjected      = errors.New("lending projector: projected reserve snapshot required")
	errInvalidAmount     = errors.New("lending projector: amount must be non-negative")
	errMaxNotAllowed     = errors.New("lending projector: max amount only valid for withdraw and repay")
	errInvalidRateMode   = errors.New("lending projector: rate mode must be stable or variable")
	errUnsupportedAction = errors.New("lending projector: unsupported action")
	errTimestampOrder    = errors.New("lending projector: current timestamp precedes transaction timestamp")
)

// Action identifies the user operation being projected.
type Action string

const (
	ActionDeposit             Action = "deposit"
	ActionWithdraw            Action = "withdraw"
	ActionBorrow              Action = "borrow"
	ActionRepay               Action = "repay"
	ActionSwapRateMode        Action = "swapRateMode"
	ActionRebalanceStableRate Action = "rebalanceStableRate"
	ActionSetUseAsCollateral  Action = "setUseAsCollateral"
)

// Actions lists every supported action.
func Actions() []Action {
	return []Action{
		ActionDeposit,
		ActionWithdraw,
		ActionBorrow,
		ActionRepay,
		ActionSwapRateMode,
		ActionRebalanceStableRate,
		ActionSetUseAsCollateral,
	}
}

// ParseAction resolves a case-insensitive action name.
func ParseAction(value string) (Action, error) {
	trimmed := strings.TrimSpace(value)
	for _, action := range Actions() {
		if strings.EqualFold(string(action), trimmed) {
			return action, nil
		}
	}
	return "", fmt.Errorf("%w: %q", errUnsupportedAction, value)
}

// RateMode selects the debt flavour an action applies to. For swaps it names
// the mode the borrower is leaving.
type RateMode uint8

const (
	RateModeNone RateMode = iota
	RateModeStable
	RateModeVariable
)

func (m RateMode) String() string {
	switch m {
	case RateModeStable:
		return "stable"
	case RateModeVariable:
		return "variable"
	default:
		return "none"
	}
}

// ParseRateMode accepts "stable", "variable", "none" or the numeric protocol
// encoding (0, 1, 2).
func ParseRateMode(value string) (RateMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none", "0":
		return RateModeNone, nil
	case "stable", "1":
		return RateModeStable, nil
	case "variable", "2":
		return RateModeVariable, nil
	}
	return RateModeNone, fmt.Errorf("%w: %q", errInvalidRateMode, value)
}

// Request carries the parameters of one projected action.
type Request struct {
	Action Action `json:"action"`
	// Amount is the acted amount in token units. wadray.MaxUint256 selects
	// the full balance for withdraw and repay.
	Amount   *big.Int `json:"amount"`
	RateMode RateMode `json:"rateMode"`
	// TxTimestamp is the block timestamp the action lands in.
	TxTimestamp uint64 `json:"txTimestamp"`
	// CurrentTimestamp is the timestamp balances are observed at. Zero means
	// TxTimestamp.
	CurrentTimestamp uint64 `json:"currentTimestamp"`
	// Actor sends the transaction; OnBehalfOf receives its effect. A zero
	// OnBehalfOf means the actor acts for itself.
	Actor      common.Address `json:"actor"`
	OnBehalfOf common.Address `json:"onBehalfOf"`
	// UseAsCollateral is the flag requested by setUseAsCollateral.
	UseAsCollateral bool `json:"useAsCollateral"`
}

func (r Request) validate() error {
	switch r.Action {
	case ActionDeposit, ActionBorrow:
		if err := r.validateAmount(); err != nil {
			return err
		}
		if wadray.IsMax(r.Amount) {
			return errMaxNotAllowed
		}
	case ActionWithdraw:
		if err := r.validateAmount(); err != nil {
			return err
		}
	case ActionRepay:
		if r.Amount != nil && wadray.IsMax(r.Amount) {
			break
		}
		if err := r.validateAmount(); err != nil {
			return err
		}
	case ActionSwapRateMode, ActionRebalanceStableRate, ActionSetUseAsCollateral:
	default:
		return fmt.Errorf("%w: %q", errUnsupportedAction, r.Action)
	}
	switch r.Action {
	case ActionBorrow, ActionRepay, ActionSwapRateMode:
		if r.RateMode != RateModeStable && r.RateMode != RateModeVariable {
			return fmt.Errorf("%w: %s for %s", errInvalidRateMode, r.RateMode, r.Action)
		}
	}
	if r.CurrentTimestamp != 0 && r.CurrentTimestamp < r.TxTimestamp {
		return errTimestampOrder
	}
	return nil
}

func (r Request) validateAmount() error {
	if r.Amount == nil || r.Amount.Sign() < 0 {
		return errInvalidAmount
	}
	return nil
}

// currentTimestamp returns the observation time, defaulting to the
// transaction time.
func (r Request) currentTimestamp() uint64 {
	if r.CurrentTimestamp == 0 {
		return r.TxTimestamp
	}
	return r.CurrentTimestamp
}

// selfInitiated reports whether the actor is also the beneficiary.
func (r Request) selfInitiated() bool {
	return r.OnBehalfOf == (common.Address{}) || r.OnBehalfOf == r.Actor
}
