package main

import (
	"bytes"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"lendoracle/native/lending"
	"lendoracle/native/lending/verify"
	"lendoracle/native/lending/wadray"
)

// Documents are the human-editable form of snapshots: token amounts are raw
// integers in base units, rates and indexes are decimal fractions ("0.05",
// "1.0072"). YAML decoding also accepts JSON files.

type reserveDoc struct {
	Address  string `yaml:"address,omitempty" json:"address,omitempty"`
	Symbol   string `yaml:"symbol,omitempty" json:"symbol,omitempty"`
	Decimals uint8  `yaml:"decimals,omitempty" json:"decimals,omitempty"`

	AvailableLiquidity         string `yaml:"availableLiquidity" json:"availableLiquidity"`
	TotalLiquidity             string `yaml:"totalLiquidity" json:"totalLiquidity"`
	TotalStableDebt            string `yaml:"totalStableDebt" json:"totalStableDebt"`
	PrincipalStableDebt        string `yaml:"principalStableDebt" json:"principalStableDebt"`
	TotalStableDebtLastUpdated uint64 `yaml:"totalStableDebtLastUpdated" json:"totalStableDebtLastUpdated"`
	AverageStableBorrowRate    string `yaml:"averageStableBorrowRate" json:"averageStableBorrowRate"`
	ScaledVariableDebt         string `yaml:"scaledVariableDebt" json:"scaledVariableDebt"`
	TotalVariableDebt          string `yaml:"totalVariableDebt" json:"totalVariableDebt"`
	LiquidityIndex             string `yaml:"liquidityIndex" json:"liquidityIndex"`
	VariableBorrowIndex        string `yaml:"variableBorrowIndex" json:"variableBorrowIndex"`
	LiquidityRate              string `yaml:"liquidityRate" json:"liquidityRate"`
	StableBorrowRate           string `yaml:"stableBorrowRate" json:"stableBorrowRate"`
	VariableBorrowRate         string `yaml:"variableBorrowRate" json:"variableBorrowRate"`
	MarketStableRate           string `yaml:"marketStableRate" json:"marketStableRate"`
	UtilizationRate            string `yaml:"utilizationRate" json:"utilizationRate"`
	LastUpdateTimestamp        uint64 `yaml:"lastUpdateTimestamp" json:"lastUpdateTimestamp"`
}

type userDoc struct {
	ScaledATokenBalance      string `yaml:"scaledATokenBalance" json:"scaledATokenBalance"`
	CurrentATokenBalance     string `yaml:"currentATokenBalance" json:"currentATokenBalance"`
	PrincipalStableDebt      string `yaml:"principalStableDebt" json:"principalStableDebt"`
	CurrentStableDebt        string `yaml:"currentStableDebt" json:"currentStableDebt"`
	StableBorrowRate         string `yaml:"stableBorrowRate" json:"stableBorrowRate"`
	StableRateLastUpdated    uint64 `yaml:"stableRateLastUpdated" json:"stableRateLastUpdated"`
	ScaledVariableDebt       string `yaml:"scaledVariableDebt" json:"scaledVariableDebt"`
	CurrentVariableDebt      string `yaml:"currentVariableDebt" json:"currentVariableDebt"`
	LiquidityRate            string `yaml:"liquidityRate" json:"liquidityRate"`
	UsageAsCollateralEnabled bool   `yaml:"usageAsCollateralEnabled" json:"usageAsCollateralEnabled"`
	WalletBalance            string `yaml:"walletBalance" json:"walletBalance"`
}

type requestDoc struct {
	Action           string `yaml:"action"`
	Amount           string `yaml:"amount"`
	RateMode         string `yaml:"rateMode"`
	TxTimestamp      uint64 `yaml:"txTimestamp"`
	CurrentTimestamp uint64 `yaml:"currentTimestamp"`
	Actor            string `yaml:"actor"`
	OnBehalfOf       string `yaml:"onBehalfOf"`
	UseAsCollateral  bool   `yaml:"useAsCollateral"`
}

// scenarioDoc is the input of the project command.
type scenarioDoc struct {
	Symbol  string      `yaml:"symbol"`
	Request requestDoc  `yaml:"request"`
	Reserve *reserveDoc `yaml:"reserve"`
	User    *userDoc    `yaml:"user"`
}

// observationDoc is the input of the verify command.
type observationDoc struct {
	Symbol          string      `yaml:"symbol"`
	Request         requestDoc  `yaml:"request"`
	ReserveBefore   *reserveDoc `yaml:"reserveBefore"`
	UserBefore      *userDoc    `yaml:"userBefore"`
	ReserveObserved *reserveDoc `yaml:"reserveObserved"`
	UserObserved    *userDoc    `yaml:"userObserved"`
}

func decodeFile(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// fieldParser collects the first conversion error so long field lists read
// as plain assignments.
type fieldParser struct {
	err error
}

func (p *fieldParser) fail(field string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s: %w", field, err)
	}
}

// word parses a snapshot balance. Balances are on-chain uint256 words and
// never carry the max sentinel.
func (p *fieldParser) word(field, value string) *big.Int {
	v, err := wadray.ParseWord(value)
	if err != nil {
		p.fail(field, err)
		return new(big.Int)
	}
	return v
}

// amount parses a request amount, where "max" selects the whole balance.
func (p *fieldParser) amount(field, value string) *big.Int {
	v, err := wadray.ParseAmount(value)
	if err == nil {
		_, err = wadray.ToUint256(v)
	}
	if err != nil {
		p.fail(field, err)
		return new(big.Int)
	}
	return v
}

func (p *fieldParser) ray(field, value string) *big.Int {
	v, err := wadray.ParseDecimal(value, wadray.RayDecimals)
	if err != nil {
		p.fail(field, err)
		return new(big.Int)
	}
	return v
}

func (p *fieldParser) address(field, value string) common.Address {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return common.Address{}
	}
	if !common.IsHexAddress(trimmed) {
		p.fail(field, fmt.Errorf("invalid address %q", value))
		return common.Address{}
	}
	return common.HexToAddress(trimmed)
}

func (d *reserveDoc) snapshot() (*lending.ReserveSnapshot, error) {
	if d == nil {
		return nil, nil
	}
	var p fieldParser
	r := &lending.ReserveSnapshot{
		Address:                    p.address("address", d.Address),
		Symbol:                     strings.ToUpper(strings.TrimSpace(d.Symbol)),
		Decimals:                   d.Decimals,
		AvailableLiquidity:         p.word("availableLiquidity", d.AvailableLiquidity),
		TotalLiquidity:             p.word("totalLiquidity", d.TotalLiquidity),
		TotalStableDebt:            p.word("totalStableDebt", d.TotalStableDebt),
		PrincipalStableDebt:        p.word("principalStableDebt", d.PrincipalStableDebt),
		TotalStableDebtLastUpdated: d.TotalStableDebtLastUpdated,
		AverageStableBorrowRate:    p.ray("averageStableBorrowRate", d.AverageStableBorrowRate),
		ScaledVariableDebt:         p.word("scaledVariableDebt", d.ScaledVariableDebt),
		TotalVariableDebt:          p.word("totalVariableDebt", d.TotalVariableDebt),
		LiquidityIndex:             p.ray("liquidityIndex", d.LiquidityIndex),
		VariableBorrowIndex:        p.ray("variableBorrowIndex", d.VariableBorrowIndex),
		LiquidityRate:              p.ray("liquidityRate", d.LiquidityRate),
		StableBorrowRate:           p.ray("stableBorrowRate", d.StableBorrowRate),
		VariableBorrowRate:         p.ray("variableBorrowRate", d.VariableBorrowRate),
		MarketStableRate:           p.ray("marketStableRate", d.MarketStableRate),
		UtilizationRate:            p.ray("utilizationRate", d.UtilizationRate),
		LastUpdateTimestamp:        d.LastUpdateTimestamp,
	}
	if p.err != nil {
		return nil, fmt.Errorf("reserve %w", p.err)
	}
	return r, nil
}

func (d *userDoc) position() (*lending.UserReserveData, error) {
	if d == nil {
		return nil, nil
	}
	var p fieldParser
	u := &lending.UserReserveData{
		ScaledATokenBalance:      p.word("scaledATokenBalance", d.ScaledATokenBalance),
		CurrentATokenBalance:     p.word("currentATokenBalance", d.CurrentATokenBalance),
		PrincipalStableDebt:      p.word("principalStableDebt", d.PrincipalStableDebt),
		CurrentStableDebt:        p.word("currentStableDebt", d.CurrentStableDebt),
		StableBorrowRate:         p.ray("stableBorrowRate", d.StableBorrowRate),
		StableRateLastUpdated:    d.StableRateLastUpdated,
		ScaledVariableDebt:       p.word("scaledVariableDebt", d.ScaledVariableDebt),
		CurrentVariableDebt:      p.word("currentVariableDebt", d.CurrentVariableDebt),
		LiquidityRate:            p.ray("liquidityRate", d.LiquidityRate),
		UsageAsCollateralEnabled: d.UsageAsCollateralEnabled,
		WalletBalance:            p.word("walletBalance", d.WalletBalance),
	}
	if p.err != nil {
		return nil, fmt.Errorf("user %w", p.err)
	}
	return u, nil
}

func (d requestDoc) request() (lending.Request, error) {
	action, err := lending.ParseAction(d.Action)
	if err != nil {
		return lending.Request{}, err
	}
	mode, err := lending.ParseRateMode(d.RateMode)
	if err != nil {
		return lending.Request{}, err
	}
	var p fieldParser
	req := lending.Request{
		Action:           action,
		RateMode:         mode,
		TxTimestamp:      d.TxTimestamp,
		CurrentTimestamp: d.CurrentTimestamp,
		Actor:            p.address("actor", d.Actor),
		OnBehalfOf:       p.address("onBehalfOf", d.OnBehalfOf),
		UseAsCollateral:  d.UseAsCollateral,
	}
	if strings.TrimSpace(d.Amount) != "" {
		req.Amount = p.amount("amount", d.Amount)
	}
	if p.err != nil {
		return lending.Request{}, fmt.Errorf("request %w", p.err)
	}
	return req, nil
}

func (d observationDoc) observation() (verify.Observation, error) {
	req, err := d.Request.request()
	if err != nil {
		return verify.Observation{}, err
	}
	obs := verify.Observation{Symbol: d.Symbol, Request: req}
	if obs.ReserveBefore, err = d.ReserveBefore.snapshot(); err != nil {
		return verify.Observation{}, fmt.Errorf("before: %w", err)
	}
	if obs.UserBefore, err = d.UserBefore.position(); err != nil {
		return verify.Observation{}, fmt.Errorf("before: %w", err)
	}
	if obs.ReserveObserved, err = d.ReserveObserved.snapshot(); err != nil {
		return verify.Observation{}, fmt.Errorf("observed: %w", err)
	}
	if obs.UserObserved, err = d.UserObserved.position(); err != nil {
		return verify.Observation{}, fmt.Errorf("observed: %w", err)
	}
	return obs, nil
}

func formatRay(x *big.Int) string {
	return wadray.Format(x, wadray.RayDecimals)
}

func formatAmount(x *big.Int) string {
	return wadray.Clone(x).String()
}

func reserveDocument(r *lending.ReserveSnapshot) *reserveDoc {
	if r == nil {
		return nil
	}
	d := &reserveDoc{
		Symbol:                     r.Symbol,
		Decimals:                   r.Decimals,
		AvailableLiquidity:         formatAmount(r.AvailableLiquidity),
		TotalLiquidity:             formatAmount(r.TotalLiquidity),
		TotalStableDebt:            formatAmount(r.TotalStableDebt),
		PrincipalStableDebt:        formatAmount(r.PrincipalStableDebt),
		TotalStableDebtLastUpdated: r.TotalStableDebtLastUpdated,
		AverageStableBorrowRate:    formatRay(r.AverageStableBorrowRate),
		ScaledVariableDebt:         formatAmount(r.ScaledVariableDebt),
		TotalVariableDebt:          formatAmount(r.TotalVariableDebt),
		LiquidityIndex:             formatRay(r.LiquidityIndex),
		VariableBorrowIndex:        formatRay(r.VariableBorrowIndex),
		LiquidityRate:              formatRay(r.LiquidityRate),
		StableBorrowRate:           formatRay(r.StableBorrowRate),
		VariableBorrowRate:         formatRay(r.VariableBorrowRate),
		MarketStableRate:           formatRay(r.MarketStableRate),
		UtilizationRate:            formatRay(r.UtilizationRate),
		LastUpdateTimestamp:        r.LastUpdateTimestamp,
	}
	if r.Address != (common.Address{}) {
		d.Address = r.Address.Hex()
	}
	return d
}

func userDocument(u *lending.UserReserveData) *userDoc {
	if u == nil {
		return nil
	}
	return &userDoc{
		ScaledATokenBalance:      formatAmount(u.ScaledATokenBalance),
		CurrentATokenBalance:     formatAmount(u.CurrentATokenBalance),
		PrincipalStableDebt:      formatAmount(u.PrincipalStableDebt),
		CurrentStableDebt:        formatAmount(u.CurrentStableDebt),
		StableBorrowRate:         formatRay(u.StableBorrowRate),
		StableRateLastUpdated:    u.StableRateLastUpdated,
		ScaledVariableDebt:       formatAmount(u.ScaledVariableDebt),
		CurrentVariableDebt:      formatAmount(u.CurrentVariableDebt),
		LiquidityRate:            formatRay(u.LiquidityRate),
		UsageAsCollateralEnabled: u.UsageAsCollateralEnabled,
		WalletBalance:            formatAmount(u.WalletBalance),
	}
}
