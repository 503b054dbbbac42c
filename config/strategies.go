package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"lendoracle/native/lending/strategy"
	"lendoracle/native/lending/wadray"
)

var maxRate = decimal.NewFromInt(100)

// Params resolves the reserve's strategy: the preset first, then every
// explicitly configured field on top.
func (r Reserve) Params() (strategy.Params, error) {
	preset := strings.ToLower(strings.TrimSpace(r.Preset))
	if preset == "" {
		preset = "default"
	}
	params, ok := strategy.Preset(preset)
	if !ok {
		return strategy.Params{}, fmt.Errorf("unknown preset %q", r.Preset)
	}

	overrides := []struct {
		name   string
		value  string
		target **big.Int
	}{
		{"OptimalUtilizationRate", r.OptimalUtilizationRate, &params.OptimalUtilizationRate},
		{"BaseVariableBorrowRate", r.BaseVariableBorrowRate, &params.BaseVariableBorrowRate},
		{"VariableRateSlope1", r.VariableRateSlope1, &params.VariableRateSlope1},
		{"VariableRateSlope2", r.VariableRateSlope2, &params.VariableRateSlope2},
		{"StableRateSlope1", r.StableRateSlope1, &params.StableRateSlope1},
		{"StableRateSlope2", r.StableRateSlope2, &params.StableRateSlope2},
	}
	for _, o := range overrides {
		if strings.TrimSpace(o.value) == "" {
			continue
		}
		rate, err := ParseRate(o.value)
		if err != nil {
			return strategy.Params{}, fmt.Errorf("%s: %w", o.name, err)
		}
		*o.target = rate
	}
	if r.ReserveFactorBps != nil {
		params.ReserveFactor = *r.ReserveFactorBps
	}
	if err := params.Validate(); err != nil {
		return strategy.Params{}, err
	}
	return params, nil
}

// AssetAddress returns the configured token address, zero when unset.
func (r Reserve) AssetAddress() common.Address {
	return common.HexToAddress(strings.TrimSpace(r.Address))
}

// ParseRate converts a non-negative decimal fraction ("0.04") or a percentage
// ("4%") into a ray.
func ParseRate(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	percent := strings.HasSuffix(trimmed, "%")
	trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "%"))
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid rate %q: %w", value, err)
	}
	if percent {
		d = d.Shift(-2)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("rate %q must not be negative", value)
	}
	if d.GreaterThan(maxRate) {
		return nil, fmt.Errorf("rate %q is implausibly large", value)
	}
	return wadray.ParseDecimal(d.String(), wadray.RayDecimals)
}

// Registry builds the strategy registry for every configured reserve.
func (c *Config) Registry() (strategy.Registry, error) {
	entries := make(map[string]strategy.Params, len(c.Reserves))
	for _, reserve := range c.Reserves {
		params, err := reserve.Params()
		if err != nil {
			return strategy.Registry{}, fmt.Errorf("reserve %s: %w", reserve.Symbol, err)
		}
		entries[reserve.Symbol] = params
	}
	return strategy.NewRegistry(entries)
}

// Reserve returns the configuration of symbol.
func (c *Config) Reserve(symbol string) (Reserve, bool) {
	want := strings.ToUpper(strings.TrimSpace(symbol))
	for _, reserve := range c.Reserves {
		if strings.ToUpper(strings.TrimSpace(reserve.Symbol)) == want {
			return reserve, true
		}
	}
	return Reserve{}, false
}
