package strategy

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownReserve is returned when no strategy is registered for a reserve.
// Callers must treat it as fatal: guessing a curve would invalidate every
// prediction derived from it.
var ErrUnknownReserve = errors.New("strategy: unknown reserve")

// Registry maps reserve symbols to their strategy parameters. It is a plain
// value handed to whoever needs it; there is no package level table.
type Registry struct {
	params map[string]Params
}

// NewRegistry builds a registry from the provided entries after validating
// each of them.
func NewRegistry(entries map[string]Params) (Registry, error) {
	reg := Registry{params: make(map[string]Params, len(entries))}
	for symbol, params := range entries {
		if err := reg.Register(symbol, params); err != nil {
			return Registry{}, err
		}
	}
	return reg, nil
}

// Register adds or replaces the parameters for a symbol.
func (r *Registry) Register(symbol string, params Params) error {
	key := normalizeSymbol(symbol)
	if key == "" {
		return fmt.Errorf("strategy: empty reserve symbol")
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("strategy %s: %w", key, err)
	}
	if r.params == nil {
		r.params = make(map[string]Params)
	}
	r.params[key] = params.Clone()
	return nil
}

// Lookup returns a copy of the parameters registered for symbol.
func (r Registry) Lookup(symbol string) (Params, error) {
	params, ok := r.params[normalizeSymbol(symbol)]
	if !ok {
		return Params{}, fmt.Errorf("%w: %q", ErrUnknownReserve, symbol)
	}
	return params.Clone(), nil
}

// Symbols lists the registered reserves in lexical order.
func (r Registry) Symbols() []string {
	out := make([]string, 0, len(r.params))
	for symbol := range r.params {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
