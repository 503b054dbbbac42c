package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"lendoracle/observability/logging"
)

var supportedJournalDrivers = map[string]struct{}{
	"sqlite":   {},
	"postgres": {},
}

// Validate checks the configuration for values the oracle cannot run with.
// Every reserve's strategy must resolve, so a bad curve fails at startup
// rather than on the first verification.
func (c *Config) Validate() error {
	if len(c.Reserves) == 0 {
		return fmt.Errorf("reserves: at least one reserve required")
	}
	seen := make(map[string]struct{}, len(c.Reserves))
	for i, reserve := range c.Reserves {
		symbol := strings.ToUpper(strings.TrimSpace(reserve.Symbol))
		if symbol == "" {
			return fmt.Errorf("reserves[%d]: symbol required", i)
		}
		if _, dup := seen[symbol]; dup {
			return fmt.Errorf("reserves[%d]: duplicate symbol %s", i, symbol)
		}
		seen[symbol] = struct{}{}
		if addr := strings.TrimSpace(reserve.Address); addr != "" && !common.IsHexAddress(addr) {
			return fmt.Errorf("reserves[%d] %s: invalid address %q", i, symbol, addr)
		}
		if _, err := reserve.Params(); err != nil {
			return fmt.Errorf("reserves[%d] %s: %w", i, symbol, err)
		}
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("logging: rotation limits must not be negative")
	}
	if _, ok := supportedJournalDrivers[strings.ToLower(strings.TrimSpace(c.Journal.Driver))]; !ok {
		return fmt.Errorf("journal: unsupported driver %q", c.Journal.Driver)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: sample ratio must be within [0, 1]")
	}
	return nil
}
