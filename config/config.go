package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvEnvironment = "ORACLE_ENV"
	EnvLogLevel    = "ORACLE_LOG_LEVEL"
	EnvJournalDSN  = "ORACLE_JOURNAL_DSN"
)

type Config struct {
	Service     string    `toml:"Service" yaml:"service"`
	Environment string    `toml:"Environment" yaml:"environment"`
	Reserves    []Reserve `toml:"Reserves" yaml:"reserves"`
	Logging     Logging   `toml:"Logging" yaml:"logging"`
	Journal     Journal   `toml:"Journal" yaml:"journal"`
	Archive     Archive   `toml:"Archive" yaml:"archive"`
	Telemetry   Telemetry `toml:"Telemetry" yaml:"telemetry"`
}

// Load loads the configuration from the given path. The format follows the
// extension: .yaml and .yml are YAML, anything else TOML. A missing file is
// created with the defaults. Unknown keys are rejected in both formats.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	default:
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, key := range undecoded {
				keys = append(keys, key.String())
			}
			sort.Strings(keys)
			return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}

	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration written for a fresh install: a single
// DAI reserve on the default curve, sqlite journal off, telemetry off.
func Default() *Config {
	cfg := &Config{
		Service:     "reserve-oracle",
		Environment: "local",
		Reserves: []Reserve{{
			Symbol:   "DAI",
			Address:  "0x6B175474E89094C44Da98b954EedeAC495271d0F",
			Decimals: 18,
			Preset:   "default",
		}},
		Logging: Logging{Level: "info"},
		Journal: Journal{Driver: "sqlite"},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvEnvironment)); v != "" {
		c.Environment = v
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(getenv(EnvJournalDSN)); v != "" {
		c.Journal.DSN = v
	}
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Service) == "" {
		c.Service = "reserve-oracle"
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.File != "" && c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 100
	}
	if strings.TrimSpace(c.Journal.Driver) == "" {
		c.Journal.Driver = "sqlite"
	}
	if c.Reserves == nil {
		c.Reserves = []Reserve{}
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(f)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	default:
		return toml.NewEncoder(f).Encode(cfg)
	}
}
