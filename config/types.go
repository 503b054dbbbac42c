package config

// Reserve configures the strategy of one reserve. Rates are decimal
// fractions ("0.04" is 4%); an empty field keeps the preset value.
type Reserve struct {
	Symbol   string `toml:"Symbol" yaml:"symbol"`
	Address  string `toml:"Address" yaml:"address"`
	Decimals uint8  `toml:"Decimals" yaml:"decimals"`
	// Preset is one of default, stablecoin or volatile. Empty means default.
	Preset string `toml:"Preset" yaml:"preset"`

	OptimalUtilizationRate string  `toml:"OptimalUtilizationRate" yaml:"optimalUtilizationRate"`
	BaseVariableBorrowRate string  `toml:"BaseVariableBorrowRate" yaml:"baseVariableBorrowRate"`
	VariableRateSlope1     string  `toml:"VariableRateSlope1" yaml:"variableRateSlope1"`
	VariableRateSlope2     string  `toml:"VariableRateSlope2" yaml:"variableRateSlope2"`
	StableRateSlope1       string  `toml:"StableRateSlope1" yaml:"stableRateSlope1"`
	StableRateSlope2       string  `toml:"StableRateSlope2" yaml:"stableRateSlope2"`
	ReserveFactorBps       *uint64 `toml:"ReserveFactorBps" yaml:"reserveFactorBps"`
}

// Logging controls the structured logger.
type Logging struct {
	Level      string `toml:"Level" yaml:"level"`
	File       string `toml:"File" yaml:"file"`
	MaxSizeMB  int    `toml:"MaxSizeMB" yaml:"maxSizeMB"`
	MaxBackups int    `toml:"MaxBackups" yaml:"maxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays" yaml:"maxAgeDays"`
	Compress   bool   `toml:"Compress" yaml:"compress"`
}

// Journal selects where verification reports are stored. An empty DSN
// disables the journal.
type Journal struct {
	Driver string `toml:"Driver" yaml:"driver"`
	DSN    string `toml:"DSN" yaml:"dsn"`
}

// Archive points at the LevelDB directory holding raw observations. An empty
// path disables archiving and replay.
type Archive struct {
	Path string `toml:"Path" yaml:"path"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Endpoint    string  `toml:"Endpoint" yaml:"endpoint"`
	Insecure    bool    `toml:"Insecure" yaml:"insecure"`
	Headers     string  `toml:"Headers" yaml:"headers"`
	Traces      bool    `toml:"Traces" yaml:"traces"`
	Metrics     bool    `toml:"Metrics" yaml:"metrics"`
	SampleRatio float64 `toml:"SampleRatio" yaml:"sampleRatio"`
}
