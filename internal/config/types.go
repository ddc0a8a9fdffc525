package config

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Config is the merged run configuration shared by every command.
type Config struct {
	App    AppConfig    `toml:"app"`
	Engine EngineConfig `toml:"engine"`
	Store  StoreConfig  `toml:"store"`
	HTTP   HTTPConfig   `toml:"http"`

	UserDataDir             string   `toml:"user_data_dir"`
	StrategyPath            string   `toml:"strategy_path"`
	RecursiveStrategySearch bool     `toml:"recursive_strategy_search"`
	Strategy                string   `toml:"strategy"`
	StrategyList            []string `toml:"strategy_list"`
	Timeframe               string   `toml:"timeframe"`

	DryRunWallet         decimal.Decimal `toml:"dry_run_wallet"`
	TradableBalanceRatio decimal.Decimal `toml:"tradable_balance_ratio"`
	StakeAmount          StakeAmount     `toml:"stake_amount"`
	StakeCurrency        string          `toml:"stake_currency"`

	ExportFilename                  string `toml:"exportfilename"`
	LookaheadAnalysisExportFilename string `toml:"lookahead_analysis_exportfilename"` // empty = no export
	TargetedTradeAmount             int    `toml:"targeted_trade_amount"`
	MinimumTradeAmount              int    `toml:"minimum_trade_amount"`
}

type AppConfig struct {
	LogLevel      string `toml:"log_level"`
	LogPath       string `toml:"log_path"`
	LogMaxSizeMB  int    `toml:"log_max_size_mb"`
	LogMaxBackups int    `toml:"log_max_backups"`
	LogMaxAgeDays int    `toml:"log_max_age_days"`
	LogCompress   bool   `toml:"log_compress"`
}

// EngineConfig describes how the external evaluation engine is invoked.
type EngineConfig struct {
	Command    string   `toml:"command"`
	ConfigFile string   `toml:"config_file"` // forwarded to the engine as --config
	ExtraArgs  []string `toml:"extra_args"`
	WorkDir    string   `toml:"work_dir"`
}

// StoreConfig selects the result store backend. An empty Path/DSN disables it.
type StoreConfig struct {
	Driver string `toml:"driver"` // "sqlite" | "mysql"
	Path   string `toml:"path"`
	DSN    string `toml:"dsn"`
}

func (s StoreConfig) Enabled() bool {
	switch strings.ToLower(strings.TrimSpace(s.Driver)) {
	case "mysql":
		return strings.TrimSpace(s.DSN) != ""
	default:
		return strings.TrimSpace(s.Path) != ""
	}
}

type HTTPConfig struct {
	Addr string `toml:"addr"`
}

// keySet tracks the config paths that were explicitly set by a source.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	_, ok := k[strings.ToLower(strings.TrimSpace(path))]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
