package config

import (
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	defaultLogLevel            = "info"
	defaultLogMaxSizeMB        = 100
	defaultLogMaxBackups       = 5
	defaultLogMaxAgeDays       = 14
	defaultUserDataDir         = "user_data"
	defaultStakeCurrency       = "USDT"
	defaultEngineCommand       = "freqtrade"
	defaultStoreDriver         = "sqlite"
	defaultHTTPAddr            = ":9991"
	defaultTargetedTradeAmount = 20
	defaultMinimumTradeAmount  = 10
)

var (
	defaultDryRunWallet         = decimal.NewFromInt(1000)
	defaultTradableBalanceRatio = decimal.RequireFromString("0.99")
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Engine.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	applyFieldDefaults(keys,
		stringFieldDefault("http.addr", &c.HTTP.Addr, defaultHTTPAddr),
		stringFieldDefault("user_data_dir", &c.UserDataDir, defaultUserDataDir),
		stringFieldDefault("stake_currency", &c.StakeCurrency, defaultStakeCurrency),
		fieldDefault{
			key:   "dry_run_wallet",
			need:  func() bool { return c.DryRunWallet.IsZero() },
			apply: func() { c.DryRunWallet = defaultDryRunWallet },
		},
		fieldDefault{
			key:   "tradable_balance_ratio",
			need:  func() bool { return c.TradableBalanceRatio.IsZero() },
			apply: func() { c.TradableBalanceRatio = defaultTradableBalanceRatio },
		},
		fieldDefault{
			key:   "stake_amount",
			need:  func() bool { return true },
			apply: func() { c.StakeAmount = Unlimited() },
		},
		fieldDefault{
			key:   "targeted_trade_amount",
			need:  func() bool { return c.TargetedTradeAmount <= 0 },
			apply: func() { c.TargetedTradeAmount = defaultTargetedTradeAmount },
		},
		fieldDefault{
			key:   "minimum_trade_amount",
			need:  func() bool { return c.MinimumTradeAmount <= 0 },
			apply: func() { c.MinimumTradeAmount = defaultMinimumTradeAmount },
		},
	)
	// strategy_path follows user_data_dir unless given explicitly.
	applyFieldDefaults(keys,
		stringFieldDefault("strategy_path", &c.StrategyPath, filepath.Join(c.UserDataDir, "strategies")),
	)
	c.Strategy = strings.TrimSpace(c.Strategy)
	c.StakeCurrency = strings.ToUpper(strings.TrimSpace(c.StakeCurrency))
}

func (a *AppConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.log_level", &a.LogLevel, defaultLogLevel),
		fieldDefault{
			key:   "app.log_max_size_mb",
			need:  func() bool { return a.LogMaxSizeMB <= 0 },
			apply: func() { a.LogMaxSizeMB = defaultLogMaxSizeMB },
		},
		fieldDefault{
			key:   "app.log_max_backups",
			need:  func() bool { return a.LogMaxBackups <= 0 },
			apply: func() { a.LogMaxBackups = defaultLogMaxBackups },
		},
		fieldDefault{
			key:   "app.log_max_age_days",
			need:  func() bool { return a.LogMaxAgeDays <= 0 },
			apply: func() { a.LogMaxAgeDays = defaultLogMaxAgeDays },
		},
	)
}

func (e *EngineConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("engine.command", &e.Command, defaultEngineCommand),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("store.driver", &s.Driver, defaultStoreDriver),
	)
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
