package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	decimalsFallback = 3
	lockFileName     = "hyperopt.lock"
)

var decimalsPerCoin = map[string]int32{
	"BTC": 8,
	"ETH": 5,
}

// ConfigError is an operational configuration problem that must be fixed by the user
// before any engine starts.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// WalletSize returns dry_run_wallet * tradable_balance_ratio.
func (c *Config) WalletSize() decimal.Decimal {
	return c.DryRunWallet.Mul(c.TradableBalanceRatio)
}

// ValidateStakeSizing rejects a fixed stake that exceeds the tradable wallet for
// backtest and hyperopt runs. The config is returned unchanged on success.
func ValidateStakeSizing(cfg *Config, mode RunMode) (*Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if !mode.NoUnlimitedStake() {
		return cfg, nil
	}
	wallet := cfg.WalletSize()
	if !cfg.StakeAmount.Unlimited && cfg.StakeAmount.Amount.GreaterThan(wallet) {
		return nil, configErrorf(
			"Starting balance (%s) is smaller than stake_amount %s. "+
				"Wallet is calculated as `dry_run_wallet * tradable_balance_ratio`.",
			FormatCoinValue(wallet, cfg.StakeCurrency),
			FormatCoinValue(cfg.StakeAmount.Amount, cfg.StakeCurrency),
		)
	}
	return cfg, nil
}

// FormatCoinValue rounds value to the precision of coin and appends the coin code,
// e.g. "990 USDT" or "0.00123 BTC".
func FormatCoinValue(value decimal.Decimal, coin string) string {
	coin = strings.ToUpper(strings.TrimSpace(coin))
	places, ok := decimalsPerCoin[coin]
	if !ok {
		places = decimalsFallback
	}
	formatted := value.Round(places).StringFixed(places)
	if strings.Contains(formatted, ".") {
		formatted = strings.TrimRight(formatted, "0")
		formatted = strings.TrimSuffix(formatted, ".")
	}
	if coin == "" {
		return formatted
	}
	return formatted + " " + coin
}

// LockPath is the single hyperopt lock for the user data dir. Every hyperopt
// invocation sharing the dir contends on it regardless of its other settings.
func LockPath(cfg *Config) string {
	dir := "."
	if cfg != nil && strings.TrimSpace(cfg.UserDataDir) != "" {
		dir = cfg.UserDataDir
	}
	return filepath.Join(dir, lockFileName)
}
