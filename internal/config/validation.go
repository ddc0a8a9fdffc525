package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func validate(c *Config) error {
	if c.DryRunWallet.IsNegative() {
		return configErrorf("dry_run_wallet must be >= 0")
	}
	if !c.TradableBalanceRatio.IsPositive() || c.TradableBalanceRatio.GreaterThan(decimal.NewFromInt(1)) {
		return configErrorf("tradable_balance_ratio must be in (0, 1], got %s", c.TradableBalanceRatio)
	}
	if !c.StakeAmount.Unlimited && c.StakeAmount.Amount.IsNegative() {
		return configErrorf("stake_amount must be >= 0 or %q", UnlimitedStakeAmount)
	}
	if c.TargetedTradeAmount < 0 {
		return configErrorf("targeted_trade_amount must be >= 0")
	}
	if c.MinimumTradeAmount < 0 {
		return configErrorf("minimum_trade_amount must be >= 0")
	}
	if c.Timeframe != "" && !IsValidInterval(c.Timeframe) {
		return configErrorf("timeframe %q is not a valid interval", c.Timeframe)
	}
	if err := c.Store.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Engine.Command) == "" {
		return configErrorf("engine.command cannot be empty")
	}
	return nil
}

func (s *StoreConfig) validate() error {
	switch s.Driver {
	case "sqlite", "mysql":
		return nil
	default:
		return configErrorf("store.driver only supports sqlite or mysql, got %s", s.Driver)
	}
}

// IsValidInterval accepts intervals such as 5m, 1h, 1d or 1w.
func IsValidInterval(s string) bool {
	if len(s) < 2 {
		return false
	}
	suf := s[len(s)-1]
	if suf != 'm' && suf != 'h' && suf != 'd' && suf != 'w' {
		return false
	}
	for i := 0; i < len(s)-1; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Describe renders the effective sizing settings for startup logs.
func (c *Config) Describe() string {
	return strings.Join([]string{
		fmt.Sprintf("dry_run_wallet=%s", FormatCoinValue(c.DryRunWallet, c.StakeCurrency)),
		fmt.Sprintf("tradable_balance_ratio=%s", c.TradableBalanceRatio),
		fmt.Sprintf("stake_amount=%s", c.StakeAmount),
		fmt.Sprintf("user_data_dir=%s", c.UserDataDir),
	}, " ")
}
