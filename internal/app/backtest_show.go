package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"stratguard/internal/config"
	"stratguard/internal/logger"
	"stratguard/internal/runlock"
	"stratguard/internal/strategy"
)

// lastResultFile names the pointer file the engine keeps next to its exports.
const lastResultFile = ".last_result.json"

// BacktestSummary is one strategy row of a stored backtest result.
type BacktestSummary struct {
	Strategy       string
	Trades         int64
	Wins           int64
	Draws          int64
	Losses         int64
	ProfitTotal    decimal.Decimal
	ProfitTotalAbs decimal.Decimal
	MaxDrawdown    decimal.Decimal
	StakeCurrency  string
}

// ShowBacktest prints the summary of the stored backtest result at exportfilename.
func (c *Commands) ShowBacktest(ctx context.Context) (runlock.Outcome, error) {
	cfg, err := c.prepare(config.RunModeBacktestShow)
	if err != nil {
		return runlock.Failed, err
	}
	path, err := resolveBacktestResult(cfg.ExportFilename)
	if err != nil {
		return runlock.Failed, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return runlock.Failed, fmt.Errorf("read backtest result: %w", err)
	}
	summaries, err := ParseBacktestSummaries(raw, cfg.StakeCurrency)
	if err != nil {
		return runlock.Failed, fmt.Errorf("%s: %w", path, err)
	}
	if requested := strategy.Requested(cfg.Strategy, cfg.StrategyList); len(requested) > 0 {
		summaries = filterSummaries(summaries, requested)
	}
	logger.Infof("Showing backtest result %s", path)
	if err := RenderBacktestSummaries(c.out, summaries); err != nil {
		return runlock.Failed, err
	}
	return runlock.Completed, nil
}

// resolveBacktestResult accepts a result file or the export directory; for a
// directory the latest result named by its pointer file is used.
func resolveBacktestResult(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("exportfilename is not configured")
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("backtest result %s: %w", path, err)
	}
	if !info.IsDir() {
		return path, nil
	}
	raw, err := os.ReadFile(filepath.Join(path, lastResultFile))
	if err != nil {
		return "", fmt.Errorf("directory %s does not seem to contain backtest results: %w", path, err)
	}
	latest := gjson.GetBytes(raw, "latest_backtest").String()
	if latest == "" {
		return "", fmt.Errorf("invalid %s in %s", lastResultFile, path)
	}
	return filepath.Join(path, latest), nil
}

// ParseBacktestSummaries extracts per-strategy totals, sorted by strategy name.
func ParseBacktestSummaries(raw []byte, defaultCurrency string) ([]BacktestSummary, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("backtest result is not valid json")
	}
	strategies := gjson.GetBytes(raw, "strategy")
	if !strategies.IsObject() {
		return nil, fmt.Errorf("backtest result has no strategy section")
	}
	var out []BacktestSummary
	strategies.ForEach(func(key, value gjson.Result) bool {
		currency := value.Get("stake_currency").String()
		if currency == "" {
			currency = defaultCurrency
		}
		out = append(out, BacktestSummary{
			Strategy:       key.String(),
			Trades:         value.Get("total_trades").Int(),
			Wins:           value.Get("wins").Int(),
			Draws:          value.Get("draws").Int(),
			Losses:         value.Get("losses").Int(),
			ProfitTotal:    jsonDecimal(value.Get("profit_total")),
			ProfitTotalAbs: jsonDecimal(value.Get("profit_total_abs")),
			MaxDrawdown:    jsonDecimal(value.Get("max_drawdown_account")),
			StakeCurrency:  currency,
		})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Strategy < out[j].Strategy })
	return out, nil
}

func jsonDecimal(r gjson.Result) decimal.Decimal {
	if !r.Exists() {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(r.Raw)
	if err != nil {
		return decimal.NewFromFloat(r.Float())
	}
	return d
}

func filterSummaries(in []BacktestSummary, names []string) []BacktestSummary {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	out := in[:0]
	for _, s := range in {
		if want[s.Strategy] {
			out = append(out, s)
		}
	}
	return out
}

func RenderBacktestSummaries(w io.Writer, rows []BacktestSummary) error {
	hundred := decimal.NewFromInt(100)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "strategy\ttrades\ttot_profit\ttot_profit_%\twin/draw/loss\tmax_drawdown_%")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%d/%d/%d\t%s\n",
			r.Strategy,
			r.Trades,
			config.FormatCoinValue(r.ProfitTotalAbs, r.StakeCurrency),
			r.ProfitTotal.Mul(hundred).StringFixed(2),
			r.Wins, r.Draws, r.Losses,
			r.MaxDrawdown.Mul(hundred).StringFixed(2),
		)
	}
	return tw.Flush()
}
