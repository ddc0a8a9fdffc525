package config

import "strings"

// RunMode identifies the command the configuration is prepared for.
type RunMode string

const (
	RunModeBacktest     RunMode = "backtest"
	RunModeHyperopt     RunMode = "hyperopt"
	RunModeEdge         RunMode = "edge"
	RunModeLookahead    RunMode = "lookahead"
	RunModeBacktestShow RunMode = "backtest_show"
)

// noUnlimitedModes maps the modes that reject oversized stakes to their display name.
var noUnlimitedModes = map[RunMode]string{
	RunModeBacktest: "backtesting",
	RunModeHyperopt: "hyperoptimization",
}

// NoUnlimitedStake reports whether stake sizing is checked against the wallet.
func (m RunMode) NoUnlimitedStake() bool {
	_, ok := noUnlimitedModes[m]
	return ok
}

// DisplayName returns the human readable mode name used in log lines.
func (m RunMode) DisplayName() string {
	if name, ok := noUnlimitedModes[m]; ok {
		return name
	}
	switch m {
	case RunModeEdge:
		return "edge"
	case RunModeLookahead:
		return "lookahead analysis"
	case RunModeBacktestShow:
		return "backtest show"
	}
	return string(m)
}

func (m RunMode) String() string { return string(m) }

// ParseRunMode accepts the canonical names plus the CLI subcommand aliases.
func ParseRunMode(s string) (RunMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "backtest", "backtesting":
		return RunModeBacktest, true
	case "hyperopt":
		return RunModeHyperopt, true
	case "edge":
		return RunModeEdge, true
	case "lookahead", "lookahead-analysis", "lookahead_analysis":
		return RunModeLookahead, true
	case "backtest_show", "backtesting-show", "backtest-show":
		return RunModeBacktestShow, true
	}
	return "", false
}
