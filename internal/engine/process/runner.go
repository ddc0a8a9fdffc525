package process

import (
	"context"
	"strings"

	"stratguard/internal/config"
	"stratguard/internal/engine"
)

// Runner starts a backtest, hyperopt or edge run through the engine command.
type Runner struct {
	cmd  command
	sub  string
	mode config.RunMode
}

var (
	_ engine.Runner       = (*Runner)(nil)
	_ engine.Availability = (*Runner)(nil)
)

func NewBacktest(cfg config.EngineConfig) *Runner {
	return &Runner{cmd: newCommand(cfg), sub: "backtesting", mode: config.RunModeBacktest}
}

func NewHyperopt(cfg config.EngineConfig) *Runner {
	return &Runner{cmd: newCommand(cfg), sub: "hyperopt", mode: config.RunModeHyperopt}
}

func NewEdge(cfg config.EngineConfig) *Runner {
	return &Runner{cmd: newCommand(cfg), sub: "edge", mode: config.RunModeEdge}
}

// NewSet builds every engine from one engine configuration.
func NewSet(cfg config.EngineConfig) engine.Set {
	return engine.Set{
		Backtest:  NewBacktest(cfg),
		Hyperopt:  NewHyperopt(cfg),
		Edge:      NewEdge(cfg),
		Lookahead: NewLookahead(cfg),
	}
}

func (r *Runner) Available() error { return r.cmd.available() }

func (r *Runner) Start(ctx context.Context, cfg *config.Config, opts engine.RunOptions) error {
	return r.cmd.run(ctx, r.sub, runArgs(cfg, r.mode), opts.Logger, opts.Output)
}

// runArgs translates the run configuration into engine flags.
func runArgs(cfg *config.Config, mode config.RunMode) []string {
	if cfg == nil {
		return nil
	}
	var args []string
	add := func(flag, value string) {
		if value = strings.TrimSpace(value); value != "" {
			args = append(args, flag, value)
		}
	}
	add("--userdir", cfg.UserDataDir)
	add("--strategy-path", cfg.StrategyPath)
	if cfg.RecursiveStrategySearch {
		args = append(args, "--recursive-strategy-search")
	}
	add("--timeframe", cfg.Timeframe)
	if mode != config.RunModeEdge {
		add("--strategy", cfg.Strategy)
		if len(cfg.StrategyList) > 0 && mode == config.RunModeBacktest {
			args = append(args, "--strategy-list")
			args = append(args, cfg.StrategyList...)
		}
	}
	if !cfg.DryRunWallet.IsZero() {
		add("--dry-run-wallet", cfg.DryRunWallet.String())
	}
	if !cfg.StakeAmount.Unlimited && !cfg.StakeAmount.Amount.IsZero() {
		add("--stake-amount", cfg.StakeAmount.String())
	}
	if mode == config.RunModeBacktest {
		add("--export-filename", cfg.ExportFilename)
	}
	return args
}
