package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"stratguard/internal/config"
	"stratguard/internal/engine"
	"stratguard/internal/logger"
	"stratguard/internal/lookahead"
	"stratguard/internal/runlock"
	"stratguard/internal/store"
	"stratguard/internal/strategy"
)

// Commands implements the optimize subcommands. Every command reports a tri-state
// outcome; an error always comes with runlock.Failed.
type Commands struct {
	cfg         *config.Config
	engines     engine.Set
	discoverer  strategy.Discoverer
	runs        store.RunStore
	out         io.Writer
	lockTimeout time.Duration
}

type CommandsOption func(*Commands)

// WithCommandOutput sets where tables and hyperopt results are written. Defaults
// to stdout.
func WithCommandOutput(w io.Writer) CommandsOption {
	return func(c *Commands) {
		if w != nil {
			c.out = w
		}
	}
}

// WithRunStore records every run. A nil store disables recording.
func WithRunStore(s store.RunStore) CommandsOption {
	return func(c *Commands) { c.runs = s }
}

func WithLockTimeout(d time.Duration) CommandsOption {
	return func(c *Commands) {
		if d > 0 {
			c.lockTimeout = d
		}
	}
}

func NewCommands(cfg *config.Config, engines engine.Set, discoverer strategy.Discoverer, opts ...CommandsOption) *Commands {
	c := &Commands{
		cfg:         cfg,
		engines:     engines,
		discoverer:  discoverer,
		out:         os.Stdout,
		lockTimeout: runlock.DefaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// StartBacktesting validates stake sizing and runs the backtest engine.
func (c *Commands) StartBacktesting(ctx context.Context) (runlock.Outcome, error) {
	return c.startEngine(ctx, config.RunModeBacktest, func() engine.Runner { return c.engines.Backtest })
}

// StartEdge runs the edge engine. Edge positions are sized by the engine itself, so
// the stake check passes through.
func (c *Commands) StartEdge(ctx context.Context) (runlock.Outcome, error) {
	return c.startEngine(ctx, config.RunModeEdge, func() engine.Runner { return c.engines.Edge })
}

func (c *Commands) startEngine(ctx context.Context, mode config.RunMode, runner func() engine.Runner) (runlock.Outcome, error) {
	cfg, err := c.prepare(mode)
	if err != nil {
		return runlock.Failed, err
	}
	return c.track(ctx, mode, func(runID string) (runlock.Outcome, error) {
		opts := engine.RunOptions{RunID: runID, Logger: logger.L().With(slog.String("run_id", runID))}
		if err := runner().Start(ctx, cfg, opts); err != nil {
			return runlock.Failed, err
		}
		return runlock.Completed, nil
	})
}

// StartHyperopt runs the hyperparameter search while holding the machine-wide
// hyperopt lock. A second invocation returns runlock.Skipped without starting the
// engine.
func (c *Commands) StartHyperopt(ctx context.Context) (runlock.Outcome, error) {
	cfg, err := c.prepare(config.RunModeHyperopt)
	if err != nil {
		return runlock.Failed, err
	}
	guard := runlock.New(config.LockPath(cfg), runlock.WithTimeout(c.lockTimeout))
	return c.track(ctx, config.RunModeHyperopt, func(runID string) (runlock.Outcome, error) {
		return guard.Run(ctx, func(ctx context.Context) error {
			opts := engine.RunOptions{
				RunID:  runID,
				Logger: logger.Scoped("hyperopt", slog.LevelWarn).With(slog.String("run_id", runID)),
				Output: c.out,
			}
			return c.engines.Hyperopt.Start(ctx, cfg, opts)
		})
	})
}

// StartLookaheadAnalysis checks every requested strategy for lookahead bias.
func (c *Commands) StartLookaheadAnalysis(ctx context.Context) (runlock.Outcome, error) {
	cfg, err := c.prepare(config.RunModeLookahead)
	if err != nil {
		return runlock.Failed, err
	}
	return c.track(ctx, config.RunModeLookahead, func(runID string) (runlock.Outcome, error) {
		opts := []lookahead.Option{lookahead.WithOutput(c.out)}
		if c.runs != nil {
			opts = append(opts, lookahead.WithRecorder(c.runs))
		}
		orch := lookahead.NewOrchestrator(c.discoverer, c.engines.Lookahead, opts...)
		if _, err := orch.Run(ctx, cfg, runID); err != nil {
			return runlock.Failed, err
		}
		return runlock.Completed, nil
	})
}

// prepare runs the capability probe before any configuration side effect, then the
// stake sizing check, then announces the mode.
func (c *Commands) prepare(mode config.RunMode) (*config.Config, error) {
	if err := engine.Probe(c.engines, mode); err != nil {
		return nil, err
	}
	if c.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg, err := config.ValidateStakeSizing(c.cfg, mode)
	if err != nil {
		return nil, err
	}
	logger.Infof("Starting in %s mode", mode.DisplayName())
	return cfg, nil
}

// track records the run around fn when a store is configured. Store failures are
// logged and never change the outcome.
func (c *Commands) track(ctx context.Context, mode config.RunMode, fn func(runID string) (runlock.Outcome, error)) (runlock.Outcome, error) {
	runID := uuid.NewString()
	recording := c.runs != nil
	if recording {
		if err := c.runs.BeginRun(ctx, runID, mode.String()); err != nil {
			logger.Warnf("recording run %s failed: %v", runID, err)
			recording = false
		}
	}
	outcome, err := fn(runID)
	if recording {
		msg := ""
		switch {
		case err != nil:
			msg = err.Error()
		case outcome == runlock.Skipped:
			msg = "another instance holds the lock"
		}
		// The run context may already be cancelled.
		if ferr := c.runs.FinishRun(context.WithoutCancel(ctx), runID, outcome.String(), msg); ferr != nil {
			logger.Warnf("recording run %s failed: %v", runID, ferr)
		}
	}
	return outcome, err
}
