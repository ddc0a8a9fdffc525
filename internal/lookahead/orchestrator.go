package lookahead

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"stratguard/internal/config"
	"stratguard/internal/logger"
	"stratguard/internal/strategy"
)

// Orchestrator resolves the requested strategies, runs one job per strategy in
// request order and reports the results.
type Orchestrator struct {
	discoverer strategy.Discoverer
	analyzer   Analyzer
	out        io.Writer
	recorder   Recorder
}

type Option func(*Orchestrator)

// WithOutput sets where the summary table is rendered. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(o *Orchestrator) {
		if w != nil {
			o.out = w
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

func NewOrchestrator(d strategy.Discoverer, a Analyzer, opts ...Option) *Orchestrator {
	o := &Orchestrator{discoverer: d, analyzer: a, out: os.Stdout}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Run executes the whole workflow. A failing job aborts the run before anything is
// rendered or exported, and its error is returned unchanged.
func (o *Orchestrator) Run(ctx context.Context, cfg *config.Config, runID string) (Report, error) {
	if cfg == nil {
		return Report{}, fmt.Errorf("nil config")
	}
	if o.discoverer == nil || o.analyzer == nil {
		return Report{}, fmt.Errorf("lookahead orchestrator not initialized")
	}
	report := Report{RunID: runID}

	checkThresholds(cfg)

	discovered, err := o.discoverer.SearchAll(ctx, cfg, false, cfg.RecursiveStrategySearch)
	if err != nil {
		return report, fmt.Errorf("strategy discovery failed: %w", err)
	}
	report.Requested = strategy.Requested(cfg.Strategy, cfg.StrategyList)
	resolved := strategy.Resolve(report.Requested, discovered)
	report.Unresolved = strategy.Unresolved(report.Requested, resolved)
	for _, name := range report.Unresolved {
		logger.Warnf("strategy %s could not be found or loaded, skipping", name)
	}

	if len(resolved) == 0 {
		logger.Errorf("There were no strategies specified neither through --strategy " +
			"nor through --strategy-list or timeframe was not specified.")
		return report, ErrNoStrategiesResolved
	}

	results := make([]Result, 0, len(resolved))
	for _, desc := range resolved {
		res, err := o.runJob(ctx, NewJob(desc, cfg))
		if err != nil {
			return report, err
		}
		results = append(results, res)
	}
	report.Results = results

	if err := RenderTable(o.out, results, cfg.MinimumTradeAmount, cfg.TargetedTradeAmount); err != nil {
		return report, fmt.Errorf("render lookahead table: %w", err)
	}
	if path := strings.TrimSpace(cfg.LookaheadAnalysisExportFilename); path != "" {
		if err := Export(path, results, cfg.MinimumTradeAmount); err != nil {
			return report, fmt.Errorf("export lookahead results: %w", err)
		}
		report.ExportPath = path
	}
	if o.recorder != nil {
		if err := o.recorder.SaveLookahead(ctx, runID, results); err != nil {
			logger.Warnf("recording lookahead results failed: %v", err)
		}
	}
	return report, nil
}

func (o *Orchestrator) runJob(ctx context.Context, job Job) (Result, error) {
	name := job.Strategy.Name
	logger.Infof("Bias test of %s started.", name)
	start := time.Now()
	res, err := o.analyzer.Analyze(ctx, job)
	if err != nil {
		return Result{}, err
	}
	if res.Strategy == "" {
		res.Strategy = name
	}
	if res.Filename == "" {
		res.Filename = job.Filename()
	}
	if res.Duration == 0 {
		res.Duration = time.Since(start)
	}
	logger.Infof("Checking look ahead bias via backtests of %s took %.0f seconds.", job.Filename(), res.Duration.Seconds())
	return res, nil
}

// checkThresholds warns when the targeted trade amount is below the minimum; the
// run continues.
func checkThresholds(cfg *config.Config) {
	if cfg.TargetedTradeAmount < cfg.MinimumTradeAmount {
		logger.Warnf("targeted_trade_amount (%d) is lower than minimum_trade_amount (%d); "+
			"every strategy will report too few trades, check your configuration.",
			cfg.TargetedTradeAmount, cfg.MinimumTradeAmount)
	}
}
