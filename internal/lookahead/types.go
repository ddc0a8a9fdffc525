// Package lookahead runs lookahead-bias checks over a set of strategies and reports
// the verdicts.
package lookahead

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"stratguard/internal/config"
	"stratguard/internal/strategy"
)

// ErrNoStrategiesResolved is returned when none of the requested strategies could be
// matched, so there is nothing to analyze or report.
var ErrNoStrategiesResolved = errors.New("lookahead: no strategies resolved")

// Job is one bias check of one strategy.
type Job struct {
	ID                  string
	Strategy            strategy.Descriptor
	Config              *config.Config
	TargetedTradeAmount int
	MinimumTradeAmount  int
	Timeframe           string
}

// NewJob builds the job for desc from the shared run configuration. The strategy's
// own timeframe is used when the run does not set one.
func NewJob(desc strategy.Descriptor, cfg *config.Config) Job {
	tf := strings.TrimSpace(cfg.Timeframe)
	if tf == "" && desc.Meta != nil {
		tf = desc.Meta["timeframe"]
	}
	return Job{
		ID:                  uuid.NewString(),
		Strategy:            desc,
		Config:              cfg,
		TargetedTradeAmount: cfg.TargetedTradeAmount,
		MinimumTradeAmount:  cfg.MinimumTradeAmount,
		Timeframe:           tf,
	}
}

// Filename is the base name of the strategy source file.
func (j Job) Filename() string {
	if j.Strategy.Location == "" {
		return ""
	}
	return filepath.Base(j.Strategy.Location)
}

// Result is the immutable verdict for one job.
type Result struct {
	Filename           string
	Strategy           string
	HasBias            bool
	TotalSignals       int
	BiasedEntrySignals int
	BiasedExitSignals  int
	BiasedIndicators   []string
	// Failed is set when the engine could not complete the check for this strategy.
	Failed   bool
	Evidence map[string]any
	Duration time.Duration
}

// Analyzer is the external bias detection engine.
type Analyzer interface {
	Analyze(ctx context.Context, job Job) (Result, error)
}

// Recorder persists results of a run. Optional.
type Recorder interface {
	SaveLookahead(ctx context.Context, runID string, results []Result) error
}

// Report summarizes one orchestrated run.
type Report struct {
	RunID      string
	Requested  []string
	Unresolved []string
	Results    []Result
	ExportPath string
}
