// Package engine defines the boundary to the external evaluation engines and the
// startup capability probe that guards it.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"stratguard/internal/config"
	"stratguard/internal/lookahead"
)

// RunOptions carries per-invocation settings into an engine.
type RunOptions struct {
	RunID string
	// Logger is scoped to the invocation. Engines must log through it rather than
	// changing the process logger.
	Logger *slog.Logger
	// Output receives the engine's result stream. When nil the stream goes to
	// Logger along with the diagnostics.
	Output io.Writer
}

// Runner starts a long running engine and blocks until it finishes.
type Runner interface {
	Start(ctx context.Context, cfg *config.Config, opts RunOptions) error
}

// Availability is implemented by engines that can report missing dependencies
// before they are started.
type Availability interface {
	Available() error
}

// Set groups the engines a process was built with. A nil member means the engine is
// not installed.
type Set struct {
	Backtest  Runner
	Hyperopt  Runner
	Edge      Runner
	Lookahead lookahead.Analyzer
}

// DependencyMissingError reports that the engine required by a mode cannot run.
type DependencyMissingError struct {
	Mode config.RunMode
	What string
	Err  error
}

func (e *DependencyMissingError) Error() string {
	msg := fmt.Sprintf("%s is not available. Please ensure that the %s dependencies are installed.", e.What, dependencyGroup(e.Mode))
	if e.Err != nil {
		msg += " (" + e.Err.Error() + ")"
	}
	return msg
}

func (e *DependencyMissingError) Unwrap() error { return e.Err }

func dependencyGroup(mode config.RunMode) string {
	switch mode {
	case config.RunModeHyperopt:
		return "hyperopt"
	case config.RunModeLookahead:
		return "lookahead analysis"
	default:
		return "engine"
	}
}

// Probe checks once, before any configuration side effects, that the engine for mode
// can run. Modes without an engine always pass.
func Probe(set Set, mode config.RunMode) error {
	var (
		component any
		what      string
	)
	switch mode {
	case config.RunModeBacktest:
		component, what = set.Backtest, "Backtesting engine"
	case config.RunModeHyperopt:
		component, what = set.Hyperopt, "Hyperopt engine"
	case config.RunModeEdge:
		component, what = set.Edge, "Edge engine"
	case config.RunModeLookahead:
		component, what = set.Lookahead, "Lookahead analysis engine"
	default:
		return nil
	}
	if component == nil {
		return &DependencyMissingError{Mode: mode, What: what}
	}
	if av, ok := component.(Availability); ok {
		if err := av.Available(); err != nil {
			return &DependencyMissingError{Mode: mode, What: what, Err: err}
		}
	}
	return nil
}
