package store

import (
	"context"
	"time"

	"stratguard/internal/lookahead"
)

// RunRecord is one optimize command invocation.
type RunRecord struct {
	ID         string    `json:"id"`
	Mode       string    `json:"mode"`
	Outcome    string    `json:"outcome"`
	Message    string    `json:"message,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// OutcomeRunning marks a run that has not finished yet.
const OutcomeRunning = "running"

// LookaheadRecord is one persisted lookahead verdict.
type LookaheadRecord struct {
	RunID              string         `json:"run_id"`
	Filename           string         `json:"filename"`
	Strategy           string         `json:"strategy"`
	HasBias            bool           `json:"has_bias"`
	Failed             bool           `json:"failed"`
	TotalSignals       int            `json:"total_signals"`
	BiasedEntrySignals int            `json:"biased_entry_signals"`
	BiasedExitSignals  int            `json:"biased_exit_signals"`
	BiasedIndicators   []string       `json:"biased_indicators"`
	Evidence           map[string]any `json:"evidence,omitempty"`
	DurationMs         int64          `json:"duration_ms"`
	CreatedAt          time.Time      `json:"created_at"`
}

// RunStore records runs and their lookahead results.
type RunStore interface {
	lookahead.Recorder

	BeginRun(ctx context.Context, runID, mode string) error
	FinishRun(ctx context.Context, runID, outcome, message string) error
	GetRun(ctx context.Context, runID string) (RunRecord, bool, error)
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	LookaheadForRun(ctx context.Context, runID string) ([]LookaheadRecord, error)
	Close() error
}
