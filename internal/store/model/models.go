package model

import "gorm.io/datatypes"

// RunModel maps to 'optimize_runs' table.
type RunModel struct {
	ID         string `gorm:"column:id;primaryKey;size:64"`
	Mode       string `gorm:"column:mode;size:32;index"`
	Outcome    string `gorm:"column:outcome;size:16"`
	Message    string `gorm:"column:message;type:text"`
	StartedAt  int64  `gorm:"column:started_at;index"`
	FinishedAt int64  `gorm:"column:finished_at"`
}

func (RunModel) TableName() string { return "optimize_runs" }

// LookaheadModel maps to 'lookahead_results' table. One row per (run, filename, strategy).
type LookaheadModel struct {
	ID                 int64          `gorm:"column:id;primaryKey;autoIncrement"`
	RunID              string         `gorm:"column:run_id;size:64;uniqueIndex:idx_lookahead_run_strategy"`
	Filename           string         `gorm:"column:filename;size:255;uniqueIndex:idx_lookahead_run_strategy"`
	Strategy           string         `gorm:"column:strategy;size:255;uniqueIndex:idx_lookahead_run_strategy"`
	HasBias            bool           `gorm:"column:has_bias"`
	Failed             bool           `gorm:"column:failed"`
	TotalSignals       int            `gorm:"column:total_signals"`
	BiasedEntrySignals int            `gorm:"column:biased_entry_signals"`
	BiasedExitSignals  int            `gorm:"column:biased_exit_signals"`
	BiasedIndicators   datatypes.JSON `gorm:"column:biased_indicators"`
	Evidence           datatypes.JSON `gorm:"column:evidence"`
	DurationMs         int64          `gorm:"column:duration_ms"`
	CreatedAt          int64          `gorm:"column:created_at"`
}

func (LookaheadModel) TableName() string { return "lookahead_results" }
