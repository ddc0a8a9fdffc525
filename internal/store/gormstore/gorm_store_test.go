package gormstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratguard/internal/config"
	"stratguard/internal/lookahead"
	"stratguard/internal/store"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := NewGormStore(filepath.Join(t.TempDir(), "db", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.BeginRun(ctx, "run-1", "hyperopt"))
	rec, ok, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, store.OutcomeRunning, rec.Outcome)
	assert.Equal(t, "hyperopt", rec.Mode)
	assert.True(t, rec.FinishedAt.IsZero())

	require.NoError(t, s.FinishRun(ctx, "run-1", "skipped", "another instance holds the lock"))
	rec, ok, err = s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "skipped", rec.Outcome)
	assert.Equal(t, "another instance holds the lock", rec.Message)
	assert.False(t, rec.FinishedAt.IsZero())

	_, ok, err = s.GetRun(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, s.FinishRun(ctx, "missing", "completed", ""))
	assert.Error(t, s.BeginRun(ctx, " ", "backtest"))
}

func TestListRunsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.BeginRun(ctx, id, "backtest"))
		time.Sleep(2 * time.Millisecond)
	}
	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
}

func TestSaveLookaheadUpserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.BeginRun(ctx, "run-1", "lookahead"))

	first := []lookahead.Result{
		{Filename: "a.py", Strategy: "A", HasBias: true, TotalSignals: 22, BiasedIndicators: []string{"ema"}, Evidence: map[string]any{"ema": 2}},
		{Filename: "b.py", Strategy: "B", TotalSignals: 30, Duration: 1500 * time.Millisecond},
	}
	require.NoError(t, s.SaveLookahead(ctx, "run-1", first))
	require.NoError(t, s.SaveLookahead(ctx, "run-1", []lookahead.Result{
		{Filename: "a.py", Strategy: "A", HasBias: false, TotalSignals: 25},
	}))

	recs, err := s.LookaheadForRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "A", recs[0].Strategy)
	assert.False(t, recs[0].HasBias)
	assert.Equal(t, 25, recs[0].TotalSignals)
	assert.Empty(t, recs[0].BiasedIndicators)
	assert.Equal(t, "B", recs[1].Strategy)
	assert.Equal(t, int64(1500), recs[1].DurationMs)

	other, err := s.LookaheadForRun(ctx, "run-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSaveLookaheadKeepsIndicators(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveLookahead(ctx, "run-1", []lookahead.Result{
		{Filename: "a.py", Strategy: "A", HasBias: true, BiasedIndicators: []string{"ema", "rsi"}, Evidence: map[string]any{"ema": 2}},
	}))
	recs, err := s.LookaheadForRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, []string{"ema", "rsi"}, recs[0].BiasedIndicators)
	assert.EqualValues(t, 2, recs[0].Evidence["ema"])
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.StoreConfig{Driver: "postgres", DSN: "x"})
	assert.ErrorContains(t, err, "unsupported driver")

	_, err = Open(config.StoreConfig{Driver: "mysql"})
	assert.ErrorContains(t, err, "dsn is required")

	_, err = Open(config.StoreConfig{Driver: "sqlite"})
	assert.ErrorContains(t, err, "path is required")
}
