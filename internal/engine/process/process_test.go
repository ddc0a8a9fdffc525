package process

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratguard/internal/config"
	"stratguard/internal/engine"
	"stratguard/internal/lookahead"
	"stratguard/internal/strategy"
)

// fakeEngine writes an executable shell script that records its arguments next to
// itself and then runs body.
func fakeEngine(t *testing.T, body string) (string, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	script := "#!/bin/sh\nprintf '%s\\n' \"$@\" > " + argsFile + "\n" + body + "\n"
	path := filepath.Join(dir, "engine.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path, argsFile
}

func readArgs(t *testing.T, path string) []string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
}

func TestRunnerStartForwardsOutput(t *testing.T) {
	bin, argsFile := fakeEngine(t, "echo 'epoch 1 done'\necho 'warning on stderr' >&2")
	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))

	r := NewHyperopt(config.EngineConfig{Command: bin, ConfigFile: "ft.json", ExtraArgs: []string{"--epochs", "5"}})
	require.NoError(t, r.Available())
	cfg := &config.Config{UserDataDir: "/ud", Strategy: "Sample", Timeframe: "5m", StakeAmount: config.Unlimited()}
	require.NoError(t, r.Start(context.Background(), cfg, engine.RunOptions{Logger: log}))

	assert.Equal(t, []string{
		"hyperopt", "--config", "ft.json",
		"--userdir", "/ud", "--timeframe", "5m", "--strategy", "Sample",
		"--epochs", "5",
	}, readArgs(t, argsFile))
	assert.Contains(t, logs.String(), "epoch 1 done")
	assert.Contains(t, logs.String(), "warning on stderr")
}

func TestRunnerWritesResultsToOutputWithScopedLogger(t *testing.T) {
	bin, _ := fakeEngine(t, "echo 'Best result: 42 trades, profit 3.1%'\necho 'noisy progress' >&2")
	var logs, out bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))

	opts := engine.RunOptions{Logger: log, Output: &out}
	require.NoError(t, NewHyperopt(config.EngineConfig{Command: bin}).Start(context.Background(), &config.Config{}, opts))
	assert.Contains(t, out.String(), "Best result: 42 trades")
	assert.Empty(t, logs.String())
}

func TestRunnerSurvivesOversizedLine(t *testing.T) {
	body := `{ head -c 1300000 /dev/zero | tr '\0' x; echo; } >&2
head -c 300000 /dev/zero | tr '\0' y >&2
echo >&2
echo 'after long line' >&2`
	bin, _ := fakeEngine(t, body)
	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	start := time.Now()
	require.NoError(t, NewBacktest(config.EngineConfig{Command: bin}).Start(ctx, &config.Config{}, engine.RunOptions{Logger: log}))
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Contains(t, logs.String(), "after long line")
	assert.Contains(t, logs.String(), "truncated_bytes=")
}

func TestRunnerPropagatesExitStatus(t *testing.T) {
	bin, _ := fakeEngine(t, "exit 3")
	err := NewBacktest(config.EngineConfig{Command: bin}).Start(context.Background(), &config.Config{}, engine.RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backtesting")
	assert.Contains(t, err.Error(), "exit status 3")
}

func TestAvailableMissingCommand(t *testing.T) {
	r := NewEdge(config.EngineConfig{Command: "stratguard-no-such-engine"})
	err := r.Available()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stratguard-no-such-engine")

	probeErr := engine.Probe(engine.Set{Edge: r}, config.RunModeEdge)
	var missing *engine.DependencyMissingError
	assert.ErrorAs(t, probeErr, &missing)
}

func TestRunArgsBacktest(t *testing.T) {
	cfg := &config.Config{
		StrategyPath:            "/s",
		RecursiveStrategySearch: true,
		Strategy:                "A",
		StrategyList:            []string{"B", "C"},
		DryRunWallet:            decimal.NewFromInt(1000),
		StakeAmount:             config.FixedStake(decimal.NewFromInt(50)),
		ExportFilename:          "bt.json",
	}
	assert.Equal(t, []string{
		"--strategy-path", "/s", "--recursive-strategy-search",
		"--strategy", "A", "--strategy-list", "B", "C",
		"--dry-run-wallet", "1000", "--stake-amount", "50",
		"--export-filename", "bt.json",
	}, runArgs(cfg, config.RunModeBacktest))

	edge := runArgs(cfg, config.RunModeEdge)
	assert.NotContains(t, edge, "--strategy")
	assert.NotContains(t, edge, "--export-filename")
}

func lookaheadJob() lookahead.Job {
	return lookahead.NewJob(
		strategy.Descriptor{Name: "Sample", Location: "/strategies/sample.py"},
		&config.Config{TargetedTradeAmount: 20, MinimumTradeAmount: 10, Timeframe: "1h"},
	)
}

func TestLookaheadAnalyze(t *testing.T) {
	body := `echo 'loading data'
echo '{"has_bias": true, "total_signals": 22, "biased_entry_signals": 2, "biased_exit_signals": 1, "biased_indicators": ["ema_fast"], "evidence": {"ema_fast": 3}}'`
	bin, argsFile := fakeEngine(t, body)

	res, err := NewLookahead(config.EngineConfig{Command: bin}).Analyze(context.Background(), lookaheadJob())
	require.NoError(t, err)
	assert.Equal(t, "Sample", res.Strategy)
	assert.Equal(t, "sample.py", res.Filename)
	assert.True(t, res.HasBias)
	assert.Equal(t, 22, res.TotalSignals)
	assert.Equal(t, 2, res.BiasedEntrySignals)
	assert.Equal(t, 1, res.BiasedExitSignals)
	assert.Equal(t, []string{"ema_fast"}, res.BiasedIndicators)
	assert.Contains(t, res.Evidence, "ema_fast")

	assert.Equal(t, []string{
		"lookahead-analysis", "--strategy", "Sample", "--strategy-path", "/strategies",
		"--timeframe", "1h", "--targeted-trade-amount", "20", "--minimum-trade-amount", "10",
	}, readArgs(t, argsFile))
}

func TestLookaheadRejectsInvalidResult(t *testing.T) {
	bin, _ := fakeEngine(t, `echo '{"has_bias": "yes", "total_signals": -1}'`)
	_, err := NewLookahead(config.EngineConfig{Command: bin}).Analyze(context.Background(), lookaheadJob())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid lookahead result")
}

func TestLookaheadWithoutResult(t *testing.T) {
	bin, _ := fakeEngine(t, "echo 'nothing to report'")
	_, err := NewLookahead(config.EngineConfig{Command: bin}).Analyze(context.Background(), lookaheadJob())
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestNewSetDefaultsToFreqtrade(t *testing.T) {
	set := NewSet(config.EngineConfig{})
	r, ok := set.Hyperopt.(*Runner)
	require.True(t, ok)
	assert.Equal(t, "freqtrade", r.cmd.name)
	assert.NotNil(t, set.Lookahead)
}

func TestLookaheadAcceptsPrettyPrintedResult(t *testing.T) {
	bin, _ := fakeEngine(t, `echo 'progress {1/2}'
cat <<'JSON'
{
  "strategy": "Renamed",
  "has_bias": false,
  "total_signals": 12
}
JSON`)
	res, err := NewLookahead(config.EngineConfig{Command: bin}).Analyze(context.Background(), lookaheadJob())
	require.NoError(t, err)
	assert.Equal(t, "Renamed", res.Strategy)
	assert.Equal(t, 12, res.TotalSignals)
	assert.False(t, res.HasBias)
}
