package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"stratguard/internal/app"
	"stratguard/internal/config"
	"stratguard/internal/engine"
	"stratguard/internal/logger"
	"stratguard/internal/lookahead"
	"stratguard/internal/runlock"
)

const (
	defaultConfigPath = "configs/config.yaml"
	exitUsage         = 2
)

var subcommands = []string{"backtesting", "hyperopt", "edge", "lookahead-analysis", "backtesting-show", "serve"}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		usage(stderr)
		return exitUsage
	}
	sub := args[0]
	if !isSubcommand(sub) {
		fmt.Fprintf(stderr, "unknown command %q\n", sub)
		usage(stderr)
		return exitUsage
	}
	flags := newFlagSet(sub, stderr)
	if err := flags.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return exitUsage
	}

	cfgPath := configPath(flags)
	cfg, err := config.Load(cfgPath, flags)
	if err != nil {
		log.Printf("reading config failed: %v", err)
		return exitUsage
	}
	if lvl, _ := flags.GetString("log-level"); strings.TrimSpace(lvl) != "" {
		cfg.App.LogLevel = lvl
	}
	logFile, err := logger.TeeToFile(logger.FileOptions{
		Path:       cfg.App.LogPath,
		MaxSizeMB:  cfg.App.LogMaxSizeMB,
		MaxBackups: cfg.App.LogMaxBackups,
		MaxAgeDays: cfg.App.LogMaxAgeDays,
		Compress:   cfg.App.LogCompress,
	})
	if err != nil {
		log.Printf("opening log file failed: %v", err)
		return exitUsage
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetLevel(cfg.App.LogLevel)
	if cfgPath != "" {
		logger.Infof("✓ config loaded from %s", cfgPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.NewApp(cfg)
	if err != nil {
		logger.Errorf("initializing failed: %v", err)
		return 1
	}
	defer a.Close()

	if sub == "serve" {
		if err := a.Serve(ctx); err != nil {
			logger.Errorf("serve failed: %v", err)
			return 1
		}
		return 0
	}
	outcome, err := dispatch(ctx, a.Commands(), sub)
	return exitCode(outcome, err)
}

func dispatch(ctx context.Context, cmds *app.Commands, sub string) (runlock.Outcome, error) {
	switch sub {
	case "backtesting":
		return cmds.StartBacktesting(ctx)
	case "hyperopt":
		return cmds.StartHyperopt(ctx)
	case "edge":
		return cmds.StartEdge(ctx)
	case "lookahead-analysis":
		return cmds.StartLookaheadAnalysis(ctx)
	case "backtesting-show":
		return cmds.ShowBacktest(ctx)
	}
	return runlock.Failed, fmt.Errorf("unknown command %q", sub)
}

// exitCode maps a command result to the process status. Operational errors the user
// can fix in their setup exit with the usage code.
func exitCode(outcome runlock.Outcome, err error) int {
	if err == nil {
		return outcome.ExitCode()
	}
	var (
		cfgErr     *config.ConfigError
		missingErr *engine.DependencyMissingError
	)
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &missingErr):
		logger.Errorf("%v", err)
		return exitUsage
	case errors.Is(err, lookahead.ErrNoStrategiesResolved):
		// already reported by the orchestrator
		return runlock.Failed.ExitCode()
	default:
		logger.Errorf("%v", err)
		return runlock.Failed.ExitCode()
	}
}

func configPath(flags *pflag.FlagSet) string {
	if p, _ := flags.GetString("config"); strings.TrimSpace(p) != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv("STRATGUARD_CONFIG")); p != "" {
		return p
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

func newFlagSet(sub string, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(sub, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringP("config", "c", "", "config file (env STRATGUARD_CONFIG)")
	fs.String("user-data-dir", "", "user data directory")
	fs.String("timeframe", "", "candle timeframe, e.g. 5m or 1h")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	if sub == "serve" {
		return fs
	}
	fs.StringP("strategy", "s", "", "strategy class name")
	fs.StringSlice("strategy-list", nil, "comma separated strategy names")
	fs.String("strategy-path", "", "additional strategy lookup path")
	fs.Bool("recursive-strategy-search", false, "search the strategy path recursively")
	fs.String("exportfilename", "", "backtest result file or directory")
	switch sub {
	case "backtesting", "hyperopt", "edge":
		fs.String("dry-run-wallet", "", "starting balance")
		fs.String("stake-amount", "", "stake per trade or 'unlimited'")
	case "lookahead-analysis":
		fs.String("lookahead-analysis-exportfilename", "", "export lookahead results to this file")
		fs.Int("targeted-trade-amount", 0, "signals to check per strategy")
		fs.Int("minimum-trade-amount", 0, "minimum signals for a valid verdict")
	}
	return fs
}

func isSubcommand(name string) bool {
	for _, s := range subcommands {
		if s == name {
			return true
		}
	}
	return false
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "usage: stratguard <%s> [flags]\n", strings.Join(subcommands, "|"))
}
