package app

import (
	"context"
	"fmt"

	"stratguard/internal/config"
	"stratguard/internal/logger"
	"stratguard/internal/store"
	runshttp "stratguard/internal/transport/http/runs"

	"golang.org/x/sync/errgroup"
)

// App holds the wired optimize commands and the optional result API.
type App struct {
	cfg      *config.Config
	commands *Commands
	runs     store.RunStore
	runsHTTP *runshttp.Server
}

// NewApp builds the application from cfg without starting anything.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Commands returns the optimize commands bound to this app.
func (a *App) Commands() *Commands {
	if a == nil {
		return nil
	}
	return a.commands
}

// Serve runs the result API until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.runsHTTP == nil {
		return fmt.Errorf("result api not initialized")
	}
	if a.runs == nil {
		logger.Warnf("result store is disabled, /api/runs will answer 503")
	}
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Infof("result api listening on %s", a.runsHTTP.Addr())
		if err := a.runsHTTP.Start(ctx); err != nil {
			return fmt.Errorf("result api server error: %w", err)
		}
		return nil
	})
	return group.Wait()
}

// Close releases the result store.
func (a *App) Close() error {
	if a == nil || a.runs == nil {
		return nil
	}
	return a.runs.Close()
}
