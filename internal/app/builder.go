package app

import (
	"context"
	"fmt"

	"stratguard/internal/config"
	"stratguard/internal/engine"
	"stratguard/internal/engine/process"
	"stratguard/internal/logger"
	"stratguard/internal/store"
	"stratguard/internal/store/gormstore"
	"stratguard/internal/strategy"
	runshttp "stratguard/internal/transport/http/runs"
)

type AppBuilder struct {
	cfg *config.Config

	storeFn      func(config.StoreConfig) (store.RunStore, error)
	enginesFn    func(config.EngineConfig) engine.Set
	discovererFn func() strategy.Discoverer

	commandOpts []CommandsOption
}

type AppBuilderOption func(*AppBuilder)

// WithEngines replaces the external command engines, mainly for tests.
func WithEngines(set engine.Set) AppBuilderOption {
	return func(b *AppBuilder) {
		b.enginesFn = func(config.EngineConfig) engine.Set { return set }
	}
}

func WithDiscoverer(d strategy.Discoverer) AppBuilderOption {
	return func(b *AppBuilder) {
		if d != nil {
			b.discovererFn = func() strategy.Discoverer { return d }
		}
	}
}

func WithStore(s store.RunStore) AppBuilderOption {
	return func(b *AppBuilder) {
		b.storeFn = func(config.StoreConfig) (store.RunStore, error) { return s, nil }
	}
}

func WithCommandOptions(opts ...CommandsOption) AppBuilderOption {
	return func(b *AppBuilder) { b.commandOpts = append(b.commandOpts, opts...) }
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:          cfg,
		storeFn:      openRunStore,
		enginesFn:    process.NewSet,
		discovererFn: func() strategy.Discoverer { return strategy.NewDirDiscoverer() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func openRunStore(cfg config.StoreConfig) (store.RunStore, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	return gormstore.Open(cfg)
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg

	runs, err := b.storeFn(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open result store: %w", err)
	}
	if runs != nil {
		logger.Infof("✓ result store: %s", cfg.Store.Driver)
	}

	opts := append([]CommandsOption{WithRunStore(runs)}, b.commandOpts...)
	commands := NewCommands(cfg, b.enginesFn(cfg.Engine), b.discovererFn(), opts...)

	return &App{
		cfg:      cfg,
		commands: commands,
		runs:     runs,
		runsHTTP: runshttp.NewServer(runshttp.Config{Addr: cfg.HTTP.Addr, Results: runs}),
	}, nil
}
