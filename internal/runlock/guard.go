// Package runlock serializes resource hungry optimization runs across processes.
//
// The lock is advisory and covers the whole optimization feature on a machine: every
// run that derives the same lock path contends on it, whatever its other settings.
// It protects CPU and memory, not shared data.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"stratguard/internal/logger"
)

const (
	DefaultTimeout    = time.Second
	defaultRetryDelay = 100 * time.Millisecond
)

type Guard struct {
	path       string
	timeout    time.Duration
	retryDelay time.Duration
	log        *slog.Logger
}

type Option func(*Guard)

func WithTimeout(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.retryDelay = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.log = l
		}
	}
}

func New(path string, opts ...Option) *Guard {
	g := &Guard{
		path:       path,
		timeout:    DefaultTimeout,
		retryDelay: defaultRetryDelay,
		log:        logger.L(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

func (g *Guard) Path() string { return g.path }

// Run executes body while holding the lock. When the lock cannot be taken within the
// timeout the body is not called and Skipped is returned with a nil error.
func (g *Guard) Run(ctx context.Context, body func(context.Context) error) (Outcome, error) {
	if body == nil {
		return Failed, fmt.Errorf("runlock: nil body")
	}
	if dir := filepath.Dir(g.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Failed, fmt.Errorf("runlock: create lock dir: %w", err)
		}
	}
	lock := flock.New(g.path)
	acquireCtx, cancel := context.WithTimeout(ctx, g.timeout)
	locked, err := lock.TryLockContext(acquireCtx, g.retryDelay)
	cancel()
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return Failed, fmt.Errorf("runlock: acquire %s: %w", g.path, err)
	}
	if !locked {
		g.log.Info("Another running instance of hyperopt detected.")
		g.log.Info("Simultaneous execution of multiple hyperopt commands is not supported. " +
			"Hyperopt is resource hungry. Please run your hyperopt sequentially or on separate machines.")
		g.log.Info("Quitting now.")
		return Skipped, nil
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			g.log.Warn("runlock: release failed", slog.String("path", g.path), slog.Any("err", err))
		}
	}()
	if err := body(ctx); err != nil {
		return Failed, err
	}
	return Completed, nil
}
