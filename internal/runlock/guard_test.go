package runlock

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGuard(t *testing.T, path string, buf *bytes.Buffer) *Guard {
	t.Helper()
	l := slog.New(slog.NewTextHandler(buf, nil))
	return New(path, WithTimeout(150*time.Millisecond), WithRetryDelay(10*time.Millisecond), WithLogger(l))
}

func TestGuardRunsBodyWhileHoldingLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ud", "hyperopt.lock")
	var buf bytes.Buffer
	g := testGuard(t, path, &buf)

	called := false
	outcome, err := g.Run(context.Background(), func(context.Context) error {
		called = true
		probe := flock.New(path)
		ok, err := probe.TryLock()
		require.NoError(t, err)
		assert.False(t, ok, "lock must be held during body")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, Completed, outcome)

	probe := flock.New(path)
	ok, err := probe.TryLock()
	require.NoError(t, err)
	assert.True(t, ok, "lock must be released after body")
	require.NoError(t, probe.Unlock())
}

func TestGuardSkipsOnContention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hyperopt.lock")
	holder := flock.New(path)
	ok, err := holder.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer holder.Unlock()

	var buf bytes.Buffer
	g := testGuard(t, path, &buf)
	called := false
	start := time.Now()
	outcome, err := g.Run(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, Skipped, outcome)
	assert.False(t, called, "engine must not run on contention")
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Contains(t, buf.String(), "Another running instance of hyperopt detected.")
	assert.Contains(t, buf.String(), "resource hungry")
	assert.Contains(t, buf.String(), "Quitting now.")
}

func TestGuardReleasesOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hyperopt.lock")
	var buf bytes.Buffer
	g := testGuard(t, path, &buf)

	boom := errors.New("engine crashed")
	outcome, err := g.Run(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Failed, outcome)

	outcome, err = g.Run(context.Background(), func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, Completed, outcome)
}

func TestGuardReleasesOnPanic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hyperopt.lock")
	var buf bytes.Buffer
	g := testGuard(t, path, &buf)

	assert.Panics(t, func() {
		_, _ = g.Run(context.Background(), func(context.Context) error { panic("boom") })
	})
	outcome, err := g.Run(context.Background(), func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, Completed, outcome)
}

func TestGuardCancelledContextFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hyperopt.lock")
	var buf bytes.Buffer
	g := testGuard(t, path, &buf)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcome, err := g.Run(ctx, func(context.Context) error { return nil })
	assert.Error(t, err)
	assert.Equal(t, Failed, outcome)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, 0, Completed.ExitCode())
	assert.Equal(t, 3, Skipped.ExitCode())
	assert.Equal(t, 1, Failed.ExitCode())
	assert.True(t, Completed.Ran())
	assert.False(t, Skipped.Ran())
	for _, o := range []Outcome{Completed, Skipped, Failed} {
		assert.Equal(t, o, ParseOutcome(o.String()))
	}
}
