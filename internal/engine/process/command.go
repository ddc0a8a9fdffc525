// Package process runs the evaluation engines as external commands.
package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"

	"stratguard/internal/config"
	"stratguard/internal/logger"
)

const defaultCommand = "freqtrade"

// command is one configured engine executable.
type command struct {
	name      string
	baseArgs  []string
	extraArgs []string
	dir       string
}

func newCommand(cfg config.EngineConfig) command {
	name := strings.TrimSpace(cfg.Command)
	if name == "" {
		name = defaultCommand
	}
	var base []string
	if file := strings.TrimSpace(cfg.ConfigFile); file != "" {
		base = append(base, "--config", file)
	}
	return command{
		name:      name,
		baseArgs:  base,
		extraArgs: append([]string(nil), cfg.ExtraArgs...),
		dir:       strings.TrimSpace(cfg.WorkDir),
	}
}

// available reports whether the executable can be resolved.
func (c command) available() error {
	if _, err := exec.LookPath(c.name); err != nil {
		return fmt.Errorf("engine command %q: %w", c.name, err)
	}
	return nil
}

// args assembles: subcommand, configured base args, run args, extra args.
func (c command) args(sub string, run []string) []string {
	out := make([]string, 0, 1+len(c.baseArgs)+len(run)+len(c.extraArgs))
	out = append(out, sub)
	out = append(out, c.baseArgs...)
	out = append(out, run...)
	return append(out, c.extraArgs...)
}

// run executes the engine and blocks until it exits. Stderr lines are forwarded to
// log at info level. Stdout is copied to stdout, or forwarded to log when stdout is
// nil.
func (c command) run(ctx context.Context, sub string, run []string, log *slog.Logger, stdout io.Writer) error {
	if log == nil {
		log = logger.L()
	}
	args := c.args(sub, run)
	cmd := exec.CommandContext(ctx, c.name, args...)
	if c.dir != "" {
		cmd.Dir = c.dir
	}
	outPipe, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	errPipe, err := cmd.StderrPipe()
	if err != nil {
		return err
	}
	log.Debug("starting engine", slog.String("command", c.name), slog.String("args", strings.Join(args, " ")))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s %s: %w", c.name, sub, err)
	}

	var g errgroup.Group
	g.Go(func() error {
		if stdout != nil {
			if _, err := io.Copy(stdout, outPipe); err != nil {
				_, _ = io.Copy(io.Discard, outPipe)
				return err
			}
			return nil
		}
		return forwardLines(outPipe, log)
	})
	g.Go(func() error { return forwardLines(errPipe, log) })
	copyErr := g.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s %s: %w", c.name, sub, err)
	}
	if copyErr != nil {
		return fmt.Errorf("read %s %s output: %w", c.name, sub, copyErr)
	}
	return nil
}

// maxLogLine bounds one forwarded line. Longer lines are cut and the remainder is
// discarded so the pipe keeps draining.
const maxLogLine = 64 * 1024

func forwardLines(r io.Reader, log *slog.Logger) error {
	br := bufio.NewReaderSize(r, maxLogLine)
	for {
		chunk, more, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line := strings.TrimRight(string(chunk), "\r")
		if more {
			skipped, err := skipRestOfLine(br)
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			log.Info(line, slog.Int("truncated_bytes", skipped))
			continue
		}
		if strings.TrimSpace(line) != "" {
			log.Info(line)
		}
	}
}

func skipRestOfLine(br *bufio.Reader) (int, error) {
	n := 0
	for {
		chunk, more, err := br.ReadLine()
		n += len(chunk)
		if err != nil || !more {
			return n, err
		}
	}
}
