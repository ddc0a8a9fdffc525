package process

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"stratguard/internal/config"
	"stratguard/internal/engine"
	"stratguard/internal/logger"
	"stratguard/internal/lookahead"
	"stratguard/internal/pkg/jsonutil"
)

//go:embed lookahead_result.schema.json
var lookaheadSchemaJSON string

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func lookaheadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("lookahead_result.json", strings.NewReader(lookaheadSchemaJSON)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile("lookahead_result.json")
	})
	return compiledSchema, schemaErr
}

// ErrNoResult is returned when the engine exits cleanly without printing a result.
var ErrNoResult = errors.New("engine printed no lookahead result")

// Lookahead checks one strategy per call. The engine prints its verdict as the last
// JSON object on stdout; everything else on stdout is ignored.
type Lookahead struct {
	cmd command
}

var (
	_ lookahead.Analyzer  = (*Lookahead)(nil)
	_ engine.Availability = (*Lookahead)(nil)
)

func NewLookahead(cfg config.EngineConfig) *Lookahead {
	return &Lookahead{cmd: newCommand(cfg)}
}

func (l *Lookahead) Available() error { return l.cmd.available() }

func (l *Lookahead) Analyze(ctx context.Context, job lookahead.Job) (lookahead.Result, error) {
	var stdout bytes.Buffer
	log := logger.L().With("strategy", job.Strategy.Name)
	if err := l.cmd.run(ctx, "lookahead-analysis", jobArgs(job), log, &stdout); err != nil {
		return lookahead.Result{}, err
	}
	raw := lastJSONObject(stdout.Bytes())
	if raw == "" {
		return lookahead.Result{}, ErrNoResult
	}
	return parseResult(raw, job)
}

func jobArgs(job lookahead.Job) []string {
	args := []string{"--strategy", job.Strategy.Name}
	if loc := job.Strategy.Location; loc != "" {
		args = append(args, "--strategy-path", filepath.Dir(loc))
	}
	if job.Timeframe != "" {
		args = append(args, "--timeframe", job.Timeframe)
	}
	if cfg := job.Config; cfg != nil && cfg.UserDataDir != "" {
		args = append(args, "--userdir", cfg.UserDataDir)
	}
	return append(args,
		"--targeted-trade-amount", strconv.Itoa(job.TargetedTradeAmount),
		"--minimum-trade-amount", strconv.Itoa(job.MinimumTradeAmount),
	)
}

// lastJSONObject returns the last valid JSON object the engine printed. Objects may
// span several lines.
func lastJSONObject(out []byte) string {
	objs := jsonutil.Objects(string(out))
	for i := len(objs) - 1; i >= 0; i-- {
		if gjson.Valid(objs[i]) {
			return objs[i]
		}
	}
	return ""
}

// parseResult validates the engine output and maps it onto a Result. Filename and
// strategy fall back to the job when the engine omits them.
func parseResult(raw string, job lookahead.Job) (lookahead.Result, error) {
	schema, err := lookaheadSchema()
	if err != nil {
		return lookahead.Result{}, fmt.Errorf("compile lookahead schema: %w", err)
	}
	var doc any
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return lookahead.Result{}, fmt.Errorf("decode lookahead result: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return lookahead.Result{}, fmt.Errorf("invalid lookahead result: %w", err)
	}

	parsed := gjson.Parse(raw)
	res := lookahead.Result{
		Filename:           parsed.Get("filename").String(),
		Strategy:           parsed.Get("strategy").String(),
		HasBias:            parsed.Get("has_bias").Bool(),
		Failed:             parsed.Get("failed").Bool(),
		TotalSignals:       int(parsed.Get("total_signals").Int()),
		BiasedEntrySignals: int(parsed.Get("biased_entry_signals").Int()),
		BiasedExitSignals:  int(parsed.Get("biased_exit_signals").Int()),
	}
	for _, ind := range parsed.Get("biased_indicators").Array() {
		res.BiasedIndicators = append(res.BiasedIndicators, ind.String())
	}
	if ev, ok := parsed.Get("evidence").Value().(map[string]any); ok {
		res.Evidence = ev
	}
	if res.Strategy == "" {
		res.Strategy = job.Strategy.Name
	}
	if res.Filename == "" {
		res.Filename = job.Filename()
	}
	return res, nil
}
