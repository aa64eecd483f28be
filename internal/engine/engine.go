// Package engine executes generated scripts as isolated external processes
// through a bounded worker pool and classifies each run.
//
// Scripts are synthesized from unverified target code, so they are never
// invoked in-process: a script that crashes, hangs, or misbehaves can only
// lose its own slot, never corrupt the orchestrator or a sibling script.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/hornetlabs/hornet/internal/unit"
)

// Config bounds the engine's resource usage.
type Config struct {
	MaxWorkers   int
	Timeout      time.Duration
	Interpreters map[string]string // script extension -> runtime command
}

// DefaultInterpreters maps script extensions to their runtimes. Resolution
// by extension keeps the engine agnostic to whichever producer wrote the
// scripts.
func DefaultInterpreters() map[string]string {
	return map[string]string{
		".py": "python3",
		".js": "node",
	}
}

// Result is the terminal outcome of one script's execution.
type Result struct {
	Script   unit.GeneratedScript
	UnitName string
	Status   unit.RunStatus
	Reason   string // set for errored results: launch failure, timeout, bad summary, exit code
	Stdout   string
	Stderr   string
	Duration time.Duration
	Summary  *Summary
}

// Sink receives each Result as it completes. Completion order is arbitrary;
// implementations must be safe for concurrent calls from the worker pool.
type Sink func(Result)

// Engine runs script batches.
type Engine struct {
	cfg    Config
	logger *zap.Logger
}

// New creates an Engine. Zero config fields fall back to 4 workers, a
// 60-second timeout, and the default interpreter table.
func New(cfg Config, logger *zap.Logger) *Engine {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Interpreters == nil {
		cfg.Interpreters = DefaultInterpreters()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// LoadScripts lists executable scripts in dir, in name order. Files with a
// leading underscore and files without a configured interpreter are skipped,
// so helper modules can live beside runnable scripts.
func (e *Engine) LoadScripts(dir string) ([]unit.GeneratedScript, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading scripts dir: %w", err)
	}

	var scripts []unit.GeneratedScript
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "_") {
			continue
		}
		if _, ok := e.cfg.Interpreters[filepath.Ext(name)]; !ok {
			continue
		}
		scripts = append(scripts, unit.GeneratedScript{
			Unit: unit.ID{Name: strings.TrimSuffix(name, filepath.Ext(name))},
			Path: filepath.Join(dir, name),
		})
	}
	sort.Slice(scripts, func(i, j int) bool { return scripts[i].Path < scripts[j].Path })
	return scripts, nil
}

// Execute runs every script through the worker pool and returns the results
// in completion order. Cancelling ctx stops dispatching new scripts; scripts
// already in flight finish or hit their own timeout, and whatever completed
// is still returned, so a partial batch is a valid outcome.
func (e *Engine) Execute(ctx context.Context, repo string, scripts []unit.GeneratedScript, sink Sink) []Result {
	sem := semaphore.NewWeighted(int64(e.cfg.MaxWorkers))
	var (
		mu      sync.Mutex
		results []Result
		wg      sync.WaitGroup
	)

	dispatched := 0
	for _, script := range scripts {
		if err := sem.Acquire(ctx, 1); err != nil {
			e.logger.Info("execution cancelled, no further scripts dispatched",
				zap.Int("dispatched", dispatched),
				zap.Int("scheduled", len(scripts)))
			break
		}
		dispatched++
		wg.Add(1)
		go func(s unit.GeneratedScript) {
			defer wg.Done()
			defer sem.Release(1)

			res := e.runOne(repo, s)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			if sink != nil {
				sink(res)
			}
		}(script)
	}

	wg.Wait()
	return results
}

// runOne executes a single script with an enforced wall-clock timeout.
// The timeout context derives from Background, not from the batch context,
// so batch cancellation lets in-flight scripts terminate on their own terms.
func (e *Engine) runOne(repo string, script unit.GeneratedScript) Result {
	interp := e.cfg.Interpreters[filepath.Ext(script.Path)]
	if interp == "" {
		return e.errored(script, "", fmt.Sprintf("no interpreter configured for %s", filepath.Ext(script.Path)), 0)
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, interp, script.Path)
	cmd.Dir = filepath.Dir(script.Path)
	cmd.Env = append(os.Environ(), "HORNET_TARGET_REPO_PATH="+repo)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Debug("script running", zap.String("script", script.Path))
	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	res := Result{
		Script:   script,
		UnitName: scriptUnitName(script),
		Status:   unit.StatusErrored,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		res.Reason = fmt.Sprintf("timeout after %s, process killed", e.cfg.Timeout)
	case err != nil:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.Reason = fmt.Sprintf("abnormal termination: exit code %d", exitErr.ExitCode())
		} else {
			// Could not even launch (missing runtime, bad permissions).
			res.Reason = fmt.Sprintf("launch failed: %v", err)
		}
	default:
		summary, perr := ParseSummary(res.Stdout)
		if perr != nil {
			res.Reason = perr.Error()
			break
		}
		res.Summary = summary
		res.UnitName = summary.UnitName
		if summary.Overall == "pass" {
			res.Status = unit.StatusPassed
		} else {
			res.Status = unit.StatusFailed
		}
	}

	e.logger.Debug("script finished",
		zap.String("script", script.Path),
		zap.String("status", string(res.Status)),
		zap.Duration("duration", duration))
	return res
}

// scriptUnitName is the ledger key for a script before its summary is seen:
// the full file::name identity when the script's origin is known, otherwise
// the bare script stem.
func scriptUnitName(script unit.GeneratedScript) string {
	if script.Unit.File != "" {
		return script.Unit.String()
	}
	return script.Unit.Name
}

func (e *Engine) errored(script unit.GeneratedScript, stdout, reason string, duration time.Duration) Result {
	return Result{
		Script:   script,
		UnitName: scriptUnitName(script),
		Status:   unit.StatusErrored,
		Reason:   reason,
		Stdout:   stdout,
		Duration: duration,
	}
}

// UnitRun converts a Result into the ledger record shape for a run.
func (r Result) UnitRun(runID string) unit.UnitRun {
	stderr := r.Stderr
	if r.Status == unit.StatusErrored && r.Reason != "" {
		if stderr != "" {
			stderr += "\n"
		}
		stderr += r.Reason
	}
	return unit.UnitRun{
		RunID:      runID,
		UnitName:   r.UnitName,
		ScriptPath: r.Script.Path,
		Status:     r.Status,
		Stdout:     r.Stdout,
		Stderr:     stderr,
		Duration:   r.Duration,
		CreatedAt:  time.Now().UTC(),
	}
}
