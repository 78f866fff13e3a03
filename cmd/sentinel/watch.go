package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sergiogswv/sentinel/internal/agent"
	"github.com/sergiogswv/sentinel/internal/bootstrap"
	"github.com/sergiogswv/sentinel/internal/keyboard"
	"github.com/sergiogswv/sentinel/internal/model"
	"github.com/sergiogswv/sentinel/internal/provider"
	"github.com/sergiogswv/sentinel/internal/rules"
	"github.com/sergiogswv/sentinel/internal/ui"
	"github.com/sergiogswv/sentinel/internal/watcher"
)

// runWatch starts the watcher pipeline and keyboard controller and blocks
// until interrupted.
func runWatch(ctx context.Context) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	thresholds := rules.Thresholds{
		ComplexityMax:    app.Config.Rules.ComplexityMax,
		FunctionMaxLines: app.Config.Rules.FunctionMaxLines,
	}

	var w *watcher.Watcher
	var kb *keyboard.Controller
	handler := func(hctx context.Context, ev watcher.Event) {
		processChangedFile(hctx, app, kb, thresholds, ev)
	}
	w, err = watcher.New(
		filepath.Join(app.ProjectRoot, app.Config.WatchDir),
		app.Config.Extensions,
		app.Config.Ignore,
		handler,
		app.Log,
	)
	if err != nil {
		return fmt.Errorf("build watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Stop()

	disp := &watchDispatcher{app: app, w: w}
	kb = keyboard.New(os.Stdin, os.Stdout, disp, app.Log)

	ui.Info(fmt.Sprintf("watching %s (press h for commands)", app.Config.WatchDir))
	kb.Run(ctx)
	return nil
}

// watchDispatcher implements keyboard.Dispatcher over the running App and
// Watcher.
type watchDispatcher struct {
	app    *bootstrap.App
	w      *watcher.Watcher
	paused atomic.Bool
}

func (d *watchDispatcher) TogglePause() {
	if d.paused.Load() {
		d.w.Resume()
		d.paused.Store(false)
		ui.Info("resumed")
		return
	}
	d.w.Pause()
	d.paused.Store(true)
	ui.Info("paused")
}

func (d *watchDispatcher) PrintStats() {
	snap := d.app.Stats.Snapshot()
	ui.Info(fmt.Sprintf(
		"bugs_avoided=%d fixes_applied=%d tests_fixed=%d tokens_in=%d tokens_out=%d cost_micro_usd=%d minutes_saved=%d",
		snap.BugsAvoided, snap.FixesApplied, snap.TestsFixed, snap.TokensIn, snap.TokensOut, snap.CostMicroUSD, snap.MinutesSaved,
	))
}

func (d *watchDispatcher) ClearCache() {
	if err := d.app.Cache.Clear(); err != nil {
		ui.Fail("clear cache: " + err.Error())
		return
	}
	ui.Success("response cache cleared")
}

func (d *watchDispatcher) TriggerDailyReport() {
	ui.Info("daily report job triggered")
	go runDailyReport(context.Background(), d.app)
}

func (d *watchDispatcher) DeleteConfig() {
	path := filepath.Join(d.app.ProjectRoot, "sentinel.toml")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		ui.Fail("delete config: " + err.Error())
		return
	}
	ui.Success("project config deleted")
}

// processChangedFile is the processing loop body for one settled watcher
// event: analyze, then — only when analysis found something actionable —
// optionally run tests scoped to the resolved parent, then optionally
// propose a commit message.
func processChangedFile(ctx context.Context, app *bootstrap.App, kb *keyboard.Controller, thresholds rules.Thresholds, ev watcher.Event) {
	log := app.Log.With(zap.String("path", ev.Path), zap.String("resolved_test_target", ev.ResolvedTestTarget))

	content, err := os.ReadFile(ev.Path)
	if err != nil {
		log.Warn("watcher.file.read_error", zap.Error(err))
		return
	}

	relPath, err := filepath.Rel(app.ProjectRoot, ev.Path)
	if err != nil {
		relPath = ev.Path
	}

	res, err := app.Parser.ParseFile(ctx, ev.Path, content)
	if err != nil {
		log.Warn("parser.error", zap.Error(err))
		return
	}

	violations := rules.RunAll(relPath, content, res, thresholds)
	filtered, err := app.Engine.Filter(ctx, violations)
	if err != nil {
		log.Warn("rules.engine.filter_error", zap.Error(err))
		filtered = violations
	}

	for _, v := range filtered {
		printViolation(v)
	}

	hash := sha256.Sum256(content)
	rec := model.FileRecord{
		Path:          relPath,
		LastIndexedAt: time.Now(),
		ContentHash:   hex.EncodeToString(hash[:]),
	}
	if err := app.Index.WriteFile(ctx, rec, res); err != nil {
		log.Warn("index.write_error", zap.Error(err))
	}

	if len(filtered) == 0 {
		return
	}

	runReview(ctx, app, log, relPath, content, filtered)

	if !runScopedTests(ctx, app, log, relPath, ev.ResolvedTestTarget) {
		return
	}

	if kb == nil {
		return
	}
	if kb.Confirm(fmt.Sprintf("commit fixes to %s", relPath)) {
		proposeCommitMessage(ctx, app, log, relPath, filtered)
	}
}

// runReview runs the Reviewer agent (L2) over an L1 violation set through
// the shared Orchestrator, so a flagged file gets a structural-context-
// backed second opinion before tests or a commit are considered.
func runReview(ctx context.Context, app *bootstrap.App, log *zap.Logger, relPath string, content []byte, violations []model.Violation) {
	desc := fmt.Sprintf("Static analysis flagged %d issue(s) in this file. Review it for correctness and suggest fixes.\n\n=== %s ===\n%s",
		len(violations), relPath, string(content))

	run := app.Orchestrator.Run(ctx, agent.Workflow{
		Name: "watch-review",
		Steps: []agent.Step{
			{AgentName: "reviewer", Task: agent.Task{Kind: agent.KindAnalyze, File: relPath, Description: desc}},
		},
	})
	if run.Err != nil {
		log.Warn("watch.review.error", zap.Error(run.Err))
		return
	}
	if len(run.Steps) > 0 && run.Steps[0].Result != nil {
		printIssuesText(run.Steps[0].Result.Output)
	}
}

// runScopedTests runs the Tester agent scoped to the watcher's resolved
// test target, when a test command is configured. It reports whether the
// file is clear to propose a commit for: true if tests passed or none are
// configured, false on failure.
func runScopedTests(ctx context.Context, app *bootstrap.App, log *zap.Logger, relPath, target string) bool {
	if len(app.Config.TestCommand) == 0 {
		return true
	}

	run := app.Orchestrator.Run(ctx, agent.Workflow{
		Name: "watch-test",
		Steps: []agent.Step{
			{AgentName: "tester", Task: agent.Task{
				Kind: agent.KindTest, File: relPath, Target: target,
				Description: "verify the flagged file against " + target,
			}},
		},
	})
	if run.Err != nil {
		log.Warn("watch.test.failed", zap.String("target", target), zap.Error(run.Err))
		ui.Warn(fmt.Sprintf("tests failed for %s, skipping commit proposal", target))
		return false
	}
	ui.Success(fmt.Sprintf("tests passed for %s", target))
	return true
}

// proposeCommitMessage asks the provider for a one-line commit message
// summarizing the fix, routed as a Light task per spec.md's provider
// request shape, and prints it for the user to use.
func proposeCommitMessage(ctx context.Context, app *bootstrap.App, log *zap.Logger, relPath string, violations []model.Violation) {
	var summary string
	for _, v := range violations {
		summary += fmt.Sprintf("- %s: %s\n", v.RuleName, v.Message)
	}
	prompt := fmt.Sprintf("Write a single-line git commit message (conventional-commit style) for fixes to %s addressing:\n%s", relPath, summary)

	resp, err := app.Executor.Run(ctx, provider.Request{Prompt: prompt, TaskClass: model.TaskLight})
	if err != nil {
		log.Warn("watch.commit_message.error", zap.Error(err))
		return
	}
	ui.Info("proposed commit message: " + resp.Text)
}

func printViolation(v model.Violation) {
	line := fmt.Sprintf("%s:%d [%s] %s", v.FilePath, v.Line, v.RuleName, v.Message)
	switch v.Severity {
	case model.SeverityCritical, model.SeverityError:
		ui.Fail(line)
	case model.SeverityWarning:
		ui.Warn(line)
	default:
		ui.Info(line)
	}
}
