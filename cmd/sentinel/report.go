package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sergiogswv/sentinel/internal/audit"
	"github.com/sergiogswv/sentinel/internal/bootstrap"
	"github.com/sergiogswv/sentinel/internal/ui"
)

// dailyReportMaxFiles bounds the report to the N most-recently-touched
// files, reusing the Audit Batcher's own recency truncation.
const dailyReportMaxFiles = 10

// runDailyReport drives the Reviewer agent over the most-recently-touched
// files and prints a findings summary alongside the running stats
// snapshot. Triggered by the keyboard 'r' command.
func runDailyReport(ctx context.Context, app *bootstrap.App) {
	report, err := app.Batcher.Run(ctx, audit.Options{
		Root:       app.ProjectRoot,
		Extensions: app.Config.Extensions,
		Ignore:     app.Config.Ignore,
		MaxFiles:   dailyReportMaxFiles,
	})
	if err != nil {
		app.Log.Warn("report.daily.run_error", zap.Error(err))
		ui.Fail("daily report failed: " + err.Error())
		return
	}

	if len(report.ParseFailures) > 0 {
		app.Log.Warn("report.daily.parse_failures", zap.Strings("files", report.ParseFailures))
	}

	ui.Info(fmt.Sprintf("daily report: %d file(s) reviewed, %d finding(s)", dailyReportMaxFiles-report.Skipped, len(report.Issues)))
	for _, issue := range report.Issues {
		ui.Warn(fmt.Sprintf("%s: %s (%s)", issue.FilePath, issue.Title, issue.Severity))
	}

	snap := app.Stats.Snapshot()
	ui.Info(fmt.Sprintf("cumulative: %d bugs avoided, %d fixes applied, %d minutes saved", snap.BugsAvoided, snap.FixesApplied, snap.MinutesSaved))
}
