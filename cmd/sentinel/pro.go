package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sergiogswv/sentinel/internal/agent"
	"github.com/sergiogswv/sentinel/internal/audit"
	"github.com/sergiogswv/sentinel/internal/bootstrap"
	"github.com/sergiogswv/sentinel/internal/model"
	"github.com/sergiogswv/sentinel/internal/pathsafe"
	"github.com/sergiogswv/sentinel/internal/provider"
	"github.com/sergiogswv/sentinel/internal/stats"
	"github.com/sergiogswv/sentinel/internal/ui"
	"github.com/sergiogswv/sentinel/internal/vcsignore"
)

func newProCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pro",
		Short: "One-shot agent-backed operations against the project",
	}
	cmd.AddCommand(
		newProAnalyzeCmd(),
		newProFixCmd(),
		newProRefactorCmd(),
		newProReviewCmd(),
		newProAuditCmd(),
		newProWorkflowCmd(),
		newProMigrateCmd(),
		newProExplainCmd(),
		newProOptimizeCmd(),
		newProDocsCmd(),
		newProChatCmd(),
	)
	return cmd
}

// readRel reads path (resolved relative to the project root) and returns
// its content plus its repo-relative form for Task.File.
func readRel(app *bootstrap.App, path string) (content []byte, relPath string, err error) {
	abs, err := pathsafe.SecureJoin(app.ProjectRoot, path)
	if err != nil {
		return nil, "", fmt.Errorf("resolve %s: %w", path, err)
	}
	content, err = os.ReadFile(abs)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	rel, err := filepath.Rel(app.ProjectRoot, abs)
	if err != nil {
		rel = path
	}
	return content, rel, nil
}

func runSingleStep(ctx context.Context, app *bootstrap.App, agentName string, task agent.Task) (*agent.Result, error) {
	orch := agent.NewOrchestrator(app.AgentContext, agentsFor(app, agentName)...)
	run := orch.Run(ctx, agent.Workflow{Name: agentName, Steps: []agent.Step{{AgentName: agentName, Task: task}}})
	if run.Err != nil {
		return nil, run.Err
	}
	return run.Steps[0].Result, nil
}

func agentsFor(app *bootstrap.App, name string) []agent.Agent {
	switch name {
	case "coder":
		return []agent.Agent{agent.NewCoder()}
	case "reviewer":
		return []agent.Agent{agent.NewReviewer()}
	case "refactor":
		return []agent.Agent{agent.NewRefactor()}
	case "tester":
		return []agent.Agent{agent.NewTester()}
	default:
		return nil
	}
}

func newProAnalyzeCmd() *cobra.Command {
	var deep, security, jsonOut bool
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "L1 + L2 analysis of a single file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			content, rel, err := readRel(app, args[0])
			if err != nil {
				return err
			}

			desc := "Analyze this file for defects and quality issues."
			if security {
				desc = "Analyze this file specifically for security vulnerabilities."
			}
			if deep {
				desc += " Go beyond surface-level style issues; reason about runtime behavior."
			}
			desc += "\n\n=== " + rel + " ===\n" + string(content)

			res, err := runSingleStep(cmd.Context(), app, "reviewer", agent.Task{
				ID: uuid.NewString(), Kind: agent.KindAnalyze, File: rel, Description: desc,
			})
			if err != nil {
				return err
			}
			if jsonOut {
				fmt.Println(res.Output)
				return nil
			}
			printIssuesText(res.Output)
			return nil
		},
	}
	cmd.Flags().BoolVar(&deep, "deep", false, "reason beyond surface-level style issues")
	cmd.Flags().BoolVar(&security, "security", false, "focus on security vulnerabilities")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit the raw JSON issue array")
	return cmd
}

func newProFixCmd() *cobra.Command {
	var errorText string
	var verify bool
	cmd := &cobra.Command{
		Use:   "fix <file>",
		Short: "Propose fixes for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			content, rel, err := readRel(app, args[0])
			if err != nil {
				return err
			}

			desc := "Fix the defects in this file."
			if errorText != "" {
				desc = "Fix the following error in this file: " + errorText
			}
			desc += "\n\n=== " + rel + " ===\n" + string(content)

			if verify {
				wf := agent.FixAndVerify(desc, rel)
				orch := agent.NewOrchestrator(app.AgentContext, agent.NewCoder(), agent.NewRefactor(), agent.NewTester())
				run := orch.Run(cmd.Context(), wf)
				reportWorkflowRun(run)
				if run.Err != nil {
					return run.Err
				}
				app.Stats.ApplyTariff(stats.TaskAutoFix)
				app.Stats.AddFixApplied(1)
				return nil
			}

			orch := agent.NewOrchestrator(app.AgentContext, agent.NewCoder(), agent.NewRefactor())
			run := orch.Run(cmd.Context(), agent.Workflow{
				Name: "fix",
				Steps: []agent.Step{
					{AgentName: "coder", Task: agent.Task{ID: uuid.NewString(), Kind: agent.KindGenerate, File: rel, Description: desc}},
					{AgentName: "refactor", Task: agent.Task{ID: uuid.NewString(), Kind: agent.KindRefactor, File: rel, Description: "Write the fixed body proposed above."}},
				},
			})
			reportWorkflowRun(run)
			if run.Err != nil {
				return run.Err
			}
			app.Stats.ApplyTariff(stats.TaskAutoFix)
			app.Stats.AddFixApplied(1)
			return nil
		},
	}
	cmd.Flags().StringVar(&errorText, "error", "", "the error text to fix")
	cmd.Flags().BoolVar(&verify, "verify", false, "run the project's tests after applying the fix")
	return cmd
}

func newProRefactorCmd() *cobra.Command {
	var backup, safetyFirst bool
	cmd := &cobra.Command{
		Use:   "refactor <file>",
		Short: "Refactor proposal into <file>.suggested",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			content, rel, err := readRel(app, args[0])
			if err != nil {
				return err
			}

			if backup {
				abs, _ := pathsafe.SecureJoin(app.ProjectRoot, rel)
				if err := renameio.WriteFile(abs+".bak", content, 0o644); err != nil {
					return fmt.Errorf("write backup: %w", err)
				}
			}

			desc := "Refactor this file for clarity and maintainability."
			if safetyFirst {
				desc = "Refactor this file conservatively: preserve all existing behavior exactly, prefer the smallest possible diff."
			}
			desc += "\n\n=== " + rel + " ===\n" + string(content)

			res, err := runSingleStep(cmd.Context(), app, "refactor", agent.Task{
				ID: uuid.NewString(), Kind: agent.KindRefactor, File: rel, Description: desc,
			})
			if err != nil {
				return err
			}
			app.Stats.ApplyTariff(stats.TaskRefactor)
			ui.Success(fmt.Sprintf("wrote %s", res.Artifacts[0]))
			return nil
		},
	}
	cmd.Flags().BoolVar(&backup, "backup", false, "write <file>.bak before proposing a refactor")
	cmd.Flags().BoolVar(&safetyFirst, "safety-first", false, "minimize behavioral risk over stylistic improvement")
	return cmd
}

func newProReviewCmd() *cobra.Command {
	var security, performance bool
	cmd := &cobra.Command{
		Use:   "review [<path>]",
		Short: "Architectural review via the Reviewer agent",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			path := "."
			if len(args) == 1 {
				path = args[0]
			}

			focus := "Review the architecture and design of this code."
			switch {
			case security:
				focus = "Review this code's architecture for security weaknesses."
			case performance:
				focus = "Review this code's architecture for performance weaknesses."
			}

			abs, err := pathsafe.SecureJoin(app.ProjectRoot, path)
			if err != nil {
				return err
			}
			info, err := os.Stat(abs)
			if err != nil {
				return err
			}

			if info.IsDir() {
				report, err := app.Batcher.Run(cmd.Context(), audit.Options{
					Root: abs, Extensions: app.Config.Extensions, Ignore: app.Config.Ignore,
				})
				if err != nil {
					return err
				}
				printAuditReport(report, false)
				return nil
			}

			content, rel, err := readRel(app, path)
			if err != nil {
				return err
			}
			res, err := runSingleStep(cmd.Context(), app, "reviewer", agent.Task{
				ID: uuid.NewString(), Kind: agent.KindAnalyze, File: rel,
				Description: focus + "\n\n=== " + rel + " ===\n" + string(content),
			})
			if err != nil {
				return err
			}
			printIssuesText(res.Output)
			return nil
		},
	}
	cmd.Flags().BoolVar(&security, "security", false, "focus the review on security")
	cmd.Flags().BoolVar(&performance, "performance", false, "focus the review on performance")
	return cmd
}

func newProAuditCmd() *cobra.Command {
	var noFix bool
	var format string
	var maxFiles, concurrency int
	cmd := &cobra.Command{
		Use:   "audit <path>",
		Short: "Project-wide audit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			abs, err := pathsafe.SecureJoin(app.ProjectRoot, args[0])
			if err != nil {
				return err
			}

			// noFix is accepted for flag-table parity; the batcher never
			// writes fixes itself, so it has no effect.
			_ = noFix

			report, err := app.Batcher.Run(cmd.Context(), audit.Options{
				Root: abs, Extensions: app.Config.Extensions, Ignore: app.Config.Ignore,
				MaxFiles: maxFiles, Concurrency: concurrency,
			})
			if err != nil {
				return err
			}
			printAuditReport(report, format == "json")
			return nil
		},
	}
	cmd.Flags().BoolVar(&noFix, "no-fix", false, "report only, never propose a fix (the batcher never auto-fixes, kept for interface parity)")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	cmd.Flags().IntVar(&maxFiles, "max-files", audit.MaxFilesDefault, "maximum files to include before truncating by recency")
	cmd.Flags().IntVar(&concurrency, "concurrency", audit.ConcurrencyDefault, "parallel batches in flight")
	return cmd
}

func newProWorkflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow <name> [<file>]",
		Short: "Run a named workflow",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			var file, description string
			if len(args) == 2 {
				content, rel, err := readRel(app, args[1])
				if err != nil {
					return err
				}
				file = rel
				description = "=== " + rel + " ===\n" + string(content)
			}

			wf, ok := resolveWorkflow(app, args[0], description, file)
			if !ok {
				return fmt.Errorf("unknown workflow %q", args[0])
			}

			orch := agent.NewOrchestrator(app.AgentContext,
				agent.NewCoder(), agent.NewReviewer(), agent.NewTester(), agent.NewRefactor())
			run := orch.Run(cmd.Context(), wf)
			reportWorkflowRun(run)
			if run.Err != nil {
				return run.Err
			}
			if wf.Name == "fix-and-verify" {
				app.Stats.ApplyTariff(stats.TaskAutoFix)
			}
			return nil
		},
	}
	return cmd
}

func resolveWorkflow(app *bootstrap.App, name, description, file string) (agent.Workflow, bool) {
	switch name {
	case "fix-and-verify":
		return agent.FixAndVerify(description, file), true
	case "review-security":
		return agent.ReviewSecurity(description, file), true
	default:
		wf, ok := app.CustomWorkflows[name]
		return wf, ok
	}
}

func newProMigrateCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "migrate <src> <dst>",
		Short: "Cross-framework migration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			content, rel, err := readRel(app, args[0])
			if err != nil {
				return err
			}

			desc := fmt.Sprintf("Migrate this file from %s to %s. Reply with ONLY the migrated source body.", orUnknown(from), orUnknown(to))
			desc += "\n\n=== " + rel + " ===\n" + string(content)

			res, err := runSingleStep(cmd.Context(), app, "coder", agent.Task{
				ID: uuid.NewString(), Kind: agent.KindGenerate, File: rel, Description: desc,
			})
			if err != nil {
				return err
			}

			dstAbs, err := pathsafe.SecureJoin(app.ProjectRoot, args[1])
			if err != nil {
				return err
			}
			if err := renameio.WriteFile(dstAbs, []byte(res.Output), 0o644); err != nil {
				return fmt.Errorf("write migrated file: %w", err)
			}

			app.Stats.ApplyTariff(stats.TaskMigration)
			ui.Success("wrote " + dstAbs)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "source framework/language")
	cmd.Flags().StringVar(&to, "to", "", "target framework/language")
	return cmd
}

func orUnknown(s string) string {
	if s == "" {
		return "an equivalent idiom"
	}
	return s
}

func newProExplainCmd() *cobra.Command {
	var function string
	var detail bool
	cmd := &cobra.Command{
		Use:   "explain <file>",
		Short: "Didactic explanation of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			content, rel, err := readRel(app, args[0])
			if err != nil {
				return err
			}

			desc := "Explain what this file does, for a developer unfamiliar with it."
			if function != "" {
				desc = fmt.Sprintf("Explain specifically what the function/method %q does.", function)
			}
			if detail {
				desc += " Go into line-by-line detail."
			}
			desc += "\n\n=== " + rel + " ===\n" + string(content)

			res, err := runSingleStep(cmd.Context(), app, "coder", agent.Task{
				ID: uuid.NewString(), Kind: agent.KindExplain, File: rel, Description: desc,
			})
			if err != nil {
				return err
			}
			fmt.Println(res.Output)
			return nil
		},
	}
	cmd.Flags().StringVar(&function, "function", "", "restrict the explanation to one function or method")
	cmd.Flags().BoolVar(&detail, "detail", false, "explain line by line")
	return cmd
}

func newProOptimizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize <file>",
		Short: "Performance suggestions for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			content, rel, err := readRel(app, args[0])
			if err != nil {
				return err
			}

			desc := "Suggest concrete performance optimizations for this file. Explain the expected impact of each."
			desc += "\n\n=== " + rel + " ===\n" + string(content)

			res, err := runSingleStep(cmd.Context(), app, "coder", agent.Task{
				ID: uuid.NewString(), Kind: agent.KindAnalyze, File: rel, Description: desc,
			})
			if err != nil {
				return err
			}
			fmt.Println(res.Output)
			return nil
		},
	}
	return cmd
}

func newProDocsCmd() *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "docs <dir>",
		Short: "Generate project docs alongside source files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			dirAbs, err := pathsafe.SecureJoin(app.ProjectRoot, args[0])
			if err != nil {
				return err
			}
			entries, err := os.ReadDir(dirAbs)
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			coder := agent.NewCoder()
			written := 0
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				ext := filepath.Ext(e.Name())
				if !app.Config.HasExtension(ext) {
					continue
				}

				srcPath := filepath.Join(args[0], e.Name())
				content, rel, err := readRel(app, srcPath)
				if err != nil {
					app.Log.Warn("docs.read_error", zap.Error(err))
					continue
				}

				desc := "Write Markdown documentation for this file: purpose, public API, notable behavior."
				if full {
					desc += " Include a worked usage example."
				}
				desc += "\n\n=== " + rel + " ===\n" + string(content)

				res, err := coder.Execute(cmd.Context(), agent.Task{
					ID: uuid.NewString(), Kind: agent.KindExplain, File: rel, Description: desc,
				}, app.AgentContext)
				if err != nil {
					app.Log.Warn("docs.generate_error", zap.Error(err))
					continue
				}

				docPath := srcPath[:len(srcPath)-len(ext)] + ".md"
				docAbs, err := pathsafe.SecureJoin(app.ProjectRoot, docPath)
				if err != nil {
					continue
				}
				if err := renameio.WriteFile(docAbs, []byte(res.Output), 0o644); err != nil {
					app.Log.Warn("docs.write_error", zap.Error(err))
					continue
				}
				if err := vcsignore.Ensure(app.ProjectRoot, docPath); err != nil {
					app.Log.Warn("docs.vcsignore.error", zap.Error(err))
				}
				written++
			}
			ui.Success(fmt.Sprintf("wrote %d doc file(s)", written))
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "include a worked usage example per file")
	return cmd
}

func newProChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive REPL over the configured provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ui.Info("chat REPL (Ctrl-D to exit)")
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				line := scanner.Text()
				if line == "" {
					continue
				}
				resp, err := app.Executor.Run(cmd.Context(), provider.Request{Prompt: line, TaskClass: model.TaskLight})
				if err != nil {
					ui.Fail(err.Error())
					continue
				}
				fmt.Println(resp.Text)
			}
			return nil
		},
	}
}

func printIssuesText(raw string) {
	var issues []agent.Issue
	if err := json.Unmarshal([]byte(agent.ExtractJSONArray(raw)), &issues); err != nil {
		fmt.Println(raw)
		return
	}
	if len(issues) == 0 {
		ui.Success("no issues found")
		return
	}
	for _, issue := range issues {
		fmt.Printf("[%s] %s: %s\n  fix: %s\n", issue.Severity, issue.FilePath, issue.Title, issue.SuggestedFix)
	}
}

func printAuditReport(report *audit.Report, asJSON bool) {
	if asJSON {
		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(out))
		return
	}
	if report.Skipped > 0 {
		ui.Warn(fmt.Sprintf("%d file(s) skipped past max-files", report.Skipped))
	}
	for _, f := range report.ParseFailures {
		ui.Warn("batch failed after retries: " + f)
	}
	for _, issue := range report.Issues {
		fmt.Printf("[%s] %s: %s\n", issue.Severity, issue.FilePath, issue.Title)
	}
	ui.Info(fmt.Sprintf("%d issue(s) found", len(report.Issues)))
}

func reportWorkflowRun(run agent.RunResult) {
	for _, step := range run.Steps {
		if step.Result == nil {
			continue
		}
		ui.Info(fmt.Sprintf("[%s] %s", step.AgentName, step.Result.Output))
		for _, artifact := range step.Result.Artifacts {
			ui.Success("wrote " + artifact)
		}
	}
}
