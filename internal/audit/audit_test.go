package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sergiogswv/sentinel/internal/agent"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", name, err)
	}
}

type fakeReviewer struct {
	execFn func(task agent.Task) (*agent.Result, error)
	calls  int
}

func (f *fakeReviewer) Name() string { return "reviewer" }
func (f *fakeReviewer) Execute(ctx context.Context, task agent.Task, actx agent.Context) (*agent.Result, error) {
	f.calls++
	return f.execFn(task)
}

func TestSelectCandidates_FiltersByExtensionAndGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package main\n")
	writeFile(t, dir, "b.txt", "not code\n")
	writeFile(t, dir, ".gitignore", "ignored.go\n")
	writeFile(t, dir, "ignored.go", "package main\n")

	candidates, err := selectCandidates(Options{Root: dir, Extensions: []string{".go"}})
	if err != nil {
		t.Fatalf("selectCandidates: %v", err)
	}
	if len(candidates) != 1 || candidates[0].relPath != "a.go" {
		t.Fatalf("candidates = %+v, want only a.go", candidates)
	}
}

func TestGroupIntoBatches_SplitsOnFileCount(t *testing.T) {
	var candidates []candidate
	for i := 0; i < 10; i++ {
		candidates = append(candidates, candidate{relPath: "dir/f.go", lines: 1})
	}
	batches := groupIntoBatches(candidates)
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2 (8 files + 2 files)", len(batches))
	}
	if len(batches[0].files) != 8 || len(batches[1].files) != 2 {
		t.Fatalf("batch sizes = %d,%d want 8,2", len(batches[0].files), len(batches[1].files))
	}
}

func TestGroupIntoBatches_SplitsOnLineCount(t *testing.T) {
	candidates := []candidate{
		{relPath: "dir/a.go", lines: 500},
		{relPath: "dir/b.go", lines: 500},
	}
	batches := groupIntoBatches(candidates)
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2 (500+500 > 800 line cap)", len(batches))
	}
}

func TestReconcile_MatchesBySuffix(t *testing.T) {
	bt := batch{dir: "dir", files: []candidate{{relPath: "dir/widget.service.ts"}, {relPath: "dir/widget.controller.ts"}}}
	issues := []agent.Issue{{FilePath: "widget.controller.ts"}}
	out := reconcile(bt, issues)
	if out[0].FilePath != "dir/widget.controller.ts" {
		t.Fatalf("reconciled FilePath = %q, want dir/widget.controller.ts", out[0].FilePath)
	}
}

func TestReconcile_FallsBackToFirstFile(t *testing.T) {
	bt := batch{dir: "dir", files: []candidate{{relPath: "dir/a.go"}, {relPath: "dir/b.go"}}}
	issues := []agent.Issue{{FilePath: "nonexistent.go"}}
	out := reconcile(bt, issues)
	if out[0].FilePath != "dir/a.go" {
		t.Fatalf("reconciled FilePath = %q, want fallback to first file dir/a.go", out[0].FilePath)
	}
}

func TestRun_TruncatesToMaxFilesAndReportsSkipped(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		writeFile(t, dir, string(rune('a'+i))+".go", "package main\n")
	}

	reviewer := &fakeReviewer{execFn: func(task agent.Task) (*agent.Result, error) {
		return &agent.Result{Output: "[]"}, nil
	}}
	b := New(reviewer, agent.Context{})

	report, err := b.Run(context.Background(), Options{Root: dir, Extensions: []string{".go"}, MaxFiles: 2, Concurrency: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Skipped != 3 {
		t.Fatalf("Skipped = %d, want 3", report.Skipped)
	}
}

func TestRun_RecordsParseFailureAfterRetries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package main\n")

	reviewer := &fakeReviewer{execFn: func(task agent.Task) (*agent.Result, error) {
		return nil, errAlways
	}}
	b := New(reviewer, agent.Context{})

	report, err := b.Run(context.Background(), Options{Root: dir, Extensions: []string{".go"}, Concurrency: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.ParseFailures) != 1 {
		t.Fatalf("ParseFailures = %+v, want exactly one failed batch", report.ParseFailures)
	}
	if reviewer.calls != retryAttempts {
		t.Fatalf("reviewer called %d times, want %d (first try + 2 retries)", reviewer.calls, retryAttempts)
	}
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

var errAlways = fakeErr("reviewer unavailable")
