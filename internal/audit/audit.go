// Package audit implements the Audit Batcher: a whole-project review run
// that walks a directory, groups files into bounded batches, and drives
// the Reviewer agent over each batch with bounded parallelism.
package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sergiogswv/sentinel/internal/agent"
)

// MaxFilesDefault and ConcurrencyDefault are the documented defaults for
// an audit run; ConcurrencyMin and ConcurrencyMax bound the configurable
// value.
const (
	MaxFilesDefault   = 20
	ConcurrencyDefault = 3
	ConcurrencyMin     = 1
	ConcurrencyMax     = 10

	batchMaxFiles = 8
	batchMaxLines = 800

	retryDelay   = 2 * time.Second
	retryAttempts = 3 // first try + 2 retries
)

// Options configures one audit run.
type Options struct {
	Root        string
	Extensions  []string
	Ignore      []string
	MaxFiles    int
	Concurrency int
}

// candidate is one file selected for the audit, carrying the content
// already read so batching can sum its line count.
type candidate struct {
	relPath string
	absPath string
	modTime time.Time
	content []byte
	lines   int
}

// batch is a group of candidates from the same parent directory, formed
// by the 8-files-or-800-lines rule.
type batch struct {
	dir   string
	files []candidate
}

// Report is the accumulated result of one audit run.
type Report struct {
	Issues        []agent.Issue
	ParseFailures []string // one entry per batch that failed all attempts: its first file's relative path
	Skipped       int       // files dropped by the max_files truncation
}

// Batcher drives whole-project audits against a Reviewer agent.
type Batcher struct {
	reviewer agent.Agent
	actx     agent.Context
}

// New builds a Batcher. reviewer is typically agent.NewReviewer().
func New(reviewer agent.Agent, actx agent.Context) *Batcher {
	return &Batcher{reviewer: reviewer, actx: actx}
}

// Run selects candidate files under opts.Root, batches them, and executes
// one Reviewer task per batch with bounded parallelism.
func (b *Batcher) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = MaxFilesDefault
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = ConcurrencyDefault
	}
	if opts.Concurrency > ConcurrencyMax {
		opts.Concurrency = ConcurrencyMax
	}
	if opts.Concurrency < ConcurrencyMin {
		opts.Concurrency = ConcurrencyMin
	}

	candidates, err := selectCandidates(opts)
	if err != nil {
		return nil, fmt.Errorf("select audit candidates: %w", err)
	}

	report := &Report{}
	if len(candidates) > opts.MaxFiles {
		report.Skipped = len(candidates) - opts.MaxFiles
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].modTime.After(candidates[j].modTime)
		})
		candidates = candidates[:opts.MaxFiles]
	}

	batches := groupIntoBatches(candidates)

	sem := semaphore.NewWeighted(int64(opts.Concurrency))
	results := make(chan batchResult, len(batches))

	for _, bt := range batches {
		bt := bt
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("audit cancelled: %w", err)
		}
		go func() {
			defer sem.Release(1)
			results <- b.runBatchWithRetry(ctx, bt)
		}()
	}

	for i := 0; i < len(batches); i++ {
		r := <-results
		if r.err != nil {
			report.ParseFailures = append(report.ParseFailures, batchLabel(r.batch))
			continue
		}
		report.Issues = append(report.Issues, reconcile(r.batch, r.issues)...)
	}

	return report, nil
}

type batchResult struct {
	batch  batch
	issues []agent.Issue
	err    error
}

// runBatchWithRetry executes one batch's Reviewer task, retrying up to
// retryAttempts total tries with a fixed delay between attempts.
func (b *Batcher) runBatchWithRetry(ctx context.Context, bt batch) batchResult {
	var lastErr error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		issues, err := b.runBatch(ctx, bt)
		if err == nil {
			return batchResult{batch: bt, issues: issues}
		}
		lastErr = err
		if attempt < retryAttempts {
			select {
			case <-ctx.Done():
				return batchResult{batch: bt, err: ctx.Err()}
			case <-time.After(retryDelay):
			}
		}
	}
	return batchResult{batch: bt, err: lastErr}
}

func (b *Batcher) runBatch(ctx context.Context, bt batch) ([]agent.Issue, error) {
	var prompt strings.Builder
	prompt.WriteString("Review the following files and reply with ONLY a JSON array of issues, ")
	prompt.WriteString("each shaped {title, description, severity, suggested_fix, file_path}.\n\n")
	for _, f := range bt.files {
		fmt.Fprintf(&prompt, "=== %s ===\n%s\n\n", f.relPath, f.content)
	}

	task := agent.Task{Kind: agent.KindAnalyze, Description: "whole-project audit batch", File: bt.dir, ExtraContext: prompt.String()}
	res, err := b.reviewer.Execute(ctx, task, b.actx)
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, res.Err
	}
	return agent.ParseIssues(res.Output)
}

// reconcile matches each issue's reported file_path against bt's files by
// suffix or exact basename, falling back to the batch's first file when
// no match is found.
func reconcile(bt batch, issues []agent.Issue) []agent.Issue {
	out := make([]agent.Issue, 0, len(issues))
	for _, iss := range issues {
		iss.FilePath = matchFile(bt, iss.FilePath)
		out = append(out, iss)
	}
	return out
}

func matchFile(bt batch, reported string) string {
	if reported != "" {
		for _, f := range bt.files {
			if f.relPath == reported || strings.HasSuffix(f.relPath, reported) {
				return f.relPath
			}
		}
		reportedBase := filepath.Base(reported)
		for _, f := range bt.files {
			if filepath.Base(f.relPath) == reportedBase {
				return f.relPath
			}
		}
	}
	if len(bt.files) > 0 {
		return bt.files[0].relPath
	}
	return reported
}

func batchLabel(bt batch) string {
	if len(bt.files) == 0 {
		return bt.dir
	}
	return bt.files[0].relPath
}

// groupIntoBatches groups candidates by parent directory, then splits each
// directory's files into batches of up to 8 files or 800 total lines.
func groupIntoBatches(candidates []candidate) []batch {
	byDir := make(map[string][]candidate)
	var dirOrder []string
	for _, c := range candidates {
		dir := filepath.Dir(c.relPath)
		if _, ok := byDir[dir]; !ok {
			dirOrder = append(dirOrder, dir)
		}
		byDir[dir] = append(byDir[dir], c)
	}

	var batches []batch
	for _, dir := range dirOrder {
		files := byDir[dir]
		var current []candidate
		currentLines := 0
		flush := func() {
			if len(current) > 0 {
				batches = append(batches, batch{dir: dir, files: current})
				current = nil
				currentLines = 0
			}
		}
		for _, f := range files {
			if len(current) >= batchMaxFiles || (currentLines+f.lines > batchMaxLines && len(current) > 0) {
				flush()
			}
			current = append(current, f)
			currentLines += f.lines
		}
		flush()
	}
	return batches
}

// selectCandidates walks opts.Root, respecting .gitignore conventions and
// configured ignore patterns, and reads every file whose extension is
// configured.
func selectCandidates(opts Options) ([]candidate, error) {
	ignoreMatcher, err := loadGitignore(opts.Root)
	if err != nil {
		return nil, err
	}

	extSet := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		extSet[e] = true
	}

	var out []candidate
	err = filepath.WalkDir(opts.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(opts.Root, path)
		if relErr != nil {
			return nil
		}
		if d.IsDir() {
			if rel != "." && (ignoreMatcher.match(rel, true) || matchesAny(opts.Ignore, rel)) {
				return filepath.SkipDir
			}
			return nil
		}
		if ignoreMatcher.match(rel, false) || matchesAny(opts.Ignore, rel) {
			return nil
		}
		if !extSet[filepath.Ext(path)] {
			return nil
		}

		info, statErr := d.Info()
		if statErr != nil {
			return nil
		}
		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}

		out = append(out, candidate{
			relPath: rel,
			absPath: path,
			modTime: info.ModTime(),
			content: content,
			lines:   strings.Count(string(content), "\n") + 1,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func matchesAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}
