package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sergiogswv/sentinel/internal/provider"
)

// Issue is one finding returned by the Reviewer, either from a single-file
// review or reconciled from a batch of files by the Audit Batcher.
type Issue struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Severity     string `json:"severity"`
	SuggestedFix string `json:"suggested_fix"`
	FilePath     string `json:"file_path"`
}

// Reviewer embeds the structural context block built from the index and
// asks the model for a structured list of issues.
type Reviewer struct{}

func NewReviewer() *Reviewer { return &Reviewer{} }

func (r *Reviewer) Name() string { return "reviewer" }

func (r *Reviewer) Execute(ctx context.Context, task Task, actx Context) (*Result, error) {
	block := structuralContextBlock(ctx, actx.Index)

	prompt := fmt.Sprintf(
		"%s\n\n%s\n\nTask: %s\n\nReview the file below and reply with ONLY a JSON array of issues, "+
			"each shaped {title, description, severity, suggested_fix, file_path}.\n\n%s",
		block, task.ExtraContext, task.Description, task.File,
	)

	resp, err := actx.Executor.Run(ctx, provider.Request{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("reviewer query: %w", err)
	}

	issues, err := ParseIssues(resp.Text)
	if err != nil {
		// A malformed reply is a non-fatal step failure: the workflow
		// engine short-circuits on this but the raw text is preserved.
		return &Result{Output: resp.Text, Err: err}, nil
	}

	out, _ := json.MarshalIndent(issues, "", "  ")
	return &Result{Output: string(out)}, nil
}

// ParseIssues decodes a model reply expected to be a JSON array of Issue.
// Models occasionally wrap the array in prose or a fenced code block;
// ExtractJSONArray strips that before decoding.
func ParseIssues(reply string) ([]Issue, error) {
	raw := ExtractJSONArray(reply)
	var issues []Issue
	if err := json.Unmarshal([]byte(raw), &issues); err != nil {
		return nil, fmt.Errorf("parse reviewer reply: %w", err)
	}
	return issues, nil
}

// ExtractJSONArray returns the substring of s spanning its first '[' to
// its last ']', or s unchanged if no bracket pair is found.
func ExtractJSONArray(s string) string {
	start := -1
	end := -1
	for i, r := range s {
		if r == '[' && start == -1 {
			start = i
		}
		if r == ']' {
			end = i
		}
	}
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
